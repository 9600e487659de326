package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	authmodels "yeirin/internal/auth/models"
	userstore "yeirin/internal/auth/store/user"
	"yeirin/internal/notification/metrics"
	"yeirin/internal/notification/models"
	"yeirin/internal/notification/sender"
	"yeirin/internal/notification/store"
	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/requestcontext"
	"yeirin/pkg/testutil"
)

type stubSender struct {
	providerID string
	err        error
	sent       []sender.Outgoing
}

func (s *stubSender) Send(_ context.Context, msg sender.Outgoing) (string, error) {
	s.sent = append(s.sent, msg)
	if s.err != nil {
		return "", s.err
	}
	return s.providerID, nil
}

type NotificationServiceSuite struct {
	suite.Suite
	svc      *Service
	store    *store.InMemory
	sender   *stubSender
	metrics  *metrics.Metrics
	recorder *testutil.AuditRecorder
	users    *userstore.InMemoryUserStore
	guardian *authmodels.User
	now      time.Time
}

func TestNotificationServiceSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceSuite))
}

func (s *NotificationServiceSuite) SetupTest() {
	s.now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	s.store = store.NewInMemory()
	s.sender = &stubSender{providerID: "gw-1"}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.recorder = &testutil.AuditRecorder{}
	s.users = userstore.New()

	guardian, err := authmodels.NewUser("parent@example.com", "hash", "보호자", "010-1234-5678", id.RoleGuardian, id.InstitutionID{}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Save(context.Background(), guardian))
	s.guardian = guardian

	s.svc, err = New(s.store, s.sender, s.users,
		WithMetrics(s.metrics),
		WithAuditPublisher(s.recorder),
	)
	s.Require().NoError(err)
}

func (s *NotificationServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *NotificationServiceSuite) TestNotifyGuardianSendsToRegisteredPhone() {
	requestID := id.CounselRequestID(uuid.New())
	s.Require().NoError(s.svc.NotifyGuardian(s.ctx(), s.guardian.ID, requestID, "상담 요청이 전달되었습니다"))

	s.Require().Len(s.sender.sent, 1)
	s.Equal("010-1234-5678", s.sender.sent[0].To)

	msg, err := s.store.FindByProviderID(context.Background(), "gw-1")
	s.Require().NoError(err)
	s.Equal(models.StatusSent, msg.Status)
	s.Equal(requestID, msg.CounselRequestID)
	s.Equal(msg.ID.String(), s.sender.sent[0].Reference)

	s.Equal([]string{string(audit.EventSMSQueued)}, s.recorder.Actions())
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.Sent.WithLabelValues("sent")))
}

func (s *NotificationServiceSuite) TestGatewayFailureIsRecorded() {
	s.sender.err = errors.New("gateway down")
	requestID := id.CounselRequestID(uuid.New())

	err := s.svc.NotifyGuardian(s.ctx(), s.guardian.ID, requestID, "알림")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	list, err := s.store.ListByCounselRequest(context.Background(), requestID)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(models.StatusFailed, list[0].Status)
	s.Contains(list[0].Error, "gateway down")
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.Sent.WithLabelValues("failed")))
}

func (s *NotificationServiceSuite) TestGuardianWithoutPhone() {
	user, err := authmodels.NewUser("nophone@example.com", "hash", "보호자", "", id.RoleGuardian, id.InstitutionID{}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Save(context.Background(), user))

	err = s.svc.NotifyGuardian(s.ctx(), user.ID, id.CounselRequestID(uuid.New()), "알림")
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	s.Empty(s.sender.sent)

	err = s.svc.NotifyGuardian(s.ctx(), id.UserID(uuid.New()), id.CounselRequestID(uuid.New()), "알림")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *NotificationServiceSuite) TestHandleDelivery() {
	t := s.T()
	requestID := id.CounselRequestID(uuid.New())
	s.Require().NoError(s.svc.NotifyGuardian(s.ctx(), s.guardian.ID, requestID, "알림"))
	deliveredAt := s.now.Add(5 * time.Second)

	testutil.When(t, "the gateway reports delivery", func(t *testing.T) {
		require.NoError(t, s.svc.HandleDelivery(s.ctx(), models.DeliveryCallback{
			MessageID: "gw-1", Status: "delivered", DeliveredAt: &deliveredAt,
		}))
	})
	testutil.Then(t, "the message is delivered once", func(t *testing.T) {
		msg, err := s.store.FindByProviderID(context.Background(), "gw-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusDelivered, msg.Status)
		assert.Equal(t, deliveredAt, *msg.DeliveredAt)
		assert.Equal(t, []string{string(audit.EventSMSQueued), string(audit.EventSMSDeliveryUpdated)}, s.recorder.Actions())
	})
	testutil.And(t, "a replayed callback is a no-op", func(t *testing.T) {
		require.NoError(t, s.svc.HandleDelivery(s.ctx(), models.DeliveryCallback{MessageID: "gw-1", Status: "delivered"}))
		assert.Len(t, s.recorder.Actions(), 2)
	})
	testutil.And(t, "a contradicting callback conflicts", func(t *testing.T) {
		err := s.svc.HandleDelivery(s.ctx(), models.DeliveryCallback{MessageID: "gw-1", Status: "failed"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
	testutil.And(t, "unknown provider ids are not found", func(t *testing.T) {
		err := s.svc.HandleDelivery(s.ctx(), models.DeliveryCallback{MessageID: "gw-unknown", Status: "delivered"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
