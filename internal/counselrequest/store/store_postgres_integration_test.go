//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	authmodels "yeirin/internal/auth/models"
	userstore "yeirin/internal/auth/store/user"
	childmodels "yeirin/internal/child/models"
	childstore "yeirin/internal/child/store"
	"yeirin/internal/counselrequest/models"
	"yeirin/internal/counselrequest/store"
	instmodels "yeirin/internal/institution/models"
	inststore "yeirin/internal/institution/store"
	"yeirin/internal/platform/postgres"
	id "yeirin/pkg/domain"
	"yeirin/pkg/testutil/containers"
)

type PostgresCounselRequestStoreSuite struct {
	suite.Suite
	pg       *containers.PostgresContainer
	store    *store.PostgresStore
	guardian id.UserID
	childID  id.ChildID
	inst     id.InstitutionID
	now      time.Time
}

func TestPostgresCounselRequestStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresCounselRequestStoreSuite))
}

func (s *PostgresCounselRequestStoreSuite) SetupSuite() {
	ctx := context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.Migrate(ctx, s.pg.DB, nil))
	s.store = store.NewPostgres(s.pg.DB)
	s.now = time.Now().UTC().Truncate(time.Microsecond)

	inst, err := instmodels.NewInstitution(id.InstitutionID(uuid.New()), "한빛 상담센터", instmodels.TypeCommunityCenter,
		"Seoul", "02-111-2222", 10, nil, s.now)
	s.Require().NoError(err)
	s.Require().NoError(inststore.NewPostgres(s.pg.DB).CreateIfNameAvailable(ctx, inst))
	s.inst = inst.ID

	user, err := authmodels.NewUser("parent@example.com", "hash", "보호자", "010-0000-0000", id.RoleGuardian, id.InstitutionID{}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(userstore.NewPostgres(s.pg.DB).Save(ctx, user))
	s.guardian = user.ID

	child, err := childmodels.NewChild(id.ChildID(uuid.New()), s.guardian, "서준",
		time.Date(2015, 1, 2, 0, 0, 0, 0, time.UTC), childmodels.GenderMale, "", s.now)
	s.Require().NoError(err)
	s.Require().NoError(childstore.NewPostgres(s.pg.DB).Save(ctx, child))
	s.childID = child.ID
}

func (s *PostgresCounselRequestStoreSuite) newRequest() *models.CounselRequest {
	c, err := models.NewCounselRequest(id.CounselRequestID(uuid.New()), s.guardian, s.childID,
		"아이가 친구 관계로 많이 힘들어합니다", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), c))
	return c
}

func (s *PostgresCounselRequestStoreSuite) TestSelectionRoundTrip() {
	ctx := context.Background()
	c := s.newRequest()

	_, err := s.store.Execute(ctx, c.ID,
		func(c *models.CounselRequest) error { return c.CanRequestRecommendations() },
		func(c *models.CounselRequest) { c.MarkRecommended(s.now) },
	)
	s.Require().NoError(err)
	updated, err := s.store.Execute(ctx, c.ID,
		func(c *models.CounselRequest) error { return c.CanMoveTo(models.StatusMatched) },
		func(c *models.CounselRequest) { c.Select(s.inst, s.now) },
	)
	s.Require().NoError(err)
	s.Equal(s.inst, updated.SelectedInstitutionID)

	list, err := s.store.ListByInstitution(ctx, s.inst)
	s.Require().NoError(err)
	s.Require().NotEmpty(list)
	s.Equal(models.StatusMatched, list[0].Status)

	_, err = s.store.Execute(ctx, c.ID,
		func(c *models.CounselRequest) error { return c.CanMoveTo(models.StatusRecommended) },
		func(c *models.CounselRequest) { c.Reject(s.now) },
	)
	s.Require().NoError(err)
	found, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.False(found.HasSelection())
}

func (s *PostgresCounselRequestStoreSuite) TestReplaceRecommendations() {
	ctx := context.Background()
	c := s.newRequest()
	recs := []*models.Recommendation{
		{ID: id.RecommendationID(uuid.New()), CounselRequestID: c.ID, InstitutionID: s.inst.String(), CenterName: "한빛", Rank: 1, Score: 0.9, Reason: "a", IsHighScore: true, CreatedAt: s.now},
		{ID: id.RecommendationID(uuid.New()), CounselRequestID: c.ID, InstitutionID: "external-3", Rank: 2, Score: 0.4, Reason: "b", CreatedAt: s.now},
	}
	s.Require().NoError(s.store.ReplaceRecommendations(ctx, c.ID, recs))
	s.Require().NoError(s.store.ReplaceRecommendations(ctx, c.ID, recs[1:]))

	got, err := s.store.ListRecommendations(ctx, c.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("external-3", got[0].InstitutionID)
}

func (s *PostgresCounselRequestStoreSuite) TestConcurrentCancelAppliesOnce() {
	ctx := context.Background()
	c := s.newRequest()

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, c.ID,
				func(c *models.CounselRequest) error { return c.CanMoveTo(models.StatusCancelled) },
				func(c *models.CounselRequest) { c.Cancel(s.now) },
			)
			if err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
}
