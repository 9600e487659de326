package audit

import (
	"context"
	"time"

	id "yeirin/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers events with legal or regulatory significance:
	// consent changes, account creation, access to child data.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// login failures, revoked tokens, rate limit hits, deactivations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	// ActorID tracks who performed the action when different from UserID,
	// e.g. an admin deactivating an institution.
	ActorID   string
	Subject   string
	Action    string
	Purpose   string
	Decision  string
	Reason    string
	IP        string
	Device    string // human-readable label parsed from the User-Agent
	RequestID string
}

type AuditEvent string

const (
	// Auth events
	EventUserRegistered AuditEvent = "user_registered"
	EventLoginSucceeded AuditEvent = "login_succeeded"
	EventLoginFailed    AuditEvent = "login_failed"
	EventLoggedOut      AuditEvent = "logged_out"

	// Institution events
	EventInstitutionCreated     AuditEvent = "institution_created"
	EventInstitutionUpdated     AuditEvent = "institution_updated"
	EventInstitutionDeactivated AuditEvent = "institution_deactivated"
	EventInstitutionReactivated AuditEvent = "institution_reactivated"

	// Child events
	EventChildRegistered AuditEvent = "child_registered"
	EventChildDeleted    AuditEvent = "child_deleted"

	// Matching and counsel request events
	EventRecommendationRequested AuditEvent = "recommendation_requested"
	EventCounselRequestCreated   AuditEvent = "counsel_request_created"
	EventCounselRequestMatched   AuditEvent = "counsel_request_matched"
	EventCounselRequestAccepted  AuditEvent = "counsel_request_accepted"
	EventCounselRequestRejected  AuditEvent = "counsel_request_rejected"
	EventCounselRequestCompleted AuditEvent = "counsel_request_completed"
	EventCounselRequestCancelled AuditEvent = "counsel_request_cancelled"

	// Consent events
	EventConsentGranted AuditEvent = "consent_granted"
	EventConsentRevoked AuditEvent = "consent_revoked"
	EventConsentDenied  AuditEvent = "consent_denied"

	// Report, review and notification events
	EventReportCreated      AuditEvent = "report_created"
	EventReportAttached     AuditEvent = "report_attachment_uploaded"
	EventReviewCreated      AuditEvent = "review_created"
	EventSMSQueued          AuditEvent = "sms_queued"
	EventSMSDeliveryUpdated AuditEvent = "sms_delivery_updated"

	// Rate limit events
	EventRateLimitExceeded AuditEvent = "rate_limit_exceeded"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserRegistered:          CategoryCompliance,
	EventChildRegistered:         CategoryCompliance,
	EventChildDeleted:            CategoryCompliance,
	EventConsentGranted:          CategoryCompliance,
	EventConsentRevoked:          CategoryCompliance,
	EventCounselRequestMatched:   CategoryCompliance,
	EventReportCreated:           CategoryCompliance,
	EventReportAttached:          CategoryCompliance,
	EventRecommendationRequested: CategoryCompliance,

	EventLoginFailed:            CategorySecurity,
	EventLoggedOut:              CategorySecurity,
	EventConsentDenied:          CategorySecurity,
	EventRateLimitExceeded:      CategorySecurity,
	EventInstitutionDeactivated: CategorySecurity,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Sink receives flushed batches. Implementations must be safe for concurrent use.
type Sink interface {
	Write(ctx context.Context, events []Event) error
}

// Reader serves the admin audit listing.
type Reader interface {
	ListRecent(ctx context.Context, limit int) ([]Event, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

// Store is a sink that can also be queried.
type Store interface {
	Sink
	Reader
}
