package admin

import (
	"time"

	audit "yeirin/pkg/platform/audit"
)

// AuditEventResponse is one audit record as shown to administrators.
type AuditEventResponse struct {
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId,omitempty"`
	ActorID   string    `json:"actorId,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Action    string    `json:"action"`
	Purpose   string    `json:"purpose,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Device    string    `json:"device,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
}

type AuditListResponse struct {
	Events []AuditEventResponse `json:"events"`
	Total  int                  `json:"total"`
}

func toAuditResponse(e audit.Event) AuditEventResponse {
	resp := AuditEventResponse{
		Category:  string(e.Category),
		Timestamp: e.Timestamp,
		ActorID:   e.ActorID,
		Subject:   e.Subject,
		Action:    e.Action,
		Purpose:   e.Purpose,
		Decision:  e.Decision,
		Reason:    e.Reason,
		IP:        e.IP,
		Device:    e.Device,
		RequestID: e.RequestID,
	}
	if !e.UserID.IsNil() {
		resp.UserID = e.UserID.String()
	}
	return resp
}

func toAuditListResponse(events []audit.Event) *AuditListResponse {
	out := make([]AuditEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toAuditResponse(e))
	}
	return &AuditListResponse{Events: out, Total: len(out)}
}
