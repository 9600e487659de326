package models

import (
	"time"

	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
)

// GrantRequest grants or renews consent for each listed purpose.
type GrantRequest struct {
	ChildID  string   `json:"childId" validate:"required,uuid"`
	Purposes []string `json:"purposes" validate:"required,min=1,max=4,dive,required"`
}

// RevokeRequest withdraws consent for each listed purpose.
type RevokeRequest struct {
	ChildID  string   `json:"childId" validate:"required,uuid"`
	Purposes []string `json:"purposes" validate:"required,min=1,max=4,dive,required"`
}

// ParsePurposes converts raw purposes, dropping duplicates while keeping order.
func ParsePurposes(raw []string) ([]id.ConsentPurpose, error) {
	if len(raw) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "purposes array must not be empty")
	}
	seen := make(map[id.ConsentPurpose]bool, len(raw))
	out := make([]id.ConsentPurpose, 0, len(raw))
	for _, r := range raw {
		p, err := id.ParseConsentPurpose(r)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid purpose: "+r)
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

type ConsentResponse struct {
	ID        string     `json:"id"`
	ChildID   string     `json:"childId"`
	Purpose   string     `json:"purpose"`
	Status    Status     `json:"status"`
	GrantedAt time.Time  `json:"grantedAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

type ListResponse struct {
	Consents []ConsentResponse `json:"consents"`
}

func ToResponse(c *Consent, now time.Time) ConsentResponse {
	return ConsentResponse{
		ID:        c.ID.String(),
		ChildID:   c.ChildID.String(),
		Purpose:   c.Purpose.String(),
		Status:    c.StatusAt(now),
		GrantedAt: c.GrantedAt,
		ExpiresAt: c.ExpiresAt,
		RevokedAt: c.RevokedAt,
	}
}

func ToListResponse(consents []*Consent, now time.Time) *ListResponse {
	resp := &ListResponse{Consents: make([]ConsentResponse, 0, len(consents))}
	for _, c := range consents {
		resp.Consents = append(resp.Consents, ToResponse(c, now))
	}
	return resp
}
