package models

import "time"

type CreateRequest struct {
	ChildID     string `json:"childId" validate:"required,uuid"`
	RequestText string `json:"requestText" validate:"required,max=5000"`
}

type SelectRequest struct {
	InstitutionID string `json:"institutionId" validate:"required,max=64"`
}

type CounselRequestResponse struct {
	ID                    string    `json:"id"`
	GuardianID            string    `json:"guardianId"`
	ChildID               string    `json:"childId"`
	RequestText           string    `json:"requestText"`
	Status                Status    `json:"status"`
	SelectedInstitutionID string    `json:"selectedInstitutionId,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

type ListResponse struct {
	CounselRequests []CounselRequestResponse `json:"counselRequests"`
}

type RecommendationResponse struct {
	ID            string    `json:"id"`
	InstitutionID string    `json:"institutionId"`
	CenterName    string    `json:"centerName"`
	Rank          int       `json:"rank"`
	Score         float64   `json:"score"`
	Reason        string    `json:"reason"`
	IsHighScore   bool      `json:"isHighScore"`
	CreatedAt     time.Time `json:"createdAt"`
}

type RecommendationListResponse struct {
	CounselRequestID string                   `json:"counselRequestId"`
	Status           Status                   `json:"status"`
	Recommendations  []RecommendationResponse `json:"recommendations"`
}

func ToResponse(c *CounselRequest) CounselRequestResponse {
	resp := CounselRequestResponse{
		ID:          c.ID.String(),
		GuardianID:  c.GuardianID.String(),
		ChildID:     c.ChildID.String(),
		RequestText: c.Text,
		Status:      c.Status,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if c.HasSelection() {
		resp.SelectedInstitutionID = c.SelectedInstitutionID.String()
	}
	return resp
}

func ToListResponse(list []*CounselRequest) *ListResponse {
	resp := &ListResponse{CounselRequests: make([]CounselRequestResponse, 0, len(list))}
	for _, c := range list {
		resp.CounselRequests = append(resp.CounselRequests, ToResponse(c))
	}
	return resp
}

func ToRecommendationList(c *CounselRequest, recs []*Recommendation) *RecommendationListResponse {
	resp := &RecommendationListResponse{
		CounselRequestID: c.ID.String(),
		Status:           c.Status,
		Recommendations:  make([]RecommendationResponse, 0, len(recs)),
	}
	for _, r := range recs {
		resp.Recommendations = append(resp.Recommendations, RecommendationResponse{
			ID:            r.ID.String(),
			InstitutionID: r.InstitutionID,
			CenterName:    r.CenterName,
			Rank:          r.Rank,
			Score:         r.Score,
			Reason:        r.Reason,
			IsHighScore:   r.IsHighScore,
			CreatedAt:     r.CreatedAt,
		})
	}
	return resp
}
