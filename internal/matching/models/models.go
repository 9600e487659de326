package models

import "time"

// RecommendRequest is the inbound body of POST /api/v1/matching/recommendations.
type RecommendRequest struct {
	CounselRequestText string `json:"counselRequestText" validate:"required,min=10,max=5000"`
}

// RecommendationItem is one candidate in descending score order. The profile
// fields feed counsel-request persistence and are not serialized.
type RecommendationItem struct {
	InstitutionID string  `json:"institutionId"`
	Score         float64 `json:"score"`
	Reason        string  `json:"reason"`
	IsHighScore   bool    `json:"isHighScore"`

	CenterName    string  `json:"-"`
	Address       string  `json:"-"`
	AverageRating float64 `json:"-"`
}

type RecommendationResponse struct {
	CounselRequestText string               `json:"counselRequestText"`
	Recommendations    []RecommendationItem `json:"recommendations"`
	CreatedAt          time.Time            `json:"createdAt"`
}
