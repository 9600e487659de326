package models

import (
	"time"

	"github.com/google/uuid"

	matchingmodels "yeirin/internal/matching/models"
	id "yeirin/pkg/domain"
)

// Recommendation is the stored form of one matching candidate. InstitutionID
// is kept as the recommendation service reported it.
type Recommendation struct {
	ID               id.RecommendationID
	CounselRequestID id.CounselRequestID
	InstitutionID    string
	CenterName       string
	Rank             int
	Score            float64
	Reason           string
	IsHighScore      bool
	CreatedAt        time.Time
}

// FromMatching ranks candidates from 1 in the order given, which is
// descending score.
func FromMatching(requestID id.CounselRequestID, resp *matchingmodels.RecommendationResponse, now time.Time) []*Recommendation {
	out := make([]*Recommendation, 0, len(resp.Recommendations))
	for i, item := range resp.Recommendations {
		out = append(out, &Recommendation{
			ID:               id.RecommendationID(uuid.New()),
			CounselRequestID: requestID,
			InstitutionID:    item.InstitutionID,
			CenterName:       item.CenterName,
			Rank:             i + 1,
			Score:            item.Score,
			Reason:           item.Reason,
			IsHighScore:      item.IsHighScore,
			CreatedAt:        now,
		})
	}
	return out
}

// FindInstitution returns the stored candidate for institutionID, if any.
func FindInstitution(recs []*Recommendation, institutionID string) (*Recommendation, bool) {
	for _, r := range recs {
		if r.InstitutionID == institutionID {
			return r, true
		}
	}
	return nil, false
}
