package ports

import (
	"context"

	"yeirin/internal/matching/domain"
)

//go:generate mockgen -source=recommendation.go -destination=mocks/recommendation_mock.go -package=mocks RecommendationRepository

// RecommendationResult is what one recommendation call yields: the validated
// aggregate plus the descriptive profile of each candidate, keyed by the
// institution id as the service reported it.
type RecommendationResult struct {
	Matching          *domain.MatchingRecommendation
	Profiles          map[string]domain.InstitutionProfile
	TotalInstitutions int
}

// RecommendationRepository obtains ranked institution candidates for a
// counseling request from the external scoring service.
type RecommendationRepository interface {
	RequestRecommendation(ctx context.Context, text domain.CounselRequestText) (*RecommendationResult, error)
}
