package domain

import (
	"slices"
	"time"

	"yeirin/pkg/platform/result"
)

const (
	MinRecommendations = 1
	MaxRecommendations = 10
)

// MatchingRecommendation is the aggregate built from one recommendation call.
// It has no mutators; every derived view is a fresh slice.
type MatchingRecommendation struct {
	counselRequestText CounselRequestText
	recommendations    []InstitutionRecommendation
	createdAt          time.Time
}

type MatchingRecommendationProps struct {
	CounselRequestText CounselRequestText
	Recommendations    []InstitutionRecommendation
	// CreatedAt defaults to the current time when zero.
	CreatedAt time.Time
}

func NewMatchingRecommendation(props MatchingRecommendationProps) result.Result[*MatchingRecommendation] {
	switch n := len(props.Recommendations); {
	case n < MinRecommendations:
		return result.Fail[*MatchingRecommendation](invalid(msgTooFewRecommendations))
	case n > MaxRecommendations:
		return result.Fail[*MatchingRecommendation](invalid(msgTooManyRecommendations))
	}

	createdAt := props.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return result.Ok(&MatchingRecommendation{
		counselRequestText: props.CounselRequestText,
		recommendations:    slices.Clone(props.Recommendations),
		createdAt:          createdAt,
	})
}

func (m *MatchingRecommendation) CounselRequestText() CounselRequestText { return m.counselRequestText }
func (m *MatchingRecommendation) CreatedAt() time.Time                   { return m.createdAt }
func (m *MatchingRecommendation) Len() int                               { return len(m.recommendations) }

// Recommendations returns the candidates in the order the service sent them.
func (m *MatchingRecommendation) Recommendations() []InstitutionRecommendation {
	return slices.Clone(m.recommendations)
}

// SortedByScore returns candidates by descending score. Ties keep their
// original relative order.
func (m *MatchingRecommendation) SortedByScore() []InstitutionRecommendation {
	sorted := slices.Clone(m.recommendations)
	slices.SortStableFunc(sorted, func(a, b InstitutionRecommendation) int {
		switch {
		case a.score.value > b.score.value:
			return -1
		case a.score.value < b.score.value:
			return 1
		default:
			return 0
		}
	})
	return sorted
}

// TopRecommendation is the highest-scored candidate. The constructor
// guarantees at least one exists.
func (m *MatchingRecommendation) TopRecommendation() InstitutionRecommendation {
	return m.SortedByScore()[0]
}

// HighScoredRecommendations filters by IsHighScore without reordering.
func (m *MatchingRecommendation) HighScoredRecommendations() []InstitutionRecommendation {
	out := make([]InstitutionRecommendation, 0, len(m.recommendations))
	for _, r := range m.recommendations {
		if r.IsHighScore() {
			out = append(out, r)
		}
	}
	return out
}
