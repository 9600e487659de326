package domain

import (
	"strings"
	"unicode/utf8"

	"yeirin/pkg/platform/result"
)

const (
	MaxReasonLength = 1000

	// HighScoreThreshold is fixed; it is not read from configuration.
	HighScoreThreshold = 0.7
)

// InstitutionRecommendation is one ranked candidate returned by the
// recommendation service.
type InstitutionRecommendation struct {
	institutionID InstitutionID
	score         RecommendationScore
	reason        string
}

type InstitutionRecommendationProps struct {
	InstitutionID InstitutionID
	Score         RecommendationScore
	Reason        string
}

func NewInstitutionRecommendation(props InstitutionRecommendationProps) result.Result[InstitutionRecommendation] {
	reason := strings.TrimSpace(props.Reason)
	if reason == "" {
		return result.Fail[InstitutionRecommendation](invalid(msgReasonEmpty))
	}
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return result.Fail[InstitutionRecommendation](invalid(msgReasonTooLong))
	}
	return result.Ok(InstitutionRecommendation{
		institutionID: props.InstitutionID,
		score:         props.Score,
		reason:        reason,
	})
}

func (r InstitutionRecommendation) InstitutionID() InstitutionID { return r.institutionID }
func (r InstitutionRecommendation) Score() RecommendationScore   { return r.score }
func (r InstitutionRecommendation) Reason() string               { return r.reason }

// IsHighScore reports whether the score reaches HighScoreThreshold (inclusive).
func (r InstitutionRecommendation) IsHighScore() bool {
	return r.score.Value() >= HighScoreThreshold
}
