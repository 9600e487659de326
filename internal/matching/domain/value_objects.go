package domain

import (
	"math"
	"strings"
	"unicode/utf8"

	"yeirin/pkg/platform/result"
)

const (
	MinCounselRequestTextLength = 10
	MaxCounselRequestTextLength = 5000

	scoreEpsilon = 1e-4
)

// CounselRequestText is a guardian's free-text description of the child's
// situation, trimmed and bounded in characters.
type CounselRequestText struct {
	value string
}

func NewCounselRequestText(raw string) result.Result[CounselRequestText] {
	trimmed := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(trimmed)
	switch {
	case n == 0:
		return result.Fail[CounselRequestText](invalid(msgTextEmpty))
	case n < MinCounselRequestTextLength:
		return result.Fail[CounselRequestText](invalid(msgTextTooShort))
	case n > MaxCounselRequestTextLength:
		return result.Fail[CounselRequestText](invalid(msgTextTooLong))
	}
	return result.Ok(CounselRequestText{value: trimmed})
}

func (t CounselRequestText) Value() string  { return t.value }
func (t CounselRequestText) String() string { return t.value }

func (t CounselRequestText) Equals(other CounselRequestText) bool {
	return t.value == other.value
}

// InstitutionID identifies an institution as the recommendation service
// reports it. It is opaque here; only emptiness is rejected.
type InstitutionID struct {
	value string
}

func NewInstitutionID(raw string) result.Result[InstitutionID] {
	if strings.TrimSpace(raw) == "" {
		return result.Fail[InstitutionID](invalid(msgInstitutionIDEmpty))
	}
	return result.Ok(InstitutionID{value: raw})
}

func (i InstitutionID) Value() string  { return i.value }
func (i InstitutionID) String() string { return i.value }

func (i InstitutionID) Equals(other InstitutionID) bool {
	return i.value == other.value
}

// RecommendationScore is a match confidence in the closed interval [0, 1].
type RecommendationScore struct {
	value float64
}

func NewRecommendationScore(raw float64) result.Result[RecommendationScore] {
	if math.IsNaN(raw) || raw < 0.0 || raw > 1.0 {
		return result.Fail[RecommendationScore](invalid(msgScoreOutOfRange))
	}
	return result.Ok(RecommendationScore{value: raw})
}

func (s RecommendationScore) Value() float64 { return s.value }

// Equals compares scores with a 1e-4 tolerance.
func (s RecommendationScore) Equals(other RecommendationScore) bool {
	return math.Abs(s.value-other.value) < scoreEpsilon
}
