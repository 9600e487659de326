package domain

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func mustRec(t *testing.T, institutionID string, score float64) InstitutionRecommendation {
	t.Helper()
	r := NewInstitutionRecommendation(InstitutionRecommendationProps{
		InstitutionID: NewInstitutionID(institutionID).Value(),
		Score:         NewRecommendationScore(score).Value(),
		Reason:        "아동 심리 상담 전문 기관입니다",
	})
	require.True(t, r.IsOk(), "fixture construction failed: %v", r.Err())
	return r.Value()
}

func mustText(t *testing.T) CounselRequestText {
	t.Helper()
	r := NewCounselRequestText("아이가 학교에서 친구들과 잘 어울리지 못해요")
	require.True(t, r.IsOk())
	return r.Value()
}

func scoresOf(recs []InstitutionRecommendation) []float64 {
	out := make([]float64, len(recs))
	for i, r := range recs {
		out[i] = r.Score().Value()
	}
	return out
}

type ValueObjectSuite struct {
	suite.Suite
}

func TestValueObjectSuite(t *testing.T) {
	suite.Run(t, new(ValueObjectSuite))
}

func (s *ValueObjectSuite) TestCounselRequestText() {
	s.Run("accepts lengths 10 through 5000 and stores the trimmed value", func() {
		for _, n := range []int{10, 11, 100, 4999, 5000} {
			raw := "  " + strings.Repeat("가", n) + "\n\t"
			r := NewCounselRequestText(raw)
			s.Require().True(r.IsOk(), "length %d", n)
			s.Equal(strings.TrimSpace(raw), r.Value().Value())
		}
	})

	s.Run("empty and whitespace-only input fails as empty", func() {
		for _, raw := range []string{"", "   ", "\n\t "} {
			r := NewCounselRequestText(raw)
			s.Require().True(r.IsFail())
			s.Equal("상담 요청 내용은 비어있을 수 없습니다", r.Err().Error())
		}
	})

	s.Run("fewer than ten characters after trim fails as too short", func() {
		for _, raw := range []string{"a", "123456789", "   짧은 글   "} {
			r := NewCounselRequestText(raw)
			s.Require().True(r.IsFail(), raw)
			s.Equal("상담 요청 내용은 최소 10자 이상이어야 합니다", r.Err().Error())
		}
	})

	s.Run("more than five thousand characters fails as too long", func() {
		r := NewCounselRequestText(strings.Repeat("a", 5001))
		s.Require().True(r.IsFail())
		s.Equal("상담 요청 내용은 최대 5000자까지 입력 가능합니다", r.Err().Error())
	})

	s.Run("length counts characters not bytes", func() {
		// 5000 Hangul syllables are 15000 bytes
		s.True(NewCounselRequestText(strings.Repeat("상", 5000)).IsOk())
		s.True(NewCounselRequestText(strings.Repeat("상", 10)).IsOk())
	})

	s.Run("failures are validation errors", func() {
		var verr *ValidationError
		s.ErrorAs(NewCounselRequestText("").Err(), &verr)
	})
}

func (s *ValueObjectSuite) TestInstitutionID() {
	s.True(NewInstitutionID("inst-001").IsOk())
	s.Equal("inst-001", NewInstitutionID("inst-001").Value().Value())
	for _, raw := range []string{"", "  "} {
		r := NewInstitutionID(raw)
		s.Require().True(r.IsFail())
		s.Equal("기관 ID는 비어있을 수 없습니다", r.Err().Error())
	}
	s.True(NewInstitutionID("a").Value().Equals(NewInstitutionID("a").Value()))
}

func (s *ValueObjectSuite) TestRecommendationScore() {
	s.Run("closed unit interval is accepted without rounding", func() {
		for _, x := range []float64{0.0, 1e-9, 0.5, 0.699999, 0.7, 0.99999, 1.0} {
			r := NewRecommendationScore(x)
			s.Require().True(r.IsOk(), "%v", x)
			s.Equal(x, r.Value().Value())
		}
	})

	s.Run("values outside the interval fail", func() {
		for _, x := range []float64{-0.0001, -1, 1.0001, 2, math.Inf(1), math.Inf(-1), math.NaN()} {
			r := NewRecommendationScore(x)
			s.Require().True(r.IsFail(), "%v", x)
			s.Equal("추천 점수는 0.0에서 1.0 사이여야 합니다", r.Err().Error())
		}
	})

	s.Run("equality uses a 1e-4 tolerance", func() {
		a := NewRecommendationScore(0.5).Value()
		s.True(a.Equals(NewRecommendationScore(0.50005).Value()))
		s.False(a.Equals(NewRecommendationScore(0.5002).Value()))
	})
}

func TestInstitutionRecommendation(t *testing.T) {
	id := NewInstitutionID("inst-1").Value()
	score := NewRecommendationScore(0.8).Value()

	t.Run("reason is trimmed", func(t *testing.T) {
		r := NewInstitutionRecommendation(InstitutionRecommendationProps{InstitutionID: id, Score: score, Reason: "  가까운 거리  "})
		require.True(t, r.IsOk())
		assert.Equal(t, "가까운 거리", r.Value().Reason())
		assert.Equal(t, id, r.Value().InstitutionID())
		assert.Equal(t, 0.8, r.Value().Score().Value())
	})

	t.Run("blank reason fails", func(t *testing.T) {
		r := NewInstitutionRecommendation(InstitutionRecommendationProps{InstitutionID: id, Score: score, Reason: " \n "})
		require.True(t, r.IsFail())
		assert.Equal(t, "추천 사유는 비어있을 수 없습니다", r.Err().Error())
	})

	t.Run("reason over 1000 characters fails", func(t *testing.T) {
		ok := NewInstitutionRecommendation(InstitutionRecommendationProps{InstitutionID: id, Score: score, Reason: strings.Repeat("이", 1000)})
		assert.True(t, ok.IsOk())

		r := NewInstitutionRecommendation(InstitutionRecommendationProps{InstitutionID: id, Score: score, Reason: strings.Repeat("이", 1001)})
		require.True(t, r.IsFail())
		assert.Equal(t, "추천 사유는 최대 1000자까지 입력 가능합니다", r.Err().Error())
	})

	t.Run("high score threshold is inclusive at 0.7", func(t *testing.T) {
		assert.True(t, mustRec(t, "a", 0.7).IsHighScore())
		assert.False(t, mustRec(t, "b", 0.699999).IsHighScore())
		assert.True(t, mustRec(t, "c", 1.0).IsHighScore())
		assert.False(t, mustRec(t, "d", 0.0).IsHighScore())
	})
}

type AggregateSuite struct {
	suite.Suite
	text CounselRequestText
}

func TestAggregateSuite(t *testing.T) {
	suite.Run(t, new(AggregateSuite))
}

func (s *AggregateSuite) SetupTest() {
	s.text = mustText(s.T())
}

func (s *AggregateSuite) build(scores ...float64) *MatchingRecommendation {
	recs := make([]InstitutionRecommendation, len(scores))
	for i, sc := range scores {
		recs[i] = mustRec(s.T(), fmt.Sprintf("inst-%d", i), sc)
	}
	r := NewMatchingRecommendation(MatchingRecommendationProps{CounselRequestText: s.text, Recommendations: recs})
	s.Require().True(r.IsOk())
	return r.Value()
}

func (s *AggregateSuite) TestSizeBounds() {
	s.Run("zero recommendations fails", func() {
		r := NewMatchingRecommendation(MatchingRecommendationProps{CounselRequestText: s.text})
		s.Require().True(r.IsFail())
		s.Equal("추천 결과는 최소 1개 이상이어야 합니다", r.Err().Error())
	})

	s.Run("eleven recommendations fails", func() {
		recs := make([]InstitutionRecommendation, 11)
		for i := range recs {
			recs[i] = mustRec(s.T(), fmt.Sprintf("inst-%d", i), 0.5)
		}
		r := NewMatchingRecommendation(MatchingRecommendationProps{CounselRequestText: s.text, Recommendations: recs})
		s.Require().True(r.IsFail())
		s.Equal("추천 결과는 최대 10개까지만 가능합니다", r.Err().Error())
	})

	s.Run("one through ten succeed", func() {
		for n := 1; n <= 10; n++ {
			recs := make([]InstitutionRecommendation, n)
			for i := range recs {
				recs[i] = mustRec(s.T(), fmt.Sprintf("inst-%d", i), 0.5)
			}
			r := NewMatchingRecommendation(MatchingRecommendationProps{CounselRequestText: s.text, Recommendations: recs})
			s.True(r.IsOk(), "n=%d", n)
		}
	})
}

func (s *AggregateSuite) TestCreatedAt() {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewMatchingRecommendation(MatchingRecommendationProps{
		CounselRequestText: s.text,
		Recommendations:    []InstitutionRecommendation{mustRec(s.T(), "x", 0.1)},
		CreatedAt:          at,
	})
	s.Require().True(r.IsOk())
	s.Equal(at, r.Value().CreatedAt())
	s.Equal(s.text, r.Value().CounselRequestText())

	defaulted := s.build(0.1)
	s.False(defaulted.CreatedAt().IsZero())
}

func (s *AggregateSuite) TestSortedByScore() {
	m := s.build(0.7, 0.9, 0.8)

	s.Equal([]float64{0.9, 0.8, 0.7}, scoresOf(m.SortedByScore()))
	s.Equal(0.9, m.TopRecommendation().Score().Value())
	s.Equal("inst-1", m.TopRecommendation().InstitutionID().Value())

	s.Run("does not reorder the aggregate", func() {
		s.Equal([]float64{0.7, 0.9, 0.8}, scoresOf(m.Recommendations()))
	})

	s.Run("ties keep input order", func() {
		tied := s.build(0.5, 0.9, 0.5, 0.5)
		sorted := tied.SortedByScore()
		s.Equal("inst-1", sorted[0].InstitutionID().Value())
		s.Equal("inst-0", sorted[1].InstitutionID().Value())
		s.Equal("inst-2", sorted[2].InstitutionID().Value())
		s.Equal("inst-3", sorted[3].InstitutionID().Value())
	})
}

func (s *AggregateSuite) TestHighScoredRecommendations() {
	m := s.build(0.6, 0.8, 0.75)
	high := m.HighScoredRecommendations()
	s.Equal([]float64{0.8, 0.75}, scoresOf(high))
	s.Equal("inst-1", high[0].InstitutionID().Value())
	s.Equal("inst-2", high[1].InstitutionID().Value())

	s.Empty(s.build(0.1, 0.2).HighScoredRecommendations())
}

func (s *AggregateSuite) TestReturnedSlicesAreCopies() {
	recs := []InstitutionRecommendation{mustRec(s.T(), "a", 0.3), mustRec(s.T(), "b", 0.4)}
	m := NewMatchingRecommendation(MatchingRecommendationProps{CounselRequestText: s.text, Recommendations: recs}).Value()

	recs[0] = mustRec(s.T(), "mutated", 0.99)
	s.Equal("a", m.Recommendations()[0].InstitutionID().Value())

	view := m.Recommendations()
	view[1] = mustRec(s.T(), "mutated", 0.99)
	s.Equal("b", m.Recommendations()[1].InstitutionID().Value())

	sorted := m.SortedByScore()
	sorted[0] = mustRec(s.T(), "mutated", 0.99)
	s.Equal("b", m.TopRecommendation().InstitutionID().Value())
}
