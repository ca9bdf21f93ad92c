package history_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/credibility-engine/backend/internal/history"
	"github.com/DeafMist/credibility-engine/backend/internal/models"
	"github.com/DeafMist/credibility-engine/backend/internal/tier"
)

func record(claim string, score int, category string) models.VerificationRecord {
	c := tier.Classify(score)
	return models.VerificationRecord{
		ID:    claim,
		Claim: claim,
		Result: models.VerificationResult{
			Score:    score,
			Verdict:  "UNKNOWN",
			Category: category,
		},
		Tier:      c.Tier,
		Color:     c.Color,
		Timestamp: time.Now(),
	}
}

func claims(records []models.VerificationRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Claim)
	}
	return out
}

func TestAppendNewestFirst(t *testing.T) {
	s := history.NewStore(history.NewestFirst)
	s.Append(record("a", 10, "Health"))
	s.Append(record("b", 60, "Science"))
	s.Append(record("c", 90, "Health"))

	require.Equal(t, 3, s.Len())
	require.Equal(t, []string{"c", "b", "a"}, claims(s.All()))

	health := s.Filter(func(r models.VerificationRecord) bool { return r.Result.Category == "Health" })
	require.Equal(t, []string{"c", "a"}, claims(health))
}

func TestAppendOldestFirst(t *testing.T) {
	s := history.NewStore(history.OldestFirst)
	require.Equal(t, history.OldestFirst, s.Order())
	require.Equal(t, "oldest", s.Order().String())
	s.Append(record("a", 10, "Health"))
	s.Append(record("b", 60, "Science"))
	require.Equal(t, []string{"a", "b"}, claims(s.All()))
}

func TestAllReturnsCopy(t *testing.T) {
	s := history.NewStore(history.OldestFirst)
	s.Append(record("a", 10, "Health"))

	got := s.All()
	got[0].Claim = "mutated"
	require.Equal(t, "a", s.All()[0].Claim)
}

func TestAggregate(t *testing.T) {
	s := history.NewStore(history.NewestFirst)
	for _, score := range []int{10, 60, 90, 80} {
		s.Append(record(fmt.Sprint(score), score, "General"))
	}

	sum := s.Aggregate()
	require.Equal(t, 4, sum.Count)
	mean, ok := sum.MeanScore()
	require.True(t, ok)
	require.InDelta(t, 60.0, mean, 1e-9)
	require.Equal(t, 2, sum.CountAbove(75))
	require.Equal(t, 1, sum.CountAbove(80))
	require.Equal(t, 1, sum.CountBelow(25))
	require.Equal(t, map[models.Tier]int{
		models.TierCritical: 1,
		models.TierMedium:   1,
		models.TierHigh:     2,
	}, sum.ByTier())
	require.Equal(t, map[string]int{"General": 4}, sum.ByCategory())
}

func TestAggregateEmptyReportsNoData(t *testing.T) {
	sum := history.NewStore(history.NewestFirst).Aggregate()
	require.Equal(t, 0, sum.Count)
	_, ok := sum.MeanScore()
	require.False(t, ok)
	require.Zero(t, sum.CountAbove(0))
	require.Zero(t, sum.CountBelow(100))
}

func TestConcurrentAppendAndRead(t *testing.T) {
	s := history.NewStore(history.NewestFirst)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Append(record(fmt.Sprint(i), i, "General"))
		}(i)
		go func() {
			defer wg.Done()
			sum := s.Aggregate()
			assert.LessOrEqual(t, sum.Count, 50)
		}()
	}
	wg.Wait()
	require.Equal(t, 50, s.Len())
}

func TestQueryMatch(t *testing.T) {
	s := history.NewStore(history.NewestFirst)
	s.Append(record("low", 20, "Health"))
	s.Append(record("mid", 55, "Health"))
	s.Append(record("high", 85, "Tech"))

	lo, hi := 30, 90
	got := s.Filter(history.Query{Category: "health", MinScore: &lo, MaxScore: &hi}.Match)
	require.Equal(t, []string{"mid"}, claims(got))

	got = s.Filter(history.Query{Tier: models.TierCritical}.Match)
	require.Equal(t, []string{"low"}, claims(got))

	require.Len(t, s.Filter(history.Query{}.Match), 3)
}

func TestParseOrder(t *testing.T) {
	o, err := history.ParseOrder("oldest")
	require.NoError(t, err)
	require.Equal(t, history.OldestFirst, o)

	o, err = history.ParseOrder("")
	require.NoError(t, err)
	require.Equal(t, history.NewestFirst, o)

	_, err = history.ParseOrder("random")
	require.Error(t, err)
}
