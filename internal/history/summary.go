package history

import "github.com/DeafMist/credibility-engine/backend/internal/models"

// Summary holds aggregate statistics over one snapshot of the store.
type Summary struct {
	Count      int
	scores     []int
	tiers      map[models.Tier]int
	categories map[string]int
}

func summarize(records []models.VerificationRecord) Summary {
	s := Summary{
		Count:      len(records),
		scores:     make([]int, 0, len(records)),
		tiers:      make(map[models.Tier]int),
		categories: make(map[string]int),
	}
	for _, rec := range records {
		s.scores = append(s.scores, rec.Result.Score)
		s.tiers[rec.Tier]++
		s.categories[rec.Result.Category]++
	}
	return s
}

// MeanScore returns the arithmetic mean of all scores. ok is false when there is no data.
func (s Summary) MeanScore() (mean float64, ok bool) {
	if len(s.scores) == 0 {
		return 0, false
	}
	total := 0
	for _, v := range s.scores {
		total += v
	}
	return float64(total) / float64(len(s.scores)), true
}

// CountAbove counts scores strictly greater than threshold.
func (s Summary) CountAbove(threshold int) int {
	n := 0
	for _, v := range s.scores {
		if v > threshold {
			n++
		}
	}
	return n
}

// CountBelow counts scores strictly less than threshold.
func (s Summary) CountBelow(threshold int) int {
	n := 0
	for _, v := range s.scores {
		if v < threshold {
			n++
		}
	}
	return n
}

// ByTier returns how many records fall in each tier.
func (s Summary) ByTier() map[models.Tier]int {
	out := make(map[models.Tier]int, len(s.tiers))
	for k, v := range s.tiers {
		out[k] = v
	}
	return out
}

// ByCategory returns how many records fall in each category.
func (s Summary) ByCategory() map[string]int {
	out := make(map[string]int, len(s.categories))
	for k, v := range s.categories {
		out[k] = v
	}
	return out
}
