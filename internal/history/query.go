package history

import (
	"strings"

	"github.com/DeafMist/credibility-engine/backend/internal/models"
)

// Query is a conjunction of optional record filters.
type Query struct {
	Verdict  string
	Category string
	Tier     models.Tier
	MinScore *int
	MaxScore *int
}

// Match reports whether rec satisfies every set filter. Text filters are case-insensitive.
func (q Query) Match(rec models.VerificationRecord) bool {
	if q.Verdict != "" && !strings.EqualFold(q.Verdict, rec.Result.Verdict) {
		return false
	}
	if q.Category != "" && !strings.EqualFold(q.Category, rec.Result.Category) {
		return false
	}
	if q.Tier != "" && !strings.EqualFold(string(q.Tier), string(rec.Tier)) {
		return false
	}
	if q.MinScore != nil && rec.Result.Score < *q.MinScore {
		return false
	}
	if q.MaxScore != nil && rec.Result.Score > *q.MaxScore {
		return false
	}
	return true
}
