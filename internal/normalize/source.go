package normalize

import (
	"strings"

	"github.com/DeafMist/credibility-engine/backend/internal/models"
)

// rawSource is one element of the backend "sources" list, resolved once into a SourceRef.
type rawSource interface {
	resolve() models.SourceRef
}

// stringSource is a bare source name; its credibility is inferred from the trust lexicon.
type stringSource string

// recordSource is a {"name": ..., "credibility": ...} object.
type recordSource map[string]any

// unknownSource is anything else the backend might send.
type unknownSource struct{}

func parseSource(v any) rawSource {
	switch s := v.(type) {
	case string:
		return stringSource(s)
	case map[string]any:
		return recordSource(s)
	default:
		return unknownSource{}
	}
}

func (s stringSource) resolve() models.SourceRef {
	name := strings.TrimSpace(string(s))
	if name == "" {
		return unknownSource{}.resolve()
	}
	return models.SourceRef{Name: name, Credibility: InferCredibility(name)}
}

func (s recordSource) resolve() models.SourceRef {
	name := UnknownSource
	if n, ok := s["name"].(string); ok && strings.TrimSpace(n) != "" {
		name = strings.TrimSpace(n)
	}
	cred := models.CredibilityMedium
	if c, ok := s["credibility"].(string); ok {
		cred = ParseCredibility(c)
	}
	return models.SourceRef{Name: name, Credibility: cred}
}

func (unknownSource) resolve() models.SourceRef {
	return models.SourceRef{Name: UnknownSource, Credibility: models.CredibilityMedium}
}

// InferCredibility applies the trust lexicon to a source name.
func InferCredibility(name string) models.Credibility {
	lower := strings.ToLower(name)
	for _, marker := range trustLexicon {
		if strings.Contains(lower, marker) {
			return models.CredibilityHigh
		}
	}
	return models.CredibilityMedium
}

// ParseCredibility maps a label onto one of the three tiers, defaulting to Medium.
func ParseCredibility(raw string) models.Credibility {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return models.CredibilityHigh
	case "low":
		return models.CredibilityLow
	default:
		return models.CredibilityMedium
	}
}
