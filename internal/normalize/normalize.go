package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/DeafMist/credibility-engine/backend/internal/models"
)

const (
	DefaultScore      = 50
	DefaultVerdict    = "UNKNOWN"
	DefaultCategory   = "General"
	DefaultConfidence = 0
	DefaultSentiment  = "Neutral"
	UnknownSource     = "Unknown"
)

// trustLexicon marks bare-string sources as highly credible when the name contains one of these.
var trustLexicon = []string{"reuters", "ap", "gov", "edu", "bbc"}

// Field aliases observed across backend revisions. The first key present wins.
var (
	scoreKeys      = []string{"score", "credibility_score"}
	verdictKeys    = []string{"verdict"}
	categoryKeys   = []string{"category"}
	confidenceKeys = []string{"confidence_score", "confidenceScore", "confidence"}
	sentimentKeys  = []string{"sentiment"}
	reasoningKeys  = []string{"reasoning"}
	evidenceKeys   = []string{"key_evidence", "keyEvidence"}
	sourcesKeys    = []string{"sources"}
	relatedKeys    = []string{"related_claims", "relatedClaims"}
)

// Normalize converts a raw backend payload into a fully populated VerificationResult.
// It never fails: unknown keys are ignored and missing or mistyped fields take their defaults.
func Normalize(raw map[string]any) models.VerificationResult {
	return models.VerificationResult{
		Score:           intField(raw, scoreKeys, DefaultScore),
		Verdict:         labelField(raw, verdictKeys, DefaultVerdict),
		Category:        labelField(raw, categoryKeys, DefaultCategory),
		ConfidenceScore: intField(raw, confidenceKeys, DefaultConfidence),
		Sentiment:       labelField(raw, sentimentKeys, DefaultSentiment),
		Reasoning:       textField(raw, reasoningKeys),
		KeyEvidence:     stringsField(raw, evidenceKeys),
		Sources:         sourcesField(raw, sourcesKeys),
		RelatedClaims:   stringsField(raw, relatedKeys),
	}
}

// Decode parses a JSON body into the raw mapping consumed by Normalize.
// Only a single top-level JSON object is accepted; trailing data is an error.
func Decode(body []byte) (map[string]any, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("payload is not a JSON object")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return raw, nil
}

func lookup(raw map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// intField coerces a numeric value and clamps it into [0,100].
func intField(raw map[string]any, keys []string, fallback int) int {
	v, ok := lookup(raw, keys)
	if !ok {
		return fallback
	}
	f, ok := toFloat(v)
	if !ok {
		return fallback
	}
	return clamp(int(math.Round(f)))
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// labelField reads a short label; blank labels fall back to the default.
func labelField(raw map[string]any, keys []string, fallback string) string {
	v, ok := lookup(raw, keys)
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}

func textField(raw map[string]any, keys []string) string {
	v, ok := lookup(raw, keys)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// stringsField keeps the string entries of a list in order. A bare string becomes a
// single-entry list.
func stringsField(raw map[string]any, keys []string) []string {
	out := []string{}
	v, ok := lookup(raw, keys)
	if !ok {
		return out
	}
	switch items := v.(type) {
	case string:
		if strings.TrimSpace(items) != "" {
			out = append(out, items)
		}
	case []any:
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, items...)
	}
	return out
}

func sourcesField(raw map[string]any, keys []string) []models.SourceRef {
	out := []models.SourceRef{}
	v, ok := lookup(raw, keys)
	if !ok {
		return out
	}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		out = append(out, parseSource(item).resolve())
	}
	return out
}
