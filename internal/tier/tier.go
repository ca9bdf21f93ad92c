package tier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/DeafMist/credibility-engine/backend/internal/models"
)

// Classification pairs a tier with its display color.
type Classification struct {
	Tier  models.Tier `json:"tier" yaml:"tier"`
	Color string      `json:"color" yaml:"color"`
}

// Policy holds the lower-inclusive thresholds of the four-tier scheme.
// A score >= High is High, >= Medium is Medium, >= Low is Low, anything below is Critical.
type Policy struct {
	High   int                    `yaml:"high"`
	Medium int                    `yaml:"medium"`
	Low    int                    `yaml:"low"`
	Colors map[models.Tier]string `yaml:"colors"`
}

// DefaultPolicy returns the canonical 80/50/25 scheme.
func DefaultPolicy() Policy {
	return Policy{
		High:   80,
		Medium: 50,
		Low:    25,
		Colors: map[models.Tier]string{
			models.TierHigh:     "green",
			models.TierMedium:   "yellow",
			models.TierLow:      "orange",
			models.TierCritical: "red",
		},
	}
}

// Classify maps a score onto a tier. It is total: scores outside [0,100] land in the
// outermost tiers.
func (p Policy) Classify(score int) Classification {
	var t models.Tier
	switch {
	case score >= p.High:
		t = models.TierHigh
	case score >= p.Medium:
		t = models.TierMedium
	case score >= p.Low:
		t = models.TierLow
	default:
		t = models.TierCritical
	}
	return Classification{Tier: t, Color: p.Colors[t]}
}

// Classify uses the default policy.
func Classify(score int) Classification {
	return defaultPolicy.Classify(score)
}

var defaultPolicy = DefaultPolicy()

// Validate checks that thresholds are strictly descending and every tier has a color.
func (p Policy) Validate() error {
	if !(p.High > p.Medium && p.Medium > p.Low) {
		return fmt.Errorf("tier thresholds must descend: high=%d medium=%d low=%d", p.High, p.Medium, p.Low)
	}
	if p.Low < 0 || p.High > 100 {
		return fmt.Errorf("tier thresholds must lie within [0,100]")
	}
	for _, t := range Tiers() {
		if p.Colors[t] == "" {
			return fmt.Errorf("tier %s has no color", t)
		}
	}
	return nil
}

// Tiers lists every tier from best to worst.
func Tiers() []models.Tier {
	return []models.Tier{models.TierHigh, models.TierMedium, models.TierLow, models.TierCritical}
}

// policyFile distinguishes a threshold set to zero from one left out.
type policyFile struct {
	High   *int                   `yaml:"high"`
	Medium *int                   `yaml:"medium"`
	Low    *int                   `yaml:"low"`
	Colors map[models.Tier]string `yaml:"colors"`
}

// LoadPolicy reads a YAML policy file. Fields missing from the file keep their defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read tier policy %s: %w", path, err)
	}

	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Policy{}, fmt.Errorf("parse tier policy: %w", err)
	}
	if file.High != nil {
		p.High = *file.High
	}
	if file.Medium != nil {
		p.Medium = *file.Medium
	}
	if file.Low != nil {
		p.Low = *file.Low
	}
	for t, c := range file.Colors {
		if c != "" {
			p.Colors[t] = c
		}
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}
