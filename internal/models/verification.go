package models

import "time"

// Credibility is the trust classification of an evidence source.
type Credibility string

const (
	CredibilityHigh   Credibility = "High"
	CredibilityMedium Credibility = "Medium"
	CredibilityLow    Credibility = "Low"
)

// Tier is the presentation bucket derived from a score.
type Tier string

const (
	TierCritical Tier = "Critical"
	TierLow      Tier = "Low"
	TierMedium   Tier = "Medium"
	TierHigh     Tier = "High"
)

// SourceRef is the canonical form of one evidence source.
type SourceRef struct {
	Name        string      `json:"name"`
	Credibility Credibility `json:"credibility"`
}

// VerificationResult is the normalized outcome of one analysis call.
// Every field is populated after normalization.
type VerificationResult struct {
	Score           int         `json:"score"`
	Verdict         string      `json:"verdict"`
	Category        string      `json:"category"`
	ConfidenceScore int         `json:"confidence_score"`
	Sentiment       string      `json:"sentiment"`
	Reasoning       string      `json:"reasoning"`
	KeyEvidence     []string    `json:"key_evidence"`
	Sources         []SourceRef `json:"sources"`
	RelatedClaims   []string    `json:"related_claims"`
}

// VerificationRecord is one history entry. It is never mutated after creation.
type VerificationRecord struct {
	ID        string             `json:"id"`
	Claim     string             `json:"claim"`
	Language  string             `json:"language"`
	Result    VerificationResult `json:"result"`
	Tier      Tier               `json:"tier"`
	Color     string             `json:"color"`
	Timestamp time.Time          `json:"timestamp"`
}
