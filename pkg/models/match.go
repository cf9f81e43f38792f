package models

// Tier buckets a match score
type Tier string

const (
	TierExact  Tier = "exact"
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Tier thresholds are inclusive lower bounds
const (
	ExactTierThreshold  = 0.9
	HighTierThreshold   = 0.7
	MediumTierThreshold = 0.5
)

// TierFor buckets score into a tier
func TierFor(score float64) Tier {
	switch {
	case score >= ExactTierThreshold:
		return TierExact
	case score >= HighTierThreshold:
		return TierHigh
	case score >= MediumTierThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// Matchable contact fields
const (
	FieldEmail   = "email"
	FieldPhone   = "phone"
	FieldName    = "name"
	FieldCompany = "company"
)

// MatchResult compares one candidate against one stored contact. It is
// computed fresh on every matching pass and never persisted.
type MatchResult struct {
	Contact       Contact  `json:"contact"`
	Score         float64  `json:"score"`
	MatchedFields []string `json:"matched_fields"`
	Tier          Tier     `json:"tier"`
}

// MatchListResponse is returned by the match endpoint
type MatchListResponse struct {
	Matches   []MatchResult `json:"matches"`
	BestMatch *MatchResult  `json:"best_match,omitempty"`
}
