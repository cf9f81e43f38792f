// Package matching scores a candidate contact against stored contacts and
// ranks the likely duplicates.
package matching

import (
	"cmp"
	"iter"
	"math"
	"slices"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Config contains the weights and gates of the duplicate scorer
type Config struct {
	EmailWeight   float64
	PhoneWeight   float64
	NameWeight    float64
	CompanyWeight float64

	// NameThreshold is the token overlap a name must exceed to contribute
	NameThreshold float64
	// CompanyThreshold is the similarity a company must exceed to contribute
	CompanyThreshold float64
	// InclusionThreshold is the total score a stored contact must exceed to be reported
	InclusionThreshold float64
}

// DefaultConfig returns the default matcher configuration
func DefaultConfig() Config {
	return Config{
		EmailWeight:        0.4,
		PhoneWeight:        0.3,
		NameWeight:         0.2,
		CompanyWeight:      0.1,
		NameThreshold:      0.8,
		CompanyThreshold:   0.8,
		InclusionThreshold: 0.3,
	}
}

// Matcher finds likely duplicates of a candidate contact. It holds no state
// between calls.
type Matcher struct {
	scorer *Scorer
	config Config
}

// NewMatcher creates a new Matcher
func NewMatcher(config Config) *Matcher {
	return &Matcher{
		scorer: NewScorer(),
		config: config,
	}
}

// Config returns the matcher configuration
func (m *Matcher) Config() Config {
	return m.config
}

// scorePrecision absorbs float summation error so that, for example, an
// exact email, phone and name match lands on 0.9 instead of 0.8999999999999999.
const scorePrecision = 1e9

// Score sums the gated field contributions of stored against candidate and
// returns the contributing fields in evaluation order. A field absent on
// either side contributes nothing.
func (m *Matcher) Score(candidate, stored models.Contact) (float64, []string) {
	score := 0.0
	fields := []string{}

	if candidate.Email != "" && stored.Email != "" && m.scorer.EmailsEqual(candidate.Email, stored.Email) {
		score += m.config.EmailWeight
		fields = append(fields, models.FieldEmail)
	}

	if candidate.Phone != "" && stored.Phone != "" && m.scorer.PhonesEqual(candidate.Phone, stored.Phone) {
		score += m.config.PhoneWeight
		fields = append(fields, models.FieldPhone)
	}

	if candidate.Name != "" && stored.Name != "" {
		if ratio := m.scorer.TokenOverlap(candidate.Name, stored.Name); ratio > m.config.NameThreshold {
			score += m.config.NameWeight * ratio
			fields = append(fields, models.FieldName)
		}
	}

	if candidate.Company != "" && stored.Company != "" {
		if ratio := m.scorer.StringSimilarity(candidate.Company, stored.Company); ratio > m.config.CompanyThreshold {
			score += m.config.CompanyWeight * ratio
			fields = append(fields, models.FieldCompany)
		}
	}

	return math.Round(score*scorePrecision) / scorePrecision, fields
}

// Compare scores one stored contact and reports whether it clears the
// inclusion threshold.
func (m *Matcher) Compare(candidate, stored models.Contact) (models.MatchResult, bool) {
	score, fields := m.Score(candidate, stored)
	if score <= m.config.InclusionThreshold {
		return models.MatchResult{}, false
	}

	return models.MatchResult{
		Contact:       stored.Clone(),
		Score:         score,
		MatchedFields: fields,
		Tier:          models.TierFor(score),
	}, true
}

// Duplicates returns the ranked matches of candidate within corpus as a
// sequence. Nothing is computed until the sequence is ranged over, and every
// iteration rescans corpus from scratch. Ties keep corpus order.
func (m *Matcher) Duplicates(candidate models.Contact, corpus []models.Contact) iter.Seq[models.MatchResult] {
	return func(yield func(models.MatchResult) bool) {
		for _, result := range m.rank(candidate, corpus) {
			if !yield(result) {
				return
			}
		}
	}
}

// FindDuplicates returns the ranked matches of candidate within corpus. The
// first entry is the best match.
func (m *Matcher) FindDuplicates(candidate models.Contact, corpus []models.Contact) []models.MatchResult {
	return m.rank(candidate, corpus)
}

func (m *Matcher) rank(candidate models.Contact, corpus []models.Contact) []models.MatchResult {
	results := make([]models.MatchResult, 0)
	for _, stored := range corpus {
		if result, ok := m.Compare(candidate, stored); ok {
			results = append(results, result)
		}
	}

	slices.SortStableFunc(results, func(a, b models.MatchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return results
}
