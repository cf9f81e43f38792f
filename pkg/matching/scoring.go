package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// Scorer provides the field comparison algorithms used by the Matcher
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// TokenOverlap compares two names token by token. Tokens of the first name
// longer than one character are matched verbatim against unused tokens of
// the second; the count is divided by the larger token count. Identical
// normalized names score 1.0 regardless of token length.
func (s *Scorer) TokenOverlap(a, b string) float64 {
	a = normalizers.NormalizeText(a)
	b = normalizers.NormalizeText(b)
	if a == b {
		return 1.0
	}

	tokensA := strings.Split(a, " ")
	tokensB := strings.Split(b, " ")
	used := make([]bool, len(tokensB))

	matches := 0
	for _, token := range tokensA {
		if utf8.RuneCountInString(token) <= 1 {
			continue
		}
		for i, other := range tokensB {
			if !used[i] && token == other {
				used[i] = true
				matches++
				break
			}
		}
	}

	return float64(matches) / float64(max(len(tokensA), len(tokensB)))
}

// StringSimilarity is a coarse similarity: 1.0 for equal normalized strings,
// 0.8 when one contains the other as a non-empty substring, 0.0 otherwise.
func (s *Scorer) StringSimilarity(a, b string) float64 {
	a = normalizers.NormalizeText(a)
	b = normalizers.NormalizeText(b)
	if a == b {
		return 1.0
	}
	if a != "" && b != "" && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return 0.8
	}
	return 0.0
}

// EmailsEqual compares normalized email addresses
func (s *Scorer) EmailsEqual(a, b string) bool {
	return normalizers.NormalizeEmail(a) == normalizers.NormalizeEmail(b)
}

// PhonesEqual compares phone numbers by their digits
func (s *Scorer) PhonesEqual(a, b string) bool {
	return normalizers.NormalizePhone(a) == normalizers.NormalizePhone(b)
}
