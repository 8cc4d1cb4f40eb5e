// utils/answer.go
package utils

import (
	"strings"
	"unicode"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeAnswer folds a one-word answer for comparison: trim, lowercase,
// strip combining marks ("éléphant" → "elephant"), then ASCII-fold what the
// decomposition cannot reach ("œuvre" → "oeuvre").
func NormalizeAnswer(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	return unidecode.Unidecode(s)
}

// AnswersMatch compares a submitted answer against the expected one,
// accent- and case-insensitively.
func AnswersMatch(submitted, expected string) bool {
	n := NormalizeAnswer(submitted)
	return n != "" && n == NormalizeAnswer(expected)
}
