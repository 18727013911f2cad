// Package normalize provides the canonical text form used for matching
// and the content-derived stable item identity built on top of it.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"

	"estimate_recon/pkg/models"
)

// Description canonicalizes a line-item description for comparison:
// NFKC fold, lower-case, punctuation stripped, whitespace collapsed.
func Description(s string) string {
	folded := norm.NFKC.String(s)
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			// Punctuation, symbols, and whitespace all collapse to a
			// single separator.
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Similarity is the normalized edit-distance ratio between two
// already-normalized descriptions, in [0,1]. Two empty strings are
// maximally similar.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// ItemID derives a stable identifier from an item's side, input index,
// and normalized description. Identical input always produces identical
// IDs, so two runs over the same estimates agree item for item.
func ItemID(side models.EstimateSide, index int, description string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", side, index, Description(description))))
	return hex.EncodeToString(h[:8])
}
