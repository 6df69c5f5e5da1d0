// Package normalize provides the single text-normalization pass required by
// spec §3.2. Every comparison that feeds alias matching, fingerprinting,
// hint condition matching, or history dedupe must go through Text — ad hoc
// lowercase/strip elsewhere is a bug, not a style choice.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Text normalizes s: Unicode NFKD, strip combining marks (accents),
// lower-case, collapse internal whitespace, trim.
//
// It is idempotent: Text(Text(x)) == Text(x) for any input, because every
// step it performs (decomposition, mark removal, case folding, whitespace
// collapse) is itself idempotent and their composition preserves that.
func Text(s string) string {
	decomposed, _, err := transform.String(norm.NFKD, s)
	if err != nil {
		decomposed = s
	}

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue // combining mark (accent)
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return collapseWhitespace(b.String())
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
