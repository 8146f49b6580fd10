package bulk

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName folds a card name to the key used by the name index:
// Unicode compatibility decomposition, combining marks stripped,
// lowercased, trimmed. Computed once at ingestion, never per query.
func NormalizeName(input string) string {
	decomposed := norm.NFKD.String(input)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	return strings.ToLower(strings.TrimSpace(b.String()))
}

// releaseTime parses a card's release date for recency scoring. Missing
// or malformed dates sort as oldest.
func releaseTime(releasedAt string) int64 {
	if releasedAt == "" {
		return 0
	}
	t, err := time.Parse("2006-01-02", releasedAt)
	if err != nil {
		return 0
	}
	return t.Unix()
}
