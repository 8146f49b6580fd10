// Package decklist parses plain-text decklists into line records consumed
// by the resolution pipeline.
package decklist

import (
	"regexp"
	"strconv"
	"strings"
)

// Line is one parsed decklist entry. A non-empty ParseError means the
// line never reaches resolution and is passed through unresolved.
type Line struct {
	Original   string `json:"original"`
	Qty        int    `json:"qty"`
	Name       string `json:"name"`
	Set        string `json:"set,omitempty"`
	Collector  string `json:"collector,omitempty"`
	Foil       bool   `json:"foil,omitempty"`
	ParseError string `json:"parseError,omitempty"`
}

var (
	// "3 Lightning Bolt (2XM) 123" or "3x Lightning Bolt (2XM) 123 *F*"
	primaryPattern = regexp.MustCompile(`(?i)^(\d+)x?\s+(.+?)\s+\(([^)]+)\)\s+([^\s*]+)(?:\s+\*F\*)?$`)
	// "4 Counterspell"
	fallbackPattern = regexp.MustCompile(`(?i)^(\d+)x?\s+(.+)$`)
	foilPattern     = regexp.MustCompile(`(?i)\*F\*`)

	// Archidekt-style square-bracket tags and caret-delimited annotations
	// such as ^Proxy MPC,#0d97fa^
	bracketTagPattern = regexp.MustCompile(`\s*\[[^\]]*\]`)
	caretTagPattern   = regexp.MustCompile(`\s*\^[^^]*\^`)
	multiSpacePattern = regexp.MustCompile(`\s{2,}`)
)

const parseErrorMessage = `Unable to parse decklist line. Expected format like "3 Lightning Bolt (2XM) 123".`

// Parse splits a raw decklist into line records. Blank lines are skipped;
// unparseable lines are kept with a ParseError so the response mirrors
// the input.
func Parse(input string) []Line {
	var parsed []Line

	for _, raw := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if trimmed == "" {
			continue
		}

		sanitized := sanitizeLine(trimmed)

		if m := primaryPattern.FindStringSubmatch(sanitized); m != nil {
			qty, err := strconv.Atoi(m[1])
			name := strings.TrimSpace(m[2])
			if err == nil && qty > 0 && name != "" {
				parsed = append(parsed, Line{
					Original:  raw,
					Qty:       qty,
					Name:      name,
					Set:       strings.TrimSpace(m[3]),
					Collector: strings.TrimSpace(m[4]),
					Foil:      foilPattern.MatchString(trimmed),
				})
				continue
			}
		}

		if m := fallbackPattern.FindStringSubmatch(sanitized); m != nil {
			qty, err := strconv.Atoi(m[1])
			name := strings.TrimSpace(m[2])
			if err == nil && qty > 0 && name != "" {
				parsed = append(parsed, Line{
					Original: raw,
					Qty:      qty,
					Name:     name,
				})
				continue
			}
		}

		parsed = append(parsed, Line{
			Original:   raw,
			Qty:        0,
			Name:       trimmed,
			ParseError: parseErrorMessage,
		})
	}

	return parsed
}

func sanitizeLine(line string) string {
	working := bracketTagPattern.ReplaceAllString(line, "")
	working = caretTagPattern.ReplaceAllString(working, "")
	working = multiSpacePattern.ReplaceAllString(working, " ")
	return strings.TrimSpace(working)
}
