// Package review turns free-text bot reviews into structured reviews and decides verdicts.
package review

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/sevigo/bounty-warden/internal/core"
)

const (
	// MaxSummaryLength is the maximum number of characters kept from a summary block.
	MaxSummaryLength = 500
	// minPlausibleLength is the shortest text that counts as a review when no
	// confidence score token is present.
	minPlausibleLength = 40
	defaultSummary     = "Review completed"
)

var (
	stripPolicy = bluemonday.StrictPolicy()

	markdownHeadingRegex = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]`)
	htmlHeadingRegex     = regexp.MustCompile(`(?i)<h[1-6][\s>]`)
	whitespaceRunRegex   = regexp.MustCompile(`[ \t]+`)
	blankLinesRegex      = regexp.MustCompile(`\n{3,}`)
	danglingMarkerRegex  = regexp.MustCompile(`(?:^|\s)[*_]+[ \t]*$`)
)

// Extract parses a free-text review body in either the markdown-table or the
// inline-field dialect. It never panics: any failure, including text that is
// too short to be a review, is reported as core.ErrExtractionPending.
func Extract(raw string) (review *core.StructuredReview, err error) {
	defer func() {
		if r := recover(); r != nil {
			review = nil
			err = fmt.Errorf("%w: parser fault: %v", core.ErrExtractionPending, r)
		}
	}()

	text := normalizeNewlines(raw)
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: review body is empty", core.ErrExtractionPending)
	}

	confidence, found := matchScore(text)
	if !found && utf8.RuneCountInString(trimmed) < minPlausibleLength {
		return nil, fmt.Errorf("%w: no confidence score in a %d character body", core.ErrExtractionPending, len(trimmed))
	}

	return &core.StructuredReview{
		ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte(raw)).String(),
		Score:      RescaleConfidence(confidence),
		Summary:    extractSummary(text),
		Issues:     extractIssues(text),
		RawMessage: raw,
	}, nil
}

// RescaleConfidence maps a 0-5 confidence value onto 0-100, clamping out-of-range input.
func RescaleConfidence(n int) int {
	n = clamp(n, 0, 5)
	// round(n/5*100) is exact for integer n.
	return n * 20
}

// stripMarkup removes HTML tags and unescapes entities.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

func cleanBlock(s string) string {
	s = stripMarkup(s)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(whitespaceRunRegex.ReplaceAllString(l, " "))
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(blankLinesRegex.ReplaceAllString(s, "\n\n"))
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}

// cutAtTerminator returns s up to the first heading or terminator phrase.
// Emphasis markers opening a cut-off label are dropped with it.
func cutAtTerminator(s string, phrases ...string) string {
	end := len(s)
	if loc := markdownHeadingRegex.FindStringIndex(s); loc != nil && loc[0] < end {
		end = loc[0]
	}
	if loc := htmlHeadingRegex.FindStringIndex(s); loc != nil && loc[0] < end {
		end = loc[0]
	}
	lower := strings.ToLower(s)
	for _, p := range phrases {
		if i := strings.Index(lower, strings.ToLower(p)); i >= 0 && i < end {
			end = i
		}
	}
	if end == len(s) {
		return s
	}
	return danglingMarkerRegex.ReplaceAllString(s[:end], "")
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
