package review

import (
	"regexp"
	"strconv"
	"strings"
)

// Each field has an ordered list of matchers. Matchers are total: they report
// whether they matched instead of failing, and the first match wins.

type scoreMatcher func(text string) (int, bool)

type summaryMatcher func(text string) (string, bool)

var (
	// Confidence score: 4/5, **Confidence Score: 4/5**, <h3>Confidence score: <b>4/5</b></h3>
	inlineScoreRegex = regexp.MustCompile(`(?i)confidence\s+score\s*:?\s*(?:\*+|_+|</?[a-z][a-z0-9]*[^>]*>|\s)*(\d{1,3})\s*/\s*5\b`)
	// Confidence score [4/5], Confidence: (4/5)
	bracketedScoreRegex = regexp.MustCompile(`(?i)confidence[^\n\[(]{0,40}[\[(]\s*(\d{1,3})\s*/\s*5\s*[\])]`)

	markdownSummaryHeadingRegex = regexp.MustCompile(`(?im)^[ \t]{0,3}#{1,6}[^\n]*\bsummary\b[^\n]*$`)
	htmlSummaryHeadingRegex     = regexp.MustCompile(`(?is)<h[1-6][^>]*>(?:[^<]|<[^/])*?\bsummary\b.*?</h[1-6]\s*>`)
	plainSummaryLabelRegex      = regexp.MustCompile(`(?im)^[ \t]*(?:\*\*)?greptile summary(?:\*\*)?[ \t]*:?[ \t]*$`)
)

var scoreMatchers = []scoreMatcher{
	regexScore(inlineScoreRegex),
	regexScore(bracketedScoreRegex),
}

var summaryMatchers = []summaryMatcher{
	summaryAfter(markdownSummaryHeadingRegex),
	summaryAfter(htmlSummaryHeadingRegex),
	summaryAfter(plainSummaryLabelRegex),
}

func regexScore(re *regexp.Regexp) scoreMatcher {
	return func(text string) (int, bool) {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			return 0, false
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return clamp(n, 0, 5), true
	}
}

func summaryAfter(heading *regexp.Regexp) summaryMatcher {
	return func(text string) (string, bool) {
		loc := heading.FindStringIndex(text)
		if loc == nil {
			return "", false
		}
		block := cutAtTerminator(text[loc[1]:], "Important Files", "Confidence score")
		block = cleanBlock(block)
		if block == "" {
			return "", false
		}
		return block, true
	}
}

func matchScore(text string) (int, bool) {
	for _, m := range scoreMatchers {
		if n, ok := m(text); ok {
			return n, true
		}
	}
	return 0, false
}

func extractSummary(text string) string {
	for _, m := range summaryMatchers {
		if s, ok := m(text); ok {
			return truncateRunes(s, MaxSummaryLength)
		}
	}
	return defaultSummary
}

// fileScorePattern matches a per-file N/5 score inside a table cell or value.
var fileScorePattern = regexp.MustCompile(`(\d{1,3})\s*/\s*5\b`)

func parseFileScore(s string) (int, bool) {
	m := fileScorePattern.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return clamp(n, 0, 5), true
}

// cleanCell strips markup, inline code and emphasis from a table cell.
func cleanCell(s string) string {
	s = stripMarkup(s)
	s = strings.NewReplacer("`", "", "**", "", "__", "").Replace(s)
	return strings.TrimSpace(whitespaceRunRegex.ReplaceAllString(s, " "))
}
