package review

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sevigo/bounty-warden/internal/core"
)

// passingFileScore is the per-file score at or above which a file is not reported.
const passingFileScore = 4

var (
	importantFilesRegex = regexp.MustCompile(`(?i)important\s+files\s+changed`)
	separatorRowRegex   = regexp.MustCompile(`^\s*\|?\s*:?-{3,}`)
	labelLineRegex      = regexp.MustCompile(`(?i)^(file\s*name|filename|file|score|overview)\s*(?::\s*(.*))?$`)
)

// fileRow is one (filename, score, overview) triple from the files table.
type fileRow struct {
	file     string
	score    int
	overview string
}

type rowMatcher func(section string) []fileRow

var rowMatchers = []rowMatcher{
	pipeTableRows,
	htmlTableRows,
	labelValueRows,
}

func extractIssues(text string) []core.Issue {
	loc := importantFilesRegex.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	rest := text[loc[1]:]
	// Skip the remainder of the heading line (e.g. a closing </h3>).
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && strings.TrimSpace(stripMarkup(rest[:nl])) == "" {
		rest = rest[nl+1:]
	}
	section := cutAtTerminator(rest, "Confidence score")

	var rows []fileRow
	for _, m := range rowMatchers {
		if rows = m(section); len(rows) > 0 {
			break
		}
	}

	var issues []core.Issue
	for _, r := range rows {
		if r.score >= passingFileScore {
			continue
		}
		severity := core.SeverityMinor
		if r.score < 3 {
			severity = core.SeverityModerate
		}
		message := r.overview
		if message == "" {
			message = fmt.Sprintf("%s scored %d/5", r.file, r.score)
		}
		issues = append(issues, core.Issue{
			Kind:     core.IssueWarning,
			Severity: severity,
			Message:  message,
			File:     r.file,
		})
	}
	return issues
}

// pipeTableRows reads markdown rows of the form | file | 3/5 | overview |.
func pipeTableRows(section string) []fileRow {
	var rows []fileRow
	for _, line := range strings.Split(section, "\n") {
		if !strings.Contains(line, "|") || separatorRowRegex.MatchString(line) {
			continue
		}
		var cells []string
		for _, c := range strings.Split(line, "|") {
			if c = strings.TrimSpace(c); c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) < 3 {
			continue
		}
		score, ok := parseFileScore(cells[1])
		if !ok {
			continue
		}
		rows = append(rows, fileRow{
			file:     cleanCell(cells[0]),
			score:    score,
			overview: cleanCell(strings.Join(cells[2:], " | ")),
		})
	}
	return rows
}

// htmlTableRows reads <tr><td>file</td><td>3/5</td><td>overview</td></tr> rows.
func htmlTableRows(section string) []fileRow {
	if !strings.Contains(strings.ToLower(section), "<td") {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(section))
	if err != nil {
		return nil
	}

	var rows []fileRow
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 3 {
			return
		}
		score, ok := parseFileScore(cells.Eq(1).Text())
		if !ok {
			return
		}
		rows = append(rows, fileRow{
			file:     cleanCell(cells.Eq(0).Text()),
			score:    score,
			overview: cleanCell(cells.Eq(2).Text()),
		})
	})
	return rows
}

// labelValueRows reads line pairs such as
//
//	Filename: api/handler.go
//	Score: 3/5
//	Overview
//	Adds retry logic without a backoff cap.
//
// where each value sits after a colon or on the next non-empty line.
func labelValueRows(section string) []fileRow {
	var (
		rows     []fileRow
		cur      *fileRow
		hasScore bool
		pending  string
	)
	flush := func() {
		if cur != nil && cur.file != "" && hasScore {
			rows = append(rows, *cur)
		}
		cur, hasScore, pending = nil, false, ""
	}
	assign := func(label, value string) {
		switch label {
		case "file":
			cur.file = cleanCell(value)
		case "score":
			if n, ok := parseFileScore(value); ok {
				cur.score, hasScore = n, true
			}
		case "overview":
			cur.overview = cleanCell(value)
		}
	}

	for _, raw := range strings.Split(section, "\n") {
		line := cleanCell(strings.Trim(strings.TrimSpace(raw), "-*>#"))
		if line == "" {
			continue
		}
		if m := labelLineRegex.FindStringSubmatch(line); m != nil {
			label := normalizeLabel(m[1])
			if label == "file" {
				flush()
				cur = &fileRow{}
			}
			if cur == nil {
				continue
			}
			pending = ""
			if v := strings.TrimSpace(m[2]); v != "" {
				assign(label, v)
			} else {
				pending = label
			}
			continue
		}
		if cur != nil && pending != "" {
			assign(pending, line)
			pending = ""
		}
	}
	flush()
	return rows
}

func normalizeLabel(label string) string {
	l := strings.ToLower(strings.ReplaceAll(label, " ", ""))
	if strings.HasPrefix(l, "file") {
		return "file"
	}
	return l
}
