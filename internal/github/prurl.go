package github

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sevigo/bounty-warden/internal/core"
)

var prURLRegex = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)(?:/(?:files|commits|checks))?$`)

// ParsePullRequestURL extracts owner, repo and number from a pull request URL
// such as https://github.com/{owner}/{repo}/pull/{number}.
func ParsePullRequestURL(url string) (owner, repo string, number int, err error) {
	url = strings.TrimSuffix(strings.TrimSpace(url), "/")
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}

	matches := prURLRegex.FindStringSubmatch(url)
	if len(matches) != 4 {
		return "", "", 0, fmt.Errorf("%w: invalid pull request URL format: %s", core.ErrValidation, url)
	}

	number, err = strconv.Atoi(matches[3])
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("%w: invalid PR number %q", core.ErrValidation, matches[3])
	}
	return matches[1], matches[2], number, nil
}

// ResolveKey accepts either an owner/repo#number key or a pull request URL and
// returns the canonical key.
func ResolveKey(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if strings.Contains(ref, "github.com/") {
		owner, repo, number, err := ParsePullRequestURL(ref)
		if err != nil {
			return "", err
		}
		return core.FormatKey(owner, repo, number), nil
	}
	owner, repo, number, err := core.ParseKey(ref)
	if err != nil {
		return "", err
	}
	return core.FormatKey(owner, repo, number), nil
}
