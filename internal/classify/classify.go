// Package classify decides whether a browsing context counts as productive.
package classify

import (
	"net/url"
	"strings"

	"github.com/runnerr0/tabtime/internal/activity"
)

// UnknownDomain is reported for URLs that do not parse or carry no host.
const UnknownDomain = "unknown"

// Verdict is the outcome of classifying a URL.
type Verdict int

const (
	Unproductive Verdict = iota
	Productive
)

func (v Verdict) String() string {
	if v == Productive {
		return "productive"
	}
	return "unproductive"
}

// Classifier matches hostnames against a fixed allow-list by substring
// containment. Matching is deliberately loose: "github.com" also matches
// "gist.github.com" and any host that merely contains the text.
type Classifier struct {
	hostEntries []string
	pathEntries []string
}

// New returns a Classifier for the given allow-list. Entries that contain a
// path ("reddit.com/r/golang") are matched against host+path instead of the
// bare hostname.
func New(productive []string) *Classifier {
	c := &Classifier{}
	for _, entry := range productive {
		e := strings.ToLower(strings.TrimSpace(entry))
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			c.pathEntries = append(c.pathEntries, e)
		} else {
			c.hostEntries = append(c.hostEntries, e)
		}
	}
	return c
}

// Classify extracts the hostname from rawURL and checks it against the
// allow-list. Malformed URLs are Unproductive.
func (c *Classifier) Classify(rawURL string) Verdict {
	u, ok := parse(rawURL)
	if !ok {
		return Unproductive
	}
	host := activity.NormalizeDomain(u.Hostname())
	if c.matchHost(host) {
		return Productive
	}
	withPath := host + strings.ToLower(u.EscapedPath())
	for _, e := range c.pathEntries {
		if strings.Contains(withPath, e) {
			return Productive
		}
	}
	return Unproductive
}

// IsProductiveDomain classifies a bare, already-extracted hostname.
func (c *Classifier) IsProductiveDomain(domain string) bool {
	return c.matchHost(activity.NormalizeDomain(domain))
}

func (c *Classifier) matchHost(host string) bool {
	for _, e := range c.hostEntries {
		if strings.Contains(host, e) {
			return true
		}
	}
	return false
}

// ExtractDomain returns the normalized hostname of rawURL, or UnknownDomain.
func ExtractDomain(rawURL string) string {
	u, ok := parse(rawURL)
	if !ok {
		return UnknownDomain
	}
	return activity.NormalizeDomain(u.Hostname())
}

func parse(rawURL string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return nil, false
	}
	return u, true
}
