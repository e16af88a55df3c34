package crawler

import (
	"fmt"
	"regexp"

	"github.com/andybalholm/cascadia"
)

// uidPattern pulls the opaque identifier out of an article permalink's
// /uid/<token> path segment.
var uidPattern = regexp.MustCompile(`/uid/([^/#?]+)`)

// Selectors is the set of CSS selectors that locate index links, article
// blocks, and article sub-fields in the site's markup.
type Selectors struct {
	LinkAnchor string
	Article    string
	Title      string
	Date       string
	Permalink  string
	Content    string
}

// DefaultSelectors returns the selector set for community.elitedangerous.com.
func DefaultSelectors() Selectors {
	return Selectors{
		LinkAnchor: "a.galnetLinkBoxLink",
		Article:    ".article",
		Title:      "h3",
		Date:       "div > p",
		Permalink:  "h3 > a",
		// Matched against direct children of the article block only.
		Content: "p",
	}
}

// Matchers holds the compiled selector and regex set. It is built once at
// startup and passed by reference into the extractor and crawler; it is
// immutable after construction.
type Matchers struct {
	linkAnchor cascadia.Selector
	article    cascadia.Selector
	title      cascadia.Selector
	date       cascadia.Selector
	permalink  cascadia.Selector
	content    cascadia.Selector
	uid        *regexp.Regexp
}

// NewMatchers compiles sel. A selector that fails to compile is a
// configuration error and aborts startup rather than surfacing later as a
// silently empty selection.
func NewMatchers(sel Selectors) (*Matchers, error) {
	m := &Matchers{uid: uidPattern}
	for _, c := range []struct {
		name string
		src  string
		dst  *cascadia.Selector
	}{
		{"link anchor", sel.LinkAnchor, &m.linkAnchor},
		{"article", sel.Article, &m.article},
		{"title", sel.Title, &m.title},
		{"date", sel.Date, &m.date},
		{"permalink", sel.Permalink, &m.permalink},
		{"content", sel.Content, &m.content},
	} {
		compiled, err := cascadia.Compile(c.src)
		if err != nil {
			return nil, fmt.Errorf("compiling %s selector %q: %w", c.name, c.src, err)
		}
		*c.dst = compiled
	}
	return m, nil
}

// ExtractUID derives an article's uid from its permalink URL.
func (m *Matchers) ExtractUID(url string) (string, bool) {
	match := m.uid.FindStringSubmatch(url)
	if match == nil {
		return "", false
	}
	return match[1], true
}
