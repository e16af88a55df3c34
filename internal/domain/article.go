package domain

import (
	"fmt"
	"regexp"
	"time"
)

// ExtractionTimeFormat is the wire format for Article.ExtractionDate:
// ISO-8601 UTC, second precision.
const ExtractionTimeFormat = "2006-01-02T15:04:05Z"

// ArchiveTimeFormat is the run-timestamp suffix appended to archived record
// filenames. Colons are replaced with hyphens to stay filename-safe.
const ArchiveTimeFormat = "2006-01-02T15-04-05Z"

// Article is one GalNet news item scraped from an index page.
type Article struct {
	UID            string `json:"uid"`
	PageIndex      int    `json:"pageIndex"`
	Title          string `json:"title"`
	Date           string `json:"date"`
	URL            string `json:"url"`
	Content        string `json:"content"`
	ExtractionDate string `json:"extractionDate"`
	Deprecated     bool   `json:"deprecated"`
}

// ContentEquals reports whether two articles carry the same scraped content.
// ExtractionDate and Deprecated are bookkeeping fields and take no part in
// the comparison, so re-scraping unchanged upstream content compares equal.
func (a *Article) ContentEquals(other *Article) bool {
	return a.UID == other.UID &&
		a.Title == other.Title &&
		a.Content == other.Content &&
		a.URL == other.URL &&
		a.PageIndex == other.PageIndex
}

// FormatExtractionDate renders t in the ExtractionDate wire format.
func FormatExtractionDate(t time.Time) string {
	return t.UTC().Format(ExtractionTimeFormat)
}

// PageExtraction is the outcome of crawling one index page. It lives only
// within a run and is never persisted directly.
type PageExtraction struct {
	URL      string
	Articles []Article
	Links    []string
	Errors   []error
}

// Failed reports whether the page must be recorded as failed. Any error,
// including a single missing field on one article, fails the whole page so
// it is retried on the next run.
func (p *PageExtraction) Failed() bool {
	return len(p.Errors) > 0
}

// ErroredPage is the persisted shape of a failed page in failed-pages.json.
type ErroredPage struct {
	URL    string   `json:"url"`
	Errors []string `json:"errors"`
}

// NewErroredPage stringifies a page's error list for persistence.
func NewErroredPage(url string, errs []error) ErroredPage {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return ErroredPage{URL: url, Errors: msgs}
}

// galnetDatePattern matches the source site's free-text dates, e.g.
// "07 SEP 3301" or "07-SEP-3301".
var galnetDatePattern = regexp.MustCompile(`(\d{2})[\s-](\w{3})[\s-](\d{4,})`)

// GalnetDate is the three components of a GalNet article date.
type GalnetDate struct {
	Day   string
	Month string
	Year  string
}

func (d GalnetDate) String() string {
	return fmt.Sprintf("%s %s %s", d.Day, d.Month, d.Year)
}

// ParseGalnetDate extracts the components of a GalNet date string.
func ParseGalnetDate(date string) (GalnetDate, bool) {
	m := galnetDatePattern.FindStringSubmatch(date)
	if m == nil {
		return GalnetDate{}, false
	}
	return GalnetDate{Day: m[1], Month: m[2], Year: m[3]}, true
}

// ReformatDate rewrites a GalNet date year-first ("3301 SEP 07") so record
// filenames sort chronologically. Text that does not match the date pattern
// is returned unchanged.
func ReformatDate(date string) string {
	d, ok := ParseGalnetDate(date)
	if !ok {
		return date
	}
	return fmt.Sprintf("%s %s %s", d.Year, d.Month, d.Day)
}
