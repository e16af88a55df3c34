package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/galnet-crawler/internal/domain"
	"github.com/user/galnet-crawler/pkg/utils"
)

// ArticleResult is one article block's extraction outcome: either a fully
// validated Article or the error naming the first field that was missing.
type ArticleResult struct {
	Article domain.Article
	Err     error
}

// extractArticles walks every article block in document order and validates
// the required fields one by one, short-circuiting the block on the first
// miss. A failed block never stops extraction of its siblings. The block's
// document-order position becomes PageIndex.
func extractArticles(doc *goquery.Document, m *Matchers, base *url.URL, now time.Time) []ArticleResult {
	var results []ArticleResult

	parseErr := func(format string, args ...any) ArticleResult {
		return ArticleResult{Err: &domain.ParseError{Cause: fmt.Sprintf(format, args...)}}
	}

	doc.FindMatcher(m.article).Each(func(pageIndex int, block *goquery.Selection) {
		permalink := block.FindMatcher(m.permalink).First()
		href, ok := permalink.Attr("href")
		if permalink.Length() == 0 || !ok {
			results = append(results, parseErr("couldn't find article url"))
			return
		}

		articleURL, err := utils.ToAbsoluteURL(base, strings.TrimSpace(href))
		if err != nil {
			results = append(results, parseErr("couldn't resolve article url %q: %v", href, err))
			return
		}

		uid, ok := m.ExtractUID(articleURL)
		if !ok {
			results = append(results, parseErr("couldn't find article %q uid", articleURL))
			return
		}

		title := block.FindMatcher(m.title).First()
		if title.Length() == 0 {
			results = append(results, parseErr("couldn't find article %q title", uid))
			return
		}

		date := block.FindMatcher(m.date).First()
		if date.Length() == 0 {
			results = append(results, parseErr("couldn't find article %q date", uid))
			return
		}

		content := block.ChildrenMatcher(m.content).First()
		if content.Length() == 0 {
			results = append(results, parseErr("couldn't find article %q content", uid))
			return
		}

		results = append(results, ArticleResult{Article: domain.Article{
			UID:            uid,
			PageIndex:      pageIndex,
			Title:          strings.TrimSpace(title.Text()),
			Date:           strings.TrimSpace(date.Text()),
			URL:            articleURL,
			Content:        strings.TrimSpace(content.Text()),
			ExtractionDate: domain.FormatExtractionDate(now),
			Deprecated:     false,
		}})
	})

	return results
}

// extractLinks harvests every index-page anchor from the document and
// resolves it against the site base. Duplicates collapse, first occurrence
// order is kept. Anchors without an href are skipped.
func extractLinks(doc *goquery.Document, m *Matchers, base *url.URL) []string {
	var links []string
	seen := make(map[string]struct{})

	doc.FindMatcher(m.linkAnchor).Each(func(_ int, anchor *goquery.Selection) {
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}
		abs, err := utils.ToAbsoluteURL(base, strings.TrimSpace(href))
		if err != nil {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})

	return links
}
