package crawler

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/user/galnet-crawler/internal/domain"
)

// crawlPage fetches one index page and produces its PageExtraction: the
// uid-deduplicated article set, the index links rediscovered on the page,
// and every error encountered. It mutates no shared state, so any number of
// page crawls can run concurrently.
func (r *Runner) crawlPage(ctx context.Context, pageURL string) domain.PageExtraction {
	page := domain.PageExtraction{URL: pageURL}

	html, err := r.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		page.Errors = append(page.Errors, &domain.ScrapeError{URL: pageURL, Cause: err})
		return page
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		page.Errors = append(page.Errors, &domain.ScrapeError{URL: pageURL, Cause: err})
		return page
	}

	page.Links = extractLinks(doc, r.matchers, r.siteURL)

	// Duplicate uids on one page collapse to a single article, last seen wins.
	byUID := make(map[string]int)
	for _, res := range extractArticles(doc, r.matchers, r.siteURL, r.now()) {
		if res.Err != nil {
			page.Errors = append(page.Errors, res.Err)
			continue
		}
		if i, ok := byUID[res.Article.UID]; ok {
			page.Articles[i] = res.Article
			continue
		}
		byUID[res.Article.UID] = len(page.Articles)
		page.Articles = append(page.Articles, res.Article)
	}

	// An index page without a single extractable article is anomalous even
	// when no field-level error fired; surface it instead of accepting an
	// empty result.
	if len(page.Articles) == 0 {
		r.logger.Debug("page yielded no articles", zap.String("url", pageURL), zap.Int("markup_bytes", len(html)))
		page.Errors = append(page.Errors, &domain.ScrapeError{
			URL:   pageURL,
			Cause: &domain.ParseError{Cause: "could not find any article in this page"},
		})
	}

	return page
}
