package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/user/galnet-crawler/internal/domain"
	"github.com/user/galnet-crawler/internal/monitoring"
	"github.com/user/galnet-crawler/internal/storage"
)

// Runner drives one full extraction run: discover index links from the site
// root, crawl the not-yet-downloaded delta, persist articles, and reconcile
// the downloaded/failed bookkeeping sets.
type Runner struct {
	siteURL    *url.URL
	sequential bool
	fetcher    Fetcher
	matchers   *Matchers
	records    *storage.RecordStore
	state      storage.PageLog
	metrics    *monitoring.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// Summary reports what a run did.
type Summary struct {
	LinksDiscovered int
	PagesCrawled    int
	PagesSucceeded  int
	PagesFailed     int
	DownloadedTotal int
	FailedTotal     int
}

func NewRunner(
	siteURL string,
	sequential bool,
	fetcher Fetcher,
	matchers *Matchers,
	records *storage.RecordStore,
	state storage.PageLog,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) (*Runner, error) {
	base, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("parsing site url %q: %w", siteURL, err)
	}
	return &Runner{
		siteURL:    base,
		sequential: sequential,
		fetcher:    fetcher,
		matchers:   matchers,
		records:    records,
		state:      state,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Run executes one extraction run to completion. Page-level failures never
// abort the run; they are recorded in the failed-pages state and retried on
// the next invocation. Only root-page or bookkeeping failures are fatal.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	rootHTML, err := r.fetcher.Fetch(ctx, r.siteURL.String())
	if err != nil {
		return nil, &domain.ScrapeError{URL: r.siteURL.String(), Cause: err}
	}
	rootDoc, err := goquery.NewDocumentFromReader(strings.NewReader(rootHTML))
	if err != nil {
		return nil, &domain.ScrapeError{URL: r.siteURL.String(), Cause: err}
	}
	links := extractLinks(rootDoc, r.matchers, r.siteURL)

	downloaded, err := r.state.Downloaded(ctx)
	if err != nil {
		return nil, err
	}
	failed, err := r.state.Failed(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.Info("run starting",
		zap.Int("links_discovered", len(links)),
		zap.Int("downloaded_before", len(downloaded)),
		zap.Int("failed_before", len(failed)),
	)

	// Already-downloaded pages are never re-fetched. Failed pages are, by
	// construction: a page only enters the downloaded set once it completes
	// with zero errors.
	toCrawl := make([]string, 0, len(links))
	for _, link := range links {
		if _, done := downloaded[link]; !done {
			toCrawl = append(toCrawl, link)
		}
	}
	r.logger.Info("crawl delta computed", zap.Int("to_crawl", len(toCrawl)))

	if err := r.records.Init(); err != nil {
		return nil, &domain.FileError{Filename: "record store", Cause: err}
	}

	var pages []domain.PageExtraction
	if r.sequential {
		pages = r.crawlSequential(ctx, toCrawl)
	} else {
		pages = r.crawlConcurrent(ctx, toCrawl)
	}

	// Reconciliation runs single-threaded after all crawl work has joined,
	// so the bookkeeping maps need no synchronization.
	summary := &Summary{LinksDiscovered: len(links), PagesCrawled: len(pages)}
	for i := range pages {
		page := &pages[i]
		r.metrics.PagesCrawled.Inc()
		if page.Failed() {
			for _, pageErr := range page.Errors {
				r.metrics.ObserveError(pageErr)
				r.logger.Warn("page error", zap.String("url", page.URL), zap.Error(pageErr))
			}
			r.metrics.PagesFailed.Inc()
			failed[page.URL] = domain.NewErroredPage(page.URL, page.Errors)
			summary.PagesFailed++
			continue
		}
		delete(failed, page.URL)
		downloaded[page.URL] = struct{}{}
		summary.PagesSucceeded++
	}

	if err := r.state.Save(ctx, downloaded, failed); err != nil {
		return nil, err
	}

	summary.DownloadedTotal = len(downloaded)
	summary.FailedTotal = len(failed)
	r.logger.Info("run finished",
		zap.Int("pages_crawled", summary.PagesCrawled),
		zap.Int("pages_succeeded", summary.PagesSucceeded),
		zap.Int("pages_failed", summary.PagesFailed),
		zap.Int("downloaded_total", summary.DownloadedTotal),
		zap.Int("failed_total", summary.FailedTotal),
	)
	return summary, nil
}

// crawlSequential crawls and persists strictly one page at a time.
func (r *Runner) crawlSequential(ctx context.Context, urls []string) []domain.PageExtraction {
	pages := make([]domain.PageExtraction, 0, len(urls))
	for _, pageURL := range urls {
		page := r.crawlPage(ctx, pageURL)
		r.persistArticles(&page)
		pages = append(pages, page)
	}
	return pages
}

// crawlConcurrent launches every page crawl at once and joins them all, then
// persists articles in a single-threaded pass over the results.
func (r *Runner) crawlConcurrent(ctx context.Context, urls []string) []domain.PageExtraction {
	results := make(chan domain.PageExtraction, len(urls))
	for _, pageURL := range urls {
		go func(u string) {
			results <- r.crawlPage(ctx, u)
		}(pageURL)
	}

	pages := make([]domain.PageExtraction, 0, len(urls))
	for range urls {
		pages = append(pages, <-results)
	}
	for i := range pages {
		r.persistArticles(&pages[i])
	}
	return pages
}

// persistArticles writes a page's articles through the record store.
// Persistence failures join the page's error list: a page whose articles
// could not all be stored counts as failed and is retried next run.
func (r *Runner) persistArticles(page *domain.PageExtraction) {
	for i := range page.Articles {
		article := &page.Articles[i]
		result, err := r.records.Save(article, r.now())
		if err != nil {
			page.Errors = append(page.Errors, err)
			continue
		}
		r.metrics.Articles.Inc()
		r.metrics.ObserveRecord(result.String())
		if result != storage.RecordUnchanged {
			r.logger.Info("article persisted",
				zap.String("uid", article.UID),
				zap.String("result", result.String()),
			)
		}
	}
}
