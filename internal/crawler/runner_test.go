package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/galnet-crawler/internal/domain"
	"github.com/user/galnet-crawler/internal/storage"
)

// testSite is an httptest-backed stand-in for the news site: a root page
// linking to index pages, each serving canned markup or a failure status.
type testSite struct {
	mu    sync.Mutex
	pages map[string]string // path -> markup; missing entries serve 500
	hits  map[string]int
	srv   *httptest.Server
}

func newTestSite(t *testing.T, paths ...string) *testSite {
	t.Helper()
	site := &testSite{
		pages: make(map[string]string),
		hits:  make(map[string]int),
	}
	site.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.hits[r.URL.Path]++
		markup, ok := site.pages[r.URL.Path]
		site.mu.Unlock()

		if r.URL.Path == "/" {
			var links string
			for _, p := range paths {
				links += fmt.Sprintf(`<a class="galnetLinkBoxLink" href="%s">%s</a>`, p, p)
			}
			fmt.Fprintf(w, "<html><body>%s</body></html>", links)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, markup)
	}))
	t.Cleanup(site.srv.Close)
	return site
}

func (s *testSite) setPage(path, markup string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[path] = markup
}

func (s *testSite) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *testSite) url(path string) string {
	return s.srv.URL + path
}

func articleHTML(uid, title, body string) string {
	return fmt.Sprintf(`<html><body>
<div class="article">
  <h3><a href="/galnet/uid/%s">%s</a></h3>
  <div><p>07 SEP 3301</p></div>
  <p>%s</p>
</div>
</body></html>`, uid, title, body)
}

func listRecordFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(dir, "files"))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func newLiveRunner(t *testing.T, site *testSite, sequential bool, dir string) *Runner {
	t.Helper()
	fetcher := NewHTTPFetcher(5*time.Second, "galnet-crawler-test")
	return newTestRunner(t, site.srv.URL, sequential, fetcher, dir)
}

func runReconciliationScenario(t *testing.T, sequential bool) {
	ctx := context.Background()
	dir := t.TempDir()
	site := newTestSite(t, "/page/a", "/page/b", "/page/c")
	site.setPage("/page/a", articleHTML("uid-a", "A", "Body A."))
	site.setPage("/page/b", articleHTML("uid-b", "B", "Body B."))
	// /page/c has no markup registered and serves 500.

	// Previous runs: a downloaded; b and z failed. z is no longer linked
	// from the root, so it is not re-attempted this run.
	state := storage.NewFileLog(dir)
	require.NoError(t, state.Save(ctx,
		map[string]struct{}{site.url("/page/a"): {}},
		map[string]domain.ErroredPage{
			site.url("/page/b"): {URL: site.url("/page/b"), Errors: []string{"stale error"}},
			site.url("/page/z"): {URL: site.url("/page/z"), Errors: []string{"gone"}},
		},
	))

	runner := newLiveRunner(t, site, sequential, dir)
	summary, err := runner.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.LinksDiscovered)
	assert.Equal(t, 2, summary.PagesCrawled)
	assert.Equal(t, 1, summary.PagesSucceeded)
	assert.Equal(t, 1, summary.PagesFailed)

	// Already-downloaded pages are never re-fetched.
	assert.Equal(t, 0, site.hitCount("/page/a"))
	assert.Equal(t, 1, site.hitCount("/page/b"))
	assert.Equal(t, 1, site.hitCount("/page/c"))

	downloaded, err := state.Downloaded(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{
		site.url("/page/a"): {},
		site.url("/page/b"): {},
	}, downloaded)

	failed, err := state.Failed(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 2)
	assert.NotContains(t, failed, site.url("/page/b"))
	assert.Contains(t, failed[site.url("/page/c")].Errors[0], "unexpected status code 500")
	assert.Equal(t, []string{"gone"}, failed[site.url("/page/z")].Errors)

	assert.Equal(t, []string{"3301 SEP 07 - 0 - uid-b.json"}, listRecordFiles(t, dir))
}

func TestRunReconciliationSequential(t *testing.T) {
	runReconciliationScenario(t, true)
}

func TestRunReconciliationConcurrent(t *testing.T) {
	runReconciliationScenario(t, false)
}

func TestRunIdempotence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	site := newTestSite(t, "/page/d")
	site.setPage("/page/d", articleHTML("uid-d", "D", "Body D."))

	runner := newLiveRunner(t, site, false, dir)
	_, err := runner.Run(ctx)
	require.NoError(t, err)

	files := listRecordFiles(t, dir)
	require.Len(t, files, 1)
	firstContents, err := os.ReadFile(filepath.Join(dir, "files", files[0]))
	require.NoError(t, err)
	firstState, err := os.ReadFile(filepath.Join(dir, storage.DownloadedPagesFile))
	require.NoError(t, err)

	// Second run against identical upstream content: the page is already in
	// the downloaded set, so nothing is re-fetched and nothing changes.
	summary, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.PagesCrawled)
	assert.Equal(t, 1, site.hitCount("/page/d"))

	assert.Equal(t, files, listRecordFiles(t, dir))
	secondContents, err := os.ReadFile(filepath.Join(dir, "files", files[0]))
	require.NoError(t, err)
	assert.Equal(t, firstContents, secondContents)
	secondState, err := os.ReadFile(filepath.Join(dir, storage.DownloadedPagesFile))
	require.NoError(t, err)
	assert.Equal(t, firstState, secondState)
}

func TestRunChangeDetection(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	site := newTestSite(t, "/page/e")
	site.setPage("/page/e", articleHTML("uid-e", "E", "Original body."))

	runner := newLiveRunner(t, site, true, dir)
	_, err := runner.Run(ctx)
	require.NoError(t, err)
	require.Len(t, listRecordFiles(t, dir), 1)

	// Operator reset: clear the downloaded set so the page is re-crawled,
	// and change the upstream content.
	state := storage.NewFileLog(dir)
	require.NoError(t, state.Save(ctx, map[string]struct{}{}, map[string]domain.ErroredPage{}))
	site.setPage("/page/e", articleHTML("uid-e", "E", "Revised body."))

	_, err = runner.Run(ctx)
	require.NoError(t, err)

	files := listRecordFiles(t, dir)
	require.Len(t, files, 2)

	liveName := "3301 SEP 07 - 0 - uid-e.json"
	var archiveName string
	for _, name := range files {
		if name != liveName {
			archiveName = name
		}
	}
	require.NotEmpty(t, archiveName)
	assert.Contains(t, archiveName, liveName+" - ")

	var live, archived domain.Article
	readArticle(t, filepath.Join(dir, "files", liveName), &live)
	readArticle(t, filepath.Join(dir, "files", archiveName), &archived)

	assert.Equal(t, "Revised body.", live.Content)
	assert.False(t, live.Deprecated)
	assert.Equal(t, "Original body.", archived.Content)
	assert.True(t, archived.Deprecated)
}

func TestRunRootFetchFailure(t *testing.T) {
	dir := t.TempDir()
	site := newTestSite(t)
	site.srv.Close()

	runner := newLiveRunner(t, site, true, dir)
	_, err := runner.Run(context.Background())
	require.Error(t, err)
	var scrapeErr *domain.ScrapeError
	assert.ErrorAs(t, err, &scrapeErr)
}

func readArticle(t *testing.T, path string, a *domain.Article) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, a))
}
