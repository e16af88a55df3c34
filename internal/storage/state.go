package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/user/galnet-crawler/internal/domain"
)

// Bookkeeping files written under the extraction directory.
const (
	DownloadedPagesFile = "successful-pages.json"
	FailedPagesFile     = "failed-pages.json"
)

// PageLog persists the run-to-run crawl state: the set of pages that have
// ever completed without errors, and the latest error list of each
// currently-failing page. A URL lives in at most one of the two after a
// reconciled save.
type PageLog interface {
	// Downloaded loads the downloaded-pages set; absent state is an empty set.
	Downloaded(ctx context.Context) (map[string]struct{}, error)
	// Failed loads the failed-pages map; absent state is an empty map.
	Failed(ctx context.Context) (map[string]domain.ErroredPage, error)
	// Save atomically replaces both collections with the reconciled state.
	Save(ctx context.Context, downloaded map[string]struct{}, failed map[string]domain.ErroredPage) error
}

// FileLog is the default PageLog backend: two JSON files in the extraction
// directory, both sorted for deterministic diffs across runs.
type FileLog struct {
	dir string
}

func NewFileLog(dir string) *FileLog {
	return &FileLog{dir: dir}
}

func (l *FileLog) Downloaded(_ context.Context) (map[string]struct{}, error) {
	var urls []string
	path := filepath.Join(l.dir, DownloadedPagesFile)
	if _, err := readJSON(path, &urls); err != nil {
		return nil, &domain.FileError{Filename: path, Cause: err}
	}
	downloaded := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		downloaded[u] = struct{}{}
	}
	return downloaded, nil
}

func (l *FileLog) Failed(_ context.Context) (map[string]domain.ErroredPage, error) {
	var pages []domain.ErroredPage
	path := filepath.Join(l.dir, FailedPagesFile)
	if _, err := readJSON(path, &pages); err != nil {
		return nil, &domain.FileError{Filename: path, Cause: err}
	}
	failed := make(map[string]domain.ErroredPage, len(pages))
	for _, p := range pages {
		failed[p.URL] = p
	}
	return failed, nil
}

func (l *FileLog) Save(_ context.Context, downloaded map[string]struct{}, failed map[string]domain.ErroredPage) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return &domain.FileError{Filename: l.dir, Cause: err}
	}

	urls := make([]string, 0, len(downloaded))
	for u := range downloaded {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	downloadedPath := filepath.Join(l.dir, DownloadedPagesFile)
	if err := writeJSON(downloadedPath, urls); err != nil {
		return &domain.FileError{Filename: downloadedPath, Cause: err}
	}

	pages := make([]domain.ErroredPage, 0, len(failed))
	for _, p := range failed {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].URL < pages[j].URL })
	failedPath := filepath.Join(l.dir, FailedPagesFile)
	if err := writeJSON(failedPath, pages); err != nil {
		return &domain.FileError{Filename: failedPath, Cause: err}
	}
	return nil
}
