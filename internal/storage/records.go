package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/user/galnet-crawler/internal/domain"
)

// SaveResult says what Save did with an article.
type SaveResult int

const (
	// RecordUnchanged means a live record with equal content already existed.
	RecordUnchanged SaveResult = iota
	// RecordCreated means no record existed and a new one was written.
	RecordCreated
	// RecordUpdated means the live record changed: the previous version was
	// archived and the live path overwritten.
	RecordUpdated
)

func (r SaveResult) String() string {
	switch r {
	case RecordUnchanged:
		return "unchanged"
	case RecordCreated:
		return "created"
	case RecordUpdated:
		return "updated"
	}
	return "unknown"
}

// RecordStore persists one JSON file per live article version under dir,
// archiving superseded versions next to them.
type RecordStore struct {
	dir string
}

func NewRecordStore(dir string) *RecordStore {
	return &RecordStore{dir: dir}
}

// Init creates the record directory tree.
func (s *RecordStore) Init() error {
	return os.MkdirAll(s.dir, 0o755)
}

// FilenameFor derives an article's deterministic live path. The date is
// reformatted year-first so a directory listing sorts chronologically.
func (s *RecordStore) FilenameFor(a *domain.Article) string {
	name := fmt.Sprintf("%s - %d - %s.json", domain.ReformatDate(a.Date), a.PageIndex, a.UID)
	return filepath.Join(s.dir, name)
}

// Save writes a new record, skips an unchanged one, or archives the previous
// version before overwriting a changed one. Re-running against unchanged
// upstream content never mutates storage. Every failure comes back as a
// *domain.FileError naming the offending path.
func (s *RecordStore) Save(a *domain.Article, now time.Time) (SaveResult, error) {
	filename := s.FilenameFor(a)

	var previous domain.Article
	found, err := readJSON(filename, &previous)
	if err != nil {
		return RecordUnchanged, &domain.FileError{Filename: filename, Cause: err}
	}

	if found {
		if previous.ContentEquals(a) {
			return RecordUnchanged, nil
		}
		// Archive first: if the superseded version cannot be preserved, the
		// live record is left alone and the page retries next run.
		archive := filename + " - " + now.UTC().Format(domain.ArchiveTimeFormat)
		previous.Deprecated = true
		if err := writeJSON(archive, &previous); err != nil {
			return RecordUnchanged, &domain.FileError{Filename: archive, Cause: err}
		}
		if err := writeJSON(filename, a); err != nil {
			return RecordUnchanged, &domain.FileError{Filename: filename, Cause: err}
		}
		return RecordUpdated, nil
	}

	if err := writeJSON(filename, a); err != nil {
		return RecordUnchanged, &domain.FileError{Filename: filename, Cause: err}
	}
	return RecordCreated, nil
}
