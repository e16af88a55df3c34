package domain

import "fmt"

// The crawler's error surface is a closed set of three kinds. Their Error
// strings end up verbatim in failed-pages.json, so they stay descriptive
// and self-contained.

// ScrapeError marks a page-level failure: the transport failed, or the page
// yielded nothing usable.
type ScrapeError struct {
	URL   string
	Cause error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("error while scraping %q: %v", e.URL, e.Cause)
}

func (e *ScrapeError) Unwrap() error { return e.Cause }

// ParseError marks a markup handling failure: a selector that could not be
// built, a page without article blocks, or a missing required field. Cause
// names the field and, where known, the article uid.
type ParseError struct {
	Cause string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error while parsing: %s", e.Cause)
}

// FileError marks a read or write failure against the record store.
type FileError struct {
	Filename string
	Cause    error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("error while persisting %q: %v", e.Filename, e.Cause)
}

func (e *FileError) Unwrap() error { return e.Cause }
