package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/galnet-crawler/internal/domain"
)

func testArticle() domain.Article {
	return domain.Article{
		UID:            "5fdcdca955fd67154d2f1b54",
		PageIndex:      0,
		Title:          "Federation Announces New Initiative",
		Date:           "07 SEP 3301",
		URL:            "https://community.elitedangerous.com/galnet/uid/5fdcdca955fd67154d2f1b54",
		Content:        "The Federation today announced...",
		ExtractionDate: "3301-09-07T12:00:00Z",
	}
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestRecordStoreSaveCreates(t *testing.T) {
	dir := t.TempDir()
	store := NewRecordStore(dir)
	require.NoError(t, store.Init())

	a := testArticle()
	result, err := store.Save(&a, time.Now())
	require.NoError(t, err)
	assert.Equal(t, RecordCreated, result)

	want := "3301 SEP 07 - 0 - 5fdcdca955fd67154d2f1b54.json"
	assert.Equal(t, []string{want}, dirNames(t, dir))

	data, err := os.ReadFile(filepath.Join(dir, want))
	require.NoError(t, err)
	var stored domain.Article
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, a, stored)
}

func TestRecordStoreSaveUnchanged(t *testing.T) {
	dir := t.TempDir()
	store := NewRecordStore(dir)
	require.NoError(t, store.Init())

	a := testArticle()
	_, err := store.Save(&a, time.Now())
	require.NoError(t, err)

	// Same content crawled again later: only the extraction timestamp moved.
	again := testArticle()
	again.ExtractionDate = "3301-09-08T12:00:00Z"
	result, err := store.Save(&again, time.Now())
	require.NoError(t, err)
	assert.Equal(t, RecordUnchanged, result)
	assert.Len(t, dirNames(t, dir), 1)

	// The original record is untouched.
	data, err := os.ReadFile(store.FilenameFor(&a))
	require.NoError(t, err)
	var stored domain.Article
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, "3301-09-07T12:00:00Z", stored.ExtractionDate)
}

func TestRecordStoreSaveArchivesOnChange(t *testing.T) {
	dir := t.TempDir()
	store := NewRecordStore(dir)
	require.NoError(t, store.Init())

	a := testArticle()
	_, err := store.Save(&a, time.Now())
	require.NoError(t, err)

	changed := testArticle()
	changed.Content = "Correction: the Federation today retracted..."
	at := time.Date(3301, time.September, 8, 9, 30, 0, 0, time.UTC)
	result, err := store.Save(&changed, at)
	require.NoError(t, err)
	assert.Equal(t, RecordUpdated, result)

	liveName := "3301 SEP 07 - 0 - 5fdcdca955fd67154d2f1b54.json"
	archiveName := liveName + " - 3301-09-08T09-30-00Z"
	assert.Equal(t, []string{liveName, archiveName}, dirNames(t, dir))

	var live domain.Article
	data, err := os.ReadFile(filepath.Join(dir, liveName))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &live))
	assert.Equal(t, changed.Content, live.Content)
	assert.False(t, live.Deprecated)

	var archived domain.Article
	data, err = os.ReadFile(filepath.Join(dir, archiveName))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &archived))
	assert.Equal(t, a.Content, archived.Content)
	assert.True(t, archived.Deprecated)
}

func TestRecordStoreSaveCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	store := NewRecordStore(dir)
	require.NoError(t, store.Init())

	a := testArticle()
	require.NoError(t, os.WriteFile(store.FilenameFor(&a), []byte("{not json"), 0o644))

	_, err := store.Save(&a, time.Now())
	require.Error(t, err)
	var fileErr *domain.FileError
	assert.ErrorAs(t, err, &fileErr)
}
