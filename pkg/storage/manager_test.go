package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewManagerCreatesOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")

	if _, err := NewManager(dir); err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Output directory was not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("Output path is not a directory")
	}

	// Creating a manager for an existing directory must succeed too
	if _, err := NewManager(dir); err != nil {
		t.Errorf("Manager creation is not idempotent: %v", err)
	}
}

func TestSaveAndIsDownloaded(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	url := "https://example.com/photo.jpg"
	content := []byte("fake image bytes")

	if manager.IsDownloaded(url) {
		t.Error("URL reported as downloaded before saving")
	}

	filename, err := manager.Save(url, "image/jpeg", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !manager.IsDownloaded(url) {
		t.Error("URL not reported as downloaded after saving")
	}

	saved, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("Saved file not readable: %v", err)
	}
	if !bytes.Equal(saved, content) {
		t.Error("Saved content does not match input")
	}

	// No temp file left behind
	entries, _ := os.ReadDir(dir)
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("Temporary file left behind: %s", entry.Name())
		}
	}
}

func TestIsDownloadedSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	url := "https://example.com/persistent.png"
	if _, err := manager.Save(url, "", bytes.NewReader([]byte("data"))); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A fresh manager over the same directory must recognize the file
	reopened, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to reopen manager: %v", err)
	}
	if !reopened.IsDownloaded(url) {
		t.Error("Reopened manager does not recognize previously downloaded URL")
	}
	if reopened.DownloadedCount() != 1 {
		t.Errorf("Expected 1 known file after restart, got %d", reopened.DownloadedCount())
	}
}

func TestIsDownloadedUsesIndexForRenamedScheme(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	// Simulate a file stored under an older naming scheme: the index
	// knows the mapping even though re-hashing would miss it
	url := "https://example.com/old-scheme.jpg"
	legacyName := "legacy_0001.jpg"
	if err := os.WriteFile(filepath.Join(dir, legacyName), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	manager.index.Record(url, legacyName)

	if !manager.IsDownloaded(url) {
		t.Error("Indexed URL with legacy filename not recognized as downloaded")
	}
}

func TestSaveIsIdempotentPerURL(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	url := "https://example.com/same.jpg"

	first, err := manager.Save(url, "", bytes.NewReader([]byte("v1")))
	if err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	second, err := manager.Save(url, "", bytes.NewReader([]byte("v2")))
	if err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	if first != second {
		t.Errorf("Same URL saved under different names: %s vs %s", first, second)
	}

	entries, _ := os.ReadDir(dir)
	imageFiles := 0
	for _, entry := range entries {
		if imageExtensions[filepath.Ext(entry.Name())] {
			imageFiles++
		}
	}
	if imageFiles != 1 {
		t.Errorf("Expected exactly 1 image file, got %d", imageFiles)
	}
}

func TestIndexRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), IndexFilename)

	idx, err := LoadIndex(path)
	if err != nil {
		t.Fatalf("LoadIndex on missing file failed: %v", err)
	}

	idx.Record("https://example.com/a.jpg", "aaaa.jpg")
	idx.Record("https://example.com/b.png", "bbbb.png")
	if err := idx.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadIndex(path)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	name, ok := loaded.Lookup("https://example.com/a.jpg")
	if !ok || name != "aaaa.jpg" {
		t.Errorf("Lookup after reload = (%q, %v), want (aaaa.jpg, true)", name, ok)
	}
	if _, ok := loaded.Lookup("https://example.com/missing.jpg"); ok {
		t.Error("Lookup reported a mapping that was never recorded")
	}
}
