package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	errs "yxscraper/pkg/errors"
)

// Manager handles file storage and duplicate detection for one output
// directory. Duplicate checks consult the persisted index first and
// the deterministic URL-derived filename second, so a prior run's
// downloads are recognized with no network I/O.
type Manager struct {
	outputDir string
	index     *Index
	files     map[string]bool // filenames present on disk
	mu        sync.RWMutex
}

// NewManager creates the output directory if absent (idempotent) and
// scans it for already-downloaded files. A directory that cannot be
// created is a filesystem error and fatal to the run.
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errs.Newf(errs.KindFilesystem, "failed to create output directory %s: %v", outputDir, err)
	}

	index, err := LoadIndex(filepath.Join(outputDir, IndexFilename))
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystem, "failed to load download index: %v", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		index:     index,
		files:     make(map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, errs.Newf(errs.KindFilesystem, "failed to scan existing files: %v", err)
	}

	return manager, nil
}

// scanExistingFiles records which image files are already present
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[filepath.Ext(entry.Name())] {
			m.files[entry.Name()] = true
		}
	}

	return nil
}

// IsDownloaded reports whether the URL's target file already exists.
func (m *Manager) IsDownloaded(url string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// The index survives hash-scheme changes; check it first
	if filename, ok := m.index.Lookup(url); ok {
		if m.files[filename] {
			return true
		}
		if m.fileExists(filename) {
			return true
		}
	}

	filename := FilenameForURL(url)
	return m.files[filename] || m.fileExists(filename)
}

// Save writes the image data atomically under the URL's
// content-addressed filename and returns that filename. The write
// goes to a temporary path first and is renamed into place, so a
// crash mid-write never leaves a corrupt file under the final name.
func (m *Manager) Save(url, contentType string, r io.Reader) (string, error) {
	filename := FilenameWithContentType(url, contentType)
	finalPath := filepath.Join(m.outputDir, filename)

	tempPath := finalPath + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return "", errs.Newf(errs.KindFilesystem, "failed to create temporary file: %v", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempPath)
		return "", errs.Newf(errs.KindFilesystem, "failed to write image data: %v", err)
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return "", errs.Newf(errs.KindFilesystem, "failed to close file: %v", closeErr)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return "", errs.Newf(errs.KindFilesystem, "failed to rename temporary file: %v", err)
	}

	m.mu.Lock()
	m.files[filename] = true
	m.index.Record(url, filename)
	saveErr := m.index.Save()
	m.mu.Unlock()

	// An unsaveable index degrades resumability, not this run
	if saveErr != nil {
		return filename, nil
	}

	return filename, nil
}

// OutputDir returns the output directory path.
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// DownloadedCount returns the number of files known to be present.
func (m *Manager) DownloadedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

func (m *Manager) fileExists(filename string) bool {
	_, err := os.Stat(filepath.Join(m.outputDir, filename))
	return err == nil
}
