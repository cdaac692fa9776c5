package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// IndexFilename is the persisted URL-to-filename map kept alongside
// the downloads. It makes re-runs robust against changes to the
// filename hashing scheme: a URL found here is a duplicate even if
// re-hashing it today would yield a different name.
const IndexFilename = ".yxscraper-index.json"

// Index maps source URLs to the filenames they were stored under.
type Index struct {
	Entries   map[string]string `json:"entries"`
	UpdatedAt time.Time         `json:"updated_at"`
	Version   int               `json:"version"`

	path string
}

// LoadIndex reads the index at path, returning an empty index when
// none exists yet.
func LoadIndex(path string) (*Index, error) {
	idx := &Index{
		Entries: make(map[string]string),
		Version: 1,
		path:    path,
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(idx); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]string)
	}
	idx.path = path
	return idx, nil
}

// Lookup returns the stored filename for a URL, if any.
func (idx *Index) Lookup(url string) (string, bool) {
	filename, ok := idx.Entries[url]
	return filename, ok
}

// Record stores a URL-to-filename mapping in memory. Call Save to
// persist.
func (idx *Index) Record(url, filename string) {
	idx.Entries[url] = filename
}

// Save writes the index to disk atomically (temp file + rename) so a
// crash mid-write never leaves a corrupt index behind.
func (idx *Index) Save() error {
	idx.UpdatedAt = time.Now()

	tempPath := idx.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary index file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(idx); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode index: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync index file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close index file: %w", err)
	}

	if err := os.Rename(tempPath, idx.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace index file: %w", err)
	}

	return nil
}
