package formatter

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ManifestEntry records the outcome of one playlist in a bulk export.
type ManifestEntry struct {
	Name   string   `json:"name"`
	Status string   `json:"status"`
	Files  []string `json:"files,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Manifest summarizes a bulk export run.
type Manifest struct {
	Format            string          `json:"format"`
	ExportedAt        time.Time       `json:"exported_at"`
	TotalPlaylists    int             `json:"total_playlists"`
	SuccessfulExports int             `json:"successful_exports"`
	FailedExports     int             `json:"failed_exports"`
	Playlists         []ManifestEntry `json:"playlists"`
}

// Add appends an entry and updates the counters. A nil err marks the entry successful.
func (m *Manifest) Add(name string, files []string, err error) {
	entry := ManifestEntry{Name: name, Status: "success", Files: files}
	if err != nil {
		entry.Status = "failed"
		entry.Error = err.Error()
		entry.Files = nil
		m.FailedExports++
	} else {
		m.SuccessfulExports++
	}
	m.Playlists = append(m.Playlists, entry)
}

// WriteManifest writes the manifest as indented JSON to path.
func WriteManifest(m *Manifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
