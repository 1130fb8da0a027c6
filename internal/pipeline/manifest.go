// Filename: pipeline/manifest.go
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/lancet/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const manifestVersion = 1

// Manifest records per-file content hashes and cached results from the last
// run. A file whose hash and whose imported modules' hashes are all
// unchanged gets its findings replayed instead of re-analyzed.
type Manifest struct {
	Version int                      `json:"version"`
	Entries map[string]ManifestEntry `json:"entries"`
}

// ManifestEntry caches one file's outcome.
type ManifestEntry struct {
	Hash     string            `json:"hash"`
	Module   string            `json:"module"`
	Imports  []string          `json:"imports"`
	Findings []schemas.Finding `json:"findings"`
}

func newManifest() *Manifest {
	return &Manifest{Version: manifestVersion, Entries: map[string]ManifestEntry{}}
}

// LoadManifest reads a manifest, returning an empty one when the file does
// not exist or carries an incompatible version.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return newManifest(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if m.Version != manifestVersion || m.Entries == nil {
		return newManifest(), nil
	}
	return &m, nil
}

// Save writes the manifest atomically via a temp file rename.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating manifest dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("creating temp manifest: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing manifest: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
