package sweep

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestName is the file the server lists its results in.
const ManifestName = "manifest.json"

// Manifest lists the results of a sweep.
type Manifest struct {
	Role    string   `json:"participant"`
	Results []Result `json:"results"`
}

func (s *Sweep) writeManifest(results []Result) error {
	b, err := json.MarshalIndent(Manifest{Role: string(s.cfg.Role), Results: results}, "", "\t")
	if err != nil {
		return err
	}
	path := filepath.Join(s.cfg.OutputDir, ManifestName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadManifest reads the manifest in dir.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("sweep: invalid manifest: %w", err)
	}
	return m, nil
}
