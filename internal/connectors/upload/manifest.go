package upload

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

const (
	stateDirName     = ".ingest"
	manifestFileName = "manifest.json"
)

// manifest records when each id was last seen in the directory. Ids absent
// from a listing are reported as deleted until they age out, so a run that
// crashes before committing a deletion reports it again on the next run.
type manifest struct {
	Version   int                  `json:"v"`
	LastPass  time.Time            `json:"last_pass"`
	FirstSeen map[string]time.Time `json:"first_seen"`
	LastSeen  map[string]time.Time `json:"last_seen"`
}

func newManifest() *manifest {
	return &manifest{Version: 1, FirstSeen: make(map[string]time.Time), LastSeen: make(map[string]time.Time)}
}

func manifestPath(dir string) string {
	return filepath.Join(dir, stateDirName, manifestFileName)
}

func loadManifest(fs afero.Fs, dir string) (*manifest, error) {
	m := newManifest()
	data, err := afero.ReadFile(fs, manifestPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, m); err != nil {
		// A damaged manifest only loses pending deletions; start over.
		return newManifest(), nil
	}
	if m.LastSeen == nil {
		m.LastSeen = make(map[string]time.Time)
	}
	if m.FirstSeen == nil {
		m.FirstSeen = make(map[string]time.Time)
	}
	return m, nil
}

// save writes the manifest via a temporary file and rename.
func (m *manifest) save(fs afero.Fs, dir string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Join(dir, stateDirName), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp := manifestPath(dir) + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return fs.Rename(tmp, manifestPath(dir))
}

// reconcile marks current ids as seen at now, drops ids absent for longer
// than retention, and returns the ids still pending deletion.
// The deletion scan runs first, so ids are judged against the previous pass.
func (m *manifest) reconcile(current map[string]bool, now time.Time, retention time.Duration) []string {
	var deleted []string
	for id, seen := range m.LastSeen {
		if current[id] {
			continue
		}
		if now.Sub(seen) > retention {
			delete(m.LastSeen, id)
			delete(m.FirstSeen, id)
			continue
		}
		deleted = append(deleted, id)
	}
	for id := range current {
		// Ids new to the manifest, or back after being reported deleted,
		// restart their first-seen time.
		if seen, ok := m.LastSeen[id]; !ok || !seen.Equal(m.LastPass) {
			m.FirstSeen[id] = now
		}
		m.LastSeen[id] = now
	}
	m.LastPass = now
	return deleted
}
