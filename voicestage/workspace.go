package voicestage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var errWorkspaceMissing = errors.New("output directory does not exist")

// Workspace owns the ephemeral directory that holds generated clips.
type Workspace struct {
	dir string
}

func NewWorkspace(dir string) *Workspace {
	return &Workspace{dir: dir}
}

func (w *Workspace) Dir() string {
	return w.dir
}

// Ensure creates the output directory. Idempotent.
func (w *Workspace) Ensure() error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create output directory failed: %w", err)
	}
	return nil
}

// ArtifactPath returns the destination for one clip. The ordinal keeps
// files sorted in processing order and the character name keeps provenance
// visible in a directory listing.
func (w *Workspace) ArtifactPath(ordinal int, character string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%03d_%s.%s", ordinal, character, artifactExt))
}

// Clear deletes every file in the workspace and returns how many went. A
// missing directory reports errWorkspaceMissing with zero deletions; a
// single file that refuses to delete is logged and skipped, never aborting
// the sweep.
func (w *Workspace) Clear() (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errWorkspaceMissing
		}
		return 0, fmt.Errorf("read output directory failed: %w", err)
	}
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, entry.Name())); err != nil {
			appLog.Error().Err(err).Str("file", entry.Name()).Msg("delete artifact failed")
			continue
		}
		deleted++
	}
	return deleted, nil
}
