package datastore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v4"
)

// SnapshotManifest lists what a snapshot directory should contain once
// endSnapshot completes, so a loader can validate completeness before
// hard-linking the directory back into a fresh collection.
type SnapshotManifest struct {
	StoreName    string
	SidecarName  string
	HardLinkedFiles []string
}

const manifestFileName = "MANIFEST"

// snapshotState threads the in-flight capture between the three phases.
type snapshotState struct {
	manifest SnapshotManifest
	captured []*DataFile
}

// StartSnapshot captures the currently published file set and writes a
// fresh copy of the metadata sidecar into dir. This phase runs while
// writers are quiesced - callers should hold off calling StartWriting for
// its duration, which this method enforces by taking the writer lock for
// the snapshot of state (not for the whole snapshot).
func (c *Collection) StartSnapshot(dir string) (*snapshotState, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("datastore: cannot create snapshot dir %s: %w", dir, err)
	}

	c.writerMu.Lock()
	captured := c.Files()
	c.writerMu.Unlock()

	sidecarSrc := sidecarPath(c.dir, c.storeName)
	sidecarBytes, err := os.ReadFile(sidecarSrc)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("datastore: cannot read sidecar: %w", err)
	}
	sidecarDst := sidecarPath(dir, c.storeName)
	if sidecarBytes != nil {
		if err := os.WriteFile(sidecarDst, sidecarBytes, 0o644); err != nil {
			return nil, fmt.Errorf("datastore: cannot write snapshot sidecar: %w", err)
		}
	}

	names := make([]string, 0, len(captured))
	for _, f := range captured {
		names = append(names, filepath.Base(f.Path()))
	}

	return &snapshotState{
		manifest: SnapshotManifest{
			StoreName:       c.storeName,
			SidecarName:     filepath.Base(sidecarDst),
			HardLinkedFiles: names,
		},
		captured: captured,
	}, nil
}

// MiddleSnapshot hard-links each captured file into dir. Writers run freely
// during this phase: new files created concurrently are simply not part of
// this snapshot.
func (c *Collection) MiddleSnapshot(dir string, state *snapshotState) error {
	for _, f := range state.captured {
		dst := filepath.Join(dir, filepath.Base(f.Path()))
		if err := os.Link(f.Path(), dst); err != nil {
			return fmt.Errorf("datastore: cannot hard-link %s: %w", f.Path(), err)
		}
	}
	return nil
}

// EndSnapshot writes the manifest so a loader can validate the snapshot is
// complete before reusing it. Otherwise this phase is a no-op cleanup hook.
func (c *Collection) EndSnapshot(dir string, state *snapshotState) error {
	encoded, err := msgpack.Marshal(state.manifest)
	if err != nil {
		return fmt.Errorf("datastore: cannot encode snapshot manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, manifestFileName), encoded, 0o644)
}

// LoadSnapshotManifest reads back a manifest a prior EndSnapshot wrote, for
// a loader to validate before treating dir as a usable snapshot.
func LoadSnapshotManifest(dir string) (SnapshotManifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, manifestFileName))
	if err != nil {
		return SnapshotManifest{}, fmt.Errorf("datastore: cannot read snapshot manifest: %w", err)
	}
	var m SnapshotManifest
	if err := msgpack.Unmarshal(raw, &m); err != nil {
		return SnapshotManifest{}, fmt.Errorf("datastore: corrupt snapshot manifest: %w", err)
	}
	return m, nil
}

// ValidateSnapshot checks that every file the manifest names is present in
// dir, so a loader never hard-links a partial snapshot into a live
// collection.
func ValidateSnapshot(dir string, m SnapshotManifest) error {
	for _, name := range m.HardLinkedFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("datastore: snapshot missing file %s: %w", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, m.SidecarName)); err != nil {
		return fmt.Errorf("datastore: snapshot missing sidecar %s: %w", m.SidecarName, err)
	}
	return nil
}
