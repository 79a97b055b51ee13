// Package workspace owns the temporary directory tree of a single run.
//
//	<root>/scenesplit-<run id>/
//	    .lock       held for the lifetime of the run
//	    split/      segmentation output
//	    encode/     encoded segments
//	    audio.mkv   extracted audio track
//	    concat.txt  concat manifest
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	dirPrefix    = "scenesplit-"
	lockName     = ".lock"
	splitDir     = "split"
	encodeDir    = "encode"
	audioName    = "audio.mkv"
	manifestName = "concat.txt"
)

// ErrLocked means another run holds the workspace.
var ErrLocked = errors.New("workspace is locked by another run")

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Workspace is the per-run scratch directory.
type Workspace struct {
	dir  string
	lock *flock.Flock

	once      sync.Once
	removeErr error
}

// New creates <root>/scenesplit-<runID> with its split and encode
// subdirectories and locks it. An empty root uses the OS temp dir, an empty
// runID a fresh UUID.
func New(root, runID string) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}
	if strings.TrimSpace(runID) == "" {
		runID = NewRunID()
	}
	if strings.ContainsAny(runID, `/\`) {
		return nil, fmt.Errorf("invalid run id %q", runID)
	}

	dir := filepath.Join(root, dirPrefix+runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}

	ws := &Workspace{dir: dir, lock: lock}
	for _, sub := range []string{splitDir, encodeDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			_ = ws.Remove()
			return nil, fmt.Errorf("create workspace: %w", err)
		}
	}
	return ws, nil
}

// Dir returns the workspace root.
func (w *Workspace) Dir() string { return w.dir }

// SplitDir returns the segmentation output directory.
func (w *Workspace) SplitDir() string { return filepath.Join(w.dir, splitDir) }

// EncodeDir returns the encoded segment directory.
func (w *Workspace) EncodeDir() string { return filepath.Join(w.dir, encodeDir) }

// AudioPath returns the extracted audio track path.
func (w *Workspace) AudioPath() string { return filepath.Join(w.dir, audioName) }

// ManifestPath returns the concat manifest path.
func (w *Workspace) ManifestPath() string { return filepath.Join(w.dir, manifestName) }

// Remove releases the lock and deletes the workspace tree. Calling it again
// returns the first result.
func (w *Workspace) Remove() error {
	w.once.Do(func() {
		var errs []error
		if err := w.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release workspace lock: %w", err))
		}
		if err := os.RemoveAll(w.dir); err != nil {
			errs = append(errs, fmt.Errorf("remove workspace: %w", err))
		}
		w.removeErr = errors.Join(errs...)
	})
	return w.removeErr
}
