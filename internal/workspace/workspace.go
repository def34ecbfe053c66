// Package workspace owns the on-disk working tree: content-addressed uploads,
// link downloads, and per-run caption artifacts. A lock file keeps two
// processes from sharing one tree.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

const lockName = ".sematube.lock"

// ErrLocked reports that another process holds the workspace.
var ErrLocked = errors.New("workspace is locked by another process")

// Workspace is a working directory rooted at Root.
type Workspace struct {
	root string
	lock *flock.Flock
}

// Open creates the directory layout under root.
func Open(root string) (*Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("workspace root required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	w := &Workspace{root: abs, lock: flock.New(filepath.Join(abs, lockName))}
	for _, dir := range []string{w.root, w.Uploads(), w.Links(), w.Runs()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return w, nil
}

// Root returns the workspace root.
func (w *Workspace) Root() string { return w.root }

// Uploads holds persisted uploads keyed by content identity.
func (w *Workspace) Uploads() string { return filepath.Join(w.root, "uploads") }

// Links holds link downloads keyed by link identity.
func (w *Workspace) Links() string { return filepath.Join(w.root, "links") }

// Runs holds per-run caption artifacts.
func (w *Workspace) Runs() string { return filepath.Join(w.root, "runs") }

// RunDir returns the artifact directory for a run key hash.
func (w *Workspace) RunDir(keyHash string) string {
	return filepath.Join(w.Runs(), keyHash)
}

// Lock takes the workspace lock without blocking.
func (w *Workspace) Lock() error {
	ok, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, w.root)
	}
	return nil
}

// Unlock releases the workspace lock.
func (w *Workspace) Unlock() error {
	return w.lock.Unlock()
}

// Locked reports whether this process holds the lock.
func (w *Workspace) Locked() bool {
	return w.lock.Locked()
}
