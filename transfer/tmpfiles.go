package transfer

import (
	"os"
	"path/filepath"
	"sync"
)

// TempFiles hands out in-progress download files and remembers each one
// until it is committed or discarded. Cleanup removes whatever is still
// pending, e.g. after an interrupt.
type TempFiles struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

// Create opens a fresh hidden file in the directory of final. The caller
// closes it and then either commits or discards it.
func (t *TempFiles) Create(final string) (*os.File, error) {
	f, err := os.CreateTemp(filepath.Dir(final), "."+filepath.Base(final)+".dva-*")
	if err != nil {
		return nil, err
	}
	t.set(f.Name(), true)
	return f, nil
}

// Commit moves tmp onto final, replacing any existing file
func (t *TempFiles) Commit(tmp, final string) error {
	if err := os.Rename(tmp, final); err != nil {
		return err
	}
	t.set(tmp, false)
	return nil
}

// Discard removes tmp
func (t *TempFiles) Discard(tmp string) {
	_ = os.Remove(tmp)
	t.set(tmp, false)
}

// Len number of pending files
func (t *TempFiles) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Cleanup discards every pending file
func (t *TempFiles) Cleanup() {
	t.mu.Lock()
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()

	for p := range pending {
		_ = os.Remove(p)
	}
}

func (t *TempFiles) set(path string, pending bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !pending {
		delete(t.pending, path)
		return
	}
	if t.pending == nil {
		t.pending = make(map[string]struct{})
	}
	t.pending[path] = struct{}{}
}
