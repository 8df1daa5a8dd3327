package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Op records one surface call.
type Op struct {
	Draw bool
	Slot Slot
}

// MemorySurface keeps artifacts in memory. Used by tests and the CLI.
type MemorySurface struct {
	mu    sync.Mutex
	items map[Slot]Artifact
	ops   []Op
}

func NewMemorySurface() *MemorySurface {
	return &MemorySurface{items: make(map[Slot]Artifact)}
}

func (m *MemorySurface) Draw(a Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[a.Slot]; ok {
		return fmt.Errorf("slot %s drawn twice without erase", a.Slot)
	}
	m.items[a.Slot] = a
	m.ops = append(m.ops, Op{Draw: true, Slot: a.Slot})
	return nil
}

func (m *MemorySurface) Erase(slot Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, slot)
	m.ops = append(m.ops, Op{Slot: slot})
	return nil
}

// Get returns what slot currently shows.
func (m *MemorySurface) Get(slot Slot) (Artifact, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[slot]
	return a, ok
}

// Len returns the number of visible artifacts.
func (m *MemorySurface) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Ops returns the call history.
func (m *MemorySurface) Ops() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Op(nil), m.ops...)
}

// DirSurface writes each slot to <dir>/<slot>.<ext>.
type DirSurface struct {
	dir string

	mu   sync.Mutex
	exts map[Slot]string
}

func NewDirSurface(dir string) (*DirSurface, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &DirSurface{dir: dir, exts: make(map[Slot]string)}, nil
}

// Path returns the file written for a.
func (d *DirSurface) Path(a Artifact) string {
	return filepath.Join(d.dir, string(a.Slot)+"."+a.Ext())
}

func (d *DirSurface) Draw(a Artifact) error {
	path := d.Path(a)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, a.Data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	d.mu.Lock()
	d.exts[a.Slot] = a.Ext()
	d.mu.Unlock()
	return nil
}

func (d *DirSurface) Erase(slot Slot) error {
	d.mu.Lock()
	ext, ok := d.exts[slot]
	delete(d.exts, slot)
	d.mu.Unlock()
	if !ok {
		return nil
	}
	err := os.Remove(filepath.Join(d.dir, string(slot)+"."+ext))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
