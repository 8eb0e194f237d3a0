// Package vfs keeps in-memory files that stand in for named output files of
// backends which can only write to a path.
package vfs

import (
	"bytes"
	"errors"
	"io"
	"path"
	"sort"
	"sync"
	"time"
)

// MaxFileBytes caps a single virtual file.
const MaxFileBytes = 64 << 20

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrQuotaExceeded   = errors.New("file quota exceeded")
	ErrClosed          = errors.New("file already closed")
)

type fileEntry struct {
	data     []byte
	created  time.Time
	modified time.Time
	writes   int
}

// Disk is a registry of virtual files. Only registered names can be created;
// writes to anything else fail so a backend cannot escape to the real disk.
type Disk struct {
	mu    sync.RWMutex
	files map[string]*fileEntry
}

func NewDisk() *Disk {
	return &Disk{files: make(map[string]*fileEntry)}
}

func clean(name string) (string, error) {
	if name == "" {
		return "", ErrInvalidFilename
	}
	p := path.Clean("/" + name)
	if p == "/" {
		return "", ErrInvalidFilename
	}
	return p, nil
}

// Register announces name as a virtual file. Registering an existing name
// truncates it.
func (d *Disk) Register(name string) error {
	p, err := clean(name)
	if err != nil {
		return err
	}
	now := time.Now()
	d.mu.Lock()
	d.files[p] = &fileEntry{created: now, modified: now}
	d.mu.Unlock()
	return nil
}

// Unregister drops name and its contents.
func (d *Disk) Unregister(name string) {
	p, err := clean(name)
	if err != nil {
		return
	}
	d.mu.Lock()
	delete(d.files, p)
	d.mu.Unlock()
}

// Create opens a registered file for writing, truncating it. Bytes land in
// the disk when the writer is closed.
func (d *Disk) Create(name string) (io.WriteCloser, error) {
	p, err := clean(name)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	_, ok := d.files[p]
	d.mu.RUnlock()
	if !ok {
		return nil, ErrFileNotFound
	}
	return &fileWriter{disk: d, name: p}, nil
}

func (d *Disk) commit(name string, data []byte) error {
	if len(data) > MaxFileBytes {
		return ErrQuotaExceeded
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.files[name]
	if !ok {
		// unregistered while the writer was open
		return ErrFileNotFound
	}
	entry.data = bytes.Clone(data)
	entry.modified = time.Now()
	entry.writes++
	return nil
}

// Read returns a copy of the file contents.
func (d *Disk) Read(name string) ([]byte, error) {
	p, err := clean(name)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.files[p]
	if !ok {
		return nil, ErrFileNotFound
	}
	return bytes.Clone(entry.data), nil
}

// Size returns the length of a file in bytes.
func (d *Disk) Size(name string) (int, error) {
	p, err := clean(name)
	if err != nil {
		return 0, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.files[p]
	if !ok {
		return 0, ErrFileNotFound
	}
	return len(entry.data), nil
}

// Writes reports how many times a file was committed.
func (d *Disk) Writes(name string) int {
	p, err := clean(name)
	if err != nil {
		return 0
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if entry, ok := d.files[p]; ok {
		return entry.writes
	}
	return 0
}

// List returns registered names, sorted.
func (d *Disk) List() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]string, 0, len(d.files))
	for k := range d.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type fileWriter struct {
	disk   *Disk
	name   string
	buf    bytes.Buffer
	closed bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if w.buf.Len()+len(p) > MaxFileBytes {
		return 0, ErrQuotaExceeded
	}
	return w.buf.Write(p)
}

func (w *fileWriter) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	return w.disk.commit(w.name, w.buf.Bytes())
}
