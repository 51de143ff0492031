package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File is an Engine backed by a JSON document on local disk.
//
// Every write rewrites the document through a temporary file and a rename,
// so readers in other processes see either the old or the new document.
// Reads reload the document when its modification time or size changed,
// which picks up writes made by other processes.
type File struct {
	path string

	mu      sync.Mutex
	data    map[string]string
	modTime time.Time
	size    int64
}

// OpenFile opens (or creates) the JSON document at path.
func OpenFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storageError("open", path, err)
	}
	f := &File{path: path, data: make(map[string]string)}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reloadLocked(true); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the document path.
func (f *File) Path() string {
	return f.path
}

// reloadLocked re-reads the document if it changed on disk.
func (f *File) reloadLocked(force bool) error {
	info, err := os.Stat(f.path)
	if os.IsNotExist(err) {
		f.data = make(map[string]string)
		f.modTime = time.Time{}
		f.size = 0
		return nil
	}
	if err != nil {
		return storageError("stat", f.path, err)
	}
	if !force && info.ModTime().Equal(f.modTime) && info.Size() == f.size {
		return nil
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return storageError("read", f.path, err)
	}
	data := make(map[string]string)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return storageError("parse", f.path, err)
		}
	}
	f.data = data
	f.modTime = info.ModTime()
	f.size = info.Size()
	return nil
}

// flushLocked writes the document atomically.
func (f *File) flushLocked() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return storageError("encode", f.path, err)
	}
	raw = append(raw, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return storageError("write", f.path, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return storageError("write", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return storageError("write", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return storageError("rename", f.path, err)
	}

	if info, err := os.Stat(f.path); err == nil {
		f.modTime = info.ModTime()
		f.size = info.Size()
	}
	return nil
}

// Get implements Engine.
func (f *File) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reloadLocked(false); err != nil {
		return "", false, err
	}
	v, ok := f.data[key]
	return v, ok, nil
}

// Set implements Engine.
func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reloadLocked(false); err != nil {
		return err
	}
	if old, ok := f.data[key]; ok && old == value {
		return nil
	}
	f.data[key] = value
	return f.flushLocked()
}

// Delete implements Engine.
func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reloadLocked(false); err != nil {
		return err
	}
	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.flushLocked()
}

// Keys implements Engine.
func (f *File) Keys() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reloadLocked(false); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// String implements fmt.Stringer.
func (f *File) String() string {
	return fmt.Sprintf("file(%s)", f.path)
}
