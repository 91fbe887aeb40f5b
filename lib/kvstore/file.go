// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/bureau-foundation/dailyfix/lib/secret"
)

// File is a Store backed by a single JSON object file. The file is
// reread on every operation, so separate File values (or separate
// processes) on one path observe each other's writes.
type File struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// OpenFile returns a store at path. The file need not exist; its
// directory is created with mode 0700 on first write.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("kvstore: file backend requires a path")
	}
	return &File{path: path}, nil
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", false, ErrClosed
	}

	entries, err := f.read()
	if err != nil {
		return "", false, err
	}
	value, found := entries[key]
	return value, found, nil
}

func (f *File) Put(_ context.Context, entries map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	current, err := f.read()
	if err != nil {
		return err
	}
	maps.Copy(current, entries)
	return f.replace(current)
}

func (f *File) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	current, err := f.read()
	if err != nil {
		return err
	}
	changed := false
	for _, key := range keys {
		if _, found := current[key]; found {
			delete(current, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if len(current) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("kvstore: removing %s: %w", f.path, err)
		}
		return nil
	}
	return f.replace(current)
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// read returns the file's entries, or an empty map when the file does
// not exist.
func (f *File) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: reading %s: %w", f.path, err)
	}
	defer secret.Zero(data)

	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("kvstore: parsing %s: %w", f.path, err)
	}
	return entries, nil
}

// replace writes entries to a temporary sibling and renames it over
// the store file.
func (f *File) replace(entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("kvstore: encoding entries: %w", err)
	}
	data = append(data, '\n')
	defer secret.Zero(data)

	directory := filepath.Dir(f.path)
	if err := os.MkdirAll(directory, 0700); err != nil {
		return fmt.Errorf("kvstore: creating %s: %w", directory, err)
	}

	temporary, err := os.CreateTemp(directory, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("kvstore: creating temporary file: %w", err)
	}
	temporaryPath := temporary.Name()
	cleanup := func() {
		temporary.Close()
		os.Remove(temporaryPath)
	}

	if err := temporary.Chmod(0600); err != nil {
		cleanup()
		return fmt.Errorf("kvstore: chmod %s: %w", temporaryPath, err)
	}
	if _, err := temporary.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("kvstore: writing %s: %w", temporaryPath, err)
	}
	if err := temporary.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("kvstore: syncing %s: %w", temporaryPath, err)
	}
	if err := temporary.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("kvstore: closing %s: %w", temporaryPath, err)
	}
	if err := os.Rename(temporaryPath, f.path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("kvstore: replacing %s: %w", f.path, err)
	}
	return nil
}
