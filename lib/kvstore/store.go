// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kvstore: store is closed")

// Store is a small durable string map.
type Store interface {
	// Get returns the value stored under key. found is false when the
	// key is absent; that is not an error.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Put stores every entry, replacing existing values. Either all
	// entries are written or none are.
	Put(ctx context.Context, entries map[string]string) error

	// Delete removes the named keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open constructs the named backend. path is ignored by the memory
// backend.
func Open(backend, path string, logger *slog.Logger) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		return OpenFile(path)
	case BackendSQLite:
		return OpenSQLite(path, logger)
	default:
		return nil, fmt.Errorf("kvstore: unknown backend %q", backend)
	}
}
