// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package store

import (
	"sort"
	"sync"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

// Config selects and configures a vector store backend.
type Config struct {
	Backend    string
	Path       string
	Dimensions int
}

// VectorStoreFactory opens a vector store for a backend.
type VectorStoreFactory func(cfg Config) (VectorStore, error)

var (
	factories   = map[string]VectorStoreFactory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers the factory for a named backend. Backend
// packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f VectorStoreFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Backends lists the registered backend names.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewVectorStore opens the configured backend, defaulting to "sqlite".
func NewVectorStore(cfg Config) (VectorStore, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "sqlite"
	}

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, deskerr.Errorf(deskerr.CodeStoreBackendUnsupported, "unsupported vector backend: %q", backend)
	}
	if cfg.Dimensions <= 0 {
		return nil, deskerr.Errorf(deskerr.CodeStoreInvalidInput, "vector dimensions must be positive, got %d", cfg.Dimensions)
	}

	return factory(cfg)
}
