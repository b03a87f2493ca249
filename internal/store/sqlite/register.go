// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package sqlite

import (
	"github.com/hosteldesk/deskbot/internal/store"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

func init() {
	store.RegisterBackend("sqlite", newVectorStore)
}

func newVectorStore(cfg store.Config) (store.VectorStore, error) {
	if cfg.Path == "" {
		return nil, deskerr.New(deskerr.CodeStoreInvalidInput, "sqlite vector store requires a path")
	}
	return NewVectorStore(cfg.Path, cfg.Dimensions)
}
