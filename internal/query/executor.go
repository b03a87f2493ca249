// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package query

import (
	"context"
	"errors"
	"time"

	"github.com/hosteldesk/deskbot/internal/datastore"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

// DefaultTimeout bounds a query when none is configured.
const DefaultTimeout = 15 * time.Second

// Executor runs gated queries against a read-only store.
type Executor struct {
	store   datastore.Store
	gate    *Gate
	timeout time.Duration
}

// NewExecutor creates an Executor. timeout <= 0 uses DefaultTimeout.
func NewExecutor(store datastore.Store, gate *Gate, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if gate == nil {
		gate = NewGate()
	}
	return &Executor{store: store, gate: gate, timeout: timeout}
}

// Run executes query and returns every row or an error, never a partial
// result. Queries the gate refuses are never sent to the store.
func (e *Executor) Run(ctx context.Context, query string) (*datastore.Rows, error) {
	if err := e.gate.Check(query).Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.store.ExecuteRead(ctx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || deskerr.IsTimeout(err) {
			return nil, deskerr.Errorf(deskerr.CodeQueryExecuteTimeout, "query timed out after %s", e.timeout)
		}
		// A fresh error keeps the execution code and drops the driver chain.
		return nil, deskerr.New(deskerr.CodeQueryExecuteFailure, err.Error())
	}
	return rows, nil
}
