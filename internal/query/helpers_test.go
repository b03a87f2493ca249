// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package query_test

import (
	"context"
	"sync"

	"github.com/hosteldesk/deskbot/internal/datastore"
)

// fakeStore records every statement it is asked to run.
type fakeStore struct {
	mu    sync.Mutex
	rows  *datastore.Rows
	err   error
	block bool
	calls []string
}

func (f *fakeStore) ExecuteRead(ctx context.Context, q string) (*datastore.Rows, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func vacantRows() *datastore.Rows {
	return &datastore.Rows{
		Columns: []string{"block", "vacant_seats"},
		Data: []map[string]any{
			{"block": int64(3), "vacant_seats": int64(4)},
			{"block": int64(3), "vacant_seats": int64(1)},
		},
	}
}
