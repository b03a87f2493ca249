// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package datastore

import (
	"context"
	"database/sql"
	"errors"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

// SQLStore is a Store over database/sql. Each call runs in its own read-only
// transaction that is always rolled back.
type SQLStore struct {
	db      *sql.DB
	maxRows int
	secrets []string
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps db. maxRows <= 0 disables the row cap. secrets are
// scrubbed from any error message the store returns.
func NewSQLStore(db *sql.DB, maxRows int, secrets ...string) *SQLStore {
	return &SQLStore{db: db, maxRows: maxRows, secrets: secrets}
}

func (s *SQLStore) ExecuteRead(ctx context.Context, query string) (*Rows, error) {
	if err := CheckReadOnly(query); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, s.fail("beginning read-only transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, s.fail("executing query", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, s.fail("reading columns", err)
	}

	out := &Rows{Columns: cols, Data: []map[string]any{}}
	for rows.Next() {
		if s.maxRows > 0 && len(out.Data) >= s.maxRows {
			out.Truncated = true
			break
		}

		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, s.fail("scanning row", err)
		}

		rec := make(map[string]any, len(cols))
		for i, c := range cols {
			rec[c] = normalize(vals[i])
		}
		out.Data = append(out.Data, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("iterating rows", err)
	}

	return out, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// fail builds a coded error whose message never contains a secret. The
// driver error is flattened to text so credentials cannot leak through the
// chain.
func (s *SQLStore) fail(op string, err error) error {
	msg := Redact(err.Error(), s.secrets...)
	if errors.Is(err, context.DeadlineExceeded) {
		return deskerr.Errorf(deskerr.CodeQueryExecuteTimeout, "%s: %s", op, msg)
	}
	return deskerr.Errorf(deskerr.CodeDataQueryFailure, "%s: %s", op, msg)
}

// normalize converts driver values into JSON-friendly ones.
func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return t
	}
}
