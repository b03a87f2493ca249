// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hosteldesk/deskbot/internal/store"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

var _ store.VectorStore = (*VectorStore)(nil)

// VectorStore implements store.VectorStore backed by SQLite with sqlite-vec.
// Each collection is a vec0 virtual table "vec_<name>" using cosine
// distance plus a companion "<name>_payload" table holding JSON metadata.
type VectorStore struct {
	db         *sql.DB
	dimensions int

	mu    sync.Mutex
	known map[string]bool
}

// NewVectorStore opens (or creates) a SQLite database at dbPath.
// Collection tables are created on first write.
func NewVectorStore(dbPath string, dimensions int) (*VectorStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, deskerr.Errorf(deskerr.CodeStoreDatabaseFailure, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, deskerr.Errorf(deskerr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}

	return &VectorStore{db: db, dimensions: dimensions, known: make(map[string]bool)}, nil
}

func vecTable(collection string) string     { return "vec_" + collection }
func payloadTable(collection string) string { return collection + "_payload" }

// ensureCollection creates the collection tables if needed.
func (v *VectorStore) ensureCollection(ctx context.Context, collection string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.known[collection] {
		return nil
	}

	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(id TEXT PRIMARY KEY, embedding float[%d] distance_metric=cosine)`,
		vecTable(collection), v.dimensions,
	)
	if _, err := v.db.ExecContext(ctx, vecDDL); err != nil {
		return deskerr.Wrap(err, deskerr.CodeStoreDatabaseFailure, "creating vector table",
			deskerr.FieldCollection(collection))
	}

	metaDDL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id       TEXT PRIMARY KEY,
	metadata TEXT NOT NULL DEFAULT '{}'
)`, payloadTable(collection))
	if _, err := v.db.ExecContext(ctx, metaDDL); err != nil {
		return deskerr.Wrap(err, deskerr.CodeStoreDatabaseFailure, "creating payload table",
			deskerr.FieldCollection(collection))
	}

	v.known[collection] = true
	return nil
}

// collectionExists reports whether the collection tables were created.
func (v *VectorStore) collectionExists(ctx context.Context, collection string) (bool, error) {
	v.mu.Lock()
	known := v.known[collection]
	v.mu.Unlock()
	if known {
		return true, nil
	}

	var n int
	err := v.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE name IN (?, ?)`,
		vecTable(collection), payloadTable(collection),
	).Scan(&n)
	if err != nil {
		return false, deskerr.Wrap(err, deskerr.CodeStoreDatabaseFailure, "checking collection",
			deskerr.FieldCollection(collection))
	}
	if n < 2 {
		return false, nil
	}

	v.mu.Lock()
	v.known[collection] = true
	v.mu.Unlock()
	return true, nil
}

// Upsert inserts or replaces points and their metadata in one transaction.
func (v *VectorStore) Upsert(ctx context.Context, collection string, points []store.Point) error {
	if err := store.ValidateCollection(collection); err != nil {
		return err
	}
	if err := store.ValidatePoints(points, v.dimensions); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}
	if err := v.ensureCollection(ctx, collection); err != nil {
		return err
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return deskerr.Errorf(deskerr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	delVec := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, vecTable(collection))
	insVec := fmt.Sprintf(`INSERT INTO %s(id, embedding) VALUES (?, ?)`, vecTable(collection))
	upMeta := fmt.Sprintf(`INSERT INTO %s(id, metadata) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET metadata = excluded.metadata`, payloadTable(collection))

	for _, p := range points {
		blob, err := sqlite_vec.SerializeFloat32(p.Vector)
		if err != nil {
			return deskerr.Errorf(deskerr.CodeStoreInvalidInput, "serializing embedding %s: %w", p.ID, err)
		}

		metaJSON := []byte("{}")
		if len(p.Metadata) > 0 {
			metaJSON, err = json.Marshal(p.Metadata)
			if err != nil {
				return deskerr.Errorf(deskerr.CodeStoreInvalidInput, "marshalling metadata %s: %w", p.ID, err)
			}
		}

		// vec0 does not support ON CONFLICT; delete first for upsert.
		if _, err := tx.ExecContext(ctx, delVec, p.ID); err != nil {
			return deskerr.Errorf(deskerr.CodeStoreDatabaseFailure, "deleting existing vector %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, insVec, p.ID, blob); err != nil {
			return deskerr.Errorf(deskerr.CodeStoreDatabaseFailure, "inserting vector %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, upMeta, p.ID, string(metaJSON)); err != nil {
			return deskerr.Errorf(deskerr.CodeStoreDatabaseFailure, "upserting metadata %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return deskerr.Errorf(deskerr.CodeStoreDatabaseFailure, "committing upsert: %w", err)
	}
	return nil
}

// Search returns the k nearest points. Unfiltered searches use the vec0
// KNN index; filtered searches scan the matching payload rows exactly so a
// filter can never be starved by closer non-matching points.
func (v *VectorStore) Search(ctx context.Context, collection string, query []float32, k int, filter store.Filter) ([]store.VectorResult, error) {
	if err := store.ValidateCollection(collection); err != nil {
		return nil, err
	}
	if err := store.ValidateFilter(filter); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	if v.dimensions > 0 && len(query) != v.dimensions {
		return nil, deskerr.Errorf(deskerr.CodeStoreInvalidInput,
			"query has %d dimensions, store expects %d", len(query), v.dimensions)
	}

	exists, err := v.collectionExists(ctx, collection)
	if err != nil || !exists {
		return nil, err
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, deskerr.Errorf(deskerr.CodeStoreInvalidInput, "serializing query vector: %w", err)
	}

	var (
		q    string
		args []any
	)
	if len(filter) == 0 {
		q = fmt.Sprintf(`SELECT v.id, v.distance, COALESCE(m.metadata, '{}')
FROM %s v
LEFT JOIN %s m ON m.id = v.id
WHERE v.embedding MATCH ? AND k = ?
ORDER BY v.distance`, vecTable(collection), payloadTable(collection))
		args = []any{blob, k}
	} else {
		keys := make([]string, 0, len(filter))
		for key := range filter {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		conds := make([]string, 0, len(keys))
		args = []any{blob}
		for _, key := range keys {
			conds = append(conds, fmt.Sprintf(`json_extract(m.metadata, '$.%s') = ?`, key))
			args = append(args, filter[key])
		}
		args = append(args, k)

		q = fmt.Sprintf(`SELECT v.id, vec_distance_cosine(v.embedding, ?) AS distance, m.metadata
FROM %s v
JOIN %s m ON m.id = v.id
WHERE %s
ORDER BY distance, v.id
LIMIT ?`, vecTable(collection), payloadTable(collection), strings.Join(conds, " AND "))
	}

	rows, err := v.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, deskerr.Wrap(err, deskerr.CodeStoreDatabaseFailure, "searching vectors",
			deskerr.FieldCollection(collection))
	}
	defer func() { _ = rows.Close() }()

	var results []store.VectorResult
	for rows.Next() {
		var (
			r       store.VectorResult
			metaStr string
		)
		if err := rows.Scan(&r.ID, &r.Distance, &metaStr); err != nil {
			return nil, deskerr.Errorf(deskerr.CodeStoreDatabaseFailure, "scanning vector result: %w", err)
		}
		if metaStr != "" && metaStr != "{}" {
			if err := json.Unmarshal([]byte(metaStr), &r.Metadata); err != nil {
				return nil, deskerr.Errorf(deskerr.CodeStoreDatabaseFailure, "unmarshalling vector metadata: %w", err)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, deskerr.Errorf(deskerr.CodeStoreDatabaseFailure, "iterating vector results: %w", err)
	}

	return results, nil
}

// Delete removes points and their metadata by ID.
func (v *VectorStore) Delete(ctx context.Context, collection string, ids []string) error {
	if err := store.ValidateCollection(collection); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	exists, err := v.collectionExists(ctx, collection)
	if err != nil || !exists {
		return err
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return deskerr.Errorf(deskerr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	for _, table := range []string{vecTable(collection), payloadTable(collection)} {
		q := fmt.Sprintf(`DELETE FROM %s WHERE id IN (%s)`, table, placeholders)
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return deskerr.Errorf(deskerr.CodeStoreDatabaseFailure, "deleting from %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return deskerr.Errorf(deskerr.CodeStoreDatabaseFailure, "committing vector delete: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (v *VectorStore) Close() error {
	return v.db.Close()
}
