// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package datastore

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

func init() {
	RegisterBackend("sqlite", openSQLite)
}

// SQLiteDSN turns a file path into a read-only, query-only connection
// string. A DSN that is already a file: URI gets the flags appended.
func SQLiteDSN(path string) string {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "mode=ro&_query_only=true"
}

func openSQLite(ctx context.Context, cfg Config) (Store, error) {
	db, err := sql.Open("sqlite3", SQLiteDSN(cfg.DSN))
	if err != nil {
		return nil, deskerr.Errorf(deskerr.CodeDataConnectFailure, "opening sqlite data store: %s", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, deskerr.Errorf(deskerr.CodeDataConnectFailure, "opening sqlite data store %s: %s", cfg.DSN, err)
	}
	return NewSQLStore(db, cfg.MaxRows), nil
}
