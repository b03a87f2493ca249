// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package datastore

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

func init() {
	RegisterBackend("postgres", openPostgres)
}

// PostgresDSN adds a read-only default transaction mode to dsn. Both URL
// and keyword/value forms are accepted; unknown settings are passed to
// the server as runtime parameters.
func PostgresDSN(dsn string) string {
	const param = "default_transaction_read_only"
	if strings.Contains(dsn, param) {
		return dsn
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + param + "=on"
	}
	return strings.TrimSpace(dsn) + " " + param + "=on"
}

func openPostgres(ctx context.Context, cfg Config) (Store, error) {
	secrets := Secrets(cfg.DSN)

	db, err := sql.Open("pgx", PostgresDSN(cfg.DSN))
	if err != nil {
		return nil, deskerr.Errorf(deskerr.CodeDataConnectFailure, "opening postgres data store %s: %s",
			RedactDSN(cfg.DSN), Redact(err.Error(), secrets...))
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, deskerr.Errorf(deskerr.CodeDataConnectFailure, "connecting to postgres data store %s: %s",
			RedactDSN(cfg.DSN), Redact(err.Error(), secrets...))
	}
	return NewSQLStore(db, cfg.MaxRows, secrets...), nil
}
