// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

// Package datastore provides read-only access to the relational hostel data
// used by data questions. Every backend runs statements inside a read-only
// transaction and refuses anything that is not a SELECT.
package datastore

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

// Store executes read-only statements.
type Store interface {
	ExecuteRead(ctx context.Context, query string) (*Rows, error)
	Close() error
}

// Rows is a fully materialized result set. Data holds one map per row keyed
// by column name; Columns keeps the driver's column order.
type Rows struct {
	Columns   []string         `json:"columns"`
	Data      []map[string]any `json:"data"`
	Truncated bool             `json:"truncated,omitempty"`
}

// Len returns the number of rows.
func (r *Rows) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Data)
}

// Config selects and configures a backend.
type Config struct {
	Driver  string // "sqlite" or "postgres"
	DSN     string
	MaxRows int
}

// Opener creates a Store for a backend.
type Opener func(ctx context.Context, cfg Config) (Store, error)

var (
	openersMu sync.RWMutex
	openers   = make(map[string]Opener)
)

// RegisterBackend makes a backend available to Open.
func RegisterBackend(name string, o Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	openers[name] = o
}

// Backends lists registered backend names.
func Backends() []string {
	openersMu.RLock()
	defer openersMu.RUnlock()

	names := make([]string, 0, len(openers))
	for name := range openers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open connects to the configured backend, defaulting to "sqlite".
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}

	openersMu.RLock()
	opener, ok := openers[driver]
	openersMu.RUnlock()
	if !ok {
		return nil, deskerr.Errorf(deskerr.CodeDataBackendUnsupported, "unsupported data driver: %q", driver)
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, deskerr.New(deskerr.CodeConfigValidateInvalidValue, "data.dsn is required")
	}

	return opener(ctx, cfg)
}

var (
	leadingComments = regexp.MustCompile(`^(?:\s*(?:--[^\n]*\n|/\*.*?\*/))*\s*`)
	firstWord       = regexp.MustCompile(`^[A-Za-z]+`)
)

// CheckReadOnly rejects statements that do not start with SELECT or WITH.
// It is a second line of defense behind the read-only transaction.
func CheckReadOnly(query string) error {
	rest := leadingComments.ReplaceAllString(query, "")
	kw := strings.ToLower(firstWord.FindString(rest))
	switch kw {
	case "select", "with":
		return nil
	case "":
		return deskerr.New(deskerr.CodeDataWriteForbidden, "empty statement")
	default:
		return deskerr.Errorf(deskerr.CodeDataWriteForbidden, "only SELECT statements are allowed, got %s", strings.ToUpper(kw))
	}
}
