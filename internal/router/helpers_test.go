// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package router_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hosteldesk/deskbot/internal/datastore"
	"github.com/hosteldesk/deskbot/internal/embed"
	"github.com/hosteldesk/deskbot/internal/grounding"
	"github.com/hosteldesk/deskbot/internal/knowledge"
	"github.com/hosteldesk/deskbot/internal/memory"
	"github.com/hosteldesk/deskbot/internal/query"
	"github.com/hosteldesk/deskbot/internal/router"
	"github.com/hosteldesk/deskbot/internal/store"
	"github.com/stretchr/testify/require"
)

const (
	dims   = 64
	schema = "rooms(room_id, block, vacant_seats, kind)\nstudents(student_id, name, gender, block)"
)

// model is a scripted Generator that records every prompt.
type model struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (m *model) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.reply == nil {
		return "ok", nil
	}
	return m.reply(prompt)
}

func (m *model) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// sqlOr answers query-generation prompts with sql and everything else with
// other.
func sqlOr(sql, other string) func(string) (string, error) {
	return func(p string) (string, error) {
		if strings.Contains(p, "BI assistant") {
			return sql, nil
		}
		return other, nil
	}
}

type fakeStore struct {
	mu    sync.Mutex
	rows  *datastore.Rows
	err   error
	calls []string
}

func (f *fakeStore) ExecuteRead(_ context.Context, q string) (*datastore.Rows, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	f.mu.Unlock()
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
		Columns: []string{"room_id", "block", "vacant_seats"},
		Data: []map[string]any{
			{"room_id": "3-101", "block": int64(3), "vacant_seats": int64(2)},
			{"room_id": "3-204", "block": int64(3), "vacant_seats": int64(1)},
		},
	}
}

func hostelBase() *knowledge.Base {
	content := map[string]map[string]any{
		"hostel_types": {"single": "Single rooms with attached bathroom"},
		"fees":         {"mess_fee": float64(3000), "security_deposit": float64(5000)},
		"mess_info":    {"dinner": "8pm to 10pm"},
		"faq":          {"visiting_hours": "10am to 6pm"},
	}
	var topics []knowledge.Topic
	for _, spec := range knowledge.DefaultTopics() {
		topics = append(topics, knowledge.Topic{
			Name:     spec.Name,
			Origin:   spec.File,
			Triggers: spec.Triggers,
			Content:  content[spec.Name],
		})
	}
	return knowledge.NewBase(topics...)
}

type fixture struct {
	model   *model
	store   *fakeStore
	memory  *memory.Service
	vectors *store.MemoryVectorStore
	index   *knowledge.Index
	cfg     router.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	vs := store.NewMemoryVectorStore(dims)
	f := &fixture{
		model:   &model{},
		store:   &fakeStore{rows: vacantRows()},
		vectors: vs,
		memory: memory.NewService(embed.NewHash(dims), vs, "user_memory",
			memory.WithClock(func() time.Time { return now })),
	}
	f.index = knowledge.NewIndex(embed.NewHash(dims), vs, "hostel_kb", knowledge.WithMinRelevance(0.9))

	gate := query.NewGate()
	f.cfg = router.Config{
		Generator:  f.model,
		Grounding:  grounding.New(f.model),
		Memory:     f.memory,
		Knowledge:  hostelBase(),
		Classifier: query.NewHeuristic(),
		Queries: query.NewPipeline(f.model, query.NewCompiler(schema, ""), gate,
			query.NewExecutor(f.store, gate, time.Second), discard()),
		Index:  f.index,
		Schema: schema,
		Logger: discard(),
	}
	return f
}

func (f *fixture) router(t *testing.T) *router.Router {
	t.Helper()
	r, err := router.New(f.cfg)
	require.NoError(t, err)
	return r
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }
