// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

// Package memory is the per-session memory: long-term records in a vector
// collection recalled by similarity, and a volatile turn log.
package memory

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hosteldesk/deskbot/internal/embed"
	"github.com/hosteldesk/deskbot/internal/store"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

// Service owns session memory. It is safe for concurrent use.
type Service struct {
	embedder   embed.Embedder
	vectors    store.VectorStore
	collection string
	turns      *TurnLog
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds each embedding and vector store call.
func WithTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithTurnLog replaces the default turn log.
func WithTurnLog(l *TurnLog) Option { return func(s *Service) { s.turns = l } }

// NewService creates a Service storing records in collection.
func NewService(e embed.Embedder, vs store.VectorStore, collection string, opts ...Option) *Service {
	s := &Service{
		embedder:   e,
		vectors:    vs,
		collection: collection,
		turns:      NewTurnLog(0),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Remember stores text for session at the current time.
func (s *Service) Remember(ctx context.Context, session, text string, meta map[string]any) (string, error) {
	return s.RememberAt(ctx, session, text, meta, s.now())
}

// RememberAt stores text for session with an explicit timestamp. The same
// (session, at, text) always yields the same id and upserts the same point.
// Assistant records carry no fact, so echoed answers or queries never
// shadow what the user said.
func (s *Service) RememberAt(ctx context.Context, session, text string, meta map[string]any, at time.Time) (string, error) {
	if strings.TrimSpace(session) == "" || strings.TrimSpace(text) == "" {
		return "", deskerr.New(deskerr.CodeMemoryWriteInvalidInput, "session id and text are required",
			deskerr.FieldSessionID(session))
	}

	rec := Record{
		ID:        RecordID(session, at, text),
		SessionID: session,
		Text:      text,
		CreatedAt: at,
		Metadata:  meta,
	}
	if role, _ := meta["role"].(string); role != string(RoleAssistant) {
		if f, ok := ExtractFact(text); ok {
			rec.Fact = &f
		}
	}

	ectx, cancel := s.bound(ctx)
	vec, err := embed.One(ectx, s.embedder, text)
	cancel()
	if err != nil {
		return "", deskerr.Wrap(err, deskerr.CodeMemoryWriteFailure, "embedding memory record",
			deskerr.FieldSessionID(session))
	}

	uctx, cancel := s.bound(ctx)
	defer cancel()
	err = s.vectors.Upsert(uctx, s.collection, []store.Point{{ID: rec.ID, Vector: vec, Metadata: payload(rec)}})
	if err != nil {
		return "", deskerr.Wrap(err, deskerr.CodeMemoryWriteFailure, "storing memory record",
			deskerr.FieldSessionID(session), deskerr.FieldCollection(s.collection))
	}
	return rec.ID, nil
}

// Recall returns up to k of the session's records most relevant to query.
// It fails open: any embedding or store failure yields no records.
func (s *Service) Recall(ctx context.Context, session, query string, k int) []Record {
	if session == "" || strings.TrimSpace(query) == "" || k <= 0 {
		return nil
	}

	records, err := s.recall(ctx, session, query, k)
	if err != nil {
		s.logger.Warn("memory recall failed",
			"session_id", session,
			"error", deskerr.Errorf(deskerr.CodeMemoryRecallUnavailable, "recall: %s", err),
		)
		return nil
	}
	return records
}

func (s *Service) recall(ctx context.Context, session, query string, k int) ([]Record, error) {
	ectx, cancel := s.bound(ctx)
	vec, err := embed.One(ectx, s.embedder, query)
	cancel()
	if err != nil {
		return nil, err
	}

	sctx, cancel := s.bound(ctx)
	defer cancel()
	results, err := s.vectors.Search(sctx, s.collection, vec, k, store.Filter{"session_id": session})
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(results))
	for _, r := range results {
		rec := fromPayload(r.ID, r.Similarity(), r.Metadata)
		if rec.SessionID != session {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// AppendTurn adds a turn to the session's short-term history.
func (s *Service) AppendTurn(session string, role Role, content string) error {
	if session == "" || strings.TrimSpace(content) == "" {
		return deskerr.New(deskerr.CodeMemoryTurnInvalidInput, "session id and content are required",
			deskerr.FieldSessionID(session))
	}
	if role != RoleUser && role != RoleAssistant {
		return deskerr.Errorf(deskerr.CodeMemoryTurnInvalidInput, "unknown turn role %q", role)
	}
	s.turns.Append(session, Turn{Role: role, Content: content, At: s.now()})
	return nil
}

// RecentTurns returns the last limit turns of the session, oldest first.
func (s *Service) RecentTurns(session string, limit int) []Turn {
	if session == "" {
		return nil
	}
	return s.turns.Recent(session, limit)
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}
