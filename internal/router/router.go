// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

// Package router answers one desk message by trying, in order: a remembered
// session fact, a knowledge topic, a data query, document retrieval and
// finally an ungrounded model answer. The first stage that produces an
// answer wins.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/hosteldesk/deskbot/internal/grounding"
	"github.com/hosteldesk/deskbot/internal/knowledge"
	"github.com/hosteldesk/deskbot/internal/memory"
	"github.com/hosteldesk/deskbot/internal/provider"
	"github.com/hosteldesk/deskbot/internal/query"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

const (
	// EmptyMessage answers a blank request.
	EmptyMessage = "Please provide a question."
	// InternalError answers a request that crashed a stage.
	InternalError = "Sorry, something went wrong while answering. Please try again."
	// CheckAvailability is the fallback model's reply for live-data questions.
	CheckAvailability = "I will check availability for you."

	defaultRecallK      = 8
	defaultHistoryLimit = 10
)

const fallbackPreamble = "You are a friendly and helpful hostel information assistant for parents and students.\n" +
	"Answer concisely and politely. If the user explicitly requests live data (counts, availability, room occupancy), " +
	"respond: '" + CheckAvailability + "' so the data query can run on a later turn.\n\n"

// Request is one inbound message.
type Request struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Debug     bool   `json:"debug,omitempty"`
}

// Config holds the Router's collaborators. Generator and Grounding are
// required; a nil Memory, Knowledge, Queries or Index disables its stage.
type Config struct {
	Generator  provider.Generator
	Grounding  *grounding.Pipeline
	Memory     *memory.Service
	Facts      memory.FactDetector
	Knowledge  *knowledge.Base
	Classifier query.Classifier
	Queries    *query.Pipeline
	Index      *knowledge.Index

	// Schema is the schema summary given to the fallback model.
	Schema       string
	RecallK      int
	HistoryLimit int
	PreviewRows  int

	Metrics *Metrics
	Logger  *slog.Logger
}

// Router routes messages to the first stage able to answer.
type Router struct {
	gen          provider.Generator
	grounding    *grounding.Pipeline
	memory       *memory.Service
	facts        memory.FactDetector
	knowledge    *knowledge.Base
	classifier   query.Classifier
	queries      *query.Pipeline
	index        *knowledge.Index
	schema       string
	recallK      int
	historyLimit int
	previewRows  int
	metrics      *Metrics
	logger       *slog.Logger
}

// New creates a Router.
func New(cfg Config) (*Router, error) {
	if cfg.Generator == nil || cfg.Grounding == nil {
		return nil, deskerr.New(deskerr.CodeConfigValidateInvalidValue, "router needs a generator and a grounding pipeline")
	}

	r := &Router{
		gen:          cfg.Generator,
		grounding:    cfg.Grounding,
		memory:       cfg.Memory,
		facts:        cfg.Facts,
		knowledge:    cfg.Knowledge,
		classifier:   cfg.Classifier,
		queries:      cfg.Queries,
		index:        cfg.Index,
		schema:       strings.TrimSpace(cfg.Schema),
		recallK:      cfg.RecallK,
		historyLimit: cfg.HistoryLimit,
		previewRows:  cfg.PreviewRows,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
	if r.facts == nil {
		r.facts = memory.PatternDetector{}
	}
	if r.classifier == nil {
		r.classifier = query.NewHeuristic()
	}
	if r.recallK <= 0 {
		r.recallK = defaultRecallK
	}
	if r.historyLimit <= 0 {
		r.historyLimit = defaultHistoryLimit
	}
	if r.previewRows <= 0 {
		r.previewRows = query.DefaultPreviewRows
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

// turn is the working state of one Route call.
type turn struct {
	question      string
	session       string
	records       []memory.Record
	memoryContext string

	stage  Stage
	prompt string
	hits   []knowledge.Hit
}

// Route answers req. It never fails: stage errors fall through to the next
// stage and a panic becomes an internal-error answer.
func (r *Router) Route(ctx context.Context, req Request) (env Envelope) {
	start := time.Now()
	t := &turn{
		question: strings.TrimSpace(req.Message),
		session:  strings.TrimSpace(req.SessionID),
		stage:    StageInput,
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("router panic",
				"session_id", t.session,
				"stage", t.stage,
				"panic", p,
				"stack", string(debug.Stack()),
			)
			r.metrics.failure(t.stage)
			t.stage = StageInternal
			env = newInformational(InternalError, "", Informational{})
		}
		if req.Debug {
			env.Debug = &Debug{
				Stage:         t.stage,
				MemoryContext: t.memoryContext,
				MemoryUsed:    t.records,
				Prompt:        t.prompt,
				Hits:          t.hits,
			}
		}
		elapsed := time.Since(start)
		r.metrics.observe(t.stage, env.Kind, elapsed)
		r.logger.Info("routed message",
			"session_id", t.session,
			"stage", t.stage,
			"kind", env.Kind,
			"duration", elapsed,
		)
	}()

	if t.question == "" {
		return newInformational(EmptyMessage, "", Informational{})
	}

	if t.session != "" && r.memory != nil {
		t.records = r.memory.Recall(ctx, t.session, t.question, r.recallK)
		t.memoryContext = memory.FormatContext(t.records)
	}

	env = r.answer(ctx, t)
	r.record(ctx, t, env)
	return env
}

func (r *Router) answer(ctx context.Context, t *turn) Envelope {
	stages := []struct {
		stage Stage
		try   func(context.Context, *turn) (Envelope, bool)
	}{
		{StageMemory, r.fromMemory},
		{StageKnowledge, r.fromKnowledge},
		{StageData, r.fromData},
		{StageRetrieval, r.fromRetrieval},
	}
	for _, s := range stages {
		t.stage = s.stage
		if env, ok := s.try(ctx, t); ok {
			return env
		}
	}
	t.stage = StageFallback
	return r.fallback(ctx, t)
}

func (r *Router) fromMemory(_ context.Context, t *turn) (Envelope, bool) {
	if t.session == "" || len(t.records) == 0 {
		return Envelope{}, false
	}
	v := r.facts.Classify(t.question)
	if !v.Asks() {
		return Envelope{}, false
	}

	for _, rec := range t.records {
		if rec.Fact != nil && rec.Fact.Type == v.Type {
			answer := fmt.Sprintf("I have a note for this session: %s = %s.", v.Type, rec.Fact.Value)
			return newInformational(answer, answer, Informational{Source: SourceMemory}), true
		}
	}

	// Records stored without a fact are rescanned. Assistant records are
	// skipped so an echoed answer is never read back as the user's fact.
	for _, rec := range t.records {
		if rec.Fact != nil || isAssistant(rec) {
			continue
		}
		if f, ok := memory.ExtractFact(rec.Text); ok && f.Type == v.Type {
			answer := fmt.Sprintf("I found in memory: %s = %s.", f.Type, f.Value)
			return newInformational(answer, answer, Informational{Source: SourceMemory}), true
		}
	}
	return Envelope{}, false
}

func isAssistant(rec memory.Record) bool {
	role, _ := rec.Metadata["role"].(string)
	return role == string(memory.RoleAssistant)
}

func (r *Router) fromKnowledge(ctx context.Context, t *turn) (Envelope, bool) {
	if r.knowledge == nil {
		return Envelope{}, false
	}
	topic, ok := r.knowledge.Match(t.question)
	if !ok {
		return Envelope{}, false
	}

	res := r.grounding.Summarize(ctx, t.question, topic)
	t.prompt = res.Prompt
	return newInformational(res.Answer, res.Raw, Informational{
		Source:    SourceKnowledgeBase,
		Topic:     topic.Name,
		Truncated: res.Truncated,
	}), true
}

func (r *Router) fromData(ctx context.Context, t *turn) (Envelope, bool) {
	if r.queries == nil || !r.classifier.Classify(t.question) {
		return Envelope{}, false
	}

	var turns []memory.Turn
	if t.session != "" && r.memory != nil {
		turns = r.memory.RecentTurns(t.session, r.historyLimit)
	}
	defaults := memory.SessionDefaults(t.records, turns).JSON()

	res := r.queries.Run(ctx, t.question, defaults)
	t.prompt = res.Prompt

	switch {
	case res.Verdict != nil && !res.Verdict.Safe:
		r.metrics.rejectedQuery()
		r.logger.Warn("data query rejected",
			"session_id", t.session,
			"reason", res.Verdict.Reason,
		)
		return newDataQuery("Error running query: "+res.Error, res.Raw, DataQuery{
			Query: res.Query,
			Error: res.Error,
		}), true

	case res.Query != "" && res.Err != nil:
		r.stageFailed(t, res.Err)
		return newDataQuery("Error running query: "+res.Error, res.Raw, DataQuery{
			Query: res.Query,
			Safe:  true,
			Error: res.Error,
		}), true

	case res.Query != "":
		data := DataQuery{Query: res.Query, Safe: true, RowCount: res.Rows.Len()}
		if res.Rows != nil {
			data.Columns = res.Rows.Columns
			data.Rows = res.Rows.Data
			data.Truncated = res.Rows.Truncated
		}
		return newDataQuery(query.Summary(res.Query, res.Rows, r.previewRows), res.Raw, data), true

	case strings.TrimSpace(res.Raw) != "":
		// The model asked a clarifying question or deferred a write.
		text := strings.TrimSpace(res.Raw)
		return newInformational(text, res.Raw, Informational{Source: SourceModel, Clarification: true}), true

	default:
		r.stageFailed(t, res.Err)
		return Envelope{}, false
	}
}

func (r *Router) fromRetrieval(ctx context.Context, t *turn) (Envelope, bool) {
	if r.index == nil {
		return Envelope{}, false
	}
	hits, err := r.index.Search(ctx, t.question)
	if err != nil {
		r.stageFailed(t, err)
		return Envelope{}, false
	}
	if len(hits) == 0 {
		return Envelope{}, false
	}
	t.hits = hits

	res := r.grounding.Answer(ctx, t.question, hits, t.memoryContext)
	t.prompt = res.Prompt

	refs := make([]SourceRef, len(hits))
	for i, h := range hits {
		refs[i] = SourceRef{Index: i + 1, Source: h.Source, Score: h.Score}
	}
	return newInformational(res.Answer, res.Raw, Informational{
		Source:  SourceDocuments,
		Sources: refs,
		Cited:   res.Cited,
	}), true
}

func (r *Router) fallback(ctx context.Context, t *turn) Envelope {
	var sb strings.Builder
	sb.WriteString(fallbackPreamble)
	if t.memoryContext != "" {
		sb.WriteString(t.memoryContext)
		sb.WriteString("\n")
	}
	if r.schema != "" {
		sb.WriteString("Database schema:\n")
		sb.WriteString(r.schema)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nUser question: %s\nAnswer briefly.", t.question)
	t.prompt = sb.String()

	raw, err := r.gen.Generate(ctx, t.prompt)
	if err != nil {
		r.stageFailed(t, err)
		raw = "LLM error: " + err.Error()
	}
	return newInformational(strings.TrimSpace(raw), raw, Informational{Source: SourceModel})
}

// record writes the exchange to session memory. Failures are logged only.
func (r *Router) record(ctx context.Context, t *turn, env Envelope) {
	if t.session == "" || r.memory == nil {
		return
	}

	assistant := "assistant: " + env.Answer
	if env.Data != nil && env.Data.Query != "" {
		assistant = "assistant: ran data query: " + env.Data.Query
	}

	writes := []struct {
		text string
		meta map[string]any
	}{
		{"user: " + t.question, map[string]any{"role": string(memory.RoleUser)}},
		{assistant, map[string]any{"role": string(memory.RoleAssistant), "stage": string(t.stage)}},
	}
	for _, w := range writes {
		if _, err := r.memory.Remember(ctx, t.session, w.text, w.meta); err != nil {
			r.logger.Warn("memory write failed", "session_id", t.session, "stage", t.stage, "error", err)
		}
	}

	if err := r.memory.AppendTurn(t.session, memory.RoleUser, t.question); err != nil {
		r.logger.Warn("turn append failed", "session_id", t.session, "error", err)
	}
	if err := r.memory.AppendTurn(t.session, memory.RoleAssistant, env.Answer); err != nil {
		r.logger.Warn("turn append failed", "session_id", t.session, "error", err)
	}
}

func (r *Router) stageFailed(t *turn, err error) {
	r.metrics.failure(t.stage)
	r.logger.Warn("stage failed",
		"session_id", t.session,
		"stage", t.stage,
		"error", err,
	)
}
