// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

// Package query turns a data question into one gated, read-only SQL query:
// prompt the model, pull the query out of its fenced block, check it
// against the denylist, then execute it.
package query

import (
	"context"
	"log/slog"

	"github.com/hosteldesk/deskbot/internal/datastore"
	"github.com/hosteldesk/deskbot/internal/provider"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

// Result is the outcome of one compile-and-run.
type Result struct {
	Prompt  string          `json:"prompt"`
	Raw     string          `json:"raw"`
	Query   string          `json:"query,omitempty"`
	Verdict *Verdict        `json:"verdict,omitempty"`
	Error   string          `json:"error,omitempty"`
	Rows    *datastore.Rows `json:"rows,omitempty"`

	// Err is the coded error behind Error.
	Err error `json:"-"`
}

// Safe reports whether the query passed the gate.
func (r *Result) Safe() bool { return r.Verdict != nil && r.Verdict.Safe }

// Pipeline compiles, gates and executes data questions.
type Pipeline struct {
	gen      provider.Generator
	compiler *Compiler
	gate     *Gate
	executor *Executor
	logger   *slog.Logger
}

// NewPipeline wires the steps together. The executor's own gate check is a
// second guard; the pipeline gates first so a rejection carries the query.
func NewPipeline(gen provider.Generator, compiler *Compiler, gate *Gate, executor *Executor, logger *slog.Logger) *Pipeline {
	if gate == nil {
		gate = NewGate()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{gen: gen, compiler: compiler, gate: gate, executor: executor, logger: logger}
}

// Run answers question. defaults is the session JSON blob.
func (p *Pipeline) Run(ctx context.Context, question, defaults string) *Result {
	res := &Result{Prompt: p.compiler.Prompt(question, defaults)}

	raw, err := p.gen.Generate(ctx, res.Prompt)
	if err != nil {
		res.Err = deskerr.Errorf(deskerr.CodeQueryGenerateFailure, "LLM error: %s", err)
		res.Error = res.Err.Error()
		return res
	}
	res.Raw = raw

	q, err := Extract(raw)
	if err != nil {
		res.Err = err
		res.Error = "No SQL found in model response"
		return res
	}
	res.Query = q

	v := p.gate.Check(q)
	res.Verdict = &v
	if !v.Safe {
		p.logger.Warn("query rejected by safety gate", "reason", v.Reason)
		res.Err = v.Err()
		res.Error = UnsafeMessage
		return res
	}

	rows, err := p.executor.Run(ctx, q)
	if err != nil {
		res.Err = err
		res.Error = err.Error()
		return res
	}
	res.Rows = rows
	return res
}
