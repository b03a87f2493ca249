// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package provider

import (
	"context"
)

// Generator is the narrow text-generation seam the grounding, query and
// routing layers depend on. Implementations return the model text or an
// error; they never return partial text alongside an error.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Provider is implemented by each model SDK adapter.
type Provider interface {
	Name() string
	Available(ctx context.Context) bool
	Complete(ctx context.Context, req Request) (*Response, error)
	Close() error
}

// HealthReporter is implemented by providers that track their own health.
type HealthReporter interface {
	RecordFailure()
	RecordSuccess()
	HealthMetrics() HealthMetrics
}

// Request is a single-turn completion request.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Options      Options
}

// Options contains model configuration.
type Options struct {
	Temperature   float64
	MaxTokens     int
	StopSequences []string
}

// Message is one prompt message.
type Message struct {
	Role    Role
	Content string
}

// Role defines the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Response is a completed model answer.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// UserPrompt builds a request carrying prompt as the single user message.
func UserPrompt(model, prompt string, opts Options) Request {
	return Request{
		Model:    model,
		Messages: []Message{{Role: RoleUser, Content: prompt}},
		Options:  opts,
	}
}
