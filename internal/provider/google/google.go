// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package google

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/hosteldesk/deskbot/internal/provider"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

// Config holds Google provider configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
}

// Provider implements provider.Provider using the Gemini API.
type Provider struct {
	client *genai.Client
	health *provider.HealthTracker
}

var (
	_ provider.Provider       = (*Provider)(nil)
	_ provider.HealthReporter = (*Provider)(nil)
)

// New creates a new Google provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return &Provider{
		client: client,
		health: provider.NewDefaultHealthTracker(),
	}, nil
}

// NewClient builds a genai client for the Gemini API backend. The embedding
// adapter shares it.
func NewClient(cfg Config) (*genai.Client, error) {
	if cfg.APIKey == "" {
		return nil, deskerr.New(deskerr.CodeProviderRequestInvalid, "google: missing api_key in config",
			deskerr.FieldProvider("google"))
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, deskerr.Wrapf(err, deskerr.CodeProviderUpstreamFailure, "google: creating client")
	}
	return client, nil
}

func (p *Provider) Name() string { return "google" }

func (p *Provider) Available(_ context.Context) bool {
	return p.health.IsHealthy()
}

func (p *Provider) RecordFailure() { p.health.RecordFailure() }
func (p *Provider) RecordSuccess() { p.health.RecordSuccess() }

func (p *Provider) HealthMetrics() provider.HealthMetrics { return p.health.HealthMetrics() }

func (p *Provider) Close() error { return nil }

// Complete calls GenerateContent and joins the text parts of every candidate.
func (p *Provider) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	contents, system, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	result, err := p.client.Models.GenerateContent(ctx, req.Model, contents, buildConfig(req, system))
	if err != nil {
		return nil, deskerr.Wrap(err, deskerr.CodeProviderUpstreamFailure, "google: generate content",
			deskerr.FieldProvider("google"))
	}

	var sb strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" && !part.Thought {
				sb.WriteString(part.Text)
			}
		}
	}

	resp := &provider.Response{
		Text:  strings.TrimSpace(sb.String()),
		Model: req.Model,
	}
	if result.UsageMetadata != nil {
		resp.Usage = provider.Usage{
			InputTokens:  int(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int(result.UsageMetadata.CandidatesTokenCount),
		}
	}
	return resp, nil
}

// buildConfig converts request options into a genai.GenerateContentConfig.
func buildConfig(req provider.Request, system []string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Options.Temperature)),
	}

	if req.Options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.Options.MaxTokens)
	}

	if len(req.Options.StopSequences) > 0 {
		cfg.StopSequences = req.Options.StopSequences
	}

	if req.SystemPrompt != "" {
		system = append([]string{req.SystemPrompt}, system...)
	}
	if len(system) > 0 {
		parts := make([]*genai.Part, 0, len(system))
		for _, s := range system {
			parts = append(parts, &genai.Part{Text: s})
		}
		cfg.SystemInstruction = &genai.Content{Parts: parts}
	}

	return cfg
}

// convertMessages transforms provider messages into genai contents. System
// messages are returned separately for the SystemInstruction.
func convertMessages(msgs []provider.Message) ([]*genai.Content, []string, error) {
	var (
		result []*genai.Content
		system []string
	)

	for _, msg := range msgs {
		switch msg.Role {
		case provider.RoleUser:
			result = append(result, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case provider.RoleAssistant:
			result = append(result, genai.NewContentFromText(msg.Content, genai.RoleModel))
		case provider.RoleSystem:
			system = append(system, msg.Content)
		default:
			return nil, nil, deskerr.Errorf(deskerr.CodeProviderRequestInvalid, "google: unsupported message role %q", msg.Role)
		}
	}

	return result, system, nil
}
