// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package anthropic

import (
	"context"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hosteldesk/deskbot/internal/provider"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

// defaultMaxTokens applies when the request leaves MaxTokens unset; the
// Messages API requires a value.
const defaultMaxTokens = 1024

// Config holds Anthropic provider configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
}

// Provider implements provider.Provider using the Anthropic Messages API.
type Provider struct {
	client anthropicsdk.Client
	health *provider.HealthTracker
}

var (
	_ provider.Provider       = (*Provider)(nil)
	_ provider.HealthReporter = (*Provider)(nil)
)

// New creates a new Anthropic provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, deskerr.New(deskerr.CodeProviderRequestInvalid, "anthropic: missing api_key in config",
			deskerr.FieldProvider("anthropic"))
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Provider{
		client: anthropicsdk.NewClient(opts...),
		health: provider.NewDefaultHealthTracker(),
	}, nil
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) Available(_ context.Context) bool {
	return p.health.IsHealthy()
}

func (p *Provider) RecordFailure() { p.health.RecordFailure() }
func (p *Provider) RecordSuccess() { p.health.RecordSuccess() }

func (p *Provider) HealthMetrics() provider.HealthMetrics { return p.health.HealthMetrics() }

func (p *Provider) Close() error { return nil }

// Complete sends a Messages request and concatenates the text blocks of the
// reply.
func (p *Provider) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, err
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, deskerr.Wrap(err, deskerr.CodeProviderUpstreamFailure, "anthropic: messages",
			deskerr.FieldProvider("anthropic"))
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &provider.Response{
		Text:  strings.TrimSpace(sb.String()),
		Model: string(msg.Model),
		Usage: provider.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}

// buildParams converts a provider.Request into Anthropic SDK MessageNewParams.
func buildParams(req provider.Request) (anthropicsdk.MessageNewParams, error) {
	msgs, system, err := convertMessages(req.Messages)
	if err != nil {
		return anthropicsdk.MessageNewParams{}, err
	}

	maxTokens := int64(req.Options.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:       anthropicsdk.Model(req.Model),
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: anthropicsdk.Float(req.Options.Temperature),
	}

	if req.SystemPrompt != "" {
		system = append([]string{req.SystemPrompt}, system...)
	}
	for _, s := range system {
		params.System = append(params.System, anthropicsdk.TextBlockParam{Text: s})
	}

	if len(req.Options.StopSequences) > 0 {
		params.StopSequences = req.Options.StopSequences
	}

	return params, nil
}

// convertMessages splits system messages out (the API takes them via the
// top-level system param) and converts the rest.
func convertMessages(msgs []provider.Message) ([]anthropicsdk.MessageParam, []string, error) {
	var (
		result []anthropicsdk.MessageParam
		system []string
	)

	for _, msg := range msgs {
		switch msg.Role {
		case provider.RoleUser:
			result = append(result, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(msg.Content)))
		case provider.RoleAssistant:
			result = append(result, anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(msg.Content)))
		case provider.RoleSystem:
			system = append(system, msg.Content)
		default:
			return nil, nil, deskerr.Errorf(deskerr.CodeProviderRequestInvalid, "anthropic: unsupported message role %q", msg.Role)
		}
	}

	return result, system, nil
}
