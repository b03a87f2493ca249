// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package openai

import (
	"context"
	"strings"

	"github.com/hosteldesk/deskbot/internal/provider"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// Config holds OpenAI provider configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
}

// Provider implements provider.Provider using the OpenAI Chat Completions API.
type Provider struct {
	client openaisdk.Client
	health *provider.HealthTracker
}

var (
	_ provider.Provider       = (*Provider)(nil)
	_ provider.HealthReporter = (*Provider)(nil)
)

// New creates a new OpenAI provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, deskerr.New(deskerr.CodeProviderRequestInvalid, "openai: missing api_key in config",
			deskerr.FieldProvider("openai"))
	}

	return &Provider{
		client: openaisdk.NewClient(ClientOptions(cfg)...),
		health: provider.NewDefaultHealthTracker(),
	}, nil
}

// ClientOptions returns the SDK request options for cfg. The embedding
// client shares them.
func ClientOptions(cfg Config) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return opts
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Available(_ context.Context) bool {
	return p.health.IsHealthy()
}

func (p *Provider) RecordFailure() { p.health.RecordFailure() }
func (p *Provider) RecordSuccess() { p.health.RecordSuccess() }

func (p *Provider) HealthMetrics() provider.HealthMetrics { return p.health.HealthMetrics() }

func (p *Provider) Close() error { return nil }

// Complete sends a non-streaming chat completion and returns the first
// choice's content.
func (p *Provider) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, err
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, deskerr.Wrap(err, deskerr.CodeProviderUpstreamFailure, "openai: chat completion",
			deskerr.FieldProvider("openai"))
	}
	if len(completion.Choices) == 0 {
		return nil, deskerr.New(deskerr.CodeProviderResponseInvalid, "openai: response has no choices",
			deskerr.FieldProvider("openai"))
	}

	return &provider.Response{
		Text:  strings.TrimSpace(completion.Choices[0].Message.Content),
		Model: completion.Model,
		Usage: provider.Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
		},
	}, nil
}

// buildParams converts a provider.Request into OpenAI SDK ChatCompletionNewParams.
func buildParams(req provider.Request) (openaisdk.ChatCompletionNewParams, error) {
	msgs, err := convertMessages(req.Messages, req.SystemPrompt)
	if err != nil {
		return openaisdk.ChatCompletionNewParams{}, err
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:       shared.ChatModel(req.Model),
		Messages:    msgs,
		Temperature: param.NewOpt(req.Options.Temperature),
	}

	if req.Options.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.Options.MaxTokens))
	}

	if len(req.Options.StopSequences) > 0 {
		params.Stop = openaisdk.ChatCompletionNewParamsStopUnion{
			OfStringArray: req.Options.StopSequences,
		}
	}

	return params, nil
}

// convertMessages transforms provider messages into OpenAI SDK message
// params. The system prompt is prepended as a system message if present.
func convertMessages(msgs []provider.Message, systemPrompt string) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	var result []openaisdk.ChatCompletionMessageParamUnion

	if systemPrompt != "" {
		result = append(result, openaisdk.SystemMessage(systemPrompt))
	}

	for _, msg := range msgs {
		switch msg.Role {
		case provider.RoleUser:
			result = append(result, openaisdk.UserMessage(msg.Content))
		case provider.RoleAssistant:
			result = append(result, openaisdk.AssistantMessage(msg.Content))
		case provider.RoleSystem:
			result = append(result, openaisdk.SystemMessage(msg.Content))
		default:
			return nil, deskerr.Errorf(deskerr.CodeProviderRequestInvalid, "openai: unsupported message role %q", msg.Role)
		}
	}

	return result, nil
}
