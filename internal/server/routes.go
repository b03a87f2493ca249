// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hosteldesk/deskbot/internal/provider"
	"github.com/hosteldesk/deskbot/internal/query"
	"github.com/hosteldesk/deskbot/internal/router"
)

// HealthBody is the JSON body of the health endpoint response. Status is
// "degraded" while any model provider is in failure cooldown.
type HealthBody struct {
	Status    string                            `json:"status" example:"ok" doc:"Health status"`
	Providers map[string]provider.HealthMetrics `json:"providers,omitempty" doc:"Per-provider health"`
}

// HealthResponse wraps the health check response.
type HealthResponse struct {
	Body HealthBody
}

// ChatInput is a chat request. Message is checked by the handler so a
// blank message is a 400 rather than a schema error.
type ChatInput struct {
	Body struct {
		Message   string `json:"message,omitempty" maxLength:"4000" doc:"The question to answer"`
		SessionID string `json:"session_id,omitempty" maxLength:"200" doc:"Opaque session key; enables memory"`
		Debug     bool   `json:"debug,omitempty" doc:"Attach routing provenance"`
	}
}

// ChatOutput is the routed answer.
type ChatOutput struct {
	Body router.Envelope
}

// QueryInput is a direct data question.
type QueryInput struct {
	Body struct {
		Question string `json:"question,omitempty" maxLength:"4000" doc:"Natural-language data question"`
	}
}

// QueryOutput is the compile-and-run result.
type QueryOutput struct {
	Body *query.Result
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*HealthResponse, error) {
		body := HealthBody{Status: "ok"}
		if s.services.Health != nil {
			body.Providers = s.services.Health.Health()
		}
		for _, m := range body.Providers {
			if !m.Available {
				body.Status = "degraded"
			}
		}
		return &HealthResponse{Body: body}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "chat",
		Method:      http.MethodPost,
		Path:        "/api/chat",
		Summary:     "Answer a desk message",
		Tags:        []string{"chat"},
	}, s.handleChat)

	huma.Register(s.api, huma.Operation{
		OperationID: "query",
		Method:      http.MethodPost,
		Path:        "/api/query",
		Summary:     "Compile and run a read-only data query",
		Tags:        []string{"data"},
	}, s.handleQuery)

	s.router.Handle("/metrics", metricsHandler(s.services.Metrics))
}

func (s *Server) handleChat(ctx context.Context, in *ChatInput) (*ChatOutput, error) {
	if strings.TrimSpace(in.Body.Message) == "" {
		return nil, huma.Error400BadRequest("message is required")
	}
	env := s.services.Chat.Route(ctx, router.Request{
		Message:   in.Body.Message,
		SessionID: in.Body.SessionID,
		Debug:     in.Body.Debug,
	})
	if err := env.Validate(); err != nil {
		s.logger.Error("malformed envelope", "request_id", middleware.GetReqID(ctx), "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	return &ChatOutput{Body: env}, nil
}

func (s *Server) handleQuery(ctx context.Context, in *QueryInput) (*QueryOutput, error) {
	if s.services.Query == nil {
		return nil, huma.Error503ServiceUnavailable("no data source configured")
	}
	if strings.TrimSpace(in.Body.Question) == "" {
		return nil, huma.Error400BadRequest("question is required")
	}
	return &QueryOutput{Body: s.services.Query.Run(ctx, in.Body.Question, "")}, nil
}
