// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hosteldesk/deskbot/internal/datastore"
	"github.com/hosteldesk/deskbot/internal/provider"
	"github.com/hosteldesk/deskbot/internal/query"
	"github.com/hosteldesk/deskbot/internal/router"
	"github.com/hosteldesk/deskbot/internal/server"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoChat answers every message with a fixed informational envelope.
type echoChat struct {
	mu       sync.Mutex
	requests []router.Request
}

func (e *echoChat) Route(_ context.Context, req router.Request) router.Envelope {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()
	return router.Envelope{
		Kind:   router.KindInformational,
		Answer: "echo: " + req.Message,
		Info:   &router.Informational{Source: router.SourceModel},
	}
}

func (e *echoChat) Requests() []router.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]router.Request(nil), e.requests...)
}

type brokenChat struct{}

func (brokenChat) Route(context.Context, router.Request) router.Envelope {
	return router.Envelope{Kind: router.KindDataQuery}
}

type fixedQuery struct{ res *query.Result }

func (f fixedQuery) Run(context.Context, string, string) *query.Result { return f.res }

func newTestServer(t *testing.T, svc server.Services) *server.Server {
	t.Helper()
	if svc.Chat == nil {
		svc.Chat = &echoChat{}
	}
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, svc)
	require.NoError(t, err)
	return srv
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_New(t *testing.T) {
	_, err := server.New(server.Config{}, server.Services{Chat: &echoChat{}})
	require.Error(t, err)
	assert.True(t, deskerr.HasCode(err, deskerr.CodeServerConfigInvalid))
	assert.Contains(t, err.Error(), "listen address is required")

	_, err = server.New(server.Config{ListenAddr: "127.0.0.1:0"}, server.Services{})
	require.Error(t, err)
	assert.True(t, deskerr.HasCode(err, deskerr.CodeServerConfigInvalid))

	_, err = server.New(server.Config{
		ListenAddr: "127.0.0.1:0",
		RateLimit:  server.RateLimitConfig{RequestsPerSecond: 1},
	}, server.Services{Chat: &echoChat{}})
	require.Error(t, err)
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv := newTestServer(t, server.Services{})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

type fixedHealth map[string]provider.HealthMetrics

func (f fixedHealth) Health() map[string]provider.HealthMetrics { return f }

func TestServer_HealthReportsProviders(t *testing.T) {
	srv := newTestServer(t, server.Services{Health: fixedHealth{
		"openai":    {Available: true},
		"anthropic": {Available: false, FailureCount: 3},
	}})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body server.HealthBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, int64(3), body.Providers["anthropic"].FailureCount)
	assert.True(t, body.Providers["openai"].Available)
}

func TestServer_OpenAPISpec(t *testing.T) {
	srv := newTestServer(t, server.Services{})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "/api/chat")
	assert.Contains(t, body, "/api/query")
	assert.Contains(t, body, "Hostel Desk")
}

func TestServer_Chat(t *testing.T) {
	chat := &echoChat{}
	srv := newTestServer(t, server.Services{Chat: chat})

	w := post(t, srv.Handler(), "/api/chat", `{"message":"What are the mess fees?","session_id":"s1","debug":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "informational", env["type"])
	assert.Equal(t, "echo: What are the mess fees?", env["answer"])

	reqs := chat.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, router.Request{Message: "What are the mess fees?", SessionID: "s1", Debug: true}, reqs[0])
}

func TestServer_ChatRejectsEmptyMessage(t *testing.T) {
	chat := &echoChat{}
	srv := newTestServer(t, server.Services{Chat: chat})

	for _, body := range []string{`{"message":""}`, `{"message":"   "}`, `{}`} {
		w := post(t, srv.Handler(), "/api/chat", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, chat.Requests())
}

func TestServer_ChatRefusesMalformedEnvelope(t *testing.T) {
	srv := newTestServer(t, server.Services{Chat: brokenChat{}})

	w := post(t, srv.Handler(), "/api/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServer_Query(t *testing.T) {
	res := &query.Result{
		Prompt:  "prompt",
		Raw:     "```sql\nSELECT 1\n```",
		Query:   "SELECT 1",
		Verdict: &query.Verdict{Safe: true},
		Rows:    &datastore.Rows{Columns: []string{"n"}, Data: []map[string]any{{"n": 1}}},
	}
	srv := newTestServer(t, server.Services{Query: fixedQuery{res: res}})

	w := post(t, srv.Handler(), "/api/query", `{"question":"count rooms"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "SELECT 1", got["query"])
	assert.Equal(t, true, got["verdict"].(map[string]any)["safe"])
	assert.NotContains(t, got, "Err")

	w = post(t, srv.Handler(), "/api/query", `{"question":" "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_QueryWithoutDataSource(t *testing.T) {
	srv := newTestServer(t, server.Services{})

	w := post(t, srv.Handler(), "/api/query", `{"question":"count rooms"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "deskbot_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()
	srv := newTestServer(t, server.Services{Metrics: reg})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "deskbot_test_total 1")
}

func TestServer_RateLimitsAPIOnly(t *testing.T) {
	srv, err := server.New(server.Config{
		ListenAddr: "127.0.0.1:0",
		RateLimit:  server.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1},
	}, server.Services{Chat: &echoChat{}})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, post(t, srv.Handler(), "/api/chat", `{"message":"hi"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, post(t, srv.Handler(), "/api/chat", `{"message":"hi"}`).Code)

	for range 3 {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestServer_CORSHeaders(t *testing.T) {
	srv, err := server.New(server.Config{
		ListenAddr:  "127.0.0.1:0",
		CORSOrigins: []string{"https://desk.example.com"},
	}, server.Services{Chat: &echoChat{}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://desk.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "https://desk.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_GracefulShutdown(t *testing.T) {
	srv := newTestServer(t, server.Services{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down within timeout")
	}
}
