// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hosteldesk/deskbot/internal/provider"
	"github.com/hosteldesk/deskbot/internal/provider/openai"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider_MissingAPIKey(t *testing.T) {
	_, err := openai.New(openai.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.True(t, deskerr.HasCode(err, deskerr.CodeProviderRequestInvalid))
}

func TestOpenAIProvider_Basics(t *testing.T) {
	p, err := openai.New(openai.Config{APIKey: "test-key-not-real"})
	require.NoError(t, err)

	assert.Equal(t, "openai", p.Name())
	assert.True(t, p.Available(context.Background()))
	assert.NoError(t, p.Close())
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "  Block A has 12 rooms.  "}}],
			"usage": {"prompt_tokens": 11, "completion_tokens": 6, "total_tokens": 17}
		}`)
	}))
	defer srv.Close()

	p, err := openai.New(openai.Config{APIKey: "k", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	resp, err := p.Complete(context.Background(), provider.Request{
		Model:        "gpt-4o-mini",
		SystemPrompt: "be brief",
		Messages:     []provider.Message{{Role: provider.RoleUser, Content: "how many rooms?"}},
		Options:      provider.Options{MaxTokens: 64},
	})
	require.NoError(t, err)
	assert.Equal(t, "Block A has 12 rooms.", resp.Text)
	assert.Equal(t, 11, resp.Usage.InputTokens)
	assert.Equal(t, 6, resp.Usage.OutputTokens)

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	msgs, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestOpenAIProvider_CompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": {"message": "bad model", "type": "invalid_request_error"}}`)
	}))
	defer srv.Close()

	p, err := openai.New(openai.Config{APIKey: "k", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), provider.UserPrompt("nope", "hi", provider.Options{}))
	require.Error(t, err)
	assert.True(t, deskerr.IsUpstreamFailure(err))
}

func TestOpenAIProvider_RejectsUnknownRole(t *testing.T) {
	p, err := openai.New(openai.Config{APIKey: "k", BaseURL: "http://127.0.0.1:1/"})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), provider.Request{
		Model:    "gpt-4o-mini",
		Messages: []provider.Message{{Role: "tool", Content: "x"}},
	})
	require.Error(t, err)
	assert.True(t, deskerr.HasCode(err, deskerr.CodeProviderRequestInvalid))
}

func TestBuildParams(t *testing.T) {
	params, err := openai.BuildParams(provider.Request{
		Model:        "gpt-4o-mini",
		SystemPrompt: "be brief",
		Messages:     []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
		Options:      provider.Options{MaxTokens: 64, StopSequences: []string{"END"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", string(params.Model))
	require.Len(t, params.Messages, 2)
	assert.NotNil(t, params.Messages[0].OfSystem)
	assert.NotNil(t, params.Messages[1].OfUser)
	assert.Equal(t, int64(64), params.MaxCompletionTokens.Value)
	assert.Equal(t, []string{"END"}, params.Stop.OfStringArray)
}
