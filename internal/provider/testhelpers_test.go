// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package provider_test

import (
	"context"
	"sync"

	"github.com/hosteldesk/deskbot/internal/provider"
)

// mockProvider is a scriptable provider.Provider with health tracking.
type mockProvider struct {
	name   string
	health *provider.HealthTracker

	mu       sync.Mutex
	calls    []provider.Request
	complete func(context.Context, provider.Request) (*provider.Response, error)
	closeErr error
}

func newMockProvider(name, reply string) *mockProvider {
	return &mockProvider{
		name:   name,
		health: provider.NewDefaultHealthTracker(),
		complete: func(_ context.Context, req provider.Request) (*provider.Response, error) {
			return &provider.Response{Text: reply, Model: req.Model}, nil
		},
	}
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Available(context.Context) bool { return m.health.IsHealthy() }

func (m *mockProvider) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	fn := m.complete
	m.mu.Unlock()
	return fn(ctx, req)
}

func (m *mockProvider) Calls() []provider.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]provider.Request(nil), m.calls...)
}

func (m *mockProvider) Close() error { return m.closeErr }

func (m *mockProvider) RecordFailure() { m.health.RecordFailure() }
func (m *mockProvider) RecordSuccess() { m.health.RecordSuccess() }

func (m *mockProvider) HealthMetrics() provider.HealthMetrics { return m.health.HealthMetrics() }
