// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package provider_test

import (
	"testing"
	"time"

	"github.com/hosteldesk/deskbot/internal/provider"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T, cooldown time.Duration) *provider.HealthTracker {
	t.Helper()
	h, err := provider.NewHealthTracker(cooldown)
	require.NoError(t, err)
	return h
}

func TestNewHealthTracker_RejectsNonPositiveCooldown(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		_, err := provider.NewHealthTracker(d)
		require.Error(t, err)
		assert.True(t, deskerr.IsInvalidInput(err))
	}
}

func TestHealthTracker_FailureAndRecovery(t *testing.T) {
	h := newTracker(t, 30*time.Second)
	assert.True(t, h.IsHealthy())

	h.RecordFailure()
	assert.False(t, h.IsHealthy())

	h.RecordSuccess()
	assert.True(t, h.IsHealthy())
}

func TestHealthTracker_CooldownBoundary(t *testing.T) {
	cooldown := 10 * time.Second
	now := time.Now()

	tests := []struct {
		name        string
		elapsed     time.Duration
		wantHealthy bool
	}{
		{name: "before cooldown", elapsed: 9 * time.Second, wantHealthy: false},
		{name: "at exact cooldown boundary", elapsed: 10 * time.Second, wantHealthy: true},
		{name: "after cooldown", elapsed: 11 * time.Second, wantHealthy: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTracker(t, cooldown)
			h.SetNowFunc(func() time.Time { return now })
			h.RecordFailure()
			require.False(t, h.IsHealthy())

			h.SetNowFunc(func() time.Time { return now.Add(tt.elapsed) })
			assert.Equal(t, tt.wantHealthy, h.IsHealthy())
		})
	}
}

func TestHealthTracker_Metrics(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := newTracker(t, 10*time.Second)
	h.SetNowFunc(func() time.Time { return now })

	m := h.HealthMetrics()
	assert.Zero(t, m.FailureCount)
	assert.Nil(t, m.LastFailureAt)
	assert.Nil(t, m.CooldownUntil)
	assert.True(t, m.Available)

	h.RecordFailure()
	h.RecordFailure()
	m = h.HealthMetrics()
	assert.Equal(t, int64(2), m.FailureCount)
	require.NotNil(t, m.LastFailureAt)
	assert.Equal(t, now, *m.LastFailureAt)
	require.NotNil(t, m.CooldownUntil)
	assert.Equal(t, now.Add(10*time.Second), *m.CooldownUntil)
	assert.False(t, m.Available)
}

func TestNewDefaultHealthTracker(t *testing.T) {
	h := provider.NewDefaultHealthTracker()
	assert.True(t, h.IsHealthy())
}
