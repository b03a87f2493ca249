// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package memory_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hosteldesk/deskbot/internal/embed"
	"github.com/hosteldesk/deskbot/internal/memory"
	"github.com/hosteldesk/deskbot/internal/store"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newService(t *testing.T, vs store.VectorStore, opts ...memory.Option) *memory.Service {
	t.Helper()
	opts = append([]memory.Option{memory.WithClock(func() time.Time { return fixedNow })}, opts...)
	return memory.NewService(embed.NewHash(64), vs, "user_memory", opts...)
}

func TestService_RememberAndRecall(t *testing.T) {
	ctx := context.Background()
	vs := store.NewMemoryVectorStore(64)
	svc := newService(t, vs)

	id, err := svc.Remember(ctx, "s1", "user: my block is 12", map[string]any{"role": "user"})
	require.NoError(t, err)
	assert.Equal(t, memory.RecordID("s1", fixedNow, "user: my block is 12"), id)

	records := svc.Recall(ctx, "s1", "what is my block", 5)
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, id, r.ID)
	assert.Equal(t, "s1", r.SessionID)
	assert.Equal(t, "user: my block is 12", r.Text)
	assert.Equal(t, fixedNow.Unix(), r.CreatedAt.Unix())
	assert.Equal(t, "user", r.Metadata["role"])
	require.NotNil(t, r.Fact)
	assert.Equal(t, memory.Fact{Type: memory.FactBlock, Value: "12"}, *r.Fact)
}

func TestService_RememberIsIdempotent(t *testing.T) {
	ctx := context.Background()
	vs := store.NewMemoryVectorStore(64)
	svc := newService(t, vs)

	at := fixedNow.Add(-time.Hour)
	first, err := svc.RememberAt(ctx, "s1", "user: roll no 1045", nil, at)
	require.NoError(t, err)
	second, err := svc.RememberAt(ctx, "s1", "user: roll no 1045", nil, at)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, vs.Len("user_memory"))

	third, err := svc.RememberAt(ctx, "s1", "user: roll no 1045", nil, at.Add(time.Second))
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestService_RememberRejectsEmptyInput(t *testing.T) {
	svc := newService(t, store.NewMemoryVectorStore(64))

	for _, tc := range []struct{ session, text string }{{"", "text"}, {"s1", ""}, {"s1", "   "}} {
		_, err := svc.Remember(context.Background(), tc.session, tc.text, nil)
		require.Error(t, err)
		assert.True(t, deskerr.HasCode(err, deskerr.CodeMemoryWriteInvalidInput))
		assert.True(t, deskerr.IsInvalidInput(err))
	}
}

func TestService_AssistantRecordsCarryNoFact(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, store.NewMemoryVectorStore(64))

	_, err := svc.Remember(ctx, "s1", "assistant: ran data query: SELECT * FROM rooms WHERE block = 3",
		map[string]any{"role": "assistant", "stage": "data"})
	require.NoError(t, err)

	records := svc.Recall(ctx, "s1", "block", 5)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Fact)
}

func TestService_RecallIsolatesSessions(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, store.NewMemoryVectorStore(64))

	_, err := svc.Remember(ctx, "alice", "user: I am allergic to peanuts", nil)
	require.NoError(t, err)
	// Bob's record is the exact query text, so it is the closest vector.
	_, err = svc.Remember(ctx, "bob", "what is my block", nil)
	require.NoError(t, err)

	records := svc.Recall(ctx, "alice", "what is my block", 10)
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].SessionID)

	assert.Empty(t, svc.Recall(ctx, "carol", "what is my block", 10))
}

func TestService_RecallDropsForeignRecords(t *testing.T) {
	ctx := context.Background()
	inner := store.NewMemoryVectorStore(64)
	svc := newService(t, leakyStore{inner})

	_, err := svc.Remember(ctx, "alice", "user: my block is 4", nil)
	require.NoError(t, err)
	_, err = svc.Remember(ctx, "bob", "user: my block is 9", nil)
	require.NoError(t, err)

	records := svc.Recall(ctx, "alice", "my block", 10)
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].SessionID)
}

func TestService_RecallFailsOpen(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	svc := newService(t, brokenStore{}, memory.WithLogger(logger))

	assert.Empty(t, svc.Recall(context.Background(), "s1", "what is my block", 5))
	assert.Contains(t, buf.String(), "memory recall failed")
	assert.Contains(t, buf.String(), "session_id=s1")

	_, err := svc.Remember(context.Background(), "s1", "my block is 2", nil)
	require.Error(t, err)
	assert.True(t, deskerr.HasCode(err, deskerr.CodeMemoryWriteFailure))
}

func TestService_RecallRespectsTimeout(t *testing.T) {
	svc := newService(t, slowStore{}, memory.WithTimeout(10*time.Millisecond))

	start := time.Now()
	assert.Empty(t, svc.Recall(context.Background(), "s1", "block", 5))
	assert.Less(t, time.Since(start), time.Second)
}

func TestService_Turns(t *testing.T) {
	svc := newService(t, store.NewMemoryVectorStore(64))

	require.NoError(t, svc.AppendTurn("s1", memory.RoleUser, "hi"))
	require.NoError(t, svc.AppendTurn("s1", memory.RoleAssistant, "hello"))
	require.Error(t, svc.AppendTurn("", memory.RoleUser, "hi"))
	require.Error(t, svc.AppendTurn("s1", memory.RoleUser, ""))
	err := svc.AppendTurn("s1", memory.Role("system"), "x")
	require.Error(t, err)
	assert.True(t, deskerr.IsInvalidInput(err))

	turns := svc.RecentTurns("s1", 10)
	require.Len(t, turns, 2)
	assert.Equal(t, memory.RoleUser, turns[0].Role)
	assert.Equal(t, fixedNow, turns[0].At)
	assert.Empty(t, svc.RecentTurns("s2", 10))
	assert.Nil(t, svc.RecentTurns("", 10))
}

func TestService_ConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	svc := memory.NewService(embed.NewHash(64), store.NewMemoryVectorStore(64), "user_memory")

	var wg sync.WaitGroup
	for _, session := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				_ = svc.AppendTurn(session, memory.RoleUser, "question from "+session)
				_ = svc.Recall(ctx, session, "question", 3)
			}
		}()
	}
	wg.Wait()

	for _, session := range []string{"a", "b", "c", "d"} {
		assert.Len(t, svc.RecentTurns(session, 0), 20)
	}
}

func TestFormatContext(t *testing.T) {
	records := []memory.Record{
		{Text: "user: my block is 12", CreatedAt: time.Unix(100, 0)},
		{Text: "assistant: noted", CreatedAt: time.Unix(101, 0)},
	}
	assert.Equal(t,
		"User memory (most relevant):\n[M1] user: my block is 12 (ts:100)\n[M2] assistant: noted (ts:101)\n",
		memory.FormatContext(records))
	assert.Empty(t, memory.FormatContext(nil))
}

func TestRecordID(t *testing.T) {
	a := memory.RecordID("s1", fixedNow, "text")
	assert.Equal(t, a, memory.RecordID("s1", fixedNow.Add(500*time.Millisecond), "text"))
	assert.NotEqual(t, a, memory.RecordID("s2", fixedNow, "text"))
	assert.NotEqual(t, a, memory.RecordID("s1", fixedNow, "other"))
}

// leakyStore ignores filters, standing in for a misconfigured backend.
type leakyStore struct{ *store.MemoryVectorStore }

func (l leakyStore) Search(ctx context.Context, collection string, q []float32, k int, _ store.Filter) ([]store.VectorResult, error) {
	return l.MemoryVectorStore.Search(ctx, collection, q, k, nil)
}

type brokenStore struct{}

func (brokenStore) Upsert(context.Context, string, []store.Point) error {
	return errors.New("dial tcp: connection refused")
}

func (brokenStore) Search(context.Context, string, []float32, int, store.Filter) ([]store.VectorResult, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (brokenStore) Delete(context.Context, string, []string) error { return nil }
func (brokenStore) Close() error                                 { return nil }

type slowStore struct{ brokenStore }

func (slowStore) Search(ctx context.Context, _ string, _ []float32, _ int, _ store.Filter) ([]store.VectorResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
