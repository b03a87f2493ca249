// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package knowledge_test

import (
	"strings"
	"testing"

	"github.com/hosteldesk/deskbot/internal/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	content := map[string]any{
		"hostel_types": []any{
			map[string]any{"name": "Single", "rent": float64(9000)},
			map[string]any{"name": "Double", "attached": true},
		},
		"contact": "warden@hostel.example",
	}

	assert.Equal(t, []string{
		"contact: warden@hostel.example",
		"hostel_types > 1. name: Single",
		"hostel_types > 1. rent: 9000",
		"hostel_types > 2. attached: true",
		"hostel_types > 2. name: Double",
	}, knowledge.Flatten(content))
}

func TestFlatten_ScalarsAndLists(t *testing.T) {
	assert.Equal(t, []string{"1. : a", "2. : b"}, knowledge.Flatten([]any{"a", "b"}))
	assert.Equal(t, []string{": 3.5"}, knowledge.Flatten(3.5))
	assert.Empty(t, knowledge.Flatten(nil))

	long := make([]any, 250)
	for i := range long {
		long[i] = "x"
	}
	assert.Len(t, knowledge.Flatten(long), 200)
}

func TestChunk(t *testing.T) {
	assert.Nil(t, knowledge.Chunk("   ", 10))
	assert.Equal(t, []string{"short"}, knowledge.Chunk(" short ", 10))

	got := knowledge.Chunk("aaaa\nbbbb\ncccc", 9)
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, got)

	got = knowledge.Chunk(strings.Repeat("z", 25), 10)
	assert.Equal(t, []string{strings.Repeat("z", 10), strings.Repeat("z", 10), strings.Repeat("z", 5)}, got)

	for _, c := range knowledge.Chunk(strings.Repeat("é", 20), 7) {
		assert.LessOrEqual(t, len(c), 7)
		assert.True(t, strings.HasPrefix(c, "é"))
	}
}

func TestPassages_DeterministicIDs(t *testing.T) {
	doc := knowledge.Document{Origin: "fees.json", Content: map[string]any{"mess_fee": float64(3000)}}

	first := knowledge.Passages(doc, 1200)
	second := knowledge.Passages(doc, 1200)
	require.Len(t, first, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, "fees.json", first[0].Source)
	assert.Equal(t, "mess_fee: 3000", first[0].Text)

	other := knowledge.Passages(knowledge.Document{Origin: "faq.json", Content: doc.Content}, 1200)
	assert.NotEqual(t, first[0].ID, other[0].ID)
}
