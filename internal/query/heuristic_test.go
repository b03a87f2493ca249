// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package query_test

import (
	"testing"

	"github.com/hosteldesk/deskbot/internal/query"
	"github.com/stretchr/testify/assert"
)

func TestHeuristic_Classify(t *testing.T) {
	h := query.NewHeuristic()

	tests := []struct {
		text string
		want bool
	}{
		{text: "How many vacant seats in block 3?", want: true},
		{text: "count the bookings", want: true},
		{text: "Show available rooms in block 2", want: true},
		{text: "list students by gender", want: true},
		{text: "Are there vacant seats?", want: true},
		{text: "What are the visiting hours?", want: false},
		{text: "Tell me about the hostel", want: false},
		{text: "show me the menu", want: false},
		{text: "My account balance", want: false},
		{text: "Where is the students' block?", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Classify(tt.text))
		})
	}
}

func TestHeuristic_CustomKeywords(t *testing.T) {
	h := query.NewHeuristic("occupancy")

	assert.True(t, h.Classify("occupancy per room"))
	assert.False(t, h.Classify("show rooms"))
}
