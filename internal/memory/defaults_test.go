// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package memory_test

import (
	"testing"

	"github.com/hosteldesk/deskbot/internal/memory"
	"github.com/stretchr/testify/assert"
)

func TestSessionDefaults(t *testing.T) {
	records := []memory.Record{
		{Text: "user: my block is 12", Fact: &memory.Fact{Type: memory.FactBlock, Value: "12"}},
		{Text: "user: actually block 4", Fact: &memory.Fact{Type: memory.FactBlock, Value: "4"}},
		{Text: "user: allergic to peanuts", Fact: &memory.Fact{Type: memory.FactAllergy, Value: "peanuts"}},
		{Text: "user: allergy: peanuts", Fact: &memory.Fact{Type: memory.FactAllergy, Value: "peanuts"}},
		{Text: "user: allergy: dust", Fact: &memory.Fact{Type: memory.FactAllergy, Value: "dust"}},
		{Text: "assistant: noted"},
	}
	turns := []memory.Turn{{Role: memory.RoleUser, Content: "my block is 12"}}

	d := memory.SessionDefaults(records, turns)
	if assert.NotNil(t, d.Block) {
		assert.Equal(t, "12", *d.Block)
	}
	assert.Nil(t, d.RollNo)
	assert.Equal(t, []string{"peanuts", "dust"}, d.Allergies)
	assert.JSONEq(t,
		`{"session_block":"12","session_rollno":null,"session_allergies":["peanuts","dust"],"conversation_history":"User: my block is 12"}`,
		d.JSON())
}

func TestSessionDefaults_Empty(t *testing.T) {
	assert.JSONEq(t,
		`{"session_block":null,"session_rollno":null,"session_allergies":[]}`,
		memory.SessionDefaults(nil, nil).JSON())
}
