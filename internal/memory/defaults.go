// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package memory

import (
	"encoding/json"
	"slices"
)

// Defaults are the session facts handed to the query compiler so it can
// fill in details the user already gave, such as their block.
type Defaults struct {
	Block               *string  `json:"session_block"`
	RollNo              *string  `json:"session_rollno"`
	Allergies           []string `json:"session_allergies"`
	ConversationHistory string   `json:"conversation_history,omitempty"`
}

// SessionDefaults collapses recalled facts (most relevant first) and the
// recent turns into Defaults. The first block and roll number win; allergies
// accumulate without duplicates.
func SessionDefaults(records []Record, turns []Turn) Defaults {
	d := Defaults{Allergies: []string{}}
	for _, r := range records {
		if r.Fact == nil || r.Fact.Value == "" {
			continue
		}
		v := r.Fact.Value
		switch r.Fact.Type {
		case FactBlock:
			if d.Block == nil {
				d.Block = &v
			}
		case FactRollNo:
			if d.RollNo == nil {
				d.RollNo = &v
			}
		case FactAllergy:
			if !slices.Contains(d.Allergies, v) {
				d.Allergies = append(d.Allergies, v)
			}
		}
	}
	d.ConversationHistory = FormatHistory(turns)
	return d
}

// JSON renders d for a prompt.
func (d Defaults) JSON() string {
	b, err := json.Marshal(d)
	if err != nil {
		return "{}"
	}
	return string(b)
}
