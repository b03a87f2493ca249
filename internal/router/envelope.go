// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package router

import (
	"github.com/hosteldesk/deskbot/internal/knowledge"
	"github.com/hosteldesk/deskbot/internal/memory"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

// Kind tags the payload an Envelope carries.
type Kind string

const (
	KindInformational Kind = "informational"
	KindDataQuery     Kind = "data-query"
)

// Stage names the routing step that produced an answer.
type Stage string

const (
	StageInput     Stage = "input"
	StageMemory    Stage = "memory"
	StageKnowledge Stage = "knowledge"
	StageData      Stage = "data"
	StageRetrieval Stage = "retrieval"
	StageFallback  Stage = "fallback"
	StageInternal  Stage = "internal"
)

// Answer sources reported on informational envelopes.
const (
	SourceMemory        = "memory"
	SourceKnowledgeBase = "knowledge_base"
	SourceDocuments     = "documents"
	SourceModel         = "model"
)

// Envelope is the single response shape for a routed message. Exactly one
// of Info and Data is set, matching Kind.
type Envelope struct {
	Kind   Kind           `json:"type"`
	Answer string         `json:"answer"`
	Raw    string         `json:"llm_raw"`
	Info   *Informational `json:"info,omitempty"`
	Data   *DataQuery     `json:"data,omitempty"`
	Debug  *Debug         `json:"debug,omitempty"`
}

// Informational is the payload of a text answer.
type Informational struct {
	Source        string      `json:"source,omitempty"`
	Topic         string      `json:"topic,omitempty"`
	Sources       []SourceRef `json:"sources,omitempty"`
	Cited         []int       `json:"cited,omitempty"`
	Clarification bool        `json:"clarification,omitempty"`
	Truncated     bool        `json:"truncated,omitempty"`
}

// SourceRef describes one numbered retrieval passage. Index matches the
// [n] markers in the answer.
type SourceRef struct {
	Index  int     `json:"idx"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// DataQuery is the payload of a data answer. Rows is nil whenever the
// query was rejected or failed.
type DataQuery struct {
	Query     string           `json:"sql,omitempty"`
	Safe      bool             `json:"safety_ok"`
	Error     string           `json:"error,omitempty"`
	Columns   []string         `json:"columns,omitempty"`
	Rows      []map[string]any `json:"data,omitempty"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated,omitempty"`
}

// Debug is attached when the request asks for it. It never affects routing.
type Debug struct {
	Stage         Stage           `json:"stage"`
	MemoryContext string          `json:"memory_context,omitempty"`
	MemoryUsed    []memory.Record `json:"memory_used,omitempty"`
	Prompt        string          `json:"prompt,omitempty"`
	Hits          []knowledge.Hit `json:"hits,omitempty"`
}

func newInformational(answer, raw string, info Informational) Envelope {
	return Envelope{Kind: KindInformational, Answer: answer, Raw: raw, Info: &info}
}

func newDataQuery(answer, raw string, data DataQuery) Envelope {
	return Envelope{Kind: KindDataQuery, Answer: answer, Raw: raw, Data: &data}
}

// Validate checks that the payload matches Kind.
func (e Envelope) Validate() error {
	switch e.Kind {
	case KindInformational:
		if e.Info == nil || e.Data != nil {
			return deskerr.New(deskerr.CodeRouterEnvelopeInvalid, "informational envelope needs exactly an info payload")
		}
	case KindDataQuery:
		if e.Data == nil || e.Info != nil {
			return deskerr.New(deskerr.CodeRouterEnvelopeInvalid, "data-query envelope needs exactly a data payload")
		}
		if !e.Data.Safe && e.Data.Rows != nil {
			return deskerr.New(deskerr.CodeRouterEnvelopeInvalid, "rejected query cannot carry rows")
		}
	default:
		return deskerr.Errorf(deskerr.CodeRouterEnvelopeInvalid, "unknown envelope kind %q", e.Kind)
	}
	return nil
}
