// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxSeedBytes caps how much of the text feeds a record id.
const maxSeedBytes = 4000

var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("deskbot:memory"))

// Record is one immutable long-term memory entry.
type Record struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Text      string         `json:"text"`
	Fact      *Fact          `json:"fact,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Score     float64        `json:"score"`
}

// RecordID derives the id for (session, at, text). Timestamps have second
// resolution, so retries within the same second collapse onto one record.
func RecordID(session string, at time.Time, text string) string {
	seed := fmt.Sprintf("%s:%d:%s", session, at.Unix(), text)
	if len(seed) > maxSeedBytes {
		seed = seed[:maxSeedBytes]
	}
	return uuid.NewSHA1(recordNamespace, []byte(seed)).String()
}

// FormatContext renders recalled records for a prompt, most relevant
// first. It returns "" for no records.
func FormatContext(records []Record) string {
	if len(records) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("User memory (most relevant):\n")
	for i, r := range records {
		fmt.Fprintf(&sb, "[M%d] %s (ts:%d)\n", i+1, r.Text, r.CreatedAt.Unix())
	}
	return sb.String()
}

func payload(r Record) map[string]any {
	p := map[string]any{
		"session_id": r.SessionID,
		"text":       r.Text,
		"ts":         r.CreatedAt.Unix(),
	}
	if len(r.Metadata) > 0 {
		p["meta"] = r.Metadata
	}
	if r.Fact != nil {
		p["fact_type"] = string(r.Fact.Type)
		p["fact_value"] = r.Fact.Value
	}
	return p
}

func fromPayload(id string, score float64, p map[string]any) Record {
	r := Record{ID: id, Score: score}
	r.SessionID, _ = p["session_id"].(string)
	r.Text, _ = p["text"].(string)
	r.CreatedAt = time.Unix(toInt64(p["ts"]), 0).UTC()
	r.Metadata, _ = p["meta"].(map[string]any)

	ft, _ := p["fact_type"].(string)
	fv, _ := p["fact_value"].(string)
	if ft != "" && fv != "" {
		r.Fact = &Fact{Type: FactType(ft), Value: fv}
	}
	return r
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
