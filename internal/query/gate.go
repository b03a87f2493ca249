// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package query

import (
	"regexp"
	"strings"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

// UnsafeMessage is the user-facing error for a rejected query.
const UnsafeMessage = "Unsafe SQL (write/DDL detected)"

// DeniedTokens are rejected wherever they appear as whole words.
var DeniedTokens = []string{
	"insert", "update", "delete", "drop", "alter", "truncate", "create",
	"merge", "grant", "revoke", "attach", "detach", "pragma", "vacuum",
	"exec", "execute", "replace into",
}

// deniedPatterns are rejected anywhere in the text.
var deniedPatterns = []string{";--", "; --", ";/*"}

// Verdict is the gate's decision on one query.
type Verdict struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
}

// Gate is a lexical denylist over lower-cased query text. It is not a
// parser: anything that looks like a write, DDL, a comment after a
// terminator or a second statement is refused.
type Gate struct {
	tokens *regexp.Regexp
}

// NewGate builds a Gate over DeniedTokens.
func NewGate() *Gate {
	alts := make([]string, len(DeniedTokens))
	for i, t := range DeniedTokens {
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(t), " ", `\s+`)
	}
	return &Gate{tokens: regexp.MustCompile(`\b(` + strings.Join(alts, "|") + `)\b`)}
}

// Check classifies query.
func (g *Gate) Check(query string) Verdict {
	q := strings.ToLower(query)
	if strings.TrimSpace(q) == "" {
		return Verdict{Reason: "empty query"}
	}
	if m := g.tokens.FindString(q); m != "" {
		return Verdict{Reason: "denied token " + strings.Join(strings.Fields(m), " ")}
	}
	for _, p := range deniedPatterns {
		if strings.Contains(q, p) {
			return Verdict{Reason: "denied pattern " + p}
		}
	}
	if i := strings.Index(q, ";"); i >= 0 && strings.TrimSpace(strings.Trim(q[i:], "; \t\r\n")) != "" {
		return Verdict{Reason: "multiple statements"}
	}
	return Verdict{Safe: true}
}

// Err returns the safety error for an unsafe verdict, nil otherwise.
func (v Verdict) Err() error {
	if v.Safe {
		return nil
	}
	return deskerr.New(deskerr.CodeQuerySafetyViolation, UnsafeMessage, deskerr.Field("reason", v.Reason))
}
