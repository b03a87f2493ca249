// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package query

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

const (
	// ManagementDeferral is the fixed reply for write requests.
	ManagementDeferral = "This requires the Management Agent."
	// MissingSchema stands in for an unreadable schema summary.
	MissingSchema = "Schema summary not available."
)

// LoadSchema reads the compact schema summary. On failure it returns
// MissingSchema together with the error.
func LoadSchema(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MissingSchema, deskerr.Errorf(deskerr.CodeQuerySchemaLoadFailure, "reading schema summary %s: %w", path, err)
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return MissingSchema, deskerr.Errorf(deskerr.CodeQuerySchemaLoadFailure, "schema summary %s is empty", path)
	}
	return s, nil
}

// Compiler builds the query-generation prompt. The schema summary is the
// only vocabulary the model is allowed to use.
type Compiler struct {
	schema  string
	dialect string
}

// NewCompiler creates a Compiler for the given SQL dialect name.
func NewCompiler(schema, dialect string) *Compiler {
	if dialect == "" {
		dialect = "SQLite"
	}
	return &Compiler{schema: schema, dialect: dialect}
}

// Schema returns the schema summary.
func (c *Compiler) Schema() string { return c.schema }

// Prompt renders the generation prompt. defaults is the session JSON blob,
// "{}" when empty.
func (c *Compiler) Prompt(question, defaults string) string {
	if strings.TrimSpace(defaults) == "" {
		defaults = "{}"
	}
	return fmt.Sprintf(`You are a BI assistant generating read-only SQL for %[1]s.

Here is a short JSON with known session context (may be empty):
%[2]s

Use this context to fill in reasonable defaults when the user omits details.
For example, if session_block is known and the user asks "show available seats"
without specifying the block, default to that block in the WHERE clause.

Database schema (%[1]s):
%[3]s

User question: %[4]s

Rules:
1. Return exactly one query wrapped in `+"```sql ... ```"+`.
2. No explanation, only SQL.
3. SELECT only. Use only the tables and columns listed in the schema.
4. If something is ambiguous and cannot be safely inferred even from the session context, ask ONE clear clarifying question instead of guessing.
5. If the user is asking to insert, update, delete or otherwise change data, respond exactly with: "%[5]s"
`, c.dialect, defaults, c.schema, question, ManagementDeferral)
}

var (
	fenced  = regexp.MustCompile("(?s)```(.*?)```")
	langTag = regexp.MustCompile(`^[A-Za-z0-9_+-]*$`)
)

// Extract returns the body of the first fenced code block in raw, without
// its language tag. No block, or an empty one, is a generation failure.
func Extract(raw string) (string, error) {
	m := fenced.FindStringSubmatch(raw)
	if m == nil {
		return "", deskerr.New(deskerr.CodeQueryGenerateFailure, "no fenced query in model output")
	}

	body := m[1]
	if first, rest, ok := strings.Cut(body, "\n"); ok && isLangTag(strings.TrimSpace(first)) {
		body = rest
	} else if lower := strings.ToLower(strings.TrimSpace(body)); strings.HasPrefix(lower, "sql ") {
		body = strings.TrimSpace(body)[4:]
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return "", deskerr.New(deskerr.CodeQueryGenerateFailure, "empty fenced block in model output")
	}
	return body, nil
}

func isLangTag(s string) bool {
	switch strings.ToLower(s) {
	case "select", "with":
		return false
	}
	return langTag.MatchString(s)
}
