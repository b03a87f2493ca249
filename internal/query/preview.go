// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package query

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hosteldesk/deskbot/internal/datastore"
)

const (
	// DefaultPreviewRows is how many rows a data answer shows.
	DefaultPreviewRows = 8
	maxCellChars       = 60
)

// Preview renders the first maxRows rows as a pipe-separated table.
func Preview(rows *datastore.Rows, maxRows int) string {
	if rows.Len() == 0 {
		return "(no rows)"
	}
	if maxRows <= 0 {
		maxRows = DefaultPreviewRows
	}

	cols := rows.Columns
	if len(cols) == 0 {
		return "(no columns)"
	}
	divider := make([]string, len(cols))
	for i := range divider {
		divider[i] = "---"
	}

	lines := []string{strings.Join(cols, " | "), strings.Join(divider, " | ")}
	for i, rec := range rows.Data {
		if i >= maxRows {
			break
		}
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = cell(rec[c])
		}
		lines = append(lines, strings.Join(cells, " | "))
	}

	out := strings.Join(lines, "\n")
	if extra := rows.Len() - maxRows; extra > 0 {
		out += fmt.Sprintf("\n\n...and %d more rows.", extra)
	}
	return out
}

func cell(v any) string {
	if v == nil {
		return ""
	}
	s := strings.ReplaceAll(fmt.Sprint(v), "\n", " ")
	if utf8.RuneCountInString(s) > maxCellChars {
		r := []rune(s)
		s = string(r[:maxCellChars-3]) + "..."
	}
	return s
}

// Summary is the data answer text: a row count, the query in a fenced
// block and a preview table.
func Summary(query string, rows *datastore.Rows, previewRows int) string {
	parts := []string{fmt.Sprintf("I ran a data query and found %d row(s).", rows.Len())}
	if rows != nil && rows.Truncated {
		parts[0] += " The result was capped, so there may be more."
	}
	parts = append(parts,
		"SQL:",
		"```sql\n"+query+"\n```",
		"Preview of results:",
		Preview(rows, previewRows),
	)
	return strings.Join(parts, "\n\n")
}
