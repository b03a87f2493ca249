// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package knowledge

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxListItems bounds how many elements of one list are flattened.
const maxListItems = 200

var passageNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("deskbot:knowledge"))

// Passage is one retrievable unit of knowledge text.
type Passage struct {
	ID     string
	Source string
	Text   string
}

// Flatten renders a decoded document as "key > sub: value" lines. List
// elements are numbered "1. ", "2. " and so on. Map keys are sorted.
func Flatten(content any) []string {
	var out []string
	flatten(content, "", &out)
	return out
}

func flatten(v any, prefix string, out *[]string) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			key := prefix + k
			switch child := t[k].(type) {
			case map[string]any, []any:
				flatten(child, key+" > ", out)
			default:
				*out = append(*out, key+": "+scalar(child))
			}
		}
	case []any:
		for i, item := range t {
			if i >= maxListItems {
				break
			}
			flatten(item, prefix+strconv.Itoa(i+1)+". ", out)
		}
	case nil:
	default:
		*out = append(*out, prefix+": "+scalar(t))
	}
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Chunk splits text on line boundaries into pieces of at most maxChars
// bytes, hard-splitting any line that is longer on its own.
func Chunk(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}

	var parts []string
	var cur strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if cur.Len() > 0 && cur.Len()+len(line)+1 > maxChars {
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		parts = append(parts, strings.TrimSpace(cur.String()))
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		for len(p) > maxChars {
			cut := maxChars
			for cut > 1 && !utf8.RuneStart(p[cut]) {
				cut--
			}
			out = append(out, p[:cut])
			p = p[cut:]
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Passages flattens and chunks a document. Passage ids are derived from
// source, position and text, so re-ingesting unchanged content overwrites
// the same points.
func Passages(doc Document, chunkChars int) []Passage {
	var out []Passage
	for _, line := range Flatten(doc.Content) {
		for _, chunk := range Chunk(line, chunkChars) {
			seed := fmt.Sprintf("%s:%d:%s", doc.Origin, len(out), chunk)
			out = append(out, Passage{
				ID:     uuid.NewSHA1(passageNamespace, []byte(seed)).String(),
				Source: doc.Origin,
				Text:   chunk,
			})
		}
	}
	return out
}
