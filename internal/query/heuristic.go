// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package query

import (
	"regexp"
	"strings"
)

// Classifier decides whether a question needs live tabular data.
type Classifier interface {
	Classify(text string) bool
}

// DefaultKeywords are the data-question signal words.
var DefaultKeywords = []string{
	"show", "list", "count", "total", "per", "by", "how many", "available",
	"vacant", "occupied", "seats", "rooms", "bookings", "pending", "fees",
	"payment", "availability", "seat", "block", "vacancy", "students",
}

var (
	countPhrase = regexp.MustCompile(`(?i)\bhow many\b|\bcounts?\b`)
	domainNouns = regexp.MustCompile(`(?i)\b(block|seat|room|student|gender|fees|booking|date|month|year|vacant|available)\b`)
)

// Heuristic is the two-signal keyword Classifier: a counting phrase alone
// qualifies; otherwise a keyword hit and a domain-noun match are both
// required.
type Heuristic struct {
	keywords *regexp.Regexp
}

var _ Classifier = (*Heuristic)(nil)

// NewHeuristic builds a Heuristic over keywords, DefaultKeywords when empty.
// Keywords match on word boundaries.
func NewHeuristic(keywords ...string) *Heuristic {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	alts := make([]string, len(keywords))
	for i, k := range keywords {
		alts[i] = regexp.QuoteMeta(strings.ToLower(k))
	}
	return &Heuristic{keywords: regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)}
}

func (h *Heuristic) Classify(text string) bool {
	if countPhrase.MatchString(text) {
		return true
	}
	return h.keywords.MatchString(text) && domainNouns.MatchString(text)
}
