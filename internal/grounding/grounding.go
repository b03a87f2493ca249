// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

// Package grounding composes answers constrained to supplied context: a
// knowledge topic's JSON, or a numbered list of retrieved passages.
package grounding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hosteldesk/deskbot/internal/knowledge"
	"github.com/hosteldesk/deskbot/internal/provider"
)

const (
	// Disclaimer is the fixed answer when the context lacks the information.
	Disclaimer = "I couldn't find that exact information in the knowledge base."
	// KBMarker ends every knowledge-topic answer.
	KBMarker = "Source: KB"
	// TruncatedMarker is appended to context that was cut to fit the limit.
	TruncatedMarker = "...TRUNCATED..."

	DefaultMaxContextChars = 5000
)

// Result is one grounded answer.
type Result struct {
	Answer    string `json:"answer"`
	Raw       string `json:"raw"`
	Prompt    string `json:"prompt,omitempty"`
	Cited     []int  `json:"cited,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Pipeline produces grounded answers with a Generator.
type Pipeline struct {
	gen             provider.Generator
	maxContextChars int
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxContextChars caps the topic JSON handed to the model.
func WithMaxContextChars(n int) Option { return func(p *Pipeline) { p.maxContextChars = n } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// New creates a Pipeline.
func New(gen provider.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{gen: gen, maxContextChars: DefaultMaxContextChars, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxContextChars <= 0 {
		p.maxContextChars = DefaultMaxContextChars
	}
	return p
}

// Summarize answers question from one knowledge topic. The answer always
// ends with a "Source: KB" line. A topic without content gets the
// disclaimer and no generation call.
func (p *Pipeline) Summarize(ctx context.Context, question string, topic knowledge.Topic) Result {
	if topic.Content == nil {
		return Result{Answer: Disclaimer + "\n\n" + KBMarker}
	}

	data, err := json.Marshal(topic.Content)
	if err != nil {
		return Result{Answer: Disclaimer + "\n\n" + KBMarker}
	}
	doc, truncated := Truncate(string(data), p.maxContextChars)

	prompt := "Use ONLY the JSON below. Answer briefly, in 1-3 short paragraphs. " +
		"If the answer is not in the JSON, say: \"" + Disclaimer + "\"\n\n" +
		doc + "\n\nQuestion: " + question

	raw := p.generate(ctx, prompt)
	return Result{
		Answer:    withKBMarker(raw),
		Raw:       raw,
		Prompt:    prompt,
		Truncated: truncated,
	}
}

// Answer composes an answer from retrieved hits. The final line is
// "Sources: [i],[j]" naming the 1-based hit indices the model cited, or
// "Sources: none".
func (p *Pipeline) Answer(ctx context.Context, question string, hits []knowledge.Hit, memoryContext string) Result {
	if len(hits) == 0 {
		return Result{Answer: Disclaimer}
	}

	if strings.TrimSpace(memoryContext) == "" {
		memoryContext = "(none)"
	}
	prompt := fmt.Sprintf(`You are a factual and careful hostel information assistant. Use ONLY the context below. Do not invent facts or use outside knowledge.
If the user's question asks for numbers or fees, return the exact values from the context. If the answer is not present, say: "%s"

Memory context (if present):
%s

CONTEXT (top relevant passages):
%s

User question: %s

Answer in 1-3 short paragraphs. At the end include a line 'Sources: [1],[2]' referencing passage indices used.`,
		Disclaimer, strings.TrimSpace(memoryContext), RenderContext(hits), question)

	raw := p.generate(ctx, prompt)
	body, cited := splitCitations(raw, len(hits))
	return Result{
		Answer: body + "\n\n" + FormatSources(cited),
		Raw:    raw,
		Prompt: prompt,
		Cited:  cited,
	}
}

func (p *Pipeline) generate(ctx context.Context, prompt string) string {
	text, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		p.logger.Warn("grounded generation failed", "error", err)
		return "LLM error: " + err.Error()
	}
	return strings.TrimSpace(text)
}

// RenderContext numbers hits from 1 as "[i] Source: <source>" blocks.
func RenderContext(hits []knowledge.Hit) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("[%d] Source: %s\n%s", i+1, h.Source, h.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Truncate cuts s to at most limit bytes on a rune boundary, appending
// TruncatedMarker when anything was dropped.
func Truncate(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + TruncatedMarker, true
}

// FormatSources renders the provenance line.
func FormatSources(cited []int) string {
	if len(cited) == 0 {
		return "Sources: none"
	}
	refs := make([]string, len(cited))
	for i, n := range cited {
		refs[i] = "[" + strconv.Itoa(n) + "]"
	}
	return "Sources: " + strings.Join(refs, ",")
}

var (
	sourcesLine = regexp.MustCompile(`(?i)^\s*\**\s*sources?\s*\**\s*:`)
	kbLine      = regexp.MustCompile(`(?i)^\s*source\s*:\s*(kb|knowledge base)\s*\.?\s*$`)
	citation    = regexp.MustCompile(`\[(\d+)\]`)
)

// splitCitations removes any sources lines from raw and returns the body
// with the valid cited indices (deduplicated, ascending). Without a sources
// line, inline [n] markers in the body count as citations.
func splitCitations(raw string, n int) (string, []int) {
	var body, refs []string
	for _, line := range strings.Split(raw, "\n") {
		if sourcesLine.MatchString(line) {
			refs = append(refs, line)
			continue
		}
		body = append(body, line)
	}
	text := strings.TrimSpace(strings.Join(body, "\n"))
	if len(refs) == 0 {
		refs = []string{text}
	}

	seen := make(map[int]bool)
	var cited []int
	for _, line := range refs {
		for _, m := range citation.FindAllStringSubmatch(line, -1) {
			i, err := strconv.Atoi(m[1])
			if err != nil || i < 1 || i > n || seen[i] {
				continue
			}
			seen[i] = true
			cited = append(cited, i)
		}
	}
	sort.Ints(cited)

	if text == "" {
		text = Disclaimer
	}
	return text, cited
}

func withKBMarker(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !kbLine.MatchString(line) {
			kept = append(kept, line)
		}
	}
	text := strings.TrimSpace(strings.Join(kept, "\n"))
	if text == "" {
		text = Disclaimer
	}
	return text + "\n\n" + KBMarker
}
