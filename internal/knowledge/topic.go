// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

// Package knowledge holds the hostel knowledge base: topic documents loaded
// once at startup, trigger-word topic matching, and the passage index used
// for semantic retrieval.
package knowledge

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"unicode"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

// TopicSpec declares a topic, the file holding its content and the words
// that select it.
type TopicSpec struct {
	Name     string
	File     string
	Triggers []string
}

// Topic is a loaded knowledge topic. Content is the decoded JSON or YAML
// document, nil when the file was absent.
type Topic struct {
	Name     string
	Origin   string
	Triggers []string
	Content  any
}

// DefaultTopics returns the built-in topic set, checked in this order.
func DefaultTopics() []TopicSpec {
	return []TopicSpec{
		{
			Name:     "hostel_types",
			File:     "hostel_types.json",
			Triggers: []string{"single", "double", "triple", "attached", "non ac", "ac", "attached bathroom", "common bathroom"},
		},
		{
			Name:     "fees",
			File:     "fees.json",
			Triggers: []string{"fee", "fees", "payment", "deposit", "mess fee", "security deposit"},
		},
		{
			Name:     "mess_info",
			File:     "mess_info.json",
			Triggers: []string{"mess", "food", "breakfast", "lunch", "dinner", "menu"},
		},
		{
			Name:     "faq",
			File:     "faq.json",
			Triggers: []string{"rule", "rules", "timing", "timings", "time", "contact", "warden", "visit", "visiting", "laundry", "gate"},
		},
	}
}

// Base is the immutable set of loaded topics.
type Base struct {
	topics []Topic
	words  [][][]string // per topic, per trigger: lower-cased words
}

// NewBase builds a Base from already loaded topics.
func NewBase(topics ...Topic) *Base {
	b := &Base{topics: topics, words: make([][][]string, len(topics))}
	for i, t := range topics {
		for _, trig := range t.Triggers {
			if w := words(trig); len(w) > 0 {
				b.words[i] = append(b.words[i], w)
			}
		}
	}
	return b
}

// Load reads every topic's file from dir. A missing file leaves the topic
// with nil Content; an unreadable or malformed file is an error. An empty
// specs slice loads DefaultTopics.
func Load(dir string, specs []TopicSpec) (*Base, error) {
	if len(specs) == 0 {
		specs = DefaultTopics()
	}

	topics := make([]Topic, 0, len(specs))
	for _, spec := range specs {
		file := spec.File
		if file == "" {
			file = spec.Name + ".json"
		}

		t := Topic{Name: spec.Name, Origin: filepath.Base(file), Triggers: spec.Triggers}
		doc, err := ReadDocument(filepath.Join(dir, file))
		switch {
		case err == nil:
			t.Content = doc.Content
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, deskerr.With(err, deskerr.Field("topic", spec.Name))
		}
		topics = append(topics, t)
	}
	return NewBase(topics...), nil
}

// Topics returns the topics in match order.
func (b *Base) Topics() []Topic {
	return append([]Topic(nil), b.topics...)
}

// Get returns the named topic.
func (b *Base) Get(name string) (Topic, bool) {
	for _, t := range b.topics {
		if t.Name == name {
			return t, true
		}
	}
	return Topic{}, false
}

// Match returns the first topic with a trigger occurring in question as
// whole words. "ac" matches "is the room ac?" but not "vacant".
func (b *Base) Match(question string) (Topic, bool) {
	q := words(question)
	if len(q) == 0 {
		return Topic{}, false
	}
	for i, t := range b.topics {
		for _, trig := range b.words[i] {
			if containsRun(q, trig) {
				return t, true
			}
		}
	}
	return Topic{}, false
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// containsRun reports whether needle occurs contiguously in hay.
func containsRun(hay, needle []string) bool {
outer:
	for i := 0; i+len(needle) <= len(hay); i++ {
		for j, w := range needle {
			if hay[i+j] != w {
				continue outer
			}
		}
		return true
	}
	return false
}
