// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package memory

import (
	"regexp"
	"strings"
)

// FactType names a kind of personal fact remembered per session.
type FactType string

const (
	FactBlock   FactType = "block"
	FactRollNo  FactType = "rollno"
	FactAllergy FactType = "allergy"
)

// Fact is a structured (type, value) pair pulled out of free text.
type Fact struct {
	Type  FactType `json:"type"`
	Value string   `json:"value"`
}

var (
	blockValue   = regexp.MustCompile(`(?i)\bblocks?\s*(?:no\.?|id|number|#)?\s*(?:is|:|=)?\s*([0-9]{1,4})\b`)
	rollValue    = regexp.MustCompile(`(?i)\broll\s*(?:no\.?|number|num|#)?\s*(?:is|:|#|=)?\s*([a-z0-9\-]*[0-9][a-z0-9\-]*)`)
	allergyValue = regexp.MustCompile(`(?i)\ballerg(?:y|ies|ic)\b\s*(?:to|:|is|are|-)?\s*([a-z][a-z0-9 ,&\-]*)`)
)

// allergyFiller are captures that are part of a question, not a value.
var allergyFiller = map[string]bool{
	"to": true, "what": true, "which": true, "is": true, "are": true,
	"any": true, "anything": true, "info": true, "information": true,
}

// ExtractFact scans text for a block number, roll number or allergy, in
// that priority order.
func ExtractFact(text string) (Fact, bool) {
	if m := blockValue.FindStringSubmatch(text); m != nil {
		return Fact{Type: FactBlock, Value: m[1]}, true
	}
	if m := rollValue.FindStringSubmatch(text); m != nil {
		return Fact{Type: FactRollNo, Value: strings.ToUpper(m[1])}, true
	}
	if m := allergyValue.FindStringSubmatch(text); m != nil {
		v := strings.Trim(strings.TrimSpace(m[1]), ",&- ")
		if v != "" && !allergyFiller[strings.ToLower(strings.Fields(v)[0])] {
			return Fact{Type: FactAllergy, Value: strings.ToLower(v)}, true
		}
	}
	return Fact{}, false
}

// FactVerdict is a detector's reading of a question.
type FactVerdict struct {
	// Type is the fact the text is about, empty when none.
	Type FactType
	// Statement is set when the text supplies a value of Type itself.
	Statement bool
}

// Asks reports whether the text asks for a remembered fact.
func (v FactVerdict) Asks() bool { return v.Type != "" && !v.Statement }

// FactDetector decides which remembered fact, if any, a question asks for.
type FactDetector interface {
	Classify(text string) FactVerdict
}

var factQuestions = []struct {
	typ FactType
	re  *regexp.Regexp
}{
	{FactBlock, regexp.MustCompile(`(?i)\b(?:blocks?|block id|block number)\b`)},
	{FactRollNo, regexp.MustCompile(`(?i)\b(?:roll|rollno|roll no|roll number)\b`)},
	{FactAllergy, regexp.MustCompile(`(?i)\ballerg(?:y|ies|ic)\b`)},
}

// PatternDetector is the keyword FactDetector.
type PatternDetector struct{}

var _ FactDetector = PatternDetector{}

func (PatternDetector) Classify(text string) FactVerdict {
	for _, q := range factQuestions {
		if !q.re.MatchString(text) {
			continue
		}
		v := FactVerdict{Type: q.typ}
		if f, ok := ExtractFact(text); ok && f.Type == q.typ {
			v.Statement = true
		}
		return v
	}
	return FactVerdict{}
}
