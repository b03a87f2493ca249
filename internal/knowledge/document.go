// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package knowledge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

// Document is one decoded knowledge file. Origin is its base name and
// doubles as the retrieval source label.
type Document struct {
	Origin  string
	Content any
}

func isDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// ReadDocument decodes a JSON or YAML file. The returned error wraps
// fs.ErrNotExist when the file is missing.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, deskerr.Errorf(deskerr.CodeKnowledgeLoadFailure, "reading %s: %w", path, err)
	}

	var content any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &content)
	default:
		err = json.Unmarshal(data, &content)
	}
	if err != nil {
		return Document{}, deskerr.Errorf(deskerr.CodeKnowledgeParseInvalid, "parsing %s: %v", path, err)
	}

	return Document{Origin: filepath.Base(path), Content: content}, nil
}

// LoadDir decodes every JSON and YAML file in dir, sorted by name.
func LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, deskerr.Errorf(deskerr.CodeKnowledgeLoadFailure, "reading knowledge dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isDocument(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	docs := make([]Document, 0, len(names))
	for _, name := range names {
		doc, err := ReadDocument(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
