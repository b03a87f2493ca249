// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package store

import (
	"context"
	"regexp"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

// VectorStore holds named collections of embeddings with a JSON payload
// per point, and answers k-nearest-neighbour queries by cosine distance.
type VectorStore interface {
	// Upsert inserts or replaces the point id in collection, creating the
	// collection on first use.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Search returns up to k points nearest to query, closest first. Every
	// filter entry must match the payload value exactly. Searching a
	// collection that does not exist yields no results.
	Search(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]VectorResult, error)
	Delete(ctx context.Context, collection string, ids []string) error
	Close() error
}

// Point is one vector with its payload.
type Point struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// Filter restricts a search to points whose payload string values equal the
// given values.
type Filter map[string]string

// VectorResult represents a single result from a vector similarity search.
type VectorResult struct {
	ID       string
	Distance float64 // cosine distance in [0, 2]; 0 = same direction
	Metadata map[string]any
}

// Similarity converts the cosine distance into a relevance score in [-1, 1].
func (r VectorResult) Similarity() float64 {
	return 1 - r.Distance
}

var (
	collectionPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)
	filterKeyPattern  = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)
)

// ValidateCollection rejects names that are not safe to use as identifiers.
func ValidateCollection(name string) error {
	if !collectionPattern.MatchString(name) {
		return deskerr.New(deskerr.CodeStoreInvalidInput,
			"collection name must match "+collectionPattern.String(),
			deskerr.FieldCollection(name))
	}
	return nil
}

// ValidateFilter rejects filter keys that cannot be used as payload paths.
func ValidateFilter(filter Filter) error {
	for key := range filter {
		if !filterKeyPattern.MatchString(key) {
			return deskerr.Errorf(deskerr.CodeStoreInvalidInput, "invalid filter key %q", key)
		}
	}
	return nil
}

// ValidatePoints checks ids and dimensions before a write. dims <= 0 skips
// the dimension check.
func ValidatePoints(points []Point, dims int) error {
	for i, p := range points {
		if p.ID == "" {
			return deskerr.Errorf(deskerr.CodeStoreInvalidInput, "point %d has an empty id", i)
		}
		if len(p.Vector) == 0 {
			return deskerr.Errorf(deskerr.CodeStoreInvalidInput, "point %s has an empty vector", p.ID)
		}
		if dims > 0 && len(p.Vector) != dims {
			return deskerr.Errorf(deskerr.CodeStoreInvalidInput,
				"point %s has %d dimensions, store expects %d", p.ID, len(p.Vector), dims)
		}
	}
	return nil
}

// Matches reports whether metadata satisfies every filter entry.
func (f Filter) Matches(metadata map[string]any) bool {
	for key, want := range f {
		got, ok := metadata[key].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}
