// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package store

import (
	"context"
	"maps"
	"math"
	"sort"
	"sync"
)

func init() {
	RegisterBackend("memory", func(cfg Config) (VectorStore, error) {
		return NewMemoryVectorStore(cfg.Dimensions), nil
	})
}

// MemoryVectorStore is an in-process VectorStore using brute-force cosine
// distance. It is safe for concurrent use and suited to tests and small
// deployments.
type MemoryVectorStore struct {
	mu          sync.RWMutex
	dims        int
	collections map[string]map[string]Point
}

var _ VectorStore = (*MemoryVectorStore)(nil)

// NewMemoryVectorStore creates an empty store. dims <= 0 accepts any size.
func NewMemoryVectorStore(dims int) *MemoryVectorStore {
	return &MemoryVectorStore{
		dims:        dims,
		collections: make(map[string]map[string]Point),
	}
}

func (m *MemoryVectorStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if err := ValidateCollection(collection); err != nil {
		return err
	}
	if err := ValidatePoints(points, m.dims); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.collections[collection]
	if !ok {
		coll = make(map[string]Point)
		m.collections[collection] = coll
	}
	for _, p := range points {
		coll[p.ID] = Point{
			ID:       p.ID,
			Vector:   append([]float32(nil), p.Vector...),
			Metadata: maps.Clone(p.Metadata),
		}
	}
	return nil
}

func (m *MemoryVectorStore) Search(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]VectorResult, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	if err := ValidateFilter(filter); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	coll := m.collections[collection]
	if len(coll) == 0 || k <= 0 {
		return nil, nil
	}

	results := make([]VectorResult, 0, len(coll))
	for _, p := range coll {
		if !filter.Matches(p.Metadata) {
			continue
		}
		results = append(results, VectorResult{
			ID:       p.ID,
			Distance: CosineDistance(query, p.Vector),
			Metadata: maps.Clone(p.Metadata),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance == results[j].Distance {
			return results[i].ID < results[j].ID
		}
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *MemoryVectorStore) Delete(_ context.Context, collection string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll := m.collections[collection]
	for _, id := range ids {
		delete(coll, id)
	}
	return nil
}

// Len returns the number of points in collection.
func (m *MemoryVectorStore) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

func (m *MemoryVectorStore) Close() error { return nil }

// CosineDistance computes the cosine distance between two vectors, in
// [0, 2]. Mismatched dimensions and zero vectors are maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 2
	}

	var dot, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}
	if normA == 0 || normB == 0 {
		return 2
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	similarity = math.Max(-1, math.Min(1, similarity))
	return 1 - similarity
}
