// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

// Package embed converts text into dense float32 vectors for the vector
// store. Implementations preserve input order: the i-th vector belongs to
// the i-th text.
package embed

import (
	"context"
	"math"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

// Embedder converts text into dense float32 vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// One embeds a single text.
func One(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, deskerr.Errorf(deskerr.CodeEmbedResponseInvalid, "embed: expected 1 vector, got %d", len(vecs))
	}
	return vecs[0], nil
}

// CosineSimilarity computes cosine similarity between two vectors. It
// returns 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func checkInput(texts []string) error {
	if len(texts) == 0 {
		return deskerr.New(deskerr.CodeEmbedRequestInvalid, "embed: empty input")
	}
	return nil
}

func float64sToFloat32s(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
