// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package embed

import (
	"context"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"google.golang.org/genai"
)

// Google implements Embedder using the Gemini embedContent API.
type Google struct {
	client *genai.Client
	model  string
	dim    int
}

var _ Embedder = (*Google)(nil)

// NewGoogle creates a Gemini embedder. dim is requested as the output
// dimensionality.
func NewGoogle(client *genai.Client, model string, dim int) *Google {
	return &Google{client: client, model: model, dim: dim}
}

func (g *Google) Dimension() int { return g.dim }

func (g *Google) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := checkInput(texts); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dim := int32(g.dim)
	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, deskerr.Wrap(err, deskerr.CodeEmbedUpstreamFailure, "google: embed content",
			deskerr.FieldProvider("google"))
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, deskerr.Errorf(deskerr.CodeEmbedResponseInvalid,
			"google: expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, deskerr.Errorf(deskerr.CodeEmbedResponseInvalid, "google: missing embedding for index %d", i)
		}
		out[i] = e.Values
	}
	return out, nil
}
