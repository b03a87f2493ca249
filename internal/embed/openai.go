// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package embed

import (
	"context"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openAIMaxBatch = 2048

// OpenAI implements Embedder using the OpenAI embeddings API.
type OpenAI struct {
	client openai.Client
	model  string
	dim    int
}

var _ Embedder = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI embedder from the given request options.
func NewOpenAI(model string, dim int, opts ...option.RequestOption) *OpenAI {
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		dim:    dim,
	}
}

func (o *OpenAI) Dimension() int { return o.dim }

// Embed returns embeddings for texts, splitting batches above the API limit.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := checkInput(texts); err != nil {
		return nil, err
	}

	result := make([][]float32, len(texts))
	for i := 0; i < len(texts); i += openAIMaxBatch {
		end := min(i+openAIMaxBatch, len(texts))
		vecs, err := o.callAPI(ctx, texts[i:end])
		if err != nil {
			return nil, deskerr.Wrapf(err, deskerr.CodeEmbedUpstreamFailure, "embed batch [%d:%d]", i, end)
		}
		copy(result[i:], vecs)
	}
	return result, nil
}

func (o *OpenAI) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model:          o.model,
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Dimensions:     openai.Int(int64(o.dim)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}

	resp, err := o.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}

	vecs := make([][]float32, len(texts))
	for _, item := range resp.Data {
		idx := item.Index
		if idx < 0 || idx >= int64(len(texts)) {
			return nil, deskerr.Errorf(deskerr.CodeEmbedResponseInvalid,
				"unexpected embedding index %d for batch size %d", idx, len(texts))
		}
		vecs[idx] = float64sToFloat32s(item.Embedding)
	}
	for i, v := range vecs {
		if v == nil {
			return nil, deskerr.Errorf(deskerr.CodeEmbedResponseInvalid, "missing embedding for index %d", i)
		}
	}
	return vecs, nil
}
