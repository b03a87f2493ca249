// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package knowledge

import (
	"context"
	"log/slog"
	"time"

	"github.com/hosteldesk/deskbot/internal/embed"
	"github.com/hosteldesk/deskbot/internal/store"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

const (
	// DefaultBatchSize is how many passages are embedded and upserted per call.
	DefaultBatchSize = 128
	// DefaultChunkChars is the passage size limit when none is configured.
	DefaultChunkChars = 1200
)

// Index stores knowledge passages in a vector collection and searches them.
type Index struct {
	embedder     embed.Embedder
	vectors      store.VectorStore
	collection   string
	chunkChars   int
	batchSize    int
	topK         int
	minRelevance float64
	timeout      time.Duration
	logger       *slog.Logger
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithChunkChars sets the passage size limit.
func WithChunkChars(n int) IndexOption { return func(ix *Index) { ix.chunkChars = n } }

// WithBatchSize sets the ingest batch size.
func WithBatchSize(n int) IndexOption { return func(ix *Index) { ix.batchSize = n } }

// WithTopK sets how many neighbours Search asks the store for.
func WithTopK(k int) IndexOption { return func(ix *Index) { ix.topK = k } }

// WithMinRelevance drops hits scoring below min.
func WithMinRelevance(threshold float64) IndexOption {
	return func(ix *Index) { ix.minRelevance = threshold }
}

// WithTimeout bounds each embedding and store call.
func WithTimeout(d time.Duration) IndexOption { return func(ix *Index) { ix.timeout = d } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) IndexOption { return func(ix *Index) { ix.logger = l } }

// NewIndex creates an Index over collection.
func NewIndex(e embed.Embedder, vs store.VectorStore, collection string, opts ...IndexOption) *Index {
	ix := &Index{
		embedder:   e,
		vectors:    vs,
		collection: collection,
		chunkChars: DefaultChunkChars,
		batchSize:  DefaultBatchSize,
		topK:       6,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.batchSize <= 0 {
		ix.batchSize = DefaultBatchSize
	}
	return ix
}

// Ingest flattens, embeds and upserts every document, returning the number
// of passages written.
func (ix *Index) Ingest(ctx context.Context, docs []Document) (int, error) {
	var passages []Passage
	for _, doc := range docs {
		passages = append(passages, Passages(doc, ix.chunkChars)...)
	}
	if len(passages) == 0 {
		return 0, nil
	}

	written := 0
	for start := 0; start < len(passages); start += ix.batchSize {
		end := min(start+ix.batchSize, len(passages))
		if err := ix.upsertBatch(ctx, passages[start:end]); err != nil {
			return written, err
		}
		written += end - start
		ix.logger.Debug("knowledge batch indexed",
			"collection", ix.collection,
			"passages", written,
			"total", len(passages),
		)
	}
	return written, nil
}

func (ix *Index) upsertBatch(ctx context.Context, batch []Passage) error {
	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = p.Text
	}

	ectx, cancel := ix.bound(ctx)
	vecs, err := ix.embedder.Embed(ectx, texts)
	cancel()
	if err != nil {
		return deskerr.Wrap(err, deskerr.CodeKnowledgeIngestFailure, "embedding passages",
			deskerr.FieldCollection(ix.collection))
	}

	points := make([]store.Point, len(batch))
	for i, p := range batch {
		points[i] = store.Point{
			ID:       p.ID,
			Vector:   vecs[i],
			Metadata: map[string]any{"source": p.Source, "text": p.Text},
		}
	}

	sctx, cancel := ix.bound(ctx)
	defer cancel()
	if err := ix.vectors.Upsert(sctx, ix.collection, points); err != nil {
		return deskerr.Wrap(err, deskerr.CodeKnowledgeIngestFailure, "upserting passages",
			deskerr.FieldCollection(ix.collection))
	}
	return nil
}

// Hit is one retrieved passage. Score is 1 minus cosine distance.
type Hit struct {
	ID     string  `json:"id"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
	Text   string  `json:"text"`
}

// Search returns the passages most relevant to question with a score of at
// least the configured minimum, best first. Failures are coded
// retrieval.search.unavailable.
func (ix *Index) Search(ctx context.Context, question string) ([]Hit, error) {
	ectx, cancel := ix.bound(ctx)
	vec, err := embed.One(ectx, ix.embedder, question)
	cancel()
	if err != nil {
		return nil, deskerr.Errorf(deskerr.CodeRetrievalSearchUnavailable, "embedding question: %s", err)
	}

	sctx, cancel := ix.bound(ctx)
	defer cancel()
	results, err := ix.vectors.Search(sctx, ix.collection, vec, ix.topK, nil)
	if err != nil {
		return nil, deskerr.Errorf(deskerr.CodeRetrievalSearchUnavailable, "searching %s: %s", ix.collection, err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		score := r.Similarity()
		if score < ix.minRelevance {
			continue
		}
		text, _ := r.Metadata["text"].(string)
		if text == "" {
			continue
		}
		source, _ := r.Metadata["source"].(string)
		if source == "" {
			source = "<unknown>"
		}
		hits = append(hits, Hit{ID: r.ID, Score: score, Source: source, Text: text})
	}
	return hits, nil
}

func (ix *Index) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if ix.timeout > 0 {
		return context.WithTimeout(ctx, ix.timeout)
	}
	return context.WithCancel(ctx)
}
