//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

// Package retrieval recalls candidate chunks from the vector store and
// reorders them with a cross-encoder before building the answer context.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-docqa-go/log"
	"trpc.group/trpc-go/trpc-docqa-go/reranker"
	"trpc.group/trpc-go/trpc-docqa-go/vectorstore"
)

const (
	// defaultRecallLimit is how many candidates the vector store returns
	// before reranking.
	defaultRecallLimit = 15

	// provenanceLimit is how many reranked chunks are surfaced as sources.
	provenanceLimit = 5

	// contextLimit is how many reranked chunks feed the answer context.
	contextLimit = 3

	// contextJoiner separates chunk texts inside the assembled context.
	contextJoiner = "\n\n"
)

// ErrNilReranker indicates the retriever was built without a reranker.
var ErrNilReranker = errors.New("retrieval: reranker is required")

// ScoredChunk is a retrieved chunk together with its cross-encoder score.
type ScoredChunk struct {
	Content    string
	SourceFile string
	Score      float64
}

// Result is the outcome of one retrieval round.
type Result struct {
	// Context is the top reranked chunk texts joined for prompting. Empty
	// means nothing relevant was recalled.
	Context string

	// Sources lists the highest scoring chunks for provenance display.
	Sources []ScoredChunk

	// Elapsed covers recall plus reranking.
	Elapsed time.Duration
}

// Retriever pairs a vector store with a cross-encoder reranker.
type Retriever struct {
	store       vectorstore.VectorStore
	reranker    reranker.Reranker
	recallLimit int
}

// Option represents a functional option for configuring the Retriever.
type Option func(*Retriever)

// WithRecallLimit sets how many candidates the store returns for reranking.
func WithRecallLimit(limit int) Option {
	return func(r *Retriever) {
		if limit > 0 {
			r.recallLimit = limit
		}
	}
}

// New creates a retriever over the given store and reranker.
func New(store vectorstore.VectorStore, rr reranker.Reranker, opts ...Option) (*Retriever, error) {
	if rr == nil {
		return nil, ErrNilReranker
	}
	r := &Retriever{
		store:       store,
		reranker:    rr,
		recallLimit: defaultRecallLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Retrieve recalls candidates for the query, reranks them and returns the
// assembled context plus provenance. sourceFilter restricts recall to one
// uploaded file; empty means all files. An empty recall set short-circuits
// without calling the reranker.
func (r *Retriever) Retrieve(ctx context.Context, query, sourceFilter string) (*Result, error) {
	start := time.Now()

	scored, err := r.store.Search(ctx, &vectorstore.SearchQuery{
		Query:      query,
		Limit:      r.recallLimit,
		SourceFile: sourceFilter,
	})
	if err != nil {
		return nil, fmt.Errorf("recalling candidates: %w", err)
	}
	if len(scored) == 0 {
		return &Result{Elapsed: time.Since(start)}, nil
	}

	passages := make([]string, len(scored))
	for i, sd := range scored {
		passages[i] = sd.Document.Content
	}
	scores, err := r.reranker.Score(ctx, query, passages)
	if err != nil {
		return nil, fmt.Errorf("reranking %d candidate(s): %w", len(scored), err)
	}
	if len(scores) != len(scored) {
		return nil, fmt.Errorf("reranker returned %d score(s) for %d passage(s)", len(scores), len(scored))
	}

	chunks := make([]ScoredChunk, len(scored))
	for i, sd := range scored {
		chunks[i] = ScoredChunk{
			Content:    sd.Document.Content,
			SourceFile: sd.Document.SourceFile(),
			Score:      scores[i],
		}
	}
	// Stable sort keeps recall order among equal scores deterministic.
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})

	sources := chunks
	if len(sources) > provenanceLimit {
		sources = sources[:provenanceLimit]
	}
	contextChunks := chunks
	if len(contextChunks) > contextLimit {
		contextChunks = contextChunks[:contextLimit]
	}
	texts := make([]string, len(contextChunks))
	for i, c := range contextChunks {
		texts[i] = c.Content
	}

	elapsed := time.Since(start)
	log.Debugf("retrieved %d candidate(s), kept %d for context in %v", len(chunks), len(contextChunks), elapsed)
	return &Result{
		Context: strings.Join(texts, contextJoiner),
		Sources: sources,
		Elapsed: elapsed,
	}, nil
}
