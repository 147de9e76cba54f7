//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

// Package vectorstore defines the interface for the persisted chunk index.
package vectorstore

import (
	"context"
	"errors"

	"trpc.group/trpc-go/trpc-docqa-go/document"
)

// ErrUnavailable indicates the persisted index could not be opened or created.
var ErrUnavailable = errors.New("vector index unavailable")

// SearchQuery represents a similarity search request.
type SearchQuery struct {
	// Query is the text to search for. An empty query skips similarity
	// scoring and enumerates stored chunks instead; this is the advisory
	// path used to populate source listings.
	Query string

	// Limit is the maximum number of results to return.
	Limit int

	// SourceFile restricts results to chunks from one uploaded file.
	// Empty means the whole index.
	SourceFile string
}

// ScoredDocument is a chunk together with its similarity score.
type ScoredDocument struct {
	// Document is the matched chunk.
	Document *document.Document

	// Score is the similarity score in the store's native ordering
	// (higher is closer).
	Score float64
}

// VectorStore is the index adapter consumed by ingestion and retrieval.
// Implementations embed chunk text with the embedding capability supplied at
// open time and persist both vectors and metadata.
type VectorStore interface {
	// Add appends chunks to the index in one batch.
	Add(ctx context.Context, docs []*document.Document) error

	// Search returns up to Limit chunks ordered by the store's native
	// similarity ordering, optionally restricted to one source file.
	Search(ctx context.Context, query *SearchQuery) ([]*ScoredDocument, error)

	// Sources enumerates the distinct source files present in the index,
	// excluding the reserved bootstrap chunk.
	Sources(ctx context.Context) ([]string, error)

	// Persist flushes index state to durable storage.
	Persist(ctx context.Context) error

	// Clear deletes the entire persisted index and re-initializes it.
	Clear(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}
