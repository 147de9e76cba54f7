//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

// Package reranker provides cross-encoder relevance scoring for retrieval results.
package reranker

import "context"

// Reranker scores (query, passage) pairs with a cross-encoder model.
type Reranker interface {
	// Score returns one relevance score per passage, in input order.
	// Higher scores mean higher relevance.
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}
