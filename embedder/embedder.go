//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

// Package embedder provides interfaces and implementations for text embedding.
package embedder

import "context"

// Embedder turns text into a fixed-length numeric vector.
//
// An error return indicates a system-level failure that prevented the call
// from completing. An empty vector with a nil error indicates an API-level
// failure; callers should treat it as "no embedding available".
type Embedder interface {
	// GetEmbedding generates an embedding vector for the given text.
	GetEmbedding(ctx context.Context, text string) ([]float64, error)

	// GetDimensions returns the dimensionality of the embeddings produced by
	// this embedder. Returns 0 if dimensions are not known or configurable.
	GetDimensions() int
}
