//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

// Package chunking provides document chunking strategies and utilities.
package chunking

import (
	"unicode/utf8"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-docqa-go/document"
)

// Strategy defines the interface for document chunking strategies.
type Strategy interface {
	// Chunk splits a document into smaller chunks based on the strategy's algorithm.
	Chunk(doc *document.Document) ([]*document.Document, error)
}

var (
	defaultChunkSize = 800
	defaultOverlap   = 80
)

// createChunk creates a new document chunk inheriting the parent's metadata.
func createChunk(originalDoc *document.Document, content string) *document.Document {
	metadata := make(map[string]any, len(originalDoc.Metadata))
	for k, v := range originalDoc.Metadata {
		metadata[k] = v
	}
	return &document.Document{
		ID:        uuid.NewString(),
		Name:      originalDoc.Name,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: originalDoc.CreatedAt,
		UpdatedAt: originalDoc.UpdatedAt,
	}
}

// runeLen counts characters, not bytes. Chunk budgets are expressed in
// characters so that multi-byte CJK text is not over-split.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// tailRunes returns the trailing n characters of s.
func tailRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
