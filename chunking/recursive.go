//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

package chunking

import (
	"strings"

	"trpc.group/trpc-go/trpc-docqa-go/document"
)

// DefaultSeparators is the separator hierarchy used for mixed Chinese/Latin
// prose: paragraph break, line break, sentence-ending punctuation from
// coarse to fine, whitespace, and finally a hard character cut.
var DefaultSeparators = []string{"\n\n", "\n", "。", "！", "？", "；", "，", " ", ""}

// RecursiveChunking implements a recursive chunking strategy that uses a
// hierarchy of separators. A segment is only split on a finer separator when
// it still exceeds the chunk size after splitting on the coarser one.
// Separators stay attached to the end of the preceding segment, so the
// concatenation of all chunks (minus overlap) reproduces the input text.
type RecursiveChunking struct {
	chunkSize  int
	overlap    int
	separators []string
}

// RecursiveOption represents a functional option for configuring RecursiveChunking.
type RecursiveOption func(*RecursiveChunking)

// WithChunkSize sets the maximum size of each chunk in characters.
func WithChunkSize(size int) RecursiveOption {
	return func(rc *RecursiveChunking) {
		if size > 0 {
			rc.chunkSize = size
		}
	}
}

// WithOverlap sets the number of characters copied from the tail of each
// chunk into the head of the next.
func WithOverlap(overlap int) RecursiveOption {
	return func(rc *RecursiveChunking) {
		if overlap >= 0 {
			rc.overlap = overlap
		}
	}
}

// WithSeparators sets the separators to use in priority order. An empty
// string entry means a hard cut at the chunk size.
func WithSeparators(separators []string) RecursiveOption {
	return func(rc *RecursiveChunking) {
		rc.separators = separators
	}
}

// NewRecursiveChunking creates a new recursive chunking strategy with options.
func NewRecursiveChunking(opts ...RecursiveOption) *RecursiveChunking {
	rc := &RecursiveChunking{
		chunkSize:  defaultChunkSize,
		overlap:    defaultOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(rc)
	}
	if rc.overlap >= rc.chunkSize {
		rc.overlap = min(defaultOverlap, rc.chunkSize-1)
	}
	return rc
}

// Chunk splits the document along the separator hierarchy and applies overlap.
func (r *RecursiveChunking) Chunk(doc *document.Document) ([]*document.Document, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	if doc.IsEmpty() {
		return nil, ErrEmptyDocument
	}

	segments := r.recursiveSplit(doc.Content, r.separators)

	chunks := make([]*document.Document, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		chunks = append(chunks, createChunk(doc, seg))
	}

	if r.overlap > 0 {
		chunks = r.applyOverlap(chunks)
	}
	return chunks, nil
}

// recursiveSplit splits text using the separator hierarchy, descending one
// level only for segments that still exceed the chunk size.
func (r *RecursiveChunking) recursiveSplit(text string, separators []string) []string {
	if runeLen(text) <= r.chunkSize {
		return []string{text}
	}
	if len(separators) == 0 || separators[0] == "" {
		return r.hardSplit(text)
	}

	parts := splitAfter(text, separators[0])
	if len(parts) == 1 {
		// Separator absent, fall through to the next level.
		return r.recursiveSplit(text, separators[1:])
	}

	var segments []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if runeLen(part) <= r.chunkSize {
			segments = append(segments, part)
			continue
		}
		segments = append(segments, r.recursiveSplit(part, separators[1:])...)
	}
	return segments
}

// hardSplit cuts text into chunkSize-character pieces with no regard for
// boundaries. Used when every separator has been exhausted.
func (r *RecursiveChunking) hardSplit(text string) []string {
	runes := []rune(text)
	segments := make([]string, 0, (len(runes)+r.chunkSize-1)/r.chunkSize)
	for i := 0; i < len(runes); i += r.chunkSize {
		end := min(i+r.chunkSize, len(runes))
		segments = append(segments, string(runes[i:end]))
	}
	return segments
}

// applyOverlap copies the trailing characters of each chunk into the head of
// the next one to preserve context across chunk boundaries.
func (r *RecursiveChunking) applyOverlap(chunks []*document.Document) []*document.Document {
	if len(chunks) <= 1 {
		return chunks
	}
	overlapped := []*document.Document{chunks[0]}
	for i := 1; i < len(chunks); i++ {
		prevTail := tailRunes(chunks[i-1].Content, r.overlap)
		next := chunks[i].Clone()
		next.Content = prevTail + chunks[i].Content
		overlapped = append(overlapped, next)
	}
	return overlapped
}

// splitAfter splits text on sep keeping the separator with the preceding
// segment. Unlike strings.SplitAfter it never yields a trailing empty string.
func splitAfter(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}
