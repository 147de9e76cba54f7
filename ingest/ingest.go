//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

// Package ingest turns uploaded documents into indexed, filterable chunks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"trpc.group/trpc-go/trpc-docqa-go/chunking"
	"trpc.group/trpc-go/trpc-docqa-go/document"
	"trpc.group/trpc-go/trpc-docqa-go/ingest/ocr"
	"trpc.group/trpc-go/trpc-docqa-go/log"
	"trpc.group/trpc-go/trpc-docqa-go/vectorstore"
)

var (
	// ErrDecodeFailed indicates text content could not be decoded under any
	// attempted encoding.
	ErrDecodeFailed = errors.New("failed to decode text content")

	// ErrExtractionFailed indicates PDF parsing or OCR setup failed before
	// per-page recognition began. Fatal for the file.
	ErrExtractionFailed = errors.New("failed to extract document content")
)

// UploadedFile is a transient uploaded document: a display name plus raw bytes.
type UploadedFile struct {
	Name string
	Data []byte
}

// FileError records a per-file ingestion failure inside a batch.
type FileError struct {
	Name string
	Err  error
}

// BatchResult aggregates a batch ingestion run.
type BatchResult struct {
	// ChunksAdded is the total number of chunks indexed across all files.
	ChunksAdded int

	// Failures lists the files that could not be ingested.
	Failures []FileError
}

// Ingestor decodes uploaded files, chunks them and writes the chunks to the
// vector store.
type Ingestor struct {
	store     vectorstore.VectorStore
	chunker   chunking.Strategy
	ocrEngine ocr.Engine
}

// Option represents a functional option for configuring the Ingestor.
type Option func(*Ingestor)

// WithChunker sets the chunking strategy.
func WithChunker(strategy chunking.Strategy) Option {
	return func(ing *Ingestor) {
		if strategy != nil {
			ing.chunker = strategy
		}
	}
}

// WithOCREngine sets the OCR engine used for image-only PDFs. Without one,
// image-only PDFs fail with ErrExtractionFailed.
func WithOCREngine(engine ocr.Engine) Option {
	return func(ing *Ingestor) {
		ing.ocrEngine = engine
	}
}

// New creates an ingestor writing to the given store.
func New(store vectorstore.VectorStore, opts ...Option) *Ingestor {
	ing := &Ingestor{
		store:   store,
		chunker: chunking.NewRecursiveChunking(),
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Ingest processes one uploaded file and returns the number of chunks added.
// Unsupported extensions are a no-op, not an error. The add and the persist
// form one logical unit: a persist failure fails the ingestion.
func (ing *Ingestor) Ingest(ctx context.Context, file *UploadedFile) (int, error) {
	ext := strings.ToLower(filepath.Ext(file.Name))

	var (
		fragments []*document.Document
		err       error
	)
	switch ext {
	case ".txt":
		fragments, err = ing.decodeTextFile(file)
	case ".pdf":
		fragments, err = ing.extractPDF(ctx, file)
	default:
		log.Warnf("unsupported file type %q, skipping %q", ext, file.Name)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	chunks, err := ing.chunkFragments(fragments, file.Name, strings.TrimPrefix(ext, "."))
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	if err := ing.store.Add(ctx, chunks); err != nil {
		return 0, fmt.Errorf("indexing %q: %w", file.Name, err)
	}
	if err := ing.store.Persist(ctx); err != nil {
		return 0, fmt.Errorf("persisting index after %q: %w", file.Name, err)
	}
	log.Infof("indexed %d chunk(s) from %q", len(chunks), file.Name)
	return len(chunks), nil
}

// Batch ingests several files, isolating failures so one bad file does not
// block the rest.
func (ing *Ingestor) Batch(ctx context.Context, files []*UploadedFile) *BatchResult {
	result := &BatchResult{}
	for _, file := range files {
		count, err := ing.Ingest(ctx, file)
		if err != nil {
			log.Errorf("ingestion failed for %q: %v", file.Name, err)
			result.Failures = append(result.Failures, FileError{Name: file.Name, Err: err})
			continue
		}
		result.ChunksAdded += count
	}
	return result
}

// decodeTextFile decodes a .txt upload into a single document fragment.
func (ing *Ingestor) decodeTextFile(file *UploadedFile) ([]*document.Document, error) {
	text, err := decodeText(file.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", file.Name, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return []*document.Document{document.New(text, file.Name)}, nil
}

// chunkFragments splits every fragment and stamps provenance metadata on the
// resulting chunks.
func (ing *Ingestor) chunkFragments(fragments []*document.Document, sourceFile, fileType string) ([]*document.Document, error) {
	var chunks []*document.Document
	for _, fragment := range fragments {
		if fragment.IsEmpty() {
			continue
		}
		fragmentChunks, err := ing.chunker.Chunk(fragment)
		if err != nil {
			return nil, fmt.Errorf("chunking %q: %w", sourceFile, err)
		}
		chunks = append(chunks, fragmentChunks...)
	}
	for _, chunk := range chunks {
		if chunk.Metadata == nil {
			chunk.Metadata = make(map[string]any)
		}
		chunk.Metadata[document.MetaSourceFile] = sourceFile
		chunk.Metadata[document.MetaFileType] = fileType
	}
	return chunks, nil
}
