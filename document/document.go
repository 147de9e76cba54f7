//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

// Package document provides the document model shared by ingestion and retrieval.
package document

import (
	"time"
)

// Metadata keys stamped on every indexed chunk.
const (
	// MetaSourceFile is the display name of the uploaded file a chunk came from.
	MetaSourceFile = "source_file"

	// MetaFileType is the file type tag ("pdf" or "txt").
	MetaFileType = "file_type"

	// MetaPage is the 1-based page number, present for text-extractable PDFs only.
	MetaPage = "page"

	// BootstrapSource is the reserved source name of the index bootstrap chunk.
	// It never appears in document listings or filter choices.
	BootstrapSource = "system"
)

// Document represents a unit of text with provenance metadata. Both whole
// ingested fragments and the chunks produced from them use this type.
type Document struct {
	// ID is the unique identifier of the document.
	ID string `json:"id,omitempty"`

	// Name is the name or title of the document.
	Name string `json:"name,omitempty"`

	// Content is the text content of the document.
	Content string `json:"content"`

	// Metadata contains additional information about the document.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is the creation timestamp of the document.
	CreatedAt time.Time `json:"created_at,omitempty"`

	// UpdatedAt is the last update timestamp of the document.
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// SourceFile returns the source_file metadata value, or "" when absent.
func (d *Document) SourceFile() string {
	if d == nil || d.Metadata == nil {
		return ""
	}
	if s, ok := d.Metadata[MetaSourceFile].(string); ok {
		return s
	}
	return ""
}

// IsEmpty checks if the document has no content.
func (d *Document) IsEmpty() bool {
	return d == nil || d.Content == ""
}

// Clone creates a deep copy of the document.
func (d *Document) Clone() *Document {
	clone := &Document{
		ID:        d.ID,
		Name:      d.Name,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Metadata != nil {
		clone.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}

// New creates a document with the given content and name. The ID is left
// empty; the chunker or the store assigns one before indexing.
func New(content, name string) *Document {
	now := time.Now().UTC()
	return &Document{
		Name:      name,
		Content:   content,
		Metadata:  make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
