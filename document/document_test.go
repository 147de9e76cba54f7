//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	doc := New("内容", "report.pdf")
	assert.Empty(t, doc.ID)
	assert.Equal(t, "report.pdf", doc.Name)
	assert.Equal(t, "内容", doc.Content)
	assert.NotNil(t, doc.Metadata)
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestSourceFile(t *testing.T) {
	doc := New("内容", "report.pdf")
	assert.Empty(t, doc.SourceFile())

	doc.Metadata[MetaSourceFile] = "report.pdf"
	assert.Equal(t, "report.pdf", doc.SourceFile())

	doc.Metadata[MetaSourceFile] = 42
	assert.Empty(t, doc.SourceFile(), "non-string source_file is ignored")

	var nilDoc *Document
	assert.Empty(t, nilDoc.SourceFile())
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, New("", "a.txt").IsEmpty())
	assert.False(t, New("x", "a.txt").IsEmpty())

	var nilDoc *Document
	assert.True(t, nilDoc.IsEmpty())
}

func TestCloneIsDeep(t *testing.T) {
	doc := New("内容", "a.txt")
	doc.Metadata[MetaPage] = 1

	clone := doc.Clone()
	require.Equal(t, doc.Content, clone.Content)
	require.Equal(t, doc.Metadata, clone.Metadata)

	clone.Metadata[MetaPage] = 2
	assert.Equal(t, 1, doc.Metadata[MetaPage])
}
