//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-docqa-go/document"
	"trpc.group/trpc-go/trpc-docqa-go/vectorstore"
)

// fakeEmbedder returns canned vectors for known texts and a fixed filler
// vector otherwise. Deterministic, no network.
type fakeEmbedder struct {
	vectors map[string][]float64
}

func (f *fakeEmbedder) GetEmbedding(_ context.Context, text string) ([]float64, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float64{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) GetDimensions() int { return 3 }

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	emb := &fakeEmbedder{vectors: map[string][]float64{
		"红色的文本": {1, 0, 0},
		"绿色的文本": {0, 1, 0},
		"蓝色的文本": {0, 0, 1},
		"红":     {1, 0, 0},
	}}
	store, err := Open(path, emb)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func chunk(content, source string) *document.Document {
	doc := document.New(content, source)
	doc.Metadata[document.MetaSourceFile] = source
	doc.Metadata[document.MetaFileType] = "txt"
	return doc
}

func TestOpenBootstrapsEmptyIndex(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	results, err := store.Search(ctx, &vectorstore.SearchQuery{Limit: 100})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "初始空文档", results[0].Document.Content)
	assert.Equal(t, document.BootstrapSource, results[0].Document.SourceFile())

	sources, err := store.Sources(ctx)
	require.NoError(t, err)
	assert.Empty(t, sources, "bootstrap chunk must not be listed as a source")
}

func TestAddAndSearchOrdersBySimilarity(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.Add(ctx, []*document.Document{
		chunk("红色的文本", "a.txt"),
		chunk("蓝色的文本", "b.txt"),
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, &vectorstore.SearchQuery{Query: "红", Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "红色的文本", results[0].Document.Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestSearchSourceFilter(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.Add(ctx, []*document.Document{
		chunk("红色的文本", "a.txt"),
		chunk("绿色的文本", "b.txt"),
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, &vectorstore.SearchQuery{
		Query:      "红",
		Limit:      10,
		SourceFile: "b.txt",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "绿色的文本", results[0].Document.Content)

	// A filter matching nothing returns an empty set, not an error.
	results, err = store.Search(ctx, &vectorstore.SearchQuery{
		Query:      "红",
		SourceFile: "missing.pdf",
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSourcesDeduplicatedAndSorted(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.Add(ctx, []*document.Document{
		chunk("红色的文本", "zebra.txt"),
		chunk("绿色的文本", "zebra.txt"),
		chunk("蓝色的文本", "alpha.pdf"),
	})
	require.NoError(t, err)

	sources, err := store.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.pdf", "zebra.txt"}, sources)
}

func TestPersistSurvivesReopen(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []*document.Document{chunk("红色的文本", "a.txt")}))
	require.NoError(t, store.Persist(ctx))
	require.NoError(t, store.Close())

	reopened, err := Open(path, &fakeEmbedder{})
	require.NoError(t, err)
	defer reopened.Close()

	// Bootstrap plus the indexed chunk; no second bootstrap on reload.
	results, err := reopened.Search(ctx, &vectorstore.SearchQuery{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	sources, err := reopened.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, sources)
}

func TestClearResetsToBootstrap(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []*document.Document{chunk("红色的文本", "a.txt")}))
	require.NoError(t, store.Clear(ctx))

	sources, err := store.Sources(ctx)
	require.NoError(t, err)
	assert.Empty(t, sources)

	results, err := store.Search(ctx, &vectorstore.SearchQuery{Limit: 100})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "初始空文档", results[0].Document.Content)
}

func TestAddRejectsEmptyChunk(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.Add(context.Background(), []*document.Document{chunk("", "a.txt")})
	assert.Error(t, err)
}

func TestAddPreservesMetadata(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	doc := chunk("红色的文本", "a.txt")
	doc.Metadata[document.MetaPage] = 3
	require.NoError(t, store.Add(ctx, []*document.Document{doc}))

	results, err := store.Search(ctx, &vectorstore.SearchQuery{SourceFile: "a.txt", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	got := results[0].Document
	assert.Equal(t, "a.txt", got.Metadata[document.MetaSourceFile])
	assert.Equal(t, "txt", got.Metadata[document.MetaFileType])
	// JSON round-trips numbers as float64.
	assert.EqualValues(t, 3, got.Metadata[document.MetaPage])
}

func TestVectorCodecRoundTrip(t *testing.T) {
	vec := []float64{0.5, -1.25, 3, 0}
	decoded := decodeVector(encodeVector(vec))
	require.Len(t, decoded, len(vec))
	for i := range vec {
		assert.InDelta(t, vec[i], decoded[i], 1e-6)
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float64{1, 0}, []float64{1, 0, 0}))
	assert.Zero(t, cosineSimilarity([]float64{0, 0}, []float64{1, 0}))
}
