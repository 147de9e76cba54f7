//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-docqa-go/document"
	"trpc.group/trpc-go/trpc-docqa-go/vectorstore"
)

type fakeStore struct {
	added    []*document.Document
	persists int
	addErr   error
}

func (f *fakeStore) Add(_ context.Context, docs []*document.Document) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, docs...)
	return nil
}

func (f *fakeStore) Search(context.Context, *vectorstore.SearchQuery) ([]*vectorstore.ScoredDocument, error) {
	return nil, nil
}

func (f *fakeStore) Sources(context.Context) ([]string, error) { return nil, nil }

func (f *fakeStore) Persist(context.Context) error {
	f.persists++
	return nil
}

func (f *fakeStore) Clear(context.Context) error { return nil }
func (f *fakeStore) Close() error                { return nil }

type fakeOCR struct {
	pages map[int]string
	err   error
}

func (f *fakeOCR) RecognizePage(_ context.Context, _ []byte, page int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.pages[page], nil
}

func TestIngestUTF8Text(t *testing.T) {
	store := &fakeStore{}
	ing := New(store)

	count, err := ing.Ingest(context.Background(), &UploadedFile{
		Name: "notes.txt",
		Data: []byte("系统重启流程：先停止服务，再执行重启命令。"),
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, store.added, 1)
	assert.Equal(t, 1, store.persists)

	chunk := store.added[0]
	assert.Equal(t, "notes.txt", chunk.Metadata[document.MetaSourceFile])
	assert.Equal(t, "txt", chunk.Metadata[document.MetaFileType])
	assert.Contains(t, chunk.Content, "系统重启流程")
}

func TestIngestGBKText(t *testing.T) {
	store := &fakeStore{}
	ing := New(store)

	// "中文" encoded as GBK, which is not valid UTF-8.
	count, err := ing.Ingest(context.Background(), &UploadedFile{
		Name: "legacy.txt",
		Data: []byte{0xD6, 0xD0, 0xCE, 0xC4},
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)
	assert.Equal(t, "中文", store.added[0].Content)
}

func TestIngestUnsupportedExtension(t *testing.T) {
	store := &fakeStore{}
	ing := New(store)

	count, err := ing.Ingest(context.Background(), &UploadedFile{
		Name: "slides.pptx",
		Data: []byte("irrelevant"),
	})
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, store.added)
	assert.Zero(t, store.persists)
}

func TestIngestBlankTextSkipsIndex(t *testing.T) {
	store := &fakeStore{}
	ing := New(store)

	count, err := ing.Ingest(context.Background(), &UploadedFile{
		Name: "empty.txt",
		Data: []byte("   \n\t  "),
	})
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, store.added)
	assert.Zero(t, store.persists)
}

func TestIngestCorruptPDF(t *testing.T) {
	store := &fakeStore{}
	ing := New(store)

	_, err := ing.Ingest(context.Background(), &UploadedFile{
		Name: "broken.pdf",
		Data: []byte("not a pdf at all"),
	})
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.Empty(t, store.added)
}

func TestRecognizePDFWithoutEngine(t *testing.T) {
	ing := New(&fakeStore{})

	_, err := ing.recognizePDF(context.Background(), &UploadedFile{Name: "scan.pdf"}, 2)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestRecognizePDFFailureMarker(t *testing.T) {
	ing := New(&fakeStore{}, WithOCREngine(&fakeOCR{err: errors.New("tesseract exploded")}))

	fragments, err := ing.recognizePDF(context.Background(), &UploadedFile{Name: "scan.pdf"}, 1)
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	assert.Equal(t, "第1页：OCR识别失败", fragments[0].Content)
}

func TestRecognizePDFJoinsPages(t *testing.T) {
	engine := &fakeOCR{pages: map[int]string{1: "第一页文字", 2: "第二页文字"}}
	ing := New(&fakeStore{}, WithOCREngine(engine))

	fragments, err := ing.recognizePDF(context.Background(), &UploadedFile{Name: "scan.pdf"}, 2)
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	assert.Equal(t, "第1页：\n第一页文字\n\n第2页：\n第二页文字", fragments[0].Content)
}

func TestRecognizePDFMixedFailure(t *testing.T) {
	// Only a missing engine aborts; a failing page yields an inline marker
	// next to the pages that worked.
	engine := &partialOCR{good: map[int]string{1: "可识别内容"}}
	ing := New(&fakeStore{}, WithOCREngine(engine))

	fragments, err := ing.recognizePDF(context.Background(), &UploadedFile{Name: "scan.pdf"}, 2)
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	parts := strings.Split(fragments[0].Content, "\n\n")
	require.Len(t, parts, 2)
	assert.Equal(t, "第1页：\n可识别内容", parts[0])
	assert.Equal(t, "第2页：OCR识别失败", parts[1])
}

type partialOCR struct {
	good map[int]string
}

func (p *partialOCR) RecognizePage(_ context.Context, _ []byte, page int) (string, error) {
	text, ok := p.good[page]
	if !ok {
		return "", errors.New("no text layer detected")
	}
	return text, nil
}

func TestBatchIsolatesFailures(t *testing.T) {
	store := &fakeStore{}
	ing := New(store)

	result := ing.Batch(context.Background(), []*UploadedFile{
		{Name: "good.txt", Data: []byte("正常内容。")},
		{Name: "bad.pdf", Data: []byte("garbage")},
		{Name: "also-good.txt", Data: []byte("另一份正常内容。")},
	})
	assert.Equal(t, 2, result.ChunksAdded)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "bad.pdf", result.Failures[0].Name)
	assert.ErrorIs(t, result.Failures[0].Err, ErrExtractionFailed)
}

func TestIngestAddFailure(t *testing.T) {
	store := &fakeStore{addErr: errors.New("disk full")}
	ing := New(store)

	_, err := ing.Ingest(context.Background(), &UploadedFile{
		Name: "doc.txt",
		Data: []byte("内容。"),
	})
	require.Error(t, err)
	assert.Zero(t, store.persists)
}

func TestDecodeTextUTF8Passthrough(t *testing.T) {
	text, err := decodeText([]byte("plain ascii and 中文"))
	require.NoError(t, err)
	assert.Equal(t, "plain ascii and 中文", text)
}

func TestDecodeTextLatin1Fallback(t *testing.T) {
	// 0xFF starts no valid GB18030 or GBK sequence, so both Chinese decoders
	// emit a replacement rune and must be passed over; Latin-1 maps it to ÿ.
	text, err := decodeText([]byte{0xFF, 0x41})
	require.NoError(t, err)
	assert.Equal(t, "ÿA", text)
	assert.NotContains(t, text, "�")
}

func TestIngestLatin1Text(t *testing.T) {
	store := &fakeStore{}
	ing := New(store)

	// "café" in Latin-1; the trailing 0xE9 is a truncated sequence under
	// GB18030 and GBK, forcing the final fallback.
	count, err := ing.Ingest(context.Background(), &UploadedFile{
		Name: "legacy-latin.txt",
		Data: []byte{0x63, 0x61, 0x66, 0xE9},
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)
	assert.Equal(t, "café", store.added[0].Content)
}
