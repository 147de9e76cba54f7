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
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"trpc.group/trpc-go/trpc-docqa-go/document"
	"trpc.group/trpc-go/trpc-docqa-go/log"
)

// ocrPageHeader tags a page's OCR output; ocrPageFailure replaces the output
// of a page whose OCR call failed. Both match the wording users see in the
// retrieval context.
const (
	ocrPageHeader  = "第%d页：\n%s"
	ocrPageFailure = "第%d页：OCR识别失败"
)

// extractPDF turns PDF bytes into document fragments. Text-extractable PDFs
// yield one fragment per non-empty page, tagged with the 1-based page number.
// PDFs with no extractable text on any page are treated as image-only and
// sent through per-page OCR instead.
func (ing *Ingestor) extractPDF(ctx context.Context, file *UploadedFile) ([]*document.Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(file.Data), int64(len(file.Data)))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %q: %v", ErrExtractionFailed, file.Name, err)
	}

	totalPages := reader.NumPage()
	var fragments []*document.Document
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Debugf("text extraction failed on page %d of %q: %v", pageNum, file.Name, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		fragment := document.New(text, file.Name)
		fragment.Metadata[document.MetaPage] = pageNum
		fragments = append(fragments, fragment)
	}

	if len(fragments) > 0 {
		return fragments, nil
	}
	return ing.recognizePDF(ctx, file, totalPages)
}

// recognizePDF runs OCR over every page of an image-only PDF. A failing page
// is replaced with an inline failure marker; only a missing OCR engine aborts
// the document.
func (ing *Ingestor) recognizePDF(ctx context.Context, file *UploadedFile, totalPages int) ([]*document.Document, error) {
	if ing.ocrEngine == nil {
		return nil, fmt.Errorf("%w: %q has no extractable text and no OCR engine is configured",
			ErrExtractionFailed, file.Name)
	}
	if totalPages == 0 {
		return nil, fmt.Errorf("%w: %q contains no pages", ErrExtractionFailed, file.Name)
	}

	log.Infof("no extractable text in %q, running OCR over %d page(s)", file.Name, totalPages)
	pageTexts := make([]string, 0, totalPages)
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		text, err := ing.ocrEngine.RecognizePage(ctx, file.Data, pageNum)
		if err != nil {
			log.Warnf("OCR failed on page %d of %q: %v", pageNum, file.Name, err)
			pageTexts = append(pageTexts, fmt.Sprintf(ocrPageFailure, pageNum))
			continue
		}
		pageTexts = append(pageTexts, fmt.Sprintf(ocrPageHeader, pageNum, text))
	}

	fragment := document.New(strings.Join(pageTexts, "\n\n"), file.Name)
	return []*document.Document{fragment}, nil
}
