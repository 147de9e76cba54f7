//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

// Package ocr defines the optical character recognition capability used for
// image-only PDFs.
package ocr

import "context"

// Engine recognizes text on a single page of a PDF document.
type Engine interface {
	// RecognizePage rasterizes the given 1-based page of the PDF and runs
	// character recognition on it. Failures are per-page: the caller decides
	// whether to continue with the remaining pages.
	RecognizePage(ctx context.Context, pdfData []byte, page int) (string, error)
}
