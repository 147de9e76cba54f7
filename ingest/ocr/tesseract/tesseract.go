//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

// Package tesseract provides an OCR engine driving the poppler pdftoppm
// rasterizer and the tesseract binary.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"trpc.group/trpc-go/trpc-docqa-go/ingest/ocr"
)

// Verify that Engine implements the ocr.Engine interface.
var _ ocr.Engine = (*Engine)(nil)

const (
	defaultTesseractCmd = "tesseract"
	defaultPdftoppmCmd  = "pdftoppm"
	defaultLanguage     = "chi_sim"
	defaultDPI          = 300
)

// Engine rasterizes PDF pages with pdftoppm and recognizes them with tesseract.
type Engine struct {
	tesseractCmd string
	pdftoppmCmd  string
	language     string
	dpi          int
}

// Option represents a functional option for configuring the Engine.
type Option func(*Engine)

// WithTesseractCmd sets the tesseract executable path.
func WithTesseractCmd(cmd string) Option {
	return func(e *Engine) {
		if cmd != "" {
			e.tesseractCmd = cmd
		}
	}
}

// WithPdftoppmCmd sets the pdftoppm executable path.
func WithPdftoppmCmd(cmd string) Option {
	return func(e *Engine) {
		if cmd != "" {
			e.pdftoppmCmd = cmd
		}
	}
}

// WithLanguage sets the tesseract language pack.
func WithLanguage(lang string) Option {
	return func(e *Engine) {
		if lang != "" {
			e.language = lang
		}
	}
}

// WithDPI sets the rasterization resolution.
func WithDPI(dpi int) Option {
	return func(e *Engine) {
		if dpi > 0 {
			e.dpi = dpi
		}
	}
}

// New creates an OCR engine and verifies both executables are present.
// A missing executable is a setup failure, not a per-page one.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		tesseractCmd: defaultTesseractCmd,
		pdftoppmCmd:  defaultPdftoppmCmd,
		language:     defaultLanguage,
		dpi:          defaultDPI,
	}
	for _, opt := range opts {
		opt(e)
	}
	if _, err := exec.LookPath(e.pdftoppmCmd); err != nil {
		return nil, fmt.Errorf("pdftoppm not available: %w", err)
	}
	if _, err := exec.LookPath(e.tesseractCmd); err != nil {
		return nil, fmt.Errorf("tesseract not available: %w", err)
	}
	return e, nil
}

// RecognizePage implements the ocr.Engine interface. Temporary files are
// removed on every exit path.
func (e *Engine) RecognizePage(ctx context.Context, pdfData []byte, page int) (string, error) {
	workDir, err := os.MkdirTemp("", "docqa-ocr-*")
	if err != nil {
		return "", fmt.Errorf("creating OCR work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	pdfPath := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(pdfPath, pdfData, 0o600); err != nil {
		return "", fmt.Errorf("writing temporary PDF: %w", err)
	}

	// Rasterize just the requested page at the configured resolution.
	imagePrefix := filepath.Join(workDir, "page")
	rasterize := exec.CommandContext(ctx, e.pdftoppmCmd,
		"-f", strconv.Itoa(page), "-l", strconv.Itoa(page),
		"-r", strconv.Itoa(e.dpi), "-png", pdfPath, imagePrefix)
	if out, err := rasterize.CombinedOutput(); err != nil {
		return "", fmt.Errorf("rasterizing page %d: %w (%s)", page, err, bytes.TrimSpace(out))
	}

	imagePath, err := findRasterizedPage(workDir)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	recognize := exec.CommandContext(ctx, e.tesseractCmd, imagePath, "stdout", "-l", e.language)
	recognize.Stdout = &stdout
	recognize.Stderr = &stderr
	if err := recognize.Run(); err != nil {
		return "", fmt.Errorf("recognizing page %d: %w (%s)", page, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// findRasterizedPage locates the single PNG pdftoppm produced. The exact file
// name depends on the document's page count padding.
func findRasterizedPage(workDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(workDir, "page*.png"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("rasterized page image not found in %s", workDir)
	}
	return matches[0], nil
}
