//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

// Package tei provides a reranker backed by a Text Embeddings Inference
// compatible /rerank endpoint serving a cross-encoder model such as
// BAAI/bge-reranker-base.
package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"trpc.group/trpc-go/trpc-docqa-go/reranker"
)

// Verify that Reranker implements the reranker.Reranker interface.
var _ reranker.Reranker = (*Reranker)(nil)

const defaultTimeout = 30 * time.Second

// Reranker calls a TEI-compatible rerank service.
type Reranker struct {
	baseURL    string
	httpClient *http.Client
}

// Option represents a functional option for configuring the Reranker.
type Option func(*Reranker)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Reranker) {
		r.httpClient = client
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Reranker) {
		r.httpClient.Timeout = timeout
	}
}

// New creates a reranker that posts to baseURL/rerank.
func New(baseURL string, opts ...Option) *Reranker {
	r := &Reranker{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Score implements the reranker.Reranker interface. The service returns
// results ordered by score; they are mapped back to input order here.
func (r *Reranker) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{Query: query, Texts: passages})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rerank service returned %d: %s", resp.StatusCode, data)
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	scores := make([]float64, len(passages))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(scores) {
			return nil, fmt.Errorf("rerank service returned out-of-range index %d", res.Index)
		}
		scores[res.Index] = res.Score
	}
	return scores, nil
}
