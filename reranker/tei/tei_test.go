//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

package tei

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreMapsResultsToInputOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rerank", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "重启流程", req.Query)
		require.Len(t, req.Texts, 3)

		// The service answers best first, not in input order.
		json.NewEncoder(w).Encode([]rerankResult{
			{Index: 2, Score: 0.9},
			{Index: 0, Score: 0.4},
			{Index: 1, Score: 0.1},
		})
	}))
	defer server.Close()

	rr := New(server.URL)
	scores, err := rr.Score(context.Background(), "重启流程", []string{"甲", "乙", "丙"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.4, 0.1, 0.9}, scores)
}

func TestScoreEmptyPassages(t *testing.T) {
	rr := New("http://unused")
	scores, err := rr.Score(context.Background(), "查询", nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
}

func TestScoreServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(server.URL).Score(context.Background(), "查询", []string{"内容"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestScoreOutOfRangeIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode([]rerankResult{{Index: 5, Score: 0.5}})
	}))
	defer server.Close()

	_, err := New(server.URL).Score(context.Background(), "查询", []string{"内容"})
	assert.Error(t, err)
}
