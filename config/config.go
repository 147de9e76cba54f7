//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

// Package config loads application configuration from YAML and the
// environment.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-docqa-go/log"
)

// Default values applied when the config file omits a field or is absent.
const (
	DefaultChatModel       = "gpt-4o-mini"
	DefaultEmbeddingModel  = "text-embedding-3-small"
	DefaultEmbeddingDims   = 1536
	DefaultRerankerURL     = "http://localhost:8080"
	DefaultIndexPath       = "knowledge_db/index.db"
	DefaultChunkSize       = 800
	DefaultChunkOverlap    = 80
	DefaultRecallLimit     = 15
	DefaultTesseractCmd    = "tesseract"
	DefaultPdftoppmCmd     = "pdftoppm"
	DefaultOCRLanguage     = "chi_sim"
	DefaultOCRDPI          = 300
)

// apiKeyEnv names the environment variable holding the OpenAI API key.
// The key never lives in the YAML file.
const apiKeyEnv = "OPENAI_API_KEY"

// OpenAI configures the chat and embedding API client.
type OpenAI struct {
	BaseURL        string `yaml:"base_url"`
	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	EmbeddingDims  int    `yaml:"embedding_dims"`

	// APIKey is read from the environment, not the file.
	APIKey string `yaml:"-"`
}

// Reranker configures the cross-encoder scoring service.
type Reranker struct {
	URL string `yaml:"url"`
}

// Index configures the persisted vector index.
type Index struct {
	Path string `yaml:"path"`
}

// Chunking configures the document splitter.
type Chunking struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// Retrieval configures candidate recall.
type Retrieval struct {
	RecallLimit int `yaml:"recall_limit"`
}

// OCR configures recognition of image-only PDFs.
type OCR struct {
	TesseractCmd string `yaml:"tesseract_cmd"`
	PdftoppmCmd  string `yaml:"pdftoppm_cmd"`
	Language     string `yaml:"language"`
	DPI          int    `yaml:"dpi"`
}

// Config is the full application configuration.
type Config struct {
	OpenAI    OpenAI    `yaml:"openai"`
	Reranker  Reranker  `yaml:"reranker"`
	Index     Index     `yaml:"index"`
	Chunking  Chunking  `yaml:"chunking"`
	Retrieval Retrieval `yaml:"retrieval"`
	OCR       OCR       `yaml:"ocr"`
}

// Load reads the config file at path, falling back to defaults for missing
// fields. A missing file is not an error. Environment variables are loaded
// from .env first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}

	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %q: %w", path, err)
		}
	case os.IsNotExist(err):
		log.Infof("config file %q not found, using defaults", path)
	default:
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.OpenAI.APIKey = os.Getenv(apiKeyEnv)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		OpenAI: OpenAI{
			ChatModel:      DefaultChatModel,
			EmbeddingModel: DefaultEmbeddingModel,
			EmbeddingDims:  DefaultEmbeddingDims,
		},
		Reranker:  Reranker{URL: DefaultRerankerURL},
		Index:     Index{Path: DefaultIndexPath},
		Chunking:  Chunking{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap},
		Retrieval: Retrieval{RecallLimit: DefaultRecallLimit},
		OCR: OCR{
			TesseractCmd: DefaultTesseractCmd,
			PdftoppmCmd:  DefaultPdftoppmCmd,
			Language:     DefaultOCRLanguage,
			DPI:          DefaultOCRDPI,
		},
	}
}

// applyDefaults backfills zero values left by an explicit but partial file.
func (c *Config) applyDefaults() {
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = DefaultChatModel
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = DefaultEmbeddingModel
	}
	if c.OpenAI.EmbeddingDims <= 0 {
		c.OpenAI.EmbeddingDims = DefaultEmbeddingDims
	}
	if c.Reranker.URL == "" {
		c.Reranker.URL = DefaultRerankerURL
	}
	if c.Index.Path == "" {
		c.Index.Path = DefaultIndexPath
	}
	if c.Chunking.Size <= 0 {
		c.Chunking.Size = DefaultChunkSize
	}
	if c.Chunking.Overlap < 0 {
		c.Chunking.Overlap = DefaultChunkOverlap
	}
	if c.Retrieval.RecallLimit <= 0 {
		c.Retrieval.RecallLimit = DefaultRecallLimit
	}
	if c.OCR.TesseractCmd == "" {
		c.OCR.TesseractCmd = DefaultTesseractCmd
	}
	if c.OCR.PdftoppmCmd == "" {
		c.OCR.PdftoppmCmd = DefaultPdftoppmCmd
	}
	if c.OCR.Language == "" {
		c.OCR.Language = DefaultOCRLanguage
	}
	if c.OCR.DPI <= 0 {
		c.OCR.DPI = DefaultOCRDPI
	}
}
