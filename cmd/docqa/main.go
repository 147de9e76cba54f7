//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

// Command docqa is an interactive, retrieval-grounded document assistant.
//
// Usage:
//
//	docqa -ingest report.pdf,notes.txt   index documents and exit
//	docqa -list                          show indexed source files
//	docqa -clear                         reset the index
//	docqa                                start the interactive chat loop
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"trpc.group/trpc-go/trpc-docqa-go/chunking"
	"trpc.group/trpc-go/trpc-docqa-go/config"
	"trpc.group/trpc-go/trpc-docqa-go/document"
	openaiembedder "trpc.group/trpc-go/trpc-docqa-go/embedder/openai"
	"trpc.group/trpc-go/trpc-docqa-go/engine"
	"trpc.group/trpc-go/trpc-docqa-go/ingest"
	"trpc.group/trpc-go/trpc-docqa-go/ingest/ocr/tesseract"
	"trpc.group/trpc-go/trpc-docqa-go/log"
	openaimodel "trpc.group/trpc-go/trpc-docqa-go/model/openai"
	"trpc.group/trpc-go/trpc-docqa-go/reranker/tei"
	"trpc.group/trpc-go/trpc-docqa-go/retrieval"
	"trpc.group/trpc-go/trpc-docqa-go/vectorstore"
	"trpc.group/trpc-go/trpc-docqa-go/vectorstore/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	ingestFiles := flag.String("ingest", "", "Comma-separated files to index, then exit")
	listSources := flag.Bool("list", false, "List indexed source files, then exit")
	clearIndex := flag.Bool("clear", false, "Clear the whole index, then exit")
	sourceFilter := flag.String("source", "", "Restrict retrieval to one source file")
	flag.Parse()

	if err := run(*configPath, *ingestFiles, *listSources, *clearIndex, *sourceFilter); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, ingestFiles string, listSources, clearIndex bool, sourceFilter string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	emb := openaiembedder.New(
		openaiembedder.WithModel(cfg.OpenAI.EmbeddingModel),
		openaiembedder.WithDimensions(cfg.OpenAI.EmbeddingDims),
		openaiembedder.WithAPIKey(cfg.OpenAI.APIKey),
		openaiembedder.WithBaseURL(cfg.OpenAI.BaseURL),
	)
	store, err := sqlite.Open(cfg.Index.Path, emb)
	if err != nil {
		return fmt.Errorf("opening index %q: %w", cfg.Index.Path, err)
	}
	defer store.Close()

	switch {
	case clearIndex:
		if err := store.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("🧹 索引已清空。")
		return nil
	case listSources:
		return printSources(ctx, store)
	case ingestFiles != "":
		return runIngest(ctx, cfg, store, strings.Split(ingestFiles, ","))
	}
	return runChat(ctx, cfg, store, sourceFilter)
}

// runIngest indexes the given files, reporting per-file failures without
// aborting the batch.
func runIngest(ctx context.Context, cfg *config.Config, store vectorstore.VectorStore, paths []string) error {
	ingestor := newIngestor(cfg, store)

	var files []*ingest.UploadedFile
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}
		files = append(files, &ingest.UploadedFile{Name: filepath.Base(path), Data: data})
	}

	result := ingestor.Batch(ctx, files)
	fmt.Printf("📥 已索引 %d 个文本块。\n", result.ChunksAdded)
	for _, failure := range result.Failures {
		fmt.Printf("⚠️ %s: %v\n", failure.Name, failure.Err)
	}
	if len(result.Failures) > 0 {
		return fmt.Errorf("%d file(s) failed to ingest", len(result.Failures))
	}
	return nil
}

func newIngestor(cfg *config.Config, store vectorstore.VectorStore) *ingest.Ingestor {
	opts := []ingest.Option{
		ingest.WithChunker(chunking.NewRecursiveChunking(
			chunking.WithChunkSize(cfg.Chunking.Size),
			chunking.WithOverlap(cfg.Chunking.Overlap),
		)),
	}
	ocrEngine, err := tesseract.New(
		tesseract.WithTesseractCmd(cfg.OCR.TesseractCmd),
		tesseract.WithPdftoppmCmd(cfg.OCR.PdftoppmCmd),
		tesseract.WithLanguage(cfg.OCR.Language),
		tesseract.WithDPI(cfg.OCR.DPI),
	)
	if err != nil {
		log.Warnf("OCR disabled: %v", err)
	} else {
		opts = append(opts, ingest.WithOCREngine(ocrEngine))
	}
	return ingest.New(store, opts...)
}

// printSources lists every indexed source file with its chunk count and type.
func printSources(ctx context.Context, store vectorstore.VectorStore) error {
	sources, err := store.Sources(ctx)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Println("📭 文档库为空。")
		return nil
	}
	fmt.Printf("📚 已索引 %d 个文档：\n", len(sources))
	for _, source := range sources {
		scored, err := store.Search(ctx, &vectorstore.SearchQuery{SourceFile: source, Limit: 30000})
		if err != nil {
			return err
		}
		fileType := ""
		if len(scored) > 0 {
			if t, ok := scored[0].Document.Metadata[document.MetaFileType].(string); ok {
				fileType = t
			}
		}
		fmt.Printf("  - %s (%s, %d 块)\n", source, fileType, len(scored))
	}
	return nil
}

// runChat drives the interactive question loop, streaming answer fragments
// as they arrive.
func runChat(ctx context.Context, cfg *config.Config, store vectorstore.VectorStore, sourceFilter string) error {
	retriever, err := retrieval.New(store, tei.New(cfg.Reranker.URL),
		retrieval.WithRecallLimit(cfg.Retrieval.RecallLimit))
	if err != nil {
		return err
	}
	chatModel := openaimodel.New(cfg.OpenAI.ChatModel,
		openaimodel.WithAPIKey(cfg.OpenAI.APIKey),
		openaimodel.WithBaseURL(cfg.OpenAI.BaseURL),
	)
	qa := engine.New(chatModel, retriever)
	session := &engine.Session{SourceFilter: sourceFilter}

	fmt.Println("🛡️ 严格约束型文档问答助手（输入 exit 退出）")
	if sourceFilter != "" {
		fmt.Printf("📎 检索范围：%s\n", sourceFilter)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n👤 ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		if err := answerTurn(ctx, qa, session, input); err != nil {
			fmt.Printf("\n❌ %v\n", err)
		}
	}
	return scanner.Err()
}

// answerTurn streams one answered turn to stdout, then prints provenance and
// the debug footer.
func answerTurn(ctx context.Context, qa *engine.Engine, session *engine.Session, input string) error {
	events, err := qa.Ask(ctx, session, input)
	if err != nil {
		return err
	}

	fmt.Print("🤖 ")
	var sources []retrieval.ScoredChunk
	var metrics *engine.Metrics
	var answer string
	streamed := false
	for event := range events {
		switch event.Type {
		case engine.EventTypeIntent:
			if event.Intent == engine.IntentRAG {
				fmt.Printf("🔍 检索关键词：%s\n", event.Query)
			}
		case engine.EventTypeDelta:
			fmt.Print(event.Delta)
			streamed = true
		case engine.EventTypeSources:
			sources = event.Sources
		case engine.EventTypeDone:
			answer = event.Answer
			metrics = event.Metrics
		case engine.EventTypeError:
			fmt.Println()
			return event.Err
		}
	}
	if !streamed {
		// Refusal turns produce no deltas, only the final answer.
		fmt.Print(answer)
	}
	fmt.Println()

	if len(sources) > 0 {
		fmt.Println("\n🔍 匹配详情与溯源得分 (Top 5)")
		for _, source := range sources {
			fmt.Printf("  文件: %s | 语义关联度: %.3f\n", source.SourceFile, source.Score)
		}
	}
	if metrics != nil {
		fmt.Println("\n调试信息：")
		fmt.Printf("- LLM 调用次数: %d 次\n", metrics.LLMCalls)
		fmt.Printf("- 总响应时间: %.2f 秒\n", metrics.Elapsed.Seconds())
		if metrics.RetrievalElapsed > 0 {
			fmt.Printf("- 检索耗时: %.2f 秒\n", metrics.RetrievalElapsed.Seconds())
		}
	}
	return nil
}
