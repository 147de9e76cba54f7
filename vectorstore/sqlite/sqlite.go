//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

// Package sqlite provides a persisted vector store over a local SQLite file.
// Embedding vectors are stored as little-endian float32 blobs and similarity
// is computed in process with cosine distance.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"trpc.group/trpc-go/trpc-docqa-go/document"
	"trpc.group/trpc-go/trpc-docqa-go/embedder"
	"trpc.group/trpc-go/trpc-docqa-go/log"
	"trpc.group/trpc-go/trpc-docqa-go/vectorstore"
)

// Verify that Store implements the vectorstore.VectorStore interface.
var _ vectorstore.VectorStore = (*Store)(nil)

const (
	// bootstrapText seeds a freshly created index so it never holds zero vectors.
	bootstrapText = "初始空文档"

	// defaultMaxResults bounds searches that do not specify a limit.
	defaultMaxResults = 10

	// listAllLimit is the effectively-unbounded limit used for source enumeration.
	listAllLimit = 30000
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	embedding  BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks (json_extract(metadata, '$.source_file'));
`

// Store implements vectorstore.VectorStore backed by a single SQLite file.
type Store struct {
	db       *sql.DB
	path     string
	embedder embedder.Embedder

	// mu serializes writers; readers go through SQLite's WAL snapshot.
	mu sync.Mutex
}

// Open loads the index at path, creating and bootstrapping it when absent.
func Open(path string, emb embedder.Embedder) (*Store, error) {
	if emb == nil {
		return nil, fmt.Errorf("%w: embedder is required", vectorstore.ErrUnavailable)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating index directory: %v", vectorstore.ErrUnavailable, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vectorstore.ErrUnavailable, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: applying schema: %v", vectorstore.ErrUnavailable, err)
	}

	s := &Store{db: db, path: path, embedder: emb}
	if err := s.bootstrapIfEmpty(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// bootstrapIfEmpty inserts the reserved bootstrap chunk into a fresh index and
// persists immediately. The index must never be instantiated with zero vectors.
func (s *Store) bootstrapIfEmpty(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return fmt.Errorf("%w: counting chunks: %v", vectorstore.ErrUnavailable, err)
	}
	if count > 0 {
		log.Debugf("loaded existing index with %d chunks: %s", count, s.path)
		return nil
	}

	log.Infof("no index found, creating empty index: %s", s.path)
	boot := &document.Document{
		ID:      uuid.NewString(),
		Content: bootstrapText,
		Metadata: map[string]any{
			document.MetaSourceFile: document.BootstrapSource,
			"note":                  "empty_init",
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Add(ctx, []*document.Document{boot}); err != nil {
		return fmt.Errorf("%w: seeding bootstrap chunk: %v", vectorstore.ErrUnavailable, err)
	}
	return s.Persist(ctx)
}

// Add implements vectorstore.VectorStore. All chunks are embedded and written
// in one transaction.
func (s *Store) Add(ctx context.Context, docs []*document.Document) error {
	if len(docs) == 0 {
		return nil
	}

	type row struct {
		doc       *document.Document
		embedding []float64
	}
	rows := make([]row, 0, len(docs))
	for _, doc := range docs {
		if doc.IsEmpty() {
			return fmt.Errorf("cannot index empty chunk (source %q)", doc.SourceFile())
		}
		vec, err := s.embedder.GetEmbedding(ctx, doc.Content)
		if err != nil {
			return fmt.Errorf("embedding chunk for %q: %w", doc.SourceFile(), err)
		}
		if len(vec) == 0 {
			return fmt.Errorf("received empty embedding for %q", doc.SourceFile())
		}
		rows = append(rows, row{doc: doc, embedding: vec})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, name, content, metadata, embedding, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		id := r.doc.ID
		if id == "" {
			id = uuid.NewString()
		}
		metadata, err := json.Marshal(r.doc.Metadata)
		if err != nil {
			return fmt.Errorf("encoding chunk metadata: %w", err)
		}
		createdAt := r.doc.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			id, r.doc.Name, r.doc.Content, string(metadata),
			encodeVector(r.embedding), createdAt.Unix()); err != nil {
			return fmt.Errorf("inserting chunk: %w", err)
		}
	}
	return tx.Commit()
}

// Search implements vectorstore.VectorStore. An empty query enumerates chunks
// without similarity scoring; otherwise candidates are scored with cosine
// similarity against the embedded query and returned best first.
func (s *Store) Search(ctx context.Context, query *vectorstore.SearchQuery) ([]*vectorstore.ScoredDocument, error) {
	if query == nil {
		return nil, fmt.Errorf("query cannot be nil")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultMaxResults
	}

	var queryVec []float64
	if query.Query != "" {
		vec, err := s.embedder.GetEmbedding(ctx, query.Query)
		if err != nil {
			return nil, fmt.Errorf("embedding query: %w", err)
		}
		queryVec = vec
	}

	results, err := s.scanChunks(ctx, query.SourceFile, queryVec)
	if err != nil {
		return nil, err
	}

	if queryVec != nil {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// scanChunks loads candidate rows, applying the optional source filter in SQL
// and scoring in process when a query vector is present.
func (s *Store) scanChunks(ctx context.Context, sourceFile string, queryVec []float64) ([]*vectorstore.ScoredDocument, error) {
	q := `SELECT id, name, content, metadata, embedding, created_at FROM chunks`
	var args []any
	if sourceFile != "" {
		q += ` WHERE json_extract(metadata, '$.source_file') = ?`
		args = append(args, sourceFile)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []*vectorstore.ScoredDocument
	for rows.Next() {
		var (
			id, name, content, metadataJSON string
			blob                            []byte
			createdAt                       int64
		)
		if err := rows.Scan(&id, &name, &content, &metadataJSON, &blob, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}

		metadata := make(map[string]any)
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			return nil, fmt.Errorf("decoding chunk metadata: %w", err)
		}

		score := 0.0
		if queryVec != nil {
			embedding := decodeVector(blob)
			if len(embedding) != len(queryVec) {
				// Dimensionality changed between runs; the chunk cannot be compared.
				continue
			}
			score = cosineSimilarity(queryVec, embedding)
		}

		results = append(results, &vectorstore.ScoredDocument{
			Document: &document.Document{
				ID:        id,
				Name:      name,
				Content:   content,
				Metadata:  metadata,
				CreatedAt: time.Unix(createdAt, 0).UTC(),
			},
			Score: score,
		})
	}
	return results, rows.Err()
}

// Sources implements vectorstore.VectorStore. Listing is an empty-query
// search with a large limit, deduplicated and stripped of the bootstrap tag.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	results, err := s.Search(ctx, &vectorstore.SearchQuery{Limit: listAllLimit})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var sources []string
	for _, res := range results {
		source := res.Document.SourceFile()
		if source == "" || source == document.BootstrapSource || seen[source] {
			continue
		}
		seen[source] = true
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources, nil
}

// Persist implements vectorstore.VectorStore by checkpointing the WAL into
// the main database file.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("persisting index: %w", err)
	}
	return nil
}

// Clear implements vectorstore.VectorStore. The whole index is dropped and
// re-seeded with the bootstrap chunk.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("clearing index: %w", err)
	}
	s.mu.Unlock()

	log.Infof("index cleared: %s", s.path)
	if err := s.bootstrapIfEmpty(ctx); err != nil {
		return err
	}
	return s.Persist(ctx)
}

// Close implements vectorstore.VectorStore.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// encodeVector converts a float64 vector to a little-endian float32 blob.
func encodeVector(vec []float64) []byte {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(f)))
	}
	return buf
}

// decodeVector converts a little-endian float32 blob back to a float64 vector.
func decodeVector(data []byte) []float64 {
	vec := make([]float64, len(data)/4)
	for i := range vec {
		vec[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return vec
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dotProduct, normA, normB float64
	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
