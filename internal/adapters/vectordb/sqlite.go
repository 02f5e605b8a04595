package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
)

// DefaultCollection names the collection used when none is configured.
const DefaultCollection = "research_stuff"

// SQLiteStore persists vectors in a SQLite file, one logical collection per
// store. The collection remembers its vector dimension and refuses vectors of
// any other size. Search is brute-force cosine over the collection.
type SQLiteStore struct {
	mu         sync.RWMutex
	db         *sql.DB
	collection string
	dim        int
}

// NewSQLiteStore opens (or creates) dataPath/vectors.db.
func NewSQLiteStore(dataPath, collection string) (*SQLiteStore, error) {
	if dataPath == "" {
		dataPath = "./data"
	}
	if collection == "" {
		collection = DefaultCollection
	}

	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataPath, "vectors.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{db: db, collection: collection}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS chunks (
		collection TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		source TEXT,
		page INTEGER NOT NULL,
		chunk_index INTEGER NOT NULL,
		char_offset INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL,
		PRIMARY KEY (collection, seq)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Init registers the collection with dim, or checks dim against the stored one.
func (s *SQLiteStore) Init(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid dimension %d", dim)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored int
	err := s.db.QueryRowContext(ctx,
		"SELECT dimension FROM collections WHERE name = ?", s.collection).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO collections (name, dimension) VALUES (?, ?)", s.collection, dim); err != nil {
			return fmt.Errorf("registering collection: %w", err)
		}
	case err != nil:
		return fmt.Errorf("reading collection: %w", err)
	case stored != dim:
		return fmt.Errorf("%w: collection %q stores %d-dimensional vectors, got %d",
			entities.ErrDimensionMismatch, s.collection, stored, dim)
	}

	s.dim = dim
	return nil
}

// Store appends chunks after the collection's last sequence number.
func (s *SQLiteStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dim == 0 {
		return fmt.Errorf("collection %q not initialized", s.collection)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq) + 1, 0) FROM chunks WHERE collection = ?", s.collection).Scan(&next); err != nil {
		return fmt.Errorf("reading sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection, seq, id, document_id, source, page, chunk_index, char_offset, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		if len(chunk.Embedding) != s.dim {
			return fmt.Errorf("%w: chunk %s has %d, want %d",
				entities.ErrDimensionMismatch, chunk.ID, len(chunk.Embedding), s.dim)
		}
		embeddingJSON, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("encoding embedding: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			s.collection, next+i,
			chunk.ID, chunk.DocumentID, chunk.Source,
			chunk.Page, chunk.Index, chunk.Offset,
			chunk.Content, embeddingJSON,
		)
		if err != nil {
			return fmt.Errorf("inserting chunk: %w", err)
		}
	}

	return tx.Commit()
}

// Search finds the most similar chunks to a query embedding.
func (s *SQLiteStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, source, page, chunk_index, char_offset, content, embedding
		FROM chunks WHERE collection = ? ORDER BY seq
	`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var cands []scored
	for rows.Next() {
		var chunk entities.Chunk
		var source sql.NullString
		var embeddingJSON []byte

		err := rows.Scan(&chunk.ID, &chunk.DocumentID, &source, &chunk.Page,
			&chunk.Index, &chunk.Offset, &chunk.Content, &embeddingJSON)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		chunk.Source = source.String

		if err := json.Unmarshal(embeddingJSON, &chunk.Embedding); err != nil {
			return nil, fmt.Errorf("decoding embedding of chunk %s: %w", chunk.ID, err)
		}
		cands = append(cands, scored{chunk: chunk, score: cosineSimilarity(embedding, chunk.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return rankTopK(cands, topK), nil
}

// Count returns the number of chunks in the collection.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE collection = ?", s.collection).Scan(&count)
	return count, err
}

// Clear removes the collection's chunks. The registered dimension is kept.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE collection = ?", s.collection)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
