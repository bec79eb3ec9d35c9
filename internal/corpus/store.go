// Package corpus provides the corpus store, the immutable index snapshot,
// and the manager that owns snapshot replacement.
package corpus

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// Store persists corpus documents and their embeddings in SQLite. The offline
// index build writes it; the server only reads it when building a snapshot.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the corpus database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS corpus_documents (
		id TEXT PRIMARY KEY,
		query_text TEXT NOT NULL,
		description TEXT,
		tables_used TEXT,
		joins_used TEXT,
		embedding BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceAll atomically replaces the whole corpus with docs. The corpus is
// versioned as a unit: partial updates would leave keyword and vector state
// inconsistent, so only full re-index is supported.
func (s *Store) ReplaceAll(ctx context.Context, docs []*models.CorpusDocument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_documents`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO corpus_documents (id, query_text, description, tables_used, joins_used, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, doc := range docs {
		tables, err := json.Marshal(doc.TablesUsed)
		if err != nil {
			return fmt.Errorf("marshal tables for %s: %w", doc.ID, err)
		}
		joins, err := json.Marshal(doc.JoinsUsed)
		if err != nil {
			return fmt.Errorf("marshal joins for %s: %w", doc.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			doc.ID, doc.QueryText, doc.Description,
			string(tables), string(joins), encodeVector(doc.Embedding), now,
		); err != nil {
			return fmt.Errorf("insert document %s: %w", doc.ID, err)
		}
	}
	return tx.Commit()
}

// LoadAll returns every corpus document ordered by id.
func (s *Store) LoadAll(ctx context.Context) ([]*models.CorpusDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query_text, description, tables_used, joins_used, embedding
		 FROM corpus_documents ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.CorpusDocument
	for rows.Next() {
		var doc models.CorpusDocument
		var tables, joins string
		var blob []byte
		if err := rows.Scan(&doc.ID, &doc.QueryText, &doc.Description, &tables, &joins, &blob); err != nil {
			return nil, err
		}
		if tables != "" {
			if err := json.Unmarshal([]byte(tables), &doc.TablesUsed); err != nil {
				return nil, fmt.Errorf("unmarshal tables for %s: %w", doc.ID, err)
			}
		}
		if joins != "" {
			if err := json.Unmarshal([]byte(joins), &doc.JoinsUsed); err != nil {
				return nil, fmt.Errorf("unmarshal joins for %s: %w", doc.ID, err)
			}
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode embedding for %s: %w", doc.ID, err)
		}
		doc.Embedding = vec
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM corpus_documents`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// encodeVector packs a float32 slice as little-endian bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
