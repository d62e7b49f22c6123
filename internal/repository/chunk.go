// Package repository persists chunks in Postgres with pgvector, the durable
// backing behind the in-memory retrieval indexes.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/infofinder/internal/domain"
)

// ChunkRepository handles chunk persistence.
type ChunkRepository struct {
	pool *pgxpool.Pool
}

// NewChunkRepository creates a ChunkRepository backed by the given pool.
func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool}
}

// SaveBatch inserts a batch of chunks in one transaction, so a failed batch
// leaves no partial state behind.
func (r *ChunkRepository) SaveBatch(ctx context.Context, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO chunks (id, document_id, content, token_count, embedding, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID,
			c.DocumentID,
			c.Text,
			c.TokenCount,
			pgvector.NewVector(c.Embedding),
			c.Metadata,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// DeleteByDocument removes every chunk of a document and records the removed
// ids as tombstones in the same transaction, so the removal and the id
// retirement survive restarts together.
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO chunk_tombstones (chunk_id)
		 SELECT id FROM chunks WHERE document_id = $1
		 ON CONFLICT (chunk_id) DO NOTHING`, documentID)
	if err != nil {
		return fmt.Errorf("failed to tombstone chunks for document %s: %w", documentID, err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks for document %s: %w", documentID, err)
	}

	return tx.Commit(ctx)
}

// ListTombstones returns every retired chunk id, for seeding the in-memory
// store on startup.
func (r *ChunkRepository) ListTombstones(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT chunk_id FROM chunk_tombstones ORDER BY chunk_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tombstones: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Get returns a chunk by id.
func (r *ChunkRepository) Get(ctx context.Context, id string) (*domain.Chunk, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, document_id, content, token_count, embedding, metadata
		 FROM chunks WHERE id = $1`, id)

	chunk, err := scanChunk(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrChunkNotFound
	}
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// ListAll returns every persisted chunk ordered by id, for index rebuilds
// on startup.
func (r *ChunkRepository) ListAll(ctx context.Context) ([]*domain.Chunk, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, document_id, content, token_count, embedding, metadata
		 FROM chunks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// Count returns the number of persisted chunks.
func (r *ChunkRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var (
		chunk     domain.Chunk
		embedding pgvector.Vector
		metadata  map[string]string
	)
	err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Text, &chunk.TokenCount, &embedding, &metadata)
	if err != nil {
		return nil, err
	}
	chunk.Embedding = embedding.Slice()
	chunk.Metadata = metadata
	return &chunk, nil
}
