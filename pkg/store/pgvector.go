package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/mbarlow/docchat/internal/models"
)

// Conn is the subset of pgxpool.Pool the store depends on. Tests supply a
// fake; production passes the pool itself.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// VectorStore is the pgvector-backed vector index gateway. Every query is
// scoped to a namespace inside the store; a caller cannot search across
// namespaces.
type VectorStore struct {
	config VectorStoreConfig
	conn   Conn
	pool   *pgxpool.Pool
}

// NewWithConfig connects to Postgres and ensures the chunk table and
// ivfflat index exist.
func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config: config,
		conn:   pool,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

// NewWithConn builds a store over an existing connection without running
// migrations. Used by tests.
func NewWithConn(conn Conn, config VectorStoreConfig) *VectorStore {
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	return &VectorStore{config: config, conn: conn}
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	_, err := vs.conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	// Chunk identity is (namespace, document_id, chunk_index); re-ingesting
	// a document overwrites its chunks instead of duplicating them.
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			namespace TEXT NOT NULL,
			document_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			file_name TEXT NOT NULL,
			page_number INTEGER NOT NULL DEFAULT 0,
			content TEXT NOT NULL,
			embedding vector(%d),
			PRIMARY KEY (namespace, document_id, chunk_index)
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.conn.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.conn.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	createNamespaceIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_namespace_idx
		ON %s (namespace)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.conn.Exec(ctx, createNamespaceIndex)
	if err != nil {
		return fmt.Errorf("failed to create namespace index: %w", err)
	}

	return nil
}

// Upsert writes one document's embedded chunks into the namespace inside a
// single transaction.
func (vs *VectorStore) Upsert(ctx context.Context, namespace string, chunks []models.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := vs.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (namespace, document_id, chunk_index, file_name, page_number, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (namespace, document_id, chunk_index) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			page_number = EXCLUDED.page_number,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		vs.config.TableName)

	for _, chunk := range chunks {
		_, err = tx.Exec(ctx, stmt,
			namespace,
			chunk.Metadata.SourceDocumentID,
			chunk.Metadata.ChunkIndex,
			chunk.Metadata.FileName,
			chunk.Metadata.PageNumber,
			sanitizeUTF8(chunk.Text),
			pgvector.NewVector(chunk.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d of %q: %w",
				chunk.Metadata.ChunkIndex, chunk.Metadata.SourceDocumentID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Search returns the topK most similar chunks within the namespace,
// highest similarity first. An unknown namespace yields an empty result.
func (vs *VectorStore) Search(ctx context.Context, namespace string, queryVector []float32, topK int) ([]models.Chunk, error) {
	if topK <= 0 {
		topK = 4
	}

	query := fmt.Sprintf(`
		SELECT document_id, chunk_index, file_name, page_number, content
		FROM %s
		WHERE namespace = $1
		ORDER BY embedding <=> $2
		LIMIT $3`,
		vs.config.TableName)

	rows, err := vs.conn.Query(ctx, query, namespace, pgvector.NewVector(queryVector), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var chunk models.Chunk
		err := rows.Scan(
			&chunk.Metadata.SourceDocumentID,
			&chunk.Metadata.ChunkIndex,
			&chunk.Metadata.FileName,
			&chunk.Metadata.PageNumber,
			&chunk.Text,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		chunk.Metadata.Namespace = namespace
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return chunks, nil
}

// Close releases the connection pool if the store owns one.
func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

// sanitizeUTF8 strips invalid byte sequences so Postgres never rejects a
// chunk extracted from a malformed PDF.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
