// Package catalog stores relational metadata about ingested documents.
// It backs the folder and file listings only; retrieval never consults it.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mbarlow/docchat/internal/models"
)

// Conn is the subset of pgxpool.Pool the catalog depends on.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Catalog is the Postgres-backed document catalog.
type Catalog struct {
	conn Conn
	pool *pgxpool.Pool
}

// New connects to Postgres and ensures the documents table exists.
func New(ctx context.Context, connString string) (*Catalog, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	c := &Catalog{conn: pool, pool: pool}
	if err := c.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

// NewWithConn builds a catalog over an existing connection without running
// migrations. Used by tests.
func NewWithConn(conn Conn) *Catalog {
	return &Catalog{conn: conn}
}

func (c *Catalog) initialize(ctx context.Context) error {
	createTable := `
		CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			namespace TEXT NOT NULL,
			file_name TEXT NOT NULL,
			file_url TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (user_id, namespace, file_name)
		)`

	if _, err := c.conn.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

// CreateDocument records one ingested file. Re-ingesting the same file
// into the same folder refreshes the existing record.
func (c *Catalog) CreateDocument(ctx context.Context, doc models.Document) (models.Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	stmt := `
		INSERT INTO documents (id, user_id, namespace, file_name, file_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, namespace, file_name) DO UPDATE SET
			file_url = EXCLUDED.file_url,
			created_at = EXCLUDED.created_at`

	_, err := c.conn.Exec(ctx, stmt,
		doc.ID, doc.UserID, doc.Namespace, doc.FileName, doc.FileURL, doc.CreatedAt)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to record document %q: %w", doc.FileName, err)
	}

	return doc, nil
}

// ListFolders returns the user's distinct namespaces, newest first.
func (c *Catalog) ListFolders(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT namespace
		FROM documents
		WHERE user_id = $1
		GROUP BY namespace
		ORDER BY max(created_at) DESC`

	rows, err := c.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	var folders []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read folders: %w", err)
	}

	return folders, nil
}

// ListFiles returns the documents in one of the user's folders.
func (c *Catalog) ListFiles(ctx context.Context, userID, namespace string) ([]models.Document, error) {
	query := `
		SELECT id, user_id, namespace, file_name, file_url, created_at
		FROM documents
		WHERE user_id = $1 AND namespace = $2
		ORDER BY created_at DESC`

	rows, err := c.conn.Query(ctx, query, userID, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Namespace, &doc.FileName, &doc.FileURL, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	return docs, nil
}

// Close releases the connection pool if the catalog owns one.
func (c *Catalog) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}
