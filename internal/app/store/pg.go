/*
Package store implements the durable document store behind the chat engine.

This file defines the optional Postgres backend. The persisted layout is still
a single document: it lives in one JSONB row, and every save replaces that row
in one statement, keeping backend writes atomic.
*/
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// documentRowID is the fixed primary key of the single document row.
const documentRowID = 1

// PgBackend persists the document as one JSONB row in Postgres.
type PgBackend struct {
	pool *pgxpool.Pool
}

// NewPgBackend initializes a connection pool, runs migrations, and returns the backend.
func NewPgBackend(dsn string) (*PgBackend, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := runMigrations(sqlDB); err != nil {
		pool.Close()
		return nil, err
	}

	return &PgBackend{pool: pool}, nil
}

// runMigrations applies all pending migrations from the embedded file system.
func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// Load reads the document row. A missing row yields an empty document.
func (b *PgBackend) Load(ctx context.Context) (*Document, error) {
	var raw []byte

	row := b.pool.QueryRow(ctx, `SELECT doc FROM chat_document WHERE id = $1`, documentRowID)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("failed to load document row: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document row: %w", err)
	}

	return &doc, nil
}

// Save upserts the document row in a single statement.
func (b *PgBackend) Save(ctx context.Context, doc *Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode store document: %w", err)
	}

	_, err = b.pool.Exec(ctx, `
		INSERT INTO chat_document (id, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`, documentRowID, raw)
	if err != nil {
		return fmt.Errorf("failed to save document row: %w", err)
	}

	return nil
}

// Close releases the connection pool.
func (b *PgBackend) Close() {
	b.pool.Close()
}
