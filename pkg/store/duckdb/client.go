package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// Client owns the database handle shared by every repo
type Client struct {
	db *sql.DB
}

// NewClient opens path, a database file or MemoryPath, and pings it.
// An empty path opens a private in-memory database.
func NewClient(path string) (*Client, error) {
	if path == "" {
		path = MemoryPath
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb %s: %w", path, err)
	}
	if path == MemoryPath {
		// each connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping duckdb %s: %w", path, err)
	}
	return &Client{db: db}, nil
}

// Open returns a client with the schema in place
func Open(path string) (*Client, error) {
	c, err := NewClient(path)
	if err != nil {
		return nil, err
	}
	if err := InitializeSchema(c); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the handle
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Client) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.db.ExecContext(ctx, query, args...)
	return err
}

func (c *Client) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

func (c *Client) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

func (c *Client) Begin(ctx context.Context) (*sql.Tx, error) {
	return c.db.BeginTx(ctx, nil)
}

// batch runs fn once per item inside a single transaction using a prepared statement
func batch[T any](ctx context.Context, c *Client, query string, items []T, fn func(*sql.Stmt, T) error) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := c.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for i, item := range items {
		if err := fn(stmt, item); err != nil {
			return fmt.Errorf("batch item %d: %w", i, err)
		}
	}
	return tx.Commit()
}
