package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// DefaultAddress is the standalone Milvus gRPC endpoint
const DefaultAddress = "localhost:19530"

// Config holds connection settings. Credentials are sent only when both are set.
type Config struct {
	Address  string
	Username string
	Password string
}

// Client wraps a Milvus connection used for the window index
type Client struct {
	conn client.Client
	addr string
}

// NewClient dials Milvus
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	addr := cfg.Address
	if addr == "" {
		addr = DefaultAddress
	}
	ccfg := client.Config{Address: addr}
	if cfg.Username != "" && cfg.Password != "" {
		ccfg.Username, ccfg.Password = cfg.Username, cfg.Password
	}

	conn, err := client.NewClient(ctx, ccfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus at %s: %w", addr, err)
	}
	return &Client{conn: conn, addr: addr}, nil
}

// Address returns the dialed endpoint
func (c *Client) Address() string { return c.addr }

// Close releases the connection
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// HasCollection reports whether name exists
func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	return c.conn.HasCollection(ctx, name)
}

// LoadCollection makes name searchable
func (c *Client) LoadCollection(ctx context.Context, name string) error {
	if err := c.conn.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("failed to load collection %s: %w", name, err)
	}
	return nil
}

// seal flushes inserted windows, builds the exact cosine index and loads the collection.
// Window collections hold at most a few hundred vectors so FLAT is enough.
func (c *Client) seal(ctx context.Context, name string) error {
	if err := c.conn.Flush(ctx, name, false); err != nil {
		return fmt.Errorf("failed to flush %s: %w", name, err)
	}
	idx, err := entity.NewIndexFlat(entity.COSINE)
	if err != nil {
		return fmt.Errorf("failed to build index params: %w", err)
	}
	if err := c.conn.CreateIndex(ctx, name, FieldEmbedding, idx, false); err != nil {
		return fmt.Errorf("failed to index %s: %w", name, err)
	}
	return c.LoadCollection(ctx, name)
}
