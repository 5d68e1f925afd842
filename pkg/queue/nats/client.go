package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tunogya/gametrend/pkg/logging"
)

// Config holds NATS client configuration
type Config struct {
	URL           string
	StreamName    string
	ClientName    string
	MaxReconnects int
	ReconnectWait time.Duration
	MaxAge        time.Duration // stream retention
	AckWait       time.Duration
	MaxDeliver    int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		StreamName:    "GAMETREND",
		ClientName:    "gametrend",
		MaxReconnects: 3,
		ReconnectWait: time.Second,
		MaxAge:        7 * 24 * time.Hour,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
	}
}

// ErrPermanent marks a handler failure that redelivery cannot fix
var ErrPermanent = errors.New("permanent message failure")

// Permanent wraps err so the message is terminated instead of redelivered
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Client wraps a NATS connection and its JetStream context
type Client struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	cfg Config
}

// NewClient connects to cfg.URL with JetStream enabled
func NewClient(cfg Config) (*Client, error) {
	d := DefaultConfig()
	if cfg.StreamName == "" {
		cfg.StreamName = d.StreamName
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = d.AckWait
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = d.MaxDeliver
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = d.MaxAge
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.ClientName),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Client{nc: nc, js: js, cfg: cfg}, nil
}

// CreateStream creates or updates the stream.
// With no subjects the stream captures every gametrend subject.
func (c *Client) CreateStream(ctx context.Context, subjects ...string) error {
	if len(subjects) == 0 {
		subjects = []string{SubjectAll}
	}
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      c.cfg.StreamName,
		Subjects:  subjects,
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
		MaxAge:    c.cfg.MaxAge,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", c.cfg.StreamName, err)
	}
	return nil
}

// Publish publishes raw bytes and waits for the stream ack
func (c *Client) Publish(ctx context.Context, subject string, data []byte) error {
	if _, err := c.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// PublishJSON encodes v and publishes it to subject
func (c *Client) PublishJSON(ctx context.Context, subject string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", subject, err)
	}
	return c.Publish(ctx, subject, data)
}

// MessageHandler processes one message payload
type MessageHandler func(data []byte) error

// Subscribe binds a durable consumer on subject and dispatches messages to handler.
// A nil error acks, a Permanent error terminates and any other error naks for redelivery.
func (c *Client) Subscribe(ctx context.Context, subject, durable string, handler MessageHandler) (jetstream.ConsumeContext, error) {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, c.cfg.StreamName, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.cfg.AckWait,
		MaxDeliver:    c.cfg.MaxDeliver,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer %s: %w", durable, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		settle(msg, handler(msg.Data()))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming %s: %w", subject, err)
	}
	return cc, nil
}

func settle(msg jetstream.Msg, err error) {
	var ackErr error
	switch {
	case err == nil:
		ackErr = msg.Ack()
	case errors.Is(err, ErrPermanent):
		logging.Warn().Err(err).Str("subject", msg.Subject()).Msg("Dropping message")
		ackErr = msg.Term()
	default:
		ackErr = msg.Nak()
	}
	if ackErr != nil {
		logging.Warn().Err(ackErr).Str("subject", msg.Subject()).Msg("Failed to settle message")
	}
}

// Close drains pending publishes and closes the connection
func (c *Client) Close() {
	if c.nc != nil {
		if err := c.nc.Drain(); err != nil {
			c.nc.Close()
		}
	}
}

// IsConnected returns true if connected to NATS
func (c *Client) IsConnected() bool {
	return c.nc != nil && c.nc.IsConnected()
}
