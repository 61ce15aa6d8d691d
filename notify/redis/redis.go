// Package redis implements a Redis pub/sub notifier.
//
// Publishes run-finished events as JSON to a configurable channel. The
// zero-value config sends exactly once: the event fires after the run's
// exit code is already decided, so the default is fail fast rather than
// hold the process open redelivering a courtesy signal.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/glennpratt/retry/notify"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "retry:run_finished"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// Config configures the Redis pub/sub notifier.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: retry:run_finished).
	Channel string
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of redeliveries after a failed publish.
	// Zero means a single attempt.
	Retries int
}

// Notifier publishes run-finished events via Redis PUBLISH.
type Notifier struct {
	config Config
	client *goredis.Client
}

// New creates a Redis pub/sub notifier from the given config.
// Returns an error if the URL is empty or invalid.
func New(cfg Config) (*Notifier, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis notifier requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis notifier: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Notifier{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Publish sends the event as a JSON PUBLISH to the configured channel,
// with a per-attempt timeout carved out of ctx.
func (n *Notifier) Publish(ctx context.Context, event *notify.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	if err := notify.Deliver(ctx, n.config.Retries, func(ctx context.Context) error {
		publishCtx, cancel := context.WithTimeout(ctx, n.config.Timeout)
		defer cancel()
		return n.client.Publish(publishCtx, n.config.Channel, body).Err()
	}); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Close releases notifier resources.
func (n *Notifier) Close() error {
	return n.client.Close()
}

// Verify Notifier implements the notify interface.
var _ notify.Notifier = (*Notifier)(nil)
