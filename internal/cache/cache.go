// Package cache keeps template workbooks in Redis so repeated session opens
// and exports skip the database blob read.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// WorkbookSource loads the workbook bytes of a template.
type WorkbookSource interface {
	TemplateWorkbook(ctx context.Context, id int64) ([]byte, error)
}

// KV is the part of a Redis client the cache uses.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// New connects to Redis. It returns nil when url is empty, meaning caching is
// disabled.
func New(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Workbooks is a read-through cache in front of a WorkbookSource. Template
// workbooks never change after upload, so entries only expire.
type Workbooks struct {
	next   WorkbookSource
	kv     KV
	ttl    time.Duration
	logger *slog.Logger
}

// NewWorkbooks wraps next. Redis failures are logged and fall through to next.
func NewWorkbooks(next WorkbookSource, kv KV, ttl time.Duration, logger *slog.Logger) *Workbooks {
	return &Workbooks{next: next, kv: kv, ttl: ttl, logger: logger}
}

func key(id int64) string { return fmt.Sprintf("xlform:template:%d:workbook", id) }

// TemplateWorkbook returns the template bytes, reading through the cache.
func (w *Workbooks) TemplateWorkbook(ctx context.Context, id int64) ([]byte, error) {
	data, err := w.kv.Get(ctx, key(id)).Bytes()
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		w.logger.WarnContext(ctx, "workbook cache read failed", "template_id", id, "error", err)
	}

	data, err = w.next.TemplateWorkbook(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := w.kv.Set(ctx, key(id), data, w.ttl).Err(); err != nil {
		w.logger.WarnContext(ctx, "workbook cache write failed", "template_id", id, "error", err)
	}
	return data, nil
}
