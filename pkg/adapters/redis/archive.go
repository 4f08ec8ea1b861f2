package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/newcast-health/intakeflow/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Archive implements ports.SessionArchive using Redis.
type Archive struct {
	client backend.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures an Archive.
type Option func(*Archive)

// WithTTL sets the expiration for archived sessions.
func WithTTL(ttl time.Duration) Option {
	return func(a *Archive) {
		a.ttl = ttl
	}
}

// WithPrefix sets the key prefix for archived sessions.
func WithPrefix(prefix string) Option {
	return func(a *Archive) {
		a.prefix = prefix
	}
}

// WithClock sets the time source used to score and prune the index.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) {
		a.now = now
	}
}

// NewArchive creates an archive from an existing client.
func NewArchive(client backend.UniversalClient, opts ...Option) *Archive {
	a := &Archive{
		client: client,
		prefix: "intakeflow:session:",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Archive) key(sessionID string) string {
	return a.prefix + sessionID
}

func (a *Archive) indexKey() string {
	return a.prefix + "index"
}

// Save persists the snapshot and records it in the ZSET index scored by expiry.
func (a *Archive) Save(ctx context.Context, sessionID string, fc *domain.FlowContext) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Without a TTL entries never expire from the index.
	score := float64(4102444800) // 2100-01-01
	if a.ttl > 0 {
		score = float64(a.now().Add(a.ttl).Unix())
	}

	pipe := a.client.TxPipeline()
	pipe.Set(ctx, a.key(sessionID), data, a.ttl)
	pipe.ZAdd(ctx, a.indexKey(), backend.Z{Score: score, Member: sessionID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the snapshot.
func (a *Archive) Load(ctx context.Context, sessionID string) (*domain.FlowContext, error) {
	val, err := a.client.Get(ctx, a.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var fc domain.FlowContext
	if err := json.Unmarshal([]byte(val), &fc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &fc, nil
}

// Delete removes the snapshot and its index entry.
func (a *Archive) Delete(ctx context.Context, sessionID string) error {
	pipe := a.client.TxPipeline()
	pipe.Del(ctx, a.key(sessionID))
	pipe.ZRem(ctx, a.indexKey(), sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

// List prunes expired index entries and returns the remaining session ids.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	now := a.now().Unix()
	if err := a.client.ZRemRangeByScore(ctx, a.indexKey(), "-inf", fmt.Sprintf("(%d", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	ids, err := a.client.ZRange(ctx, a.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}
