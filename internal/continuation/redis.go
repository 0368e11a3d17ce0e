package continuation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tiergate/internal/pipeline/ports"
	"tiergate/internal/sentinel"
	id "tiergate/pkg/domain"
)

const defaultKeyPrefix = "tiergate:continuation:"

// RedisStore keeps suspensions in Redis as JSON with a TTL. DEL is the claim:
// only the caller that removes the key sees a count of one.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore creates a store on client.
func NewRedisStore(client redis.Cmdable, opts ...RedisOption) *RedisStore {
	if client == nil {
		panic("continuation.NewRedisStore: redis client is required")
	}
	s := &RedisStore{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(token id.ContinuationToken) string {
	return s.prefix + token.String()
}

// Save writes suspension with the given ttl.
func (s *RedisStore) Save(ctx context.Context, suspension ports.Suspension, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("save continuation %s: ttl must be positive", suspension.Token)
	}
	data, err := json.Marshal(suspension)
	if err != nil {
		return fmt.Errorf("marshal continuation: %w", err)
	}
	if err := s.client.Set(ctx, s.key(suspension.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("save continuation: %w", err)
	}
	return nil
}

// Load reads a suspension, or returns sentinel.ErrNotFound.
func (s *RedisStore) Load(ctx context.Context, token id.ContinuationToken) (*ports.Suspension, error) {
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load continuation: %w", err)
	}

	var suspension ports.Suspension
	if err := json.Unmarshal(data, &suspension); err != nil {
		return nil, fmt.Errorf("decode continuation: %w", err)
	}
	return &suspension, nil
}

// Delete claims token.
func (s *RedisStore) Delete(ctx context.Context, token id.ContinuationToken) error {
	n, err := s.client.Del(ctx, s.key(token)).Result()
	if err != nil {
		return fmt.Errorf("delete continuation: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

var _ ports.ContinuationStore = (*RedisStore)(nil)
