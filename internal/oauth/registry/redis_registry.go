package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/connectors/internal/errors"
	oauthDomain "github.com/allisson/connectors/internal/oauth/domain"
)

// DefaultRedisKeyPrefix namespaces nonce keys in a shared Redis.
const DefaultRedisKeyPrefix = "connectors:oauth:nonce:"

// redisNonce is the JSON value stored under each nonce key.
type redisNonce struct {
	TenantID  string `json:"tenant_id"`
	Provider  string `json:"provider"`
	CreatedAt int64  `json:"created_at"`
}

// RedisRegistry stores nonces in Redis so every instance sees the same entries.
//
// Register is SET NX PX and Consume is GETDEL, both single atomic commands. Expiry is left
// to Redis, which makes Sweep a no-op.
type RedisRegistry struct {
	client *redis.Client
	prefix string
	maxAge time.Duration
	now    func() time.Time
}

// NewRedisRegistry creates a registry on top of an existing client.
func NewRedisRegistry(client *redis.Client, maxAge time.Duration) *RedisRegistry {
	return &RedisRegistry{
		client: client,
		prefix: DefaultRedisKeyPrefix,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, fmt.Sprintf("failed to ping redis: %v", err))
	}
	return client, nil
}

func (r *RedisRegistry) key(nonce string) string {
	return r.prefix + nonce
}

func (r *RedisRegistry) Register(ctx context.Context, nonce, tenantID, provider string) error {
	value, err := json.Marshal(redisNonce{
		TenantID:  tenantID,
		Provider:  provider,
		CreatedAt: r.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal nonce: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.key(nonce), value, r.maxAge).Result()
	if err != nil {
		return fmt.Errorf("failed to register nonce: %w", err)
	}
	if !ok {
		return oauthDomain.ErrNonceExists
	}
	return nil
}

func (r *RedisRegistry) Consume(ctx context.Context, nonce string) (*oauthDomain.Nonce, error) {
	raw, err := r.client.GetDel(ctx, r.key(nonce)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, oauthDomain.ErrNonceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume nonce: %w", err)
	}

	var stored redisNonce
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, oauthDomain.ErrNonceNotFound
	}

	entry := &oauthDomain.Nonce{
		Value:     nonce,
		TenantID:  stored.TenantID,
		Provider:  stored.Provider,
		CreatedAt: time.UnixMilli(stored.CreatedAt),
	}
	if entry.Expired(r.now(), r.maxAge) {
		return nil, oauthDomain.ErrNonceNotFound
	}
	return entry, nil
}

// Sweep relies on key TTLs and always returns zero.
func (r *RedisRegistry) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}
