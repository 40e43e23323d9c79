package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
	"github.com/aman-zulfiqar/arb-social-trading/internal/storage"
)

// RedisCache caches token listings under constants.RedisKeyTokensPrefix.
type RedisCache struct {
	client *redis.Client
}

var _ storage.TokenCache = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func tokensKey(key string) string {
	return constants.RedisKeyTokensPrefix + key
}

func (r *RedisCache) GetTokens(ctx context.Context, key string) ([]models.Token, bool, error) {
	raw, err := r.client.Get(ctx, tokensKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get tokens: %w", err)
	}

	var tokens []models.Token
	if err := json.Unmarshal(raw, &tokens); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next set.
		return nil, false, nil
	}
	return tokens, true, nil
}

func (r *RedisCache) SetTokens(ctx context.Context, key string, tokens []models.Token, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = constants.TokenCacheTTL
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, tokensKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set tokens: %w", err)
	}
	return nil
}
