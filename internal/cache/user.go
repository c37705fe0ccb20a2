package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnhub/learnhub/internal/model"
)

// Cache key prefixes and TTLs.
const (
	userKeyPrefix     = "user:"
	negCacheKeySuffix = ":neg"

	// DefaultUserTTL is the TTL for cached user profiles.
	DefaultUserTTL = 1 * time.Hour

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetUser retrieves a user from cache by ID.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetUser(ctx context.Context, id string) (*model.CachedUser, error) {
	key := userKeyPrefix + id

	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	cached := &model.CachedUser{
		Email:      result["email"],
		FullName:   result["full_name"],
		Roles:      result["roles"],
		Active:     result["active"],
		DeletedAt:  result["deleted_at"],
		LastSeenAt: result["last_seen_at"],
		CreatedAt:  result["created_at"],
		UpdatedAt:  result["updated_at"],
	}

	return cached, nil
}

// SetUser stores a user profile in cache.
func (c *Cache) SetUser(ctx context.Context, user *model.User) error {
	key := userKeyPrefix + user.ID
	cached := user.ToCachedUser()

	fields := map[string]any{
		"email":      cached.Email,
		"full_name":  cached.FullName,
		"roles":      cached.Roles,
		"active":     cached.Active,
		"created_at": cached.CreatedAt,
		"updated_at": cached.UpdatedAt,
	}

	// Only set optional fields if they have values
	if cached.DeletedAt != "" {
		fields["deleted_at"] = cached.DeletedAt
	}
	if cached.LastSeenAt != "" {
		fields["last_seen_at"] = cached.LastSeenAt
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, DefaultUserTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache user: %w", err)
	}

	// Remove negative cache if exists
	c.client.Del(ctx, key+negCacheKeySuffix)

	return nil
}

// DeleteUser removes a user from cache.
func (c *Cache) DeleteUser(ctx context.Context, id string) error {
	key := userKeyPrefix + id

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete user from cache: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if a user ID is in negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, id string) (bool, error) {
	key := userKeyPrefix + id + negCacheKeySuffix

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks a user ID as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, id string) error {
	key := userKeyPrefix + id + negCacheKeySuffix

	if err := c.client.SetEx(ctx, key, "", NegativeCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}
