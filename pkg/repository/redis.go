package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/foodshop/pkg/config"
	"github.com/example/foodshop/pkg/models"
	"github.com/go-redis/redis/v8"
)

const (
	pageKeyPrefix = "page:"
	userKeyPrefix = "user:mobile:"
	idemKeyPrefix = "order:idem:"

	idempotencyTTL = 24 * time.Hour
)

type RedisRepository struct {
	client  *redis.Client
	pageTTL time.Duration
	userTTL time.Duration
}

func NewRedisRepository(cfg *config.RedisConfig, cache *config.CacheConfig) *RedisRepository {
	return NewRedisRepositoryFromClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}), cache)
}

func NewRedisRepositoryFromClient(client *redis.Client, cache *config.CacheConfig) *RedisRepository {
	return &RedisRepository{
		client:  client,
		pageTTL: cache.PageTTL,
		userTTL: cache.UserTTL,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

// GetJSON decodes the value at key into dest. It reports false when the key is absent.
func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// Page cache. Each path is a hash; fields are the query variants rendered for that path,
// so invalidating a path drops all of its variants at once.

func pageKey(path string) string {
	return pageKeyPrefix + path
}

func (r *RedisRepository) GetPage(ctx context.Context, path, variant string, dest interface{}) (bool, error) {
	data, err := r.client.HGet(ctx, pageKey(path), variant).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

func (r *RedisRepository) SetPage(ctx context.Context, path, variant string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	key := pageKey(path)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, variant, data)
		pipe.Expire(ctx, key, r.pageTTL)
		return nil
	})
	return err
}

func (r *RedisRepository) InvalidatePaths(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = pageKey(p)
	}
	return r.client.Del(ctx, keys...).Err()
}

// User cache, keyed by mobile number.

func (r *RedisRepository) CacheUser(ctx context.Context, user *models.User) error {
	return r.SetJSON(ctx, userKeyPrefix+user.Mobile, user, r.userTTL)
}

func (r *RedisRepository) GetCachedUser(ctx context.Context, mobile string) (*models.User, bool, error) {
	var user models.User
	ok, err := r.GetJSON(ctx, userKeyPrefix+mobile, &user)
	if err != nil || !ok {
		return nil, false, err
	}
	return &user, true, nil
}

// ForgetUsers drops every cached user.
func (r *RedisRepository) ForgetUsers(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, userKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan user cache: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// Idempotency keys for order placement.

func idemKey(userID, key string) string {
	return fmt.Sprintf("%s%s:%s", idemKeyPrefix, userID, key)
}

func (r *RedisRepository) LookupOrderKey(ctx context.Context, userID, key string) (string, bool, error) {
	orderID, err := r.client.Get(ctx, idemKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return orderID, true, nil
}

// RememberOrderKey stores the order id under the key unless another order claimed it first.
// It returns the order id that owns the key.
func (r *RedisRepository) RememberOrderKey(ctx context.Context, userID, key, orderID string) (string, error) {
	k := idemKey(userID, key)
	ok, err := r.client.SetNX(ctx, k, orderID, idempotencyTTL).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return orderID, nil
	}
	return r.client.Get(ctx, k).Result()
}

func (r *RedisRepository) ForgetOrderKey(ctx context.Context, userID, key string) error {
	return r.client.Del(ctx, idemKey(userID, key)).Err()
}
