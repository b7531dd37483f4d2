package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fisker/salesflow/pkg/logger"
)

const formCacheKeyPrefix = "salesflow:form:"

// FormCache 表单名 -> 表单ID 缓存
type FormCache interface {
	Get(ctx context.Context, formName string) (int64, bool)
	Set(ctx context.Context, formName string, formID int64)
	Invalidate(ctx context.Context, formNames ...string) error
}

// NoopFormCache Redis 未启用时使用，每次都查询数据库
type NoopFormCache struct{}

func (NoopFormCache) Get(context.Context, string) (int64, bool) { return 0, false }

func (NoopFormCache) Set(context.Context, string, int64) {}

func (NoopFormCache) Invalidate(context.Context, ...string) error { return nil }

// RedisFormCache 基于 Redis 的表单ID缓存
// 只缓存表单ID，审批人集合每次都实时查询
type RedisFormCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFormCache 根据 Redis 是否可用返回对应的缓存实现
func NewFormCache(client *redis.Client, ttl time.Duration) FormCache {
	if client == nil {
		return NoopFormCache{}
	}
	return &RedisFormCache{client: client, ttl: ttl}
}

func (c *RedisFormCache) Get(ctx context.Context, formName string) (int64, bool) {
	val, err := c.client.Get(ctx, formCacheKeyPrefix+formName).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warnf("[FormCache] get %q failed: %v", formName, err)
		}
		return 0, false
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (c *RedisFormCache) Set(ctx context.Context, formName string, formID int64) {
	if err := c.client.Set(ctx, formCacheKeyPrefix+formName, formID, c.ttl).Err(); err != nil {
		logger.Warnf("[FormCache] set %q failed: %v", formName, err)
	}
}

// Invalidate 删除指定表单的缓存，未指定时删除全部
func (c *RedisFormCache) Invalidate(ctx context.Context, formNames ...string) error {
	keys := make([]string, 0, len(formNames))
	for _, name := range formNames {
		keys = append(keys, formCacheKeyPrefix+name)
	}
	if len(keys) == 0 {
		iter := c.client.Scan(ctx, 0, formCacheKeyPrefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
