package tablestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/core/jsonx"
	"github.com/zeromicro/go-zero/core/logx"
	"gomod.pri/codec/confuse"
	"gomod.pri/codec/snowflake"
	"gomod.pri/codec/xredis"
)

const latestKey = "latest"

type redisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

type RedisStore struct {
	rds    redisAPI
	ids    *snowflake.Generator
	prefix string
	ttl    time.Duration
}

func NewRedisStore(conf RedisConf, ids *snowflake.Generator) *RedisStore {
	rds := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	rds.AddHook(xredis.TracingHook{})

	return newRedisStore(rds, conf, ids)
}

func newRedisStore(rds redisAPI, conf RedisConf, ids *snowflake.Generator) *RedisStore {
	prefix := conf.Prefix
	if prefix == "" {
		prefix = "codec:tables:"
	}
	return &RedisStore{rds: rds, ids: ids, prefix: prefix, ttl: conf.TTL}
}

func (s *RedisStore) Save(ctx context.Context, t *confuse.Tables) (string, error) {
	out, err := assignID(t, s.ids)
	if err != nil {
		return "", err
	}

	val, err := jsonx.MarshalToString(out)
	if err != nil {
		return "", err
	}
	if err = s.rds.Set(ctx, s.prefix+out.ID, val, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("save tables %s: %w", out.ID, err)
	}
	if err = s.rds.Set(ctx, s.prefix+latestKey, out.ID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("mark latest tables %s: %w", out.ID, err)
	}

	logx.WithContext(ctx).Infow("tables saved", logx.Field("id", out.ID), logx.Field("store", "redis"))
	return out.ID, nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*confuse.Tables, error) {
	val, err := s.rds.Get(ctx, s.prefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load tables %s: %w", id, err)
	}

	var t confuse.Tables
	if err = jsonx.UnmarshalFromString(val, &t); err != nil {
		return nil, fmt.Errorf("decode tables %s: %w", id, err)
	}
	if t.ID == "" {
		t.ID = id
	}
	return &t, nil
}

func (s *RedisStore) Latest(ctx context.Context) (*confuse.Tables, error) {
	id, err := s.rds.Get(ctx, s.prefix+latestKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load latest tables id: %w", err)
	}
	return s.Load(ctx, id)
}
