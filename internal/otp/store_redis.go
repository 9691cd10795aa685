package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	platformredis "campusvote/internal/platform/redis"
	"campusvote/pkg/sentinel"
)

// RedisStore keeps pending challenges in Redis so OTP state survives
// restarts and is shared across instances. Expiry is delegated to Redis
// key TTLs.
type RedisStore struct {
	client *platformredis.Client
}

func NewRedisStore(client *platformredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, userID string, channel Channel, rec *Record, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	return s.client.Set(ctx, key(userID, channel), payload, ttl).Err()
}

func (s *RedisStore) Update(ctx context.Context, userID string, channel Channel, rec *Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	// KEEPTTL so the challenge still expires at its original deadline.
	set, err := s.client.SetArgs(ctx, key(userID, channel), payload, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Result()
	if errors.Is(err, redis.Nil) || (err == nil && set == "") {
		return sentinel.ErrNotFound
	}
	return err
}

func (s *RedisStore) Find(ctx context.Context, userID string, channel Channel) (*Record, error) {
	payload, err := s.client.Get(ctx, key(userID, channel)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal otp record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, userID string, channel Channel) error {
	return s.client.Del(ctx, key(userID, channel)).Err()
}
