package artifact

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "modelhub:artifact:"

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(rawURL string) (*RedisStore, error) {
	options, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	return &RedisStore{client: redis.NewClient(options)}, nil
}

func (s *RedisStore) Put(ctx context.Context, data []byte, meta Metadata) (string, error) {
	id := idFor(data, meta)

	// SETNX keeps the first write; later writes carry identical bytes anyway.
	if err := s.client.SetNX(ctx, redisKeyPrefix+id, data, 0).Err(); err != nil {
		return "", fmt.Errorf("failed to store artifact %s: %w", id, err)
	}

	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) ([]byte, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		return nil, fmt.Errorf("failed to load artifact %s: %w", id, err)
	}

	return data, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
