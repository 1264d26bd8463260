// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/wneessen/easyfatt-export/internal/geocode"
)

// Redis stores every location as a JSON string under prefix+fingerprint. Keys never expire.
type Redis struct {
	client *redis.Client
	prefix string
}

func OpenRedis(ctx context.Context, url, prefix string) (*Redis, error) {
	if url == "" {
		return nil, errors.New("redis cache requires a URL")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (geocode.Location, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return geocode.Location{}, false, nil
	}
	if err != nil {
		return geocode.Location{}, false, fmt.Errorf("failed to read location from redis: %w", err)
	}
	var location geocode.Location
	if err = json.Unmarshal(data, &location); err != nil {
		return geocode.Location{}, false, fmt.Errorf("failed to decode cached location: %w", err)
	}
	return location, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, location geocode.Location) error {
	data, err := json.Marshal(location)
	if err != nil {
		return fmt.Errorf("failed to encode location: %w", err)
	}
	if err = r.client.Set(ctx, r.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store location in redis: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
