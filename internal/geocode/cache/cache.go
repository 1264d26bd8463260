// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package cache provides the persistent geocode.Store backends.
package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/easyfatt-export/internal/geocode"
	"github.com/wneessen/easyfatt-export/internal/logger"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

const DefaultRedisPrefix = "easyfatt:geocode:"

type Options struct {
	Backend     string
	Path        string
	RedisURL    string
	RedisPrefix string
}

// Compacter is implemented by stores whose storage grows with every write.
type Compacter interface {
	Compact() error
}

// Open returns the store selected by opts.Backend. An empty backend selects the file store.
func Open(ctx context.Context, log *logger.Logger, opts Options) (geocode.Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendFile:
		return OpenFile(log, opts.Path)
	case BackendSQLite:
		return OpenSQLite(ctx, opts.Path)
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisURL, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", opts.Backend)
	}
}
