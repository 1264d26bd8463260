// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/easyfatt-export/internal/geocode"
	"github.com/wneessen/easyfatt-export/internal/geocode/cache"
	geocodeearth "github.com/wneessen/easyfatt-export/internal/geocode/provider/geocode-earth"
	"github.com/wneessen/easyfatt-export/internal/geocode/provider/google"
	"github.com/wneessen/easyfatt-export/internal/geocode/provider/opencage"
	nominatim "github.com/wneessen/easyfatt-export/internal/geocode/provider/osm-nominatim"
	"github.com/wneessen/easyfatt-export/internal/logger"
	"github.com/wneessen/easyfatt-export/internal/registry"
)

func (s *Service) selectGeocodeProvider() (geocode.Geocoder, error) {
	conf := s.config.Features.KMLGeneration
	switch strings.ToLower(conf.Provider) {
	case "google":
		coder, err := google.New(s.http, conf.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Google geocoder: %w", err)
		}
		return coder, nil
	case "opencage":
		coder, err := opencage.New(s.http, conf.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenCage geocoder: %w", err)
		}
		return coder, nil
	case "nominatim":
		return nominatim.New(s.http), nil
	case "geocode-earth":
		coder, err := geocodeearth.New(s.http, conf.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create geocode.earth geocoder: %w", err)
		}
		return coder, nil
	default:
		return nil, fmt.Errorf("unsupported geocoder type: %s", conf.Provider)
	}
}

// openSearcher returns a rate limited searcher backed by the configured cache. The caller
// must close the returned store.
func (s *Service) openSearcher(ctx context.Context) (*geocode.Searcher, geocode.Store, error) {
	conf := s.config.Features.KMLGeneration
	searchType, err := geocode.ParseSearchType(conf.LocationSearchType)
	if err != nil {
		return nil, nil, err
	}
	coder, err := s.geocoder()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create geocode provider: %w", err)
	}
	store, err := cache.Open(ctx, s.logger, cache.Options{
		Backend:     s.config.Cache.Backend,
		Path:        s.config.Cache.Path,
		RedisURL:    s.config.Cache.RedisURL,
		RedisPrefix: s.config.Cache.RedisPrefix,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open geocoding cache: %w", err)
	}
	s.logger.Debug("geocoding configured", "provider", coder.Name(), "search_type", string(searchType),
		"cache", s.config.Cache.Backend, "requests_per_second", conf.RequestsPerSecond)

	searcher := geocode.NewSearcher(geocode.NewRateLimited(coder, conf.RequestsPerSecond), store, s.logger,
		geocode.WithSearchType(searchType),
		geocode.WithChooser(s.prompt),
		geocode.WithMetrics(s.metrics),
		geocode.WithFailureMemo(),
	)
	return searcher, store, nil
}

func (s *Service) closeStore(store geocode.Store) {
	if err := store.Close(); err != nil {
		s.logger.Error("failed to close geocoding cache", logger.Err(err))
	}
}

// compactStore rewrites stores that grow with every write.
func (s *Service) compactStore(store geocode.Store) {
	compacter, ok := store.(cache.Compacter)
	if !ok {
		return
	}
	if err := compacter.Compact(); err != nil {
		s.logger.Warn("failed to compact geocoding cache", logger.Err(err))
	}
}

func (s *Service) loadAddresses(ctx context.Context) ([]registry.Address, error) {
	conf := s.config.Easyfatt.Database
	opts := registry.Options{
		Driver:   conf.Driver,
		Filename: conf.Filename,
		DSN:      conf.DSN,
		Host:     conf.Host,
		User:     conf.User,
		Password: conf.Password,
	}
	dsn, err := opts.DataSource()
	if err != nil {
		return nil, err
	}
	reg, err := registry.Open(ctx, s.logger, conf.Driver, dsn)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reg.Close(); err != nil {
			s.logger.Error("failed to close registry database", logger.Err(err))
		}
	}()

	addresses, err := reg.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("registry addresses loaded", "addresses", len(addresses), "driver", conf.Driver)
	return addresses, nil
}
