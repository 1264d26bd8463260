// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wneessen/easyfatt-export/internal/logger"
	"github.com/wneessen/easyfatt-export/internal/metrics"
)

const DefaultLanguage = "it"

// Chooser lets an operator pick one of several candidates. ok is false if none was chosen.
type Chooser interface {
	Choose(address string, candidates []Location) (location Location, ok bool, err error)
}

// Searcher resolves addresses to exactly one location and caches the result.
type Searcher struct {
	coder      Geocoder
	store      Store
	log        *logger.Logger
	searchType SearchType
	chooser    Chooser
	lang       string
	metrics    *metrics.Metrics
	failures   *failures
}

// failures holds the errors of lookups that failed during the lifetime of a Searcher.
type failures struct {
	mu   sync.Mutex
	errs map[string]*GeocodingError
}

func newFailures() *failures {
	return &failures{errs: make(map[string]*GeocodingError)}
}

func (f *failures) get(key string) (*GeocodingError, bool) {
	if f == nil {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	err, ok := f.errs[key]
	return err, ok
}

func (f *failures) put(key string, err *GeocodingError) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[key] = err
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

func WithSearchType(searchType SearchType) SearcherOption {
	return func(s *Searcher) {
		s.searchType = searchType
	}
}

func WithChooser(chooser Chooser) SearcherOption {
	return func(s *Searcher) {
		s.chooser = chooser
	}
}

func WithLanguage(lang string) SearcherOption {
	return func(s *Searcher) {
		s.lang = lang
	}
}

func WithMetrics(m *metrics.Metrics) SearcherOption {
	return func(s *Searcher) {
		s.metrics = m
	}
}

// WithFailureMemo makes the Searcher remember addresses it could not resolve and return the
// same error for them without asking the provider again. Failures are never persisted.
func WithFailureMemo() SearcherOption {
	return func(s *Searcher) {
		s.failures = newFailures()
	}
}

// NewSearcher returns a strict Searcher. store may be nil to disable caching.
func NewSearcher(coder Geocoder, store Store, log *logger.Logger, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		coder:      coder,
		store:      store,
		log:        log,
		searchType: SearchStrict,
		lang:       DefaultLanguage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithGeocoder returns a copy of s that queries coder instead.
func (s *Searcher) WithGeocoder(coder Geocoder) *Searcher {
	clone := *s
	clone.coder = coder
	if s.failures != nil {
		clone.failures = newFailures()
	}
	return &clone
}

type lookupOptions struct {
	cache  bool
	params map[string]string
}

// LookupOption configures a single lookup.
type LookupOption func(*lookupOptions)

// WithoutCache disables cache reads and writes for one lookup.
func WithoutCache() LookupOption {
	return func(o *lookupOptions) {
		o.cache = false
	}
}

// WithParam includes a call parameter in the cache fingerprint.
func WithParam(key, value string) LookupOption {
	return func(o *lookupOptions) {
		o.params[key] = value
	}
}

// Lookup resolves address to a single location.
func (s *Searcher) Lookup(ctx context.Context, address string, opts ...LookupOption) (Location, error) {
	options := &lookupOptions{cache: s.store != nil, params: make(map[string]string)}
	for _, opt := range opts {
		opt(options)
	}
	options.cache = options.cache && s.store != nil
	key := Fingerprint(address, options.params)

	if options.cache {
		location, ok, err := s.store.Get(ctx, key)
		if err != nil {
			return Location{}, fmt.Errorf("failed to read geocoding cache: %w", err)
		}
		if ok {
			s.metrics.Lookup(metrics.LookupHit)
			s.log.Debug("geocoding cache hit", "address", address)
			return location, nil
		}
	}

	if geoErr, ok := s.failures.get(key); ok {
		s.log.Debug("skipping address that failed before", "address", address)
		return Location{}, geoErr
	}

	s.log.Debug("searching location", "address", address, "search_type", string(s.searchType),
		"provider", s.coder.Name())
	s.metrics.Lookup(metrics.LookupMiss)
	location, err := s.search(ctx, address)
	if err != nil {
		var geoErr *GeocodingError
		if errors.As(err, &geoErr) {
			s.metrics.Lookup(metrics.LookupError)
			s.failures.put(key, geoErr)
		}
		return Location{}, err
	}
	s.log.Debug("found location", "address", address, "location", location.String())

	if options.cache {
		if err = s.store.Put(ctx, key, location); err != nil {
			return Location{}, fmt.Errorf("failed to write geocoding cache: %w", err)
		}
	}
	return location, nil
}

func (s *Searcher) search(ctx context.Context, address string) (Location, error) {
	query := cases.Title(language.Italian).String(address)
	candidates, err := s.coder.Search(ctx, query, s.lang)
	if err != nil {
		return Location{}, fmt.Errorf("geocoding %q with %s failed: %w", query, s.coder.Name(), err)
	}
	if len(candidates) == 0 {
		return Location{}, &GeocodingError{Address: address, Reason: "location not found"}
	}

	switch s.searchType {
	case SearchManual:
		return s.choose(address, candidates)
	case SearchPostcode:
		return postcodeMatch(address, query, candidates)
	default:
		if len(candidates) > 1 {
			return Location{}, &GeocodingError{Address: address, Reason: "too many locations found",
				Candidates: candidates}
		}
		return candidates[0], nil
	}
}

func (s *Searcher) choose(address string, candidates []Location) (Location, error) {
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	if s.chooser == nil {
		return Location{}, errors.New("manual search type requires an interactive chooser")
	}
	location, ok, err := s.chooser.Choose(address, candidates)
	if err != nil {
		return Location{}, fmt.Errorf("failed to choose location: %w", err)
	}
	if !ok {
		return Location{}, &GeocodingError{Address: address, Reason: "no location selected", Candidates: candidates}
	}
	return location, nil
}

// postcodeMatch keeps the candidates whose postal code is one of the tokens of address.
// Candidates without postal code, such as provinces or cities, are ignored.
func postcodeMatch(address, query string, candidates []Location) (Location, error) {
	tokens := strings.Fields(strings.ReplaceAll(address, ",", " "))
	var matching []Location
	for _, candidate := range candidates {
		switch len(candidate.PostalCodes) {
		case 0:
			continue
		case 1:
		default:
			return Location{}, &GeocodingError{Address: address,
				Reason: fmt.Sprintf("too many postal codes found for %q: %v", query, candidate.PostalCodes)}
		}
		if slices.Contains(tokens, candidate.PostalCodes[0]) {
			matching = append(matching, candidate)
		}
	}

	switch len(matching) {
	case 0:
		return Location{}, &GeocodingError{Address: address, Reason: "no locations found with the right postal code",
			Candidates: candidates}
	case 1:
		return matching[0], nil
	default:
		return Location{}, &GeocodingError{Address: address,
			Reason: fmt.Sprintf("too many locations found (%d) with the same postal code", len(matching)),
			Candidates: matching}
	}
}
