// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerSecond is the request rate of bulk geocoding.
const DefaultRequestsPerSecond = 5

// RateLimited is a Geocoder that blocks until the shared limiter allows the next request.
// Provider errors are passed through unchanged.
type RateLimited struct {
	coder   Geocoder
	limiter *rate.Limiter
}

func NewRateLimited(coder Geocoder, perSecond float64) *RateLimited {
	if perSecond <= 0 {
		perSecond = DefaultRequestsPerSecond
	}
	return &RateLimited{
		coder:   coder,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

func (r *RateLimited) Name() string {
	return r.coder.Name()
}

func (r *RateLimited) Search(ctx context.Context, query, lang string) ([]Location, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return r.coder.Search(ctx, query, lang)
}
