// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package shipping

import (
	"fmt"

	"github.com/wneessen/easyfatt-export/internal/document"
	"github.com/wneessen/easyfatt-export/internal/logger"
)

// Source tells where a resolved interval came from.
type Source int

const (
	SourceOrder Source = iota
	SourceProfile
	SourceDefault
)

func (s Source) String() string {
	switch s {
	case SourceOrder:
		return "order"
	case SourceProfile:
		return "profile"
	default:
		return "default"
	}
}

// Resolver picks the shipping interval of a document. A valid interval in the order custom
// field wins over the customer profile, which wins over the default.
type Resolver struct {
	log        *logger.Logger
	orderField int
	profiles   map[string]string
	fallback   string
}

// NewResolver returns a Resolver. profiles maps customer codes to normalized intervals and
// may be nil. fallback must be a valid interval.
func NewResolver(log *logger.Logger, orderField int, profiles map[string]string, fallback string) (*Resolver, error) {
	normalized, ok := Normalize(fallback)
	if !ok {
		return nil, fmt.Errorf("invalid default shipping interval %q", fallback)
	}
	if profiles == nil {
		profiles = make(map[string]string)
	}
	return &Resolver{
		log:        log,
		orderField: orderField,
		profiles:   profiles,
		fallback:   normalized,
	}, nil
}

// Resolve returns the interval for doc and where it came from.
func (r *Resolver) Resolve(doc document.Document) (string, Source) {
	code := doc.CustomerCode()
	if interval, ok := Normalize(doc.CustomField(r.orderField)); ok {
		r.log.Debug("shipping interval taken from order", "customer", code, "interval", interval)
		return interval, SourceOrder
	}
	if interval, ok := r.profiles[code]; ok && interval != "" {
		r.log.Debug("shipping interval taken from customer profile", "customer", code, "interval", interval)
		return interval, SourceProfile
	}
	r.log.Debug("shipping interval taken from default", "customer", code, "interval", r.fallback)
	return r.fallback, SourceDefault
}
