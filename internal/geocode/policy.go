// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wneessen/easyfatt-export/internal/logger"
)

// OnError is the policy applied to geocoding errors of a batch.
type OnError string

const (
	OnErrorAbort   OnError = "abort"
	OnErrorSkip    OnError = "skip"
	OnErrorCollect OnError = "collect"
)

// ParseOnError parses a policy name, ignoring case.
func ParseOnError(value string) (OnError, error) {
	switch policy := OnError(strings.ToLower(strings.TrimSpace(value))); policy {
	case OnErrorAbort, OnErrorSkip, OnErrorCollect:
		return policy, nil
	default:
		return "", fmt.Errorf("invalid error policy %q, valid values are abort, skip and collect", value)
	}
}

// Collector applies an OnError policy to the errors of a batch. Only *GeocodingError values
// are subject to the policy, every other error is returned as is.
type Collector struct {
	policy OnError
	log    *logger.Logger
	errs   []*GeocodingError
}

func NewCollector(policy OnError, log *logger.Logger) *Collector {
	return &Collector{policy: policy, log: log}
}

// Handle returns nil if the batch may continue after err, and the error to stop with
// otherwise.
func (c *Collector) Handle(err error) error {
	if err == nil {
		return nil
	}
	var geoErr *GeocodingError
	if !errors.As(err, &geoErr) {
		return err
	}
	switch c.policy {
	case OnErrorSkip:
		c.log.Warn("skipping address that could not be geocoded", "address", geoErr.Address,
			"reason", geoErr.Reason)
		return nil
	case OnErrorCollect:
		c.log.Warn("geocoding failed", "address", geoErr.Address, "reason", geoErr.Reason)
		c.errs = append(c.errs, geoErr)
		return nil
	default:
		return err
	}
}

// Len returns the number of collected errors.
func (c *Collector) Len() int {
	return len(c.errs)
}

// Err returns an *AggregateError of all collected errors, or nil.
func (c *Collector) Err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return &AggregateError{Errors: c.errs}
}
