// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"errors"
	"fmt"
	"strings"
)

const candidateSeparator = "\n → "

// GeocodingError reports an address that could not be resolved to exactly one location.
type GeocodingError struct {
	Address    string
	Reason     string
	Candidates []Location
}

func (e *GeocodingError) Error() string {
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "geocoding %q: %s", e.Address, e.Reason)
	for _, candidate := range e.Candidates {
		b.WriteString(candidateSeparator)
		b.WriteString(candidate.String())
	}
	return b.String()
}

// IsGeocodingError reports whether err wraps a *GeocodingError.
func IsGeocodingError(err error) bool {
	var geoErr *GeocodingError
	return errors.As(err, &geoErr)
}

// AggregateError lists every geocoding error of a batch.
type AggregateError struct {
	Errors []*GeocodingError
}

func (e *AggregateError) Error() string {
	messages := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		messages[i] = err.Error()
	}
	return fmt.Sprintf("%d geocoding errors occurred, fix them and retry:\n\n%s", len(e.Errors),
		strings.Join(messages, "\n\n"))
}

func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}
