// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"fmt"
	"strings"
)

// Location is a geocoding candidate.
type Location struct {
	Address     string   `json:"address"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Altitude    float64  `json:"altitude"`
	PostalCodes []string `json:"postal_codes,omitempty"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s (lat: %f, lon: %f)", l.Address, l.Latitude, l.Longitude)
}

// Geocoder resolves a free text address to all matching candidates.
type Geocoder interface {
	Name() string
	Search(ctx context.Context, query, lang string) ([]Location, error)
}

// SearchType controls how a single location is picked from the candidates.
type SearchType string

const (
	SearchStrict   SearchType = "strict"
	SearchManual   SearchType = "manual"
	SearchPostcode SearchType = "postcode"
)

// ParseSearchType parses a search type name, ignoring case.
func ParseSearchType(value string) (SearchType, error) {
	switch st := SearchType(strings.ToLower(strings.TrimSpace(value))); st {
	case SearchStrict, SearchManual, SearchPostcode:
		return st, nil
	default:
		return "", fmt.Errorf("invalid search type %q, valid values are strict, manual and postcode", value)
	}
}
