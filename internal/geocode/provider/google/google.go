// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package google

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/wneessen/easyfatt-export/internal/geocode"
	"github.com/wneessen/easyfatt-export/internal/http"
)

const (
	APIEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"
	APITimeout  = time.Second * 10
	name        = "google"

	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

var ErrMissingAPIKey = errors.New("a Google API key is required")

type Google struct {
	apikey string
	http   *http.Client
}

type Response struct {
	Results      []Result `json:"results"`
	Status       string   `json:"status"`
	ErrorMessage string   `json:"error_message"`
}

type Result struct {
	FormattedAddress string      `json:"formatted_address"`
	Components       []Component `json:"address_components"`
	Geometry         Geometry    `json:"geometry"`
}

type Component struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type Geometry struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

func New(client *http.Client, apikey string) (*Google, error) {
	if apikey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Google{
		apikey: apikey,
		http:   client,
	}, nil
}

func (g *Google) Name() string {
	return name
}

func (g *Google) Search(ctx context.Context, address, lang string) ([]geocode.Location, error) {
	var response Response

	query := url.Values{}
	query.Set("key", g.apikey)
	query.Set("address", address)
	query.Set("language", lang)

	code, err := g.http.GetWithTimeout(ctx, APIEndpoint, &response, query, nil, APITimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve locations from Google Geocoding API: %w", err)
	}
	if code != 200 {
		return nil, fmt.Errorf("received non-positive response code from Google Geocoding API: %d", code)
	}
	switch response.Status {
	case statusOK:
	case statusZeroResults:
		return nil, nil
	default:
		return nil, fmt.Errorf("google Geocoding API returned status %s: %s", response.Status,
			response.ErrorMessage)
	}

	locations := make([]geocode.Location, 0, len(response.Results))
	for _, result := range response.Results {
		location := geocode.Location{
			Address:   result.FormattedAddress,
			Latitude:  result.Geometry.Location.Lat,
			Longitude: result.Geometry.Location.Lng,
		}
		for _, component := range result.Components {
			if slices.Contains(component.Types, "postal_code") {
				location.PostalCodes = append(location.PostalCodes, component.LongName)
			}
		}
		locations = append(locations, location)
	}
	return locations, nil
}
