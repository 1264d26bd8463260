// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocodeearth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/wneessen/easyfatt-export/internal/geocode"
	"github.com/wneessen/easyfatt-export/internal/http"
)

const (
	APIEndpoint = "https://api.geocode.earth/v1/search"
	APITimeout  = time.Second * 10
	name        = "geocode-earth"
)

var ErrMissingAPIKey = errors.New("a geocode.earth API key is required")

// GeocodeEarth queries the Pelias based geocode.earth search API. Responses are
// GeoJSON feature collections.
type GeocodeEarth struct {
	apikey string
	http   *http.Client
}

func New(client *http.Client, apikey string) (*GeocodeEarth, error) {
	if apikey == "" {
		return nil, ErrMissingAPIKey
	}
	return &GeocodeEarth{
		apikey: apikey,
		http:   client,
	}, nil
}

func (g *GeocodeEarth) Name() string {
	return name
}

func (g *GeocodeEarth) Search(ctx context.Context, address, lang string) ([]geocode.Location, error) {
	response := geojson.NewFeatureCollection()

	query := url.Values{}
	query.Set("api_key", g.apikey)
	query.Set("text", address)
	query.Set("lang", lang)

	code, err := g.http.GetWithTimeout(ctx, APIEndpoint, response, query, nil, APITimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve locations from geocode.earth API: %w", err)
	}
	if code != 200 {
		return nil, fmt.Errorf("received non-positive response code from geocode.earth API: %d", code)
	}

	locations := make([]geocode.Location, 0, len(response.Features))
	for _, feature := range response.Features {
		point, ok := feature.Geometry.(orb.Point)
		if !ok {
			continue
		}
		location := geocode.Location{
			Address:   feature.Properties.MustString("label", ""),
			Latitude:  point.Lat(),
			Longitude: point.Lon(),
		}
		if postcode := feature.Properties.MustString("postalcode", ""); postcode != "" {
			location.PostalCodes = []string{postcode}
		}
		locations = append(locations, location)
	}
	return locations, nil
}
