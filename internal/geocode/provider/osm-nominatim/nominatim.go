// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package nominatim

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/wneessen/easyfatt-export/internal/geocode"
	"github.com/wneessen/easyfatt-export/internal/http"
)

const (
	APISearchEndpoint = "https://nominatim.openstreetmap.org/search"
	APITimeout        = time.Second * 10
	name              = "osm-nominatim"
)

type Nominatim struct {
	http *http.Client
}

type SearchResult struct {
	APILat      string  `json:"lat"`
	APILon      string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Address     Address `json:"address"`
}

type Address struct {
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	Postcode    string `json:"postcode"`
	Country     string `json:"country"`
}

func New(client *http.Client) *Nominatim {
	return &Nominatim{
		http: client,
	}
}

func (n *Nominatim) Name() string {
	return name
}

func (n *Nominatim) Search(ctx context.Context, address, lang string) ([]geocode.Location, error) {
	var results []SearchResult

	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("addressdetails", "1")
	query.Set("q", address)
	query.Set("accept-language", lang)

	code, err := n.http.GetWithTimeout(ctx, APISearchEndpoint, &results, query, nil, APITimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch address details from Nominatim API: %w", err)
	}
	if code != 200 {
		return nil, fmt.Errorf("received non-positive response code from Nominatim API: %d", code)
	}

	locations := make([]geocode.Location, 0, len(results))
	for _, result := range results {
		location := geocode.Location{Address: result.DisplayName}
		location.Latitude, err = strconv.ParseFloat(result.APILat, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse latitude from Nominatim API response: %w", err)
		}
		location.Longitude, err = strconv.ParseFloat(result.APILon, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse longitude from Nominatim API response: %w", err)
		}
		if result.Address.Postcode != "" {
			location.PostalCodes = []string{result.Address.Postcode}
		}
		locations = append(locations, location)
	}
	return locations, nil
}
