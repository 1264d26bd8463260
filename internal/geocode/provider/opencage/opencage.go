// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package opencage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/wneessen/easyfatt-export/internal/geocode"
	"github.com/wneessen/easyfatt-export/internal/http"
)

const (
	APIEndpoint = "https://api.opencagedata.com/geocode/v1/json"
	APITimeout  = time.Second * 10
	name        = "opencage"
)

var ErrMissingAPIKey = errors.New("an OpenCage API key is required")

type OpenCage struct {
	apikey string
	http   *http.Client
}

type Response struct {
	Results      []Result `json:"results"`
	Status       Status   `json:"status"`
	TotalResults int      `json:"total_results"`
}

type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Result struct {
	Components  Components `json:"components"`
	DisplayName string     `json:"formatted"`
	Geometry    Geometry   `json:"geometry"`
}

type Components struct {
	City        string `json:"city"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	HouseNumber string `json:"house_number"`
	Postcode    string `json:"postcode"`
	Road        string `json:"road"`
	Type        string `json:"_type"`
}

type Geometry struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

func New(client *http.Client, apikey string) (*OpenCage, error) {
	if apikey == "" {
		return nil, ErrMissingAPIKey
	}
	return &OpenCage{
		apikey: apikey,
		http:   client,
	}, nil
}

func (o *OpenCage) Name() string {
	return name
}

func (o *OpenCage) Search(ctx context.Context, address, lang string) ([]geocode.Location, error) {
	var response Response

	query := url.Values{}
	query.Set("key", o.apikey)
	query.Set("q", address)
	query.Set("no_annotations", "1")
	query.Set("no_record", "1")
	query.Set("language", lang)

	code, err := o.http.GetWithTimeout(ctx, APIEndpoint, &response, query, nil, APITimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve locations from OpenCage API: %w", err)
	}
	if code != 200 {
		return nil, fmt.Errorf("received non-positive response code from OpenCage API: %d (%s)", code,
			response.Status.Message)
	}

	locations := make([]geocode.Location, 0, len(response.Results))
	for _, result := range response.Results {
		location := geocode.Location{
			Address:   result.DisplayName,
			Latitude:  result.Geometry.Lat,
			Longitude: result.Geometry.Lon,
		}
		if result.Components.Postcode != "" {
			location.PostalCodes = []string{result.Components.Postcode}
		}
		locations = append(locations, location)
	}
	return locations, nil
}
