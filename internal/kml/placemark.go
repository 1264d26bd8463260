// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package kml

import (
	"cmp"
	"slices"

	"github.com/paulmach/orb"
)

type Style string

const (
	StyleCompany   Style = "Company Home"
	StyleCustomers Style = "Customers"
	StyleSuppliers Style = "Suppliers"
)

// Placemark is a named point on the map. Hidden placemarks are written with visibility 0.
type Placemark struct {
	Name        string
	Point       orb.Point
	Altitude    float64
	Address     string
	Description string
	Hidden      bool
	Style       Style
}

// Sort returns a copy of placemarks ordered by name, keeping only the first of each group of
// identical placemarks.
func Sort(placemarks []Placemark) []Placemark {
	type identity struct {
		name          string
		lon, lat, alt float64
	}
	seen := make(map[identity]struct{}, len(placemarks))
	sorted := make([]Placemark, 0, len(placemarks))
	for _, p := range placemarks {
		id := identity{p.Name, p.Point.Lon(), p.Point.Lat(), p.Altitude}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		sorted = append(sorted, p)
	}
	slices.SortStableFunc(sorted, func(a, b Placemark) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return sorted
}
