// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package kml writes the customer and supplier map as KML 2.2 or GeoJSON.
package kml

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-kml/v3"
)

const (
	DocumentName    = "Estrazione clienti e fornitori"
	FolderCustomers = "Clienti"
	FolderSuppliers = "Fornitori"

	timestampFormat = "02-01-2006 15:04:05"
	labelColor      = "#ffffff"
)

// PointStyle describes the icon of a placemark style.
type PointStyle struct {
	Name  Style
	Icon  *url.URL
	Color string
	Scale float64
}

var (
	rangerStation = &url.URL{Scheme: "https", Host: "maps.google.com", Path: "/mapfiles/kml/shapes/ranger_station.png"}
	redCircle     = &url.URL{Scheme: "https", Host: "maps.google.com", Path: "/mapfiles/kml/paddle/red-circle.png"}
)

var Styles = []PointStyle{
	{StyleCompany, rangerStation, "#77c8d1", 1.0},
	{StyleCustomers, redCircle, "#ff0000", 1.0},
	{StyleSuppliers, redCircle, "#ffff00", 1.0},
}

var folderDescriptions = map[string]string{
	FolderCustomers: "Elenco completo delle anagrafiche clienti",
	FolderSuppliers: "Elenco completo delle anagrafiche fornitori",
}

// Document is the map with its two folders. The folders are sorted and deduplicated on
// creation.
type Document struct {
	Name        string
	Description string
	Customers   []Placemark
	Suppliers   []Placemark
}

func New(generated time.Time, customers, suppliers []Placemark) *Document {
	return &Document{
		Name: DocumentName,
		Description: fmt.Sprintf("Questo KML è stato generato automaticamente da easyfatt-export il %s.",
			generated.Format(timestampFormat)),
		Customers: Sort(customers),
		Suppliers: Sort(suppliers),
	}
}

// Encode writes the document as indented KML 2.2.
func (d *Document) Encode(w io.Writer) error {
	children := []kml.Element{
		kml.Name(d.Name),
		kml.Open(true),
		kml.Description(d.Description),
	}
	for _, style := range Styles {
		children = append(children, kml.SharedStyle(styleID(style.Name),
			kml.IconStyle(
				kml.Color(Color(style.Color)),
				kml.Scale(style.Scale),
				kml.Icon(kml.Href(style.Icon)),
			),
			kml.LabelStyle(
				kml.Color(Color(labelColor)),
				kml.Scale(1.0),
			),
		))
	}
	children = append(children,
		folder(FolderCustomers, d.Customers),
		folder(FolderSuppliers, d.Suppliers),
	)

	if err := kml.KML(kml.Document(children...)).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to encode KML document: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("failed to write KML document: %w", err)
	}
	return nil
}

func folder(name string, placemarks []Placemark) kml.Element {
	children := make([]kml.Element, 0, len(placemarks)+3)
	children = append(children,
		kml.Name(name),
		kml.Open(false),
		kml.Description(folderDescriptions[name]),
	)
	for _, p := range placemarks {
		children = append(children, placemark(p))
	}
	return kml.Folder(children...)
}

func placemark(p Placemark) kml.Element {
	children := []kml.Element{
		kml.Name(p.Name),
		kml.Visibility(!p.Hidden),
	}
	if p.Address != "" {
		children = append(children, kml.Address(p.Address))
	}
	if p.Description != "" {
		children = append(children, kml.Description(p.Description))
	}
	if p.Style != "" {
		children = append(children, kml.StyleURL("#"+styleID(p.Style)))
	}
	children = append(children, kml.Point(
		kml.Coordinates(kml.Coordinate{Lon: p.Point.Lon(), Lat: p.Point.Lat(), Alt: p.Altitude}),
	))
	return kml.Placemark(children...)
}

// styleID turns a style name into a valid XML id.
func styleID(style Style) string {
	return strings.ReplaceAll(string(style), " ", "_")
}

// Color parses a #rrggbb color. Malformed colors are opaque white.
func Color(rgb string) color.NRGBA {
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	rgb = strings.TrimPrefix(rgb, "#")
	if len(rgb) != 6 {
		return white
	}
	value, err := strconv.ParseUint(rgb, 16, 32)
	if err != nil {
		return white
	}
	return color.NRGBA{R: uint8(value >> 16), G: uint8(value >> 8), B: uint8(value), A: 0xff}
}

// EncodeGeoJSON writes the placemarks of both folders as an indented GeoJSON
// FeatureCollection.
func (d *Document) EncodeGeoJSON(w io.Writer) error {
	collection := geojson.NewFeatureCollection()
	for _, group := range []struct {
		name       string
		placemarks []Placemark
	}{{FolderCustomers, d.Customers}, {FolderSuppliers, d.Suppliers}} {
		for _, p := range group.placemarks {
			feature := geojson.NewFeature(p.Point)
			feature.Properties["name"] = p.Name
			feature.Properties["folder"] = group.name
			feature.Properties["style"] = string(p.Style)
			feature.Properties["hidden"] = p.Hidden
			if p.Address != "" {
				feature.Properties["address"] = p.Address
			}
			collection.Append(feature)
		}
	}

	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	data = append(data, '\n')
	if _, err = w.Write(data); err != nil {
		return fmt.Errorf("failed to write GeoJSON: %w", err)
	}
	return nil
}
