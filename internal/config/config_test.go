// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"log/slog"
	"slices"
	"testing"
)

const testDataDir = "../../testdata"

func TestNew(t *testing.T) {
	const (
		expectLogLevel        = slog.LevelInfo
		expectInput           = "Documenti.DefXml"
		expectCSV             = "Documenti.csv"
		expectKML             = "output.kml"
		expectCustomField     = 1
		expectOrderField      = 4
		expectDefaultInterval = "07:00-16:00"
		expectSearchType      = "strict"
		expectOnError         = "collect"
		expectProvider        = "google"
		expectCacheBackend    = "file"
	)
	t.Run("new config with all defaults set", func(t *testing.T) {
		t.Chdir(t.TempDir())
		conf, err := New()
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.Level() != expectLogLevel {
			t.Errorf("expected log level to be: %s, got %s", expectLogLevel, conf.Level())
		}
		if conf.Files.Input.Easyfatt != expectInput {
			t.Errorf("expected input file to be: %s, got %s", expectInput, conf.Files.Input.Easyfatt)
		}
		if conf.Files.Input.Addition != "" {
			t.Errorf("expected no addition file, got %s", conf.Files.Input.Addition)
		}
		if conf.Files.Output.CSV != expectCSV {
			t.Errorf("expected CSV output to be: %s, got %s", expectCSV, conf.Files.Output.CSV)
		}
		if conf.Files.Output.KML != expectKML {
			t.Errorf("expected KML output to be: %s, got %s", expectKML, conf.Files.Output.KML)
		}
		if conf.Easyfatt.Customers.CustomField != expectCustomField {
			t.Errorf("expected custom field to be: %d, got %d", expectCustomField,
				conf.Easyfatt.Customers.CustomField)
		}
		if !slices.Equal(conf.Easyfatt.Customers.ExportFilename, []string{"Soggetti.xlsx", "Soggetti.ods"}) {
			t.Errorf("unexpected customer export files: %v", conf.Easyfatt.Customers.ExportFilename)
		}
		if conf.Features.Shipping.OrderCustomField != expectOrderField {
			t.Errorf("expected order custom field to be: %d, got %d", expectOrderField,
				conf.Features.Shipping.OrderCustomField)
		}
		if conf.Features.Shipping.DefaultInterval != expectDefaultInterval {
			t.Errorf("expected default interval to be: %s, got %s", expectDefaultInterval,
				conf.Features.Shipping.DefaultInterval)
		}
		if conf.Options.Output.CSVTemplate != DefaultCSVTemplate {
			t.Errorf("expected default CSV template, got %s", conf.Options.Output.CSVTemplate)
		}
		if conf.Features.KMLGeneration.PlacemarkTitle != DefaultPlacemarkTitle {
			t.Errorf("expected default placemark title, got %s", conf.Features.KMLGeneration.PlacemarkTitle)
		}
		if conf.Features.KMLGeneration.LocationSearchType != expectSearchType {
			t.Errorf("expected search type to be: %s, got %s", expectSearchType,
				conf.Features.KMLGeneration.LocationSearchType)
		}
		if conf.Features.KMLGeneration.OnError != expectOnError {
			t.Errorf("expected error policy to be: %s, got %s", expectOnError, conf.Features.KMLGeneration.OnError)
		}
		if conf.Features.KMLGeneration.Provider != expectProvider {
			t.Errorf("expected provider to be: %s, got %s", expectProvider, conf.Features.KMLGeneration.Provider)
		}
		if conf.Features.KMLGeneration.RequestsPerSecond != 5 {
			t.Errorf("expected 5 requests per second, got %f", conf.Features.KMLGeneration.RequestsPerSecond)
		}
		if conf.Cache.Backend != expectCacheBackend {
			t.Errorf("expected cache backend to be: %s, got %s", expectCacheBackend, conf.Cache.Backend)
		}
	})
	t.Run("environment variables override defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("VERYEASYFATT_LOG_LEVEL", "debug")
		t.Setenv("VERYEASYFATT_FEATURES_KML_GENERATION_ON_ERROR", "ABORT")
		t.Setenv("VERYEASYFATT_FEATURES_KML_GENERATION_GOOGLE_API_KEY", "env-key")
		conf, err := New()
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.Level() != slog.LevelDebug {
			t.Errorf("expected debug log level, got %s", conf.Level())
		}
		if conf.Features.KMLGeneration.OnError != "abort" {
			t.Errorf("expected error policy abort, got %s", conf.Features.KMLGeneration.OnError)
		}
		if conf.Features.KMLGeneration.GoogleAPIKey != "env-key" {
			t.Errorf("expected API key from environment, got %s", conf.Features.KMLGeneration.GoogleAPIKey)
		}
	})
	t.Run("invalid environment values fail validation", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("VERYEASYFATT_CACHE_BACKEND", "memcached")
		if _, err := New(); err == nil {
			t.Error("expected validation to fail")
		}
	})
}

func TestNewFromFile(t *testing.T) {
	t.Run("loading a config file layers over the defaults", func(t *testing.T) {
		conf, err := NewFromFile(testDataDir, "config.toml")
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.Level() != slog.LevelDebug {
			t.Errorf("expected debug log level, got %s", conf.Level())
		}
		if conf.Files.Input.Addition != "testdata/aggiunta.xml" {
			t.Errorf("unexpected addition file: %s", conf.Files.Input.Addition)
		}
		if conf.Easyfatt.Customers.CustomField != 3 {
			t.Errorf("expected custom field 3, got %d", conf.Easyfatt.Customers.CustomField)
		}
		if !slices.Equal(conf.Easyfatt.Customers.ExportFilename, []string{"Clienti.xlsx"}) {
			t.Errorf("unexpected customer export files: %v", conf.Easyfatt.Customers.ExportFilename)
		}
		if conf.Features.KMLGeneration.LocationSearchType != "postcode" {
			t.Errorf("expected postcode search type, got %s", conf.Features.KMLGeneration.LocationSearchType)
		}
		if conf.Features.KMLGeneration.PlacemarkTitle != "{customerName:s->uppercase} {notes}" {
			t.Errorf("unexpected placemark title: %s", conf.Features.KMLGeneration.PlacemarkTitle)
		}
		if conf.Options.Output.CSVTemplate != DefaultCSVTemplate {
			t.Errorf("expected default CSV template, got %s", conf.Options.Output.CSVTemplate)
		}
		if conf.Cache.Backend != "sqlite" {
			t.Errorf("expected sqlite cache backend, got %s", conf.Cache.Backend)
		}
		files := conf.RequiredFiles()
		if len(files) != 2 {
			t.Errorf("expected 2 required files, got %v", files)
		}
	})
	t.Run("loading a non-existing file fails", func(t *testing.T) {
		if _, err := NewFromFile(testDataDir, "nope.toml"); err == nil {
			t.Error("expected loading to fail")
		}
	})
	t.Run("loading a file with invalid values fails", func(t *testing.T) {
		if _, err := NewFromFile(testDataDir, "config_invalid.toml"); err == nil {
			t.Error("expected validation to fail")
		}
	})
}
