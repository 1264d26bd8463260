// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kkyr/fig"

	"github.com/wneessen/easyfatt-export/internal/logger"
)

const (
	configEnv = "VERYEASYFATT"

	DefaultCSVTemplate = "@{CustomerName} {CustomerCode}@{eval_IndirizzoSpedizione} {eval_CAPSpedizione} " +
		"{eval_CittaSpedizione}(20){eval_intervalloSpedizione}^{eval_pesoSpedizione}^"
	DefaultPlacemarkTitle = "{customerName} ({customerCode}) {notes}"
)

// Config represents the application's configuration structure.
type Config struct {
	LogLevel string `fig:"log_level" default:"INFO" binding:"oneof=DEBUG INFO WARN WARNING ERROR CRITICAL"`
	// Empty selects the locale of the environment
	Locale string `fig:"locale"`

	Files struct {
		Input struct {
			Easyfatt string `fig:"easyfatt" default:"Documenti.DefXml" binding:"required"`
			Addition string `fig:"addition"`
		} `fig:"input"`
		Output struct {
			CSV     string `fig:"csv" default:"Documenti.csv"`
			KML     string `fig:"kml" default:"output.kml"`
			GeoJSON string `fig:"geojson"`
		} `fig:"output"`
	} `fig:"files"`

	Easyfatt struct {
		Database struct {
			// Allowed values: firebirdsql, postgres, mysql, sqlite3
			Driver   string `fig:"driver" default:"firebirdsql" binding:"oneof=firebirdsql postgres mysql sqlite3"`
			Filename string `fig:"filename"`
			DSN      string `fig:"dsn"`
			Host     string `fig:"host" default:"localhost"`
			User     string `fig:"user" default:"SYSDBA"`
			Password string `fig:"password" default:"masterkey"`
		} `fig:"database"`
		Customers struct {
			CustomField    int      `fig:"custom_field" default:"1" binding:"min=1"`
			ExportFilename []string `fig:"export_filename" default:"[Soggetti.xlsx,Soggetti.ods]"`
		} `fig:"customers"`
	} `fig:"easyfatt"`

	Options struct {
		Output struct {
			CSVTemplate string `fig:"csv_template"`
		} `fig:"output"`
	} `fig:"options"`

	Features struct {
		Shipping struct {
			DefaultInterval  string `fig:"default_interval" default:"07:00-16:00"`
			OrderCustomField int    `fig:"order_custom_field" default:"4" binding:"min=1"`
		} `fig:"shipping"`
		KMLGeneration struct {
			// Allowed values: google, opencage, nominatim, geocode-earth
			Provider       string `fig:"provider" default:"google" binding:"oneof=google opencage nominatim geocode-earth"`
			GoogleAPIKey   string `fig:"google_api_key"`
			APIKey         string `fig:"api_key"`
			PlacemarkTitle string `fig:"placemark_title"`
			// Allowed values: strict, manual, postcode
			LocationSearchType string `fig:"location_search_type" default:"strict" binding:"oneof=strict manual postcode"`
			// Allowed values: abort, skip, collect
			OnError           string  `fig:"on_error" default:"collect" binding:"oneof=abort skip collect"`
			RequestsPerSecond float64 `fig:"requests_per_second" default:"5" binding:"gt=0"`
		} `fig:"kml_generation"`
	} `fig:"features"`

	Cache struct {
		// Allowed values: file, sqlite, redis
		Backend     string `fig:"backend" default:"file" binding:"oneof=file sqlite redis"`
		Path        string `fig:"path" default:".cache/locations.jsonl"`
		RedisURL    string `fig:"redis_url" default:"redis://localhost:6379/0"`
		RedisPrefix string `fig:"redis_prefix" default:"easyfatt:geocode:"`
	} `fig:"cache"`

	Metrics struct {
		Textfile string `fig:"textfile"`
	} `fig:"metrics"`

	Updater struct {
		Repository string `fig:"repository" default:"wneessen/easyfatt-export"`
	} `fig:"updater"`
}

// NewFromFile loads the defaults and layers the given TOML file and the environment on top.
func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = loadDotEnv(); err != nil {
		return conf, err
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

// New returns a Config populated from defaults and the environment only.
func New() (*Config, error) {
	conf := new(Config)
	if err := loadDotEnv(); err != nil {
		return conf, err
	}
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	c.LogLevel = strings.ToUpper(strings.TrimSpace(c.LogLevel))
	c.Features.KMLGeneration.LocationSearchType = strings.ToLower(c.Features.KMLGeneration.LocationSearchType)
	c.Features.KMLGeneration.OnError = strings.ToLower(c.Features.KMLGeneration.OnError)
	if c.Options.Output.CSVTemplate == "" {
		c.Options.Output.CSVTemplate = DefaultCSVTemplate
	}
	if c.Features.KMLGeneration.PlacemarkTitle == "" {
		c.Features.KMLGeneration.PlacemarkTitle = DefaultPlacemarkTitle
	}
	c.Files.Output.KML = strings.TrimSpace(c.Files.Output.KML)
	if c.Files.Output.KML == "" {
		c.Files.Output.KML = "output.kml"
	}
	if c.Easyfatt.Database.Filename != "" {
		c.Easyfatt.Database.Filename = expandHome(c.Easyfatt.Database.Filename)
	}

	// fig reserves the validate tag for its own required check
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.SetTagName("binding")
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Level returns the configured log level as slog.Level.
func (c *Config) Level() slog.Level {
	return logger.ParseLevel(c.LogLevel)
}

// RequiredFiles returns the input files that must exist before any goal can run.
func (c *Config) RequiredFiles() []string {
	files := []string{c.Files.Input.Easyfatt}
	if c.Files.Input.Addition != "" {
		files = append(files, c.Files.Input.Addition)
	}
	return files
}

// loadDotEnv loads a .env file from the working directory into the environment, without
// overriding variables that are already set.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
