// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wneessen/easyfatt-export/internal/config"
	"github.com/wneessen/easyfatt-export/internal/document"
	"github.com/wneessen/easyfatt-export/internal/geocode"
	"github.com/wneessen/easyfatt-export/internal/http"
	"github.com/wneessen/easyfatt-export/internal/i18n"
	"github.com/wneessen/easyfatt-export/internal/logger"
	"github.com/wneessen/easyfatt-export/internal/metrics"
	"github.com/wneessen/easyfatt-export/internal/opener"
	"github.com/wneessen/easyfatt-export/internal/prompt"
)

// Goals
const (
	GoalCSV         = "csv-generator"
	GoalKML         = "kml-generator"
	GoalCache       = "initialize-geo-cache"
	GoalCacheDryRun = "initialize-geo-cache-dryrun"
)

// Goals lists the goals in menu order.
var Goals = []string{GoalCSV, GoalKML, GoalCache, GoalCacheDryRun}

var (
	ErrUnknownGoal  = errors.New("unknown goal")
	ErrMissingFiles = errors.New("required files not found")
)

type fileOpener interface {
	Open(ctx context.Context, path string) error
}

type Service struct {
	config  *config.Config
	logger  *logger.Logger
	loc     *i18n.Localizer
	prompt  *prompt.Prompter
	opener  fileOpener
	metrics *metrics.Metrics
	http    *http.Client
	now     func() time.Time

	geocoder func() (geocode.Geocoder, error)
}

func New(conf *config.Config, log *logger.Logger, loc *i18n.Localizer, prompter *prompt.Prompter) (*Service, error) {
	if conf == nil {
		return nil, errors.New("configuration is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if loc == nil || prompter == nil {
		return nil, errors.New("localizer and prompter are required")
	}
	service := &Service{
		config:  conf,
		logger:  log,
		loc:     loc,
		prompt:  prompter,
		opener:  opener.New(),
		metrics: metrics.New(),
		http:    http.New(log),
		now:     time.Now,
	}
	service.geocoder = service.selectGeocodeProvider
	return service, nil
}

// CheckRequiredFiles fails with ErrMissingFiles naming every input file that does not exist.
func (s *Service) CheckRequiredFiles() error {
	var missing []string
	for _, file := range s.config.RequiredFiles() {
		if _, err := os.Stat(file); err == nil {
			continue
		}
		abs, err := filepath.Abs(file)
		if err != nil {
			abs = file
		}
		s.logger.Error("required file not found", slog.String("file", abs))
		missing = append(missing, abs)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFiles, strings.Join(missing, ", "))
	}
	return nil
}

// SelectGoal asks the operator for a goal. An empty goal means exit.
func (s *Service) SelectGoal() (string, error) {
	labels := []string{
		s.loc.Get("RouteXL CSV generator"),
		s.loc.Get("Google Earth KML generator"),
		s.loc.Get("Initialize geocoding cache"),
		s.loc.Get("Simulate geocoding cache initialization"),
	}
	choice, err := s.prompt.Select(s.loc.Get("Choose the operation to perform:"), labels, s.loc.Get("Exit"))
	if err != nil {
		return "", fmt.Errorf("failed to select goal: %w", err)
	}
	if choice < 0 {
		return "", nil
	}
	return Goals[choice], nil
}

// Run executes goal. The metrics textfile is written whether the goal succeeded or not.
func (s *Service) Run(ctx context.Context, goal string) error {
	start := s.now()
	log := s.logger.With(slog.String("goal", goal))

	var err error
	switch goal {
	case GoalCSV:
		err = s.generateCSV(ctx)
	case GoalKML:
		err = s.generateKML(ctx)
	case GoalCache, GoalCacheDryRun:
		err = s.populateCache(ctx, goal == GoalCacheDryRun)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGoal, goal)
	}
	if err == nil {
		s.metrics.Finished(goal, s.now())
	}
	if merr := s.metrics.WriteTextfile(s.config.Metrics.Textfile); merr != nil {
		log.Warn("failed to write metrics", logger.Err(merr))
	}
	if err != nil {
		return err
	}

	log.Info("goal completed", slog.Duration("duration", s.now().Sub(start).Round(time.Millisecond)))
	return nil
}

// loadDocuments parses the Easyfatt export, with the configured addition spliced in.
func (s *Service) loadDocuments() (*document.Export, error) {
	input := s.config.Files.Input
	data, err := os.ReadFile(input.Easyfatt)
	if err != nil {
		return nil, fmt.Errorf("failed to read Easyfatt export: %w", err)
	}
	if input.Addition != "" {
		addition, err := os.ReadFile(input.Addition)
		if err != nil {
			return nil, fmt.Errorf("failed to read XML addition: %w", err)
		}
		if data, err = document.Splice(data, addition); err != nil {
			return nil, fmt.Errorf("failed to add %s to %s: %w", input.Addition, input.Easyfatt, err)
		}
		s.logger.Info("XML addition spliced into export", slog.String("file", input.Addition))
	}

	export, err := document.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", input.Easyfatt, err)
	}
	s.logger.Debug("export parsed", slog.String("file", input.Easyfatt),
		slog.Int("documents", len(export.Documents)))
	return export, nil
}

// offerOpen asks whether path should be opened and opens it with the desktop default.
func (s *Service) offerOpen(ctx context.Context, path string) {
	if !s.prompt.Interactive() {
		return
	}
	ok, err := s.prompt.Confirm(s.loc.Getf("Open the file %q?", path))
	if err != nil {
		s.logger.Warn("failed to read answer", logger.Err(err))
		return
	}
	if !ok {
		return
	}
	if err = s.opener.Open(ctx, path); err != nil {
		s.logger.Error("failed to open file", slog.String("file", path), logger.Err(err))
	}
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return file, nil
}
