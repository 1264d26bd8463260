// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/wneessen/easyfatt-export/internal/geocode"
	"github.com/wneessen/easyfatt-export/internal/kml"
	"github.com/wneessen/easyfatt-export/internal/reconcile"
	"github.com/wneessen/easyfatt-export/internal/warmup"
)

// generateKML warms the geocoding cache, reconciles the registry with the documents and
// writes the placemarks. Nothing is written if the reconciliation fails.
func (s *Service) generateKML(ctx context.Context) error {
	conf := s.config.Features.KMLGeneration
	policy, err := geocode.ParseOnError(conf.OnError)
	if err != nil {
		return err
	}
	export, err := s.loadDocuments()
	if err != nil {
		return err
	}
	addresses, err := s.loadAddresses(ctx)
	if err != nil {
		return err
	}
	searcher, store, err := s.openSearcher(ctx)
	if err != nil {
		return err
	}
	defer s.closeStore(store)

	// failures of the warm-up show up again in the reconciliation
	report, err := warmup.New(searcher, s.logger, policy).Populate(ctx, addresses, false)
	var aggErr *geocode.AggregateError
	if err != nil && !errors.As(err, &aggErr) {
		return fmt.Errorf("failed to initialize geocoding cache: %w", err)
	}
	s.logger.Debug("geocoding cache warmed up", slog.Int("resolved", report.Resolved),
		slog.Int("failed", report.Failed))
	s.compactStore(store)

	reconciler := reconcile.New(searcher, s.logger, conf.PlacemarkTitle,
		reconcile.WithCompany(export.Company),
		reconcile.WithPolicy(policy),
		reconcile.WithMetrics(s.metrics),
	)
	result, err := reconciler.Run(ctx, addresses, export.Documents)
	if err != nil {
		return fmt.Errorf("failed to generate placemarks: %w", err)
	}

	doc := kml.New(s.now(), result.Customers, result.Suppliers)
	path := s.config.Files.Output.KML
	if err = writeOutput(path, doc.Encode); err != nil {
		return fmt.Errorf("failed to write KML file: %w", err)
	}
	s.logger.Info("KML file written", slog.String("file", path),
		slog.Int("customers", len(result.Customers)), slog.Int("suppliers", len(result.Suppliers)))
	if geoJSON := s.config.Files.Output.GeoJSON; geoJSON != "" {
		if err = writeOutput(geoJSON, doc.EncodeGeoJSON); err != nil {
			return fmt.Errorf("failed to write GeoJSON file: %w", err)
		}
		s.logger.Info("GeoJSON file written", slog.String("file", geoJSON))
	}

	s.prompt.Println(s.loc.Getf("Documents: %s, processed: %s, unregistered customers: %s",
		s.loc.Count(result.Documents), s.loc.Count(result.Processed), s.loc.Count(result.Unregistered)))
	s.prompt.Println(s.loc.Getf("Placemarks: %s customers (%s new, %s hidden), %s suppliers",
		s.loc.Count(len(result.Customers)), s.loc.Count(result.New), s.loc.Count(result.Hidden),
		s.loc.Count(len(result.Suppliers))))
	s.prompt.Println(s.loc.Getf("Generated on %s", s.loc.Time(s.now())))

	s.offerOpen(ctx, path)
	return nil
}

// populateCache looks up every registry address. A dry run only logs the lookups.
func (s *Service) populateCache(ctx context.Context, dryRun bool) error {
	policy, err := geocode.ParseOnError(s.config.Features.KMLGeneration.OnError)
	if err != nil {
		return err
	}
	addresses, err := s.loadAddresses(ctx)
	if err != nil {
		return err
	}
	searcher, store, err := s.openSearcher(ctx)
	if err != nil {
		return err
	}
	defer s.closeStore(store)

	report, err := warmup.New(searcher, s.logger, policy).Populate(ctx, addresses, dryRun)
	if !dryRun {
		s.compactStore(store)
	}
	s.prompt.Println(s.loc.Getf("Addresses: %s (%s customers, %s suppliers), resolved: %s, failed: %s",
		s.loc.Count(report.Addresses), s.loc.Count(report.Customers), s.loc.Count(report.Suppliers),
		s.loc.Count(report.Resolved), s.loc.Count(report.Failed)))
	if err != nil {
		return fmt.Errorf("failed to initialize geocoding cache: %w", err)
	}
	return nil
}

func writeOutput(path string, encode func(io.Writer) error) error {
	file, err := createFile(path)
	if err != nil {
		return err
	}
	if err = encode(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
