// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/easyfatt-export/internal/customers"
	"github.com/wneessen/easyfatt-export/internal/routecsv"
	"github.com/wneessen/easyfatt-export/internal/shipping"
)

// generateCSV writes one RouteXL row per document and prints the total weight.
func (s *Service) generateCSV(ctx context.Context) error {
	export, err := s.loadDocuments()
	if err != nil {
		return err
	}

	conf := s.config
	intervals, err := customers.LoadIntervals(s.logger, conf.Easyfatt.Customers.ExportFilename,
		conf.Easyfatt.Customers.CustomField)
	if err != nil {
		return fmt.Errorf("failed to load customer profiles: %w", err)
	}
	resolver, err := shipping.NewResolver(s.logger, conf.Features.Shipping.OrderCustomField, intervals,
		conf.Features.Shipping.DefaultInterval)
	if err != nil {
		return err
	}

	rows, err := routecsv.New(conf.Options.Output.CSVTemplate, resolver, s.logger, s.metrics).Rows(export.Documents)
	if err != nil {
		return fmt.Errorf("failed to generate CSV: %w", err)
	}
	path := conf.Files.Output.CSV
	if err = routecsv.WriteFile(path, rows); err != nil {
		return err
	}
	s.logger.Info("CSV file written", slog.String("file", path), slog.Int("rows", len(rows)))

	weight := shipping.TotalWeight(s.logger, export.Documents)
	s.prompt.Println(s.loc.Getf("Total weight: %s", weight.String()))

	s.offerOpen(ctx, path)
	return nil
}
