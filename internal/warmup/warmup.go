// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package warmup resolves every registry address ahead of a map generation so the
// geocoding cache is filled.
package warmup

import (
	"context"

	"github.com/wneessen/easyfatt-export/internal/geocode"
	"github.com/wneessen/easyfatt-export/internal/logger"
	"github.com/wneessen/easyfatt-export/internal/registry"
)

// Report summarizes a warm-up.
type Report struct {
	Addresses int
	Customers int
	Suppliers int
	Resolved  int
	Failed    int
	DryRun    bool
}

type Warmer struct {
	searcher *geocode.Searcher
	log      *logger.Logger
	policy   geocode.OnError
}

// New returns a Warmer. The searcher is expected to wrap a rate limited geocoder.
func New(searcher *geocode.Searcher, log *logger.Logger, policy geocode.OnError) *Warmer {
	return &Warmer{searcher: searcher, log: log, policy: policy}
}

// Populate looks up every address with a street. In dry-run mode the lookups are only
// logged. Under the collect policy the returned error is a *geocode.AggregateError of all
// failed addresses.
func (w *Warmer) Populate(ctx context.Context, addresses []registry.Address, dryRun bool) (Report, error) {
	addresses = registry.Sort(addresses)
	report := Report{Addresses: len(addresses), DryRun: dryRun}
	customers := make(map[string]struct{})
	suppliers := make(map[string]struct{})
	for _, address := range addresses {
		if address.IsCustomer {
			customers[address.Code] = struct{}{}
		}
		if address.IsSupplier {
			suppliers[address.Code] = struct{}{}
		}
	}
	report.Customers = len(customers)
	report.Suppliers = len(suppliers)

	w.log.Info("geocoding cache initialization started", "addresses", report.Addresses, "dry_run", dryRun)
	collector := geocode.NewCollector(w.policy, w.log)
	for _, address := range addresses {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		query := address.String()
		if dryRun {
			w.log.Info("would search location", "address", query, "customer", address.Code,
				"name", address.Name)
			continue
		}
		if _, err := w.searcher.Lookup(ctx, query); err != nil {
			report.Failed++
			if err = collector.Handle(err); err != nil {
				return report, err
			}
			continue
		}
		report.Resolved++
	}

	w.log.Info("geocoding cache initialization completed", "addresses", report.Addresses,
		"customers", report.Customers, "suppliers", report.Suppliers, "resolved", report.Resolved,
		"failed", report.Failed)
	return report, collector.Err()
}
