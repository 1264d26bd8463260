// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package reconcile merges the customer registry with the documents of an export into the
// placemarks of the customer and supplier map.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"github.com/wneessen/easyfatt-export/internal/document"
	"github.com/wneessen/easyfatt-export/internal/formatter"
	"github.com/wneessen/easyfatt-export/internal/geocode"
	"github.com/wneessen/easyfatt-export/internal/kml"
	"github.com/wneessen/easyfatt-export/internal/logger"
	"github.com/wneessen/easyfatt-export/internal/metrics"
	"github.com/wneessen/easyfatt-export/internal/registry"
)

const (
	NoteNew          = "- NUOVO!"
	NoteUnregistered = "- CLIENTE NON CENSITO!"
	CompanySuffix    = " (MY COMPANY)"

	unknownHomepage = "N/D"
)

// Result holds the placemarks of both folders and what the run did.
type Result struct {
	Customers []kml.Placemark
	Suppliers []kml.Placemark

	Documents    int
	Processed    int
	Unregistered int
	New          int
	Hidden       int
}

// Reconciler turns registry addresses and documents into placemarks.
type Reconciler struct {
	searcher  *geocode.Searcher
	log       *logger.Logger
	formatter *formatter.Formatter
	title     string
	policy    geocode.OnError
	company   *document.Company
	metrics   *metrics.Metrics
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithCompany adds a placemark for the issuing company if its address is complete.
func WithCompany(company document.Company) Option {
	return func(r *Reconciler) {
		r.company = &company
	}
}

func WithPolicy(policy geocode.OnError) Option {
	return func(r *Reconciler) {
		r.policy = policy
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// New returns a Reconciler naming placemarks after title. Geocoding errors abort the run
// unless another policy is configured.
func New(searcher *geocode.Searcher, log *logger.Logger, title string, opts ...Option) *Reconciler {
	r := &Reconciler{
		searcher:  searcher,
		log:       log,
		formatter: formatter.New(),
		title:     title,
		policy:    geocode.OnErrorAbort,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// group is the accumulator state of the registry entry being processed.
type group struct {
	code     string
	homepage string
	claimed  bool
	docs     []document.Document
	matched  []bool
	pending  []kml.Placemark
}

// run holds the state of a single Run.
type run struct {
	*Reconciler
	collector *geocode.Collector
	result    Result
	byCode    map[string][]document.Document
	codes     []string
	flagged   map[string]struct{}
	current   *group
}

// Run reconciles addresses with documents. Under the collect policy every geocoding error
// is gathered and returned as a *geocode.AggregateError together with the partial result.
func (r *Reconciler) Run(ctx context.Context, addresses []registry.Address, documents []document.Document) (Result, error) {
	state := &run{
		Reconciler: r,
		collector:  geocode.NewCollector(r.policy, r.log),
		byCode:     make(map[string][]document.Document),
		flagged:    make(map[string]struct{}),
		current:    &group{},
	}
	state.result.Documents = len(documents)
	for _, doc := range documents {
		code := doc.CustomerCode()
		if code == "" {
			r.log.Warn("skipping document without customer code", "customer", doc.CustomerName())
			continue
		}
		if _, ok := state.byCode[code]; !ok {
			state.codes = append(state.codes, code)
		}
		state.byCode[code] = append(state.byCode[code], doc)
	}

	if err := state.addCompany(ctx); err != nil {
		return state.result, err
	}
	for _, address := range registry.Sort(addresses) {
		if address.Code != state.current.code {
			if err := state.closeGroup(ctx); err != nil {
				return state.result, err
			}
			state.current = &group{code: address.Code}
		}
		if err := state.record(ctx, address); err != nil {
			return state.result, err
		}
	}
	if err := state.closeGroup(ctx); err != nil {
		return state.result, err
	}
	if err := state.unregistered(ctx); err != nil {
		return state.result, err
	}

	if state.result.Processed+state.result.Unregistered != state.result.Documents {
		r.log.Warn("not every document was placed on the map", "processed", state.result.Processed,
			"unregistered", state.result.Unregistered, "documents", state.result.Documents)
	}
	for _, p := range state.result.Customers {
		r.metrics.Placemark(kml.FolderCustomers, string(p.Style))
	}
	for _, p := range state.result.Suppliers {
		r.metrics.Placemark(kml.FolderSuppliers, string(p.Style))
	}
	return state.result, state.collector.Err()
}

func (s *run) addCompany(ctx context.Context) error {
	if s.company == nil {
		return nil
	}
	address, ok := s.company.Location()
	if !ok {
		s.log.Warn("company address is not complete, skipping company placemark", "company", s.company.Name)
		return nil
	}
	placemark, ok, err := s.placemark(ctx, address.String(), s.company.Name+CompanySuffix, false,
		kml.StyleCompany)
	if err != nil || !ok {
		return err
	}
	s.result.Customers = append(s.result.Customers, placemark)
	s.log.Info("added company placemark", "company", s.company.Name)
	return nil
}

// record handles one registry record of the current group. A record can be both supplier and
// customer.
func (s *run) record(ctx context.Context, address registry.Address) error {
	if address.IsSupplier {
		if err := s.supplier(ctx, address); err != nil {
			return err
		}
	}
	if !address.IsCustomer {
		return nil
	}

	g := s.current
	if !g.claimed {
		g.claimed = true
		g.homepage = address.Homepage
		g.docs = s.byCode[address.Code]
		g.matched = make([]bool, len(g.docs))
		delete(s.byCode, address.Code)
		s.log.Debug("claimed documents of customer", "customer", address.Code, "documents", len(g.docs))
	}

	if len(g.docs) == 0 {
		return s.hiddenCustomer(ctx, address)
	}
	first := -1
	for i, doc := range g.docs {
		customer, delivery := doc.Customer(), doc.Delivery()
		if address.SameLocation(delivery.Street, delivery.Postcode, delivery.City, delivery.Country) ||
			address.SameLocation(customer.Street, customer.Postcode, customer.City, customer.Country) {
			if first < 0 {
				first = i
			}
			if !g.matched[i] {
				g.matched[i] = true
				s.result.Processed++
			}
		}
	}
	if first < 0 {
		return s.hiddenCustomer(ctx, address)
	}

	title, err := s.name(values(address))
	if err != nil {
		return err
	}
	placemark, ok, err := s.placemark(ctx, g.docs[first].Shipping().String(), title, false,
		kml.StyleCustomers)
	if err != nil || !ok {
		return err
	}
	s.result.Customers = append(s.result.Customers, placemark)
	return nil
}

func (s *run) supplier(ctx context.Context, address registry.Address) error {
	title, err := s.name(values(address))
	if err != nil {
		return err
	}
	placemark, ok, err := s.placemark(ctx, address.String(), title, true, kml.StyleSuppliers)
	if err != nil || !ok {
		return err
	}
	s.result.Suppliers = append(s.result.Suppliers, placemark)
	s.result.Hidden++
	return nil
}

func (s *run) hiddenCustomer(ctx context.Context, address registry.Address) error {
	title, err := s.name(values(address))
	if err != nil {
		return err
	}
	placemark, ok, err := s.placemark(ctx, address.String(), title, true, kml.StyleCustomers)
	if err != nil || !ok {
		return err
	}
	s.result.Customers = append(s.result.Customers, placemark)
	s.result.Hidden++
	return nil
}

// closeGroup turns the documents no record of the group matched into new placemarks and
// flushes them into the customer folder.
func (s *run) closeGroup(ctx context.Context) error {
	g := s.current
	if _, done := s.flagged[g.code]; g.claimed && !done {
		var unknown []document.Document
		for i, doc := range g.docs {
			if !g.matched[i] {
				unknown = append(unknown, doc)
			}
		}
		if len(unknown) > 0 {
			s.flagged[g.code] = struct{}{}
			s.log.Debug("customer has unknown addresses", "customer", g.code, "unknown", len(unknown),
				"documents", len(g.docs))
			for _, doc := range unknown {
				title, err := s.name(documentValues(doc, g.homepage, NoteNew))
				if err != nil {
					return err
				}
				placemark, ok, err := s.placemark(ctx, doc.Shipping().String(), title, false,
					kml.StyleCustomers)
				if err != nil {
					return err
				}
				s.result.Processed++
				if ok {
					g.pending = append(g.pending, placemark)
				}
			}
		}
	}

	if len(g.pending) > 0 {
		s.result.Customers = append(s.result.Customers, g.pending...)
		s.result.New += len(g.pending)
		s.log.Info("added unknown addresses of customer", "customer", g.code, "placemarks", len(g.pending))
		g.pending = nil
	}
	return nil
}

// unregistered adds one placemark per document whose customer has no registry record. These
// lookups bypass the cache.
func (s *run) unregistered(ctx context.Context) error {
	for _, code := range s.codes {
		docs, found := s.byCode[code]
		if !found {
			continue
		}
		for _, doc := range docs {
			title, err := s.name(documentValues(doc, unknownHomepage, NoteUnregistered))
			if err != nil {
				return err
			}
			placemark, ok, err := s.placemark(ctx, doc.Shipping().String(), title, false,
				kml.StyleCustomers, geocode.WithoutCache())
			if err != nil {
				return err
			}
			s.result.Unregistered++
			if ok {
				s.result.Customers = append(s.result.Customers, placemark)
			}
		}
		s.log.Warn("customer is not registered", "customer", code, "name", docs[0].CustomerName(),
			"documents", len(docs))
	}
	return nil
}

// placemark geocodes address. ok is false if the error policy skipped the address.
func (s *run) placemark(ctx context.Context, address, title string, hidden bool, style kml.Style,
	opts ...geocode.LookupOption,
) (kml.Placemark, bool, error) {
	location, err := s.searcher.Lookup(ctx, address, opts...)
	if err != nil {
		if err = s.collector.Handle(err); err != nil {
			return kml.Placemark{}, false, err
		}
		return kml.Placemark{}, false, nil
	}
	return kml.Placemark{
		Name:     title,
		Point:    orb.Point{location.Longitude, location.Latitude},
		Altitude: location.Altitude,
		Address:  address,
		Hidden:   hidden,
		Style:    style,
	}, true, nil
}

func (s *run) name(vals map[string]any) (string, error) {
	title, err := s.formatter.Format(s.title, vals)
	if err != nil {
		return "", fmt.Errorf("failed to render placemark title: %w", err)
	}
	return strings.TrimSpace(title), nil
}

func values(address registry.Address) map[string]any {
	return map[string]any{
		"customerName":       address.Name,
		"customerCode":       address.Code,
		"customerFiscalCode": address.FiscalCode,
		"customerVatCode":    address.VATCode,
		"customerHomepage":   address.Homepage,
		"notes":              "",
	}
}

func documentValues(doc document.Document, homepage, notes string) map[string]any {
	return map[string]any{
		"customerName":       doc.CustomerName(),
		"customerCode":       doc.CustomerCode(),
		"customerFiscalCode": doc.CustomerFiscalCode(),
		"customerVatCode":    doc.CustomerVatCode(),
		"customerHomepage":   homepage,
		"notes":              notes,
	}
}
