// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package routecsv renders the documents of an export as route planner import rows.
package routecsv

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wneessen/easyfatt-export/internal/document"
	"github.com/wneessen/easyfatt-export/internal/formatter"
	"github.com/wneessen/easyfatt-export/internal/logger"
	"github.com/wneessen/easyfatt-export/internal/metrics"
	"github.com/wneessen/easyfatt-export/internal/shipping"
)

// Template placeholders
const (
	FieldCustomerName = "CustomerName"
	FieldCustomerCode = "CustomerCode"
	FieldAddress      = "eval_IndirizzoSpedizione"
	FieldPostcode     = "eval_CAPSpedizione"
	FieldCity         = "eval_CittaSpedizione"
	FieldInterval     = "eval_intervalloSpedizione"
	FieldWeight       = "eval_pesoSpedizione"
)

type Builder struct {
	template  string
	resolver  *shipping.Resolver
	formatter *formatter.Formatter
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// New returns a Builder rendering every row with tpl. m may be nil.
func New(tpl string, resolver *shipping.Resolver, log *logger.Logger, m *metrics.Metrics) *Builder {
	return &Builder{
		template:  tpl,
		resolver:  resolver,
		formatter: formatter.New(),
		log:       log,
		metrics:   m,
	}
}

// Rows returns one row per document, in document order.
func (b *Builder) Rows(docs []document.Document) ([]string, error) {
	rows := make([]string, 0, len(docs))
	for i, doc := range docs {
		row, err := b.row(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to render row %d (customer %s): %w", i+1, doc.CustomerCode(), err)
		}
		rows = append(rows, row)
	}
	b.metrics.Rows(len(rows))
	return rows, nil
}

func (b *Builder) row(doc document.Document) (string, error) {
	address := doc.Customer()
	if doc.HasDelivery() {
		address = doc.Delivery()
	}
	interval, source := b.resolver.Resolve(doc)
	b.metrics.Interval(source.String())

	return b.formatter.Format(b.template, map[string]any{
		FieldCustomerName: doc.CustomerName(),
		FieldCustomerCode: doc.CustomerCode(),
		FieldAddress:      address.Street,
		FieldPostcode:     address.Postcode,
		FieldCity:         address.City,
		FieldInterval:     interval,
		FieldWeight:       shipping.DisplayWeight(doc.TransportedWeight()),
	})
}

// Write writes rows separated by newlines.
func Write(w io.Writer, rows []string) error {
	if _, err := io.WriteString(w, strings.Join(rows, "\n")); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

// WriteFile writes rows to path, creating its directory if needed.
func WriteFile(path string, rows []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	if err = Write(file, rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
