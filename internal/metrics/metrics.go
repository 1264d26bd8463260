// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package metrics counts what a run did and can write the counters to a node_exporter
// textfile. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "easyfatt_export"

// Lookup results
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

type Metrics struct {
	registry   *prometheus.Registry
	lookups    *prometheus.CounterVec
	placemarks *prometheus.CounterVec
	intervals  *prometheus.CounterVec
	rows       prometheus.Counter
	lastRun    *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_lookups_total",
			Help:      "Geocoding lookups by result",
		}, []string{"result"}),
		placemarks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placemarks_total",
			Help:      "Placemarks written by folder and style",
		}, []string{"folder", "style"}),
		intervals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_intervals_total",
			Help:      "Resolved shipping intervals by source",
		}, []string{"source"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "csv_rows_total",
			Help:      "CSV rows written",
		}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last run by goal",
		}, []string{"goal"}),
	}
	m.registry.MustRegister(m.lookups, m.placemarks, m.intervals, m.rows, m.lastRun)
	return m
}

func (m *Metrics) Lookup(result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(result).Inc()
}

func (m *Metrics) Placemark(folder, style string) {
	if m == nil {
		return
	}
	m.placemarks.WithLabelValues(folder, style).Inc()
}

func (m *Metrics) Interval(source string) {
	if m == nil {
		return
	}
	m.intervals.WithLabelValues(source).Inc()
}

func (m *Metrics) Rows(n int) {
	if m == nil {
		return
	}
	m.rows.Add(float64(n))
}

// Finished records the completion time of goal.
func (m *Metrics) Finished(goal string, at time.Time) {
	if m == nil {
		return
	}
	m.lastRun.WithLabelValues(goal).Set(float64(at.Unix()))
}

// Gatherer returns the registry holding the counters.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the counters in the text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
