// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package customers reads the customer registry spreadsheet exported by Easyfatt, either
// as .xlsx or as .ods.
package customers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knieriem/odf/ods"
	"github.com/xuri/excelize/v2"

	"github.com/wneessen/easyfatt-export/internal/logger"
	"github.com/wneessen/easyfatt-export/internal/shipping"
)

const (
	codeColumn  = "Cod."
	nameColumn  = "Denominazione"
	extraColumn = "Extra "
)

var (
	ErrNoExportFile      = errors.New("no customer export file found")
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrMissingColumn     = errors.New("missing column in customer export")
	ErrMissingCode       = errors.New("customers without code")
)

// FindExportFile returns the first of candidates that exists.
func FindExportFile(candidates []string) (string, error) {
	for _, candidate := range candidates {
		path, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w matching %q", ErrNoExportFile, strings.Join(candidates, "|"))
}

// Sheet is the first worksheet of a customer export.
type Sheet struct {
	header map[string]int
	rows   [][]string
}

// Open reads the first worksheet of the .xlsx or .ods spreadsheet in path.
func Open(path string) (*Sheet, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	case ".ods":
		rows, err = readODS(path)
	default:
		return nil, fmt.Errorf("%w: %s, please export the customers as .xlsx or .ods", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("customer export %q is empty", path)
	}

	sheet := &Sheet{header: make(map[string]int), rows: rows[1:]}
	for i, name := range rows[0] {
		sheet.header[strings.TrimSpace(name)] = i
	}
	return sheet, nil
}

func readXLSX(path string) ([][]string, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open customer export %q: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in customer export %q", path)
	}
	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %q: %w", path, err)
	}
	return rows, nil
}

func readODS(path string) ([][]string, error) {
	file, err := ods.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open customer export %q: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	var doc ods.Doc
	if err = file.ParseContent(&doc); err != nil {
		return nil, fmt.Errorf("failed to read rows of %q: %w", path, err)
	}
	if len(doc.Table) == 0 {
		return nil, fmt.Errorf("no sheets found in customer export %q", path)
	}
	return doc.Table[0].Strings(), nil
}

// Len returns the number of data rows.
func (s *Sheet) Len() int {
	return len(s.rows)
}

func (s *Sheet) cell(row []string, column string) string {
	idx, ok := s.header[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Intervals maps every customer code to the normalized shipping interval stored in the
// "Extra {customField}" column. Empty or unparsable intervals are left out.
func (s *Sheet) Intervals(log *logger.Logger, customField int) (map[string]string, error) {
	extra := extraColumn + strconv.Itoa(customField)
	for _, column := range []string{codeColumn, extra} {
		if _, ok := s.header[column]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, column)
		}
	}

	var missing []string
	intervals := make(map[string]string)
	for i, row := range s.rows {
		if isBlank(row) {
			continue
		}
		code := s.cell(row, codeColumn)
		if code == "" {
			name := s.cell(row, nameColumn)
			if name == "" {
				name = "row " + strconv.Itoa(i+2)
			}
			missing = append(missing, name)
			continue
		}

		raw := s.cell(row, extra)
		if raw == "" {
			continue
		}
		interval, ok := shipping.Normalize(raw)
		if !ok {
			log.Warn("ignoring invalid shipping interval in customer export", "customer", code,
				"interval", raw)
			continue
		}
		intervals[code] = interval
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingCode, strings.Join(missing, ", "))
	}
	log.Debug("loaded shipping intervals from customer export", "customers", len(intervals))
	return intervals, nil
}

// LoadIntervals reads the shipping intervals of the first existing export file. A missing
// export file is not an error: it yields no intervals and a warning.
func LoadIntervals(log *logger.Logger, candidates []string, customField int) (map[string]string, error) {
	path, err := FindExportFile(candidates)
	if err != nil {
		log.Warn("customer profile intervals are disabled", logger.Err(err))
		return map[string]string{}, nil
	}
	log.Info("customer profile intervals are enabled", "file", path)
	sheet, err := Open(path)
	if err != nil {
		return nil, err
	}
	intervals, err := sheet.Intervals(log, customField)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return intervals, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
