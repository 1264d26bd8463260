// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package customers

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/wneessen/easyfatt-export/internal/logger"
)

func writeExport(t *testing.T, dir string, rows [][]any) string {
	t.Helper()
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("failed to compute cell name: %s", err)
		}
		if err = file.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("failed to write row: %s", err)
		}
	}
	path := filepath.Join(dir, "Soggetti.xlsx")
	if err := file.SaveAs(path); err != nil {
		t.Fatalf("failed to save export: %s", err)
	}
	return path
}

func writeODS(t *testing.T, dir string, rows [][]string) string {
	t.Helper()
	content := &strings.Builder{}
	content.WriteString(xml.Header)
	content.WriteString(`<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" ` +
		`xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0" ` +
		`xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0" office:version="1.2">` +
		`<office:body><office:spreadsheet><table:table table:name="Soggetti">`)
	for _, row := range rows {
		content.WriteString("<table:table-row>")
		for _, cell := range row {
			if cell == "" {
				content.WriteString("<table:table-cell/>")
				continue
			}
			content.WriteString(`<table:table-cell office:value-type="string"><text:p>`)
			if err := xml.EscapeText(content, []byte(cell)); err != nil {
				t.Fatalf("failed to escape cell: %s", err)
			}
			content.WriteString("</text:p></table:table-cell>")
		}
		content.WriteString("</table:table-row>")
	}
	content.WriteString("</table:table></office:spreadsheet></office:body></office:document-content>")

	path := filepath.Join(dir, "Soggetti.ods")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create export: %s", err)
	}
	defer func() { _ = file.Close() }()
	archive := zip.NewWriter(file)
	entries := []struct {
		name, data string
		method     uint16
	}{
		{"mimetype", "application/vnd.oasis.opendocument.spreadsheet", zip.Store},
		{"META-INF/manifest.xml", xml.Header + `<manifest:manifest ` +
			`xmlns:manifest="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0" manifest:version="1.2">` +
			`<manifest:file-entry manifest:full-path="/" ` +
			`manifest:media-type="application/vnd.oasis.opendocument.spreadsheet"/>` +
			`<manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/>` +
			`</manifest:manifest>`, zip.Deflate},
		{"content.xml", content.String(), zip.Deflate},
	}
	for _, entry := range entries {
		w, err := archive.CreateHeader(&zip.FileHeader{Name: entry.name, Method: entry.method})
		if err != nil {
			t.Fatalf("failed to add %s: %s", entry.name, err)
		}
		if _, err = w.Write([]byte(entry.data)); err != nil {
			t.Fatalf("failed to write %s: %s", entry.name, err)
		}
	}
	if err = archive.Close(); err != nil {
		t.Fatalf("failed to close export: %s", err)
	}
	return path
}

func TestLoadIntervals(t *testing.T) {
	header := []any{"Cod.", "Denominazione", "Indirizzo", "Extra 1", "Extra 2"}

	t.Run("intervals are normalized and keyed by customer code", func(t *testing.T) {
		dir := t.TempDir()
		writeExport(t, dir, [][]any{
			header,
			{"C0001", "Bianchi Mario", "Via Garibaldi 10", "8 a 12", ""},
			{"C0002", "Verdi Srl", "Corso Italia 5", "", "x"},
			{"C0003", "Neri Giulia", "Piazza Duomo 2", "mattina", ""},
			{},
			{"C0004", "Gialli Spa", "Via Po 1", " 14-18 ", ""},
		})
		buf := &bytes.Buffer{}
		log := logger.NewLogger(slog.LevelDebug, buf)
		intervals, err := LoadIntervals(log, []string{filepath.Join(dir, "Soggetti.ods"),
			filepath.Join(dir, "Soggetti.xlsx")}, 1)
		if err != nil {
			t.Fatalf("failed to load intervals: %s", err)
		}
		expect := map[string]string{"C0001": "08:00>>12:00", "C0004": "14:00>>18:00"}
		if len(intervals) != len(expect) {
			t.Fatalf("expected %d intervals, got %v", len(expect), intervals)
		}
		for code, interval := range expect {
			if intervals[code] != interval {
				t.Errorf("expected interval %q for %s, got %q", interval, code, intervals[code])
			}
		}
		if !strings.Contains(buf.String(), "customer=C0003") {
			t.Errorf("expected the invalid interval to be logged, got: %s", buf.String())
		}
	})
	t.Run("the configured custom field is used", func(t *testing.T) {
		dir := t.TempDir()
		path := writeExport(t, dir, [][]any{header, {"C0001", "Bianchi Mario", "", "8-12", "9-10"}})
		sheet, err := Open(path)
		if err != nil {
			t.Fatalf("failed to open export: %s", err)
		}
		if sheet.Len() != 1 {
			t.Errorf("expected 1 row, got %d", sheet.Len())
		}
		intervals, err := sheet.Intervals(logger.NewLogger(slog.LevelError, &bytes.Buffer{}), 2)
		if err != nil {
			t.Fatalf("failed to read intervals: %s", err)
		}
		if intervals["C0001"] != "09:00>>10:00" {
			t.Errorf("expected interval from Extra 2, got %q", intervals["C0001"])
		}
	})
	t.Run("customers without code fail", func(t *testing.T) {
		dir := t.TempDir()
		writeExport(t, dir, [][]any{
			header,
			{"", "Senza Codice Srl", "Via Roma 3", "8-12", ""},
			{"C0002", "Verdi Srl", "", "", ""},
		})
		_, err := LoadIntervals(logger.NewLogger(slog.LevelError, &bytes.Buffer{}),
			[]string{filepath.Join(dir, "Soggetti.xlsx")}, 1)
		if !errors.Is(err, ErrMissingCode) {
			t.Fatalf("expected missing code error, got %v", err)
		}
		if !strings.Contains(err.Error(), "Senza Codice Srl") {
			t.Errorf("expected error to name the customer, got %s", err)
		}
	})
	t.Run("missing extra column fails", func(t *testing.T) {
		dir := t.TempDir()
		writeExport(t, dir, [][]any{header, {"C0001", "Bianchi Mario", "", "", ""}})
		_, err := LoadIntervals(logger.NewLogger(slog.LevelError, &bytes.Buffer{}),
			[]string{filepath.Join(dir, "Soggetti.xlsx")}, 7)
		if !errors.Is(err, ErrMissingColumn) {
			t.Errorf("expected missing column error, got %v", err)
		}
	})
	t.Run("no export file disables profile intervals", func(t *testing.T) {
		buf := &bytes.Buffer{}
		intervals, err := LoadIntervals(logger.NewLogger(slog.LevelDebug, buf),
			[]string{filepath.Join(t.TempDir(), "Soggetti.xlsx")}, 1)
		if err != nil {
			t.Fatalf("expected no error, got %s", err)
		}
		if len(intervals) != 0 {
			t.Errorf("expected no intervals, got %v", intervals)
		}
		if !strings.Contains(buf.String(), "disabled") {
			t.Errorf("expected a warning, got: %s", buf.String())
		}
	})
	t.Run("ods exports are read when no xlsx export exists", func(t *testing.T) {
		dir := t.TempDir()
		writeODS(t, dir, [][]string{
			{"Cod.", "Denominazione", "Indirizzo", "Extra 1"},
			{"C0001", "Bianchi Mario", "Via Garibaldi 10", "8 a 12"},
			{"C0002", "Verdi Srl", "Corso Italia 5", ""},
			{"C0004", "Gialli Spa", "Via Po 1", "08-17"},
		})
		intervals, err := LoadIntervals(logger.NewLogger(slog.LevelError, &bytes.Buffer{}),
			[]string{filepath.Join(dir, "Soggetti.xlsx"), filepath.Join(dir, "Soggetti.ods")}, 1)
		if err != nil {
			t.Fatalf("failed to load intervals: %s", err)
		}
		expect := map[string]string{"C0001": "08:00>>12:00", "C0004": "08:00>>17:00"}
		if len(intervals) != len(expect) {
			t.Fatalf("expected %d intervals, got %v", len(expect), intervals)
		}
		for code, interval := range expect {
			if intervals[code] != interval {
				t.Errorf("expected interval %q for %s, got %q", interval, code, intervals[code])
			}
		}
	})
	t.Run("ods exports without code fail", func(t *testing.T) {
		dir := t.TempDir()
		writeODS(t, dir, [][]string{
			{"Cod.", "Denominazione", "Extra 1"},
			{"", "Senza Codice Srl", "8-12"},
		})
		_, err := LoadIntervals(logger.NewLogger(slog.LevelError, &bytes.Buffer{}),
			[]string{filepath.Join(dir, "Soggetti.ods")}, 1)
		if !errors.Is(err, ErrMissingCode) {
			t.Errorf("expected missing code error, got %v", err)
		}
	})
	t.Run("other formats are rejected", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "Soggetti.csv")
		if err := os.WriteFile(path, []byte("Cod.;Extra 1"), 0o600); err != nil {
			t.Fatalf("failed to write file: %s", err)
		}
		_, err := LoadIntervals(logger.NewLogger(slog.LevelError, &bytes.Buffer{}), []string{path}, 1)
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("expected unsupported format error, got %v", err)
		}
	})
}

func TestFindExportFile(t *testing.T) {
	t.Run("first existing candidate wins", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"a.xlsx", "b.xlsx"} {
			if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
				t.Fatalf("failed to write file: %s", err)
			}
		}
		got, err := FindExportFile([]string{filepath.Join(dir, "missing.xlsx"), filepath.Join(dir, "b.xlsx"),
			filepath.Join(dir, "a.xlsx")})
		if err != nil {
			t.Fatalf("failed to find export file: %s", err)
		}
		if filepath.Base(got) != "b.xlsx" {
			t.Errorf("expected b.xlsx, got %s", got)
		}
	})
	t.Run("directories are not export files", func(t *testing.T) {
		dir := t.TempDir()
		_, err := FindExportFile([]string{dir})
		if !errors.Is(err, ErrNoExportFile) {
			t.Errorf("expected no export file error, got %v", err)
		}
	})
}
