// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package document

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testDataDir = "../../testdata"

func TestParseFile(t *testing.T) {
	t.Run("parsing the test export succeeds", func(t *testing.T) {
		export, err := ParseFile(filepath.Join(testDataDir, "Documenti.DefXml"))
		if err != nil {
			t.Fatalf("failed to parse export: %s", err)
		}
		if export.AppVersion != "2" {
			t.Errorf("expected app version 2, got %s", export.AppVersion)
		}
		if export.Company.Name != "Ferramenta Rossi S.r.l." {
			t.Errorf("unexpected company name: %s", export.Company.Name)
		}
		if len(export.Documents) != 2 {
			t.Fatalf("expected 2 documents, got %d", len(export.Documents))
		}

		first := export.Documents[0]
		if first.CustomerCode() != "C0001" {
			t.Errorf("expected customer code C0001, got %s", first.CustomerCode())
		}
		if first.CustomField(4) != "08-17" {
			t.Errorf("expected custom field 4 to be 08-17, got %s", first.CustomField(4))
		}
		if first.TransportedWeight() != "12,5 kg" {
			t.Errorf("unexpected transported weight: %s", first.TransportedWeight())
		}
		if first.HasDelivery() {
			t.Error("expected first document to have no delivery address")
		}
		if first.Get("Rows") != "" {
			t.Errorf("expected nested elements to have no text, got %q", first.Get("Rows"))
		}
		expect := "Via Garibaldi 10 20100, Milano, Italia"
		if got := first.Shipping().String(); got != expect {
			t.Errorf("expected shipping address %q, got %q", expect, got)
		}

		second := export.Documents[1]
		if !second.HasDelivery() {
			t.Fatal("expected second document to have a delivery address")
		}
		expect = "Strada del Drosso 33 10135, Torino, Italia"
		if got := second.Shipping().String(); got != expect {
			t.Errorf("expected shipping address %q, got %q", expect, got)
		}
		if second.Customer().Postcode != "10121" {
			t.Errorf("expected customer postcode 10121, got %s", second.Customer().Postcode)
		}
	})
	t.Run("parsing a non-existing file fails", func(t *testing.T) {
		if _, err := ParseFile(filepath.Join(testDataDir, "nope.xml")); err == nil {
			t.Error("expected parsing to fail")
		}
	})
	t.Run("parsing broken XML fails", func(t *testing.T) {
		if _, err := Parse(strings.NewReader("<EasyfattDocuments><Documents>")); err == nil {
			t.Error("expected parsing to fail")
		}
	})
	t.Run("non UTF-8 exports are decoded", func(t *testing.T) {
		data := []byte("<?xml version=\"1.0\" encoding=\"windows-1252\"?>" +
			"<EasyfattDocuments><Company><Name>Caf\xe8 Nero</Name></Company><Documents/></EasyfattDocuments>")
		export, err := Parse(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("failed to parse export: %s", err)
		}
		if export.Company.Name != "Café Nero" {
			t.Errorf("expected company name %q, got %q", "Café Nero", export.Company.Name)
		}
	})
}

func TestCompany_Location(t *testing.T) {
	t.Run("complete company address", func(t *testing.T) {
		company := Company{Name: "ACME", Address: "Via Roma 1", Postcode: "20121", City: "Milano"}
		addr, ok := company.Location()
		if !ok {
			t.Fatal("expected company address to be complete")
		}
		if addr.String() != "Via Roma 1 20121, Milano, Italia" {
			t.Errorf("unexpected company address: %s", addr)
		}
	})
	t.Run("incomplete company address", func(t *testing.T) {
		if _, ok := (Company{Name: "ACME", City: "Milano"}).Location(); ok {
			t.Error("expected company address to be incomplete")
		}
	})
}

func TestSplice(t *testing.T) {
	base, err := os.ReadFile(filepath.Join(testDataDir, "Documenti.DefXml"))
	if err != nil {
		t.Fatalf("failed to read base file: %s", err)
	}
	addition, err := os.ReadFile(filepath.Join(testDataDir, "aggiunta.xml"))
	if err != nil {
		t.Fatalf("failed to read addition file: %s", err)
	}

	t.Run("addition is inserted as first document", func(t *testing.T) {
		spliced, err := Splice(base, addition)
		if err != nil {
			t.Fatalf("failed to splice: %s", err)
		}
		export, err := Parse(bytes.NewReader(spliced))
		if err != nil {
			t.Fatalf("failed to parse spliced export: %s", err)
		}
		if len(export.Documents) != 3 {
			t.Fatalf("expected 3 documents, got %d", len(export.Documents))
		}
		if export.Documents[0].CustomerCode() != "C0003" {
			t.Errorf("expected first document to be C0003, got %s", export.Documents[0].CustomerCode())
		}
		if !bytes.HasSuffix(bytes.TrimSpace(spliced), []byte("</EasyfattDocuments>")) {
			t.Error("expected the tail of the base file to be preserved")
		}
	})
	t.Run("multiple top level elements are inserted", func(t *testing.T) {
		twoDocs := []byte("<Document><CustomerCode>A</CustomerCode></Document>" +
			"<Document><CustomerCode>B</CustomerCode></Document>")
		spliced, err := Splice(base, twoDocs)
		if err != nil {
			t.Fatalf("failed to splice: %s", err)
		}
		export, err := Parse(bytes.NewReader(spliced))
		if err != nil {
			t.Fatalf("failed to parse spliced export: %s", err)
		}
		if len(export.Documents) != 4 {
			t.Errorf("expected 4 documents, got %d", len(export.Documents))
		}
	})
	t.Run("self closing Documents element", func(t *testing.T) {
		empty := []byte(`<?xml version="1.0"?><EasyfattDocuments><Company/><Documents/></EasyfattDocuments>`)
		spliced, err := Splice(empty, addition)
		if err != nil {
			t.Fatalf("failed to splice: %s", err)
		}
		export, err := Parse(bytes.NewReader(spliced))
		if err != nil {
			t.Fatalf("failed to parse spliced export: %s", err)
		}
		if len(export.Documents) != 1 {
			t.Errorf("expected 1 document, got %d", len(export.Documents))
		}
	})
	t.Run("non UTF-8 base is converted", func(t *testing.T) {
		latin := []byte("<?xml version=\"1.0\" encoding=\"windows-1252\"?>" +
			"<EasyfattDocuments><Company><Name>Caf\xe8</Name></Company><Documents></Documents></EasyfattDocuments>")
		spliced, err := Splice(latin, addition)
		if err != nil {
			t.Fatalf("failed to splice: %s", err)
		}
		if !bytes.Contains(spliced, []byte("Café")) {
			t.Error("expected base to be converted to UTF-8")
		}
		if !bytes.Contains(spliced, []byte(`encoding="UTF-8"`)) {
			t.Error("expected XML declaration to name UTF-8")
		}
	})
	t.Run("invalid addition fails", func(t *testing.T) {
		_, err := Splice(base, []byte("<Document><CustomerCode>A</Document>"))
		if !errors.Is(err, ErrInvalidAddition) {
			t.Errorf("expected invalid addition error, got %v", err)
		}
	})
	t.Run("addition without elements fails", func(t *testing.T) {
		_, err := Splice(base, []byte("just text"))
		if !errors.Is(err, ErrEmptyAddition) {
			t.Errorf("expected empty addition error, got %v", err)
		}
	})
	t.Run("base without Documents element fails", func(t *testing.T) {
		_, err := Splice([]byte("<EasyfattDocuments><Company/></EasyfattDocuments>"), addition)
		if !errors.Is(err, ErrDocumentsElement) {
			t.Errorf("expected Documents element error, got %v", err)
		}
	})
	t.Run("base with two Documents elements fails", func(t *testing.T) {
		_, err := Splice([]byte("<EasyfattDocuments><Documents/><Documents/></EasyfattDocuments>"), addition)
		if !errors.Is(err, ErrDocumentsElement) {
			t.Errorf("expected Documents element error, got %v", err)
		}
	})
	t.Run("addition without Document elements fails", func(t *testing.T) {
		_, err := Splice(base, []byte("<Note>nothing to see</Note>"))
		if !errors.Is(err, ErrNothingAdded) {
			t.Errorf("expected nothing added error, got %v", err)
		}
	})
}
