// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package document

import (
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
)

// DefaultCountry is assumed for sub-addresses that carry no country, matching the registry.
const DefaultCountry = "Italia"

// Export is the root element of a Danea Easyfatt XML export.
type Export struct {
	XMLName    xml.Name   `xml:"EasyfattDocuments"`
	AppVersion string     `xml:"AppVersion,attr"`
	Company    Company    `xml:"Company"`
	Documents  []Document `xml:"Documents>Document"`
}

// Company is the issuing company block of the export.
type Company struct {
	Name       string `xml:"Name"`
	Address    string `xml:"Address"`
	Postcode   string `xml:"Postcode"`
	City       string `xml:"City"`
	Province   string `xml:"Province"`
	Country    string `xml:"Country"`
	FiscalCode string `xml:"FiscalCode"`
	VatCode    string `xml:"VatCode"`
	HomePage   string `xml:"HomePage"`
}

// Location returns the company address, or false if it is incomplete.
func (c Company) Location() (Address, bool) {
	addr := newAddress(c.Name, c.Address, c.Postcode, c.City, c.Province, c.Country)
	if addr.Street == "" || addr.Postcode == "" || addr.City == "" {
		return addr, false
	}
	return addr, true
}

// Address is a customer or delivery sub-address of a document.
type Address struct {
	Name     string
	Street   string
	Postcode string
	City     string
	Province string
	Country  string
}

func newAddress(name, street, postcode, city, province, country string) Address {
	country = strings.TrimSpace(country)
	if country == "" {
		country = DefaultCountry
	}
	return Address{
		Name:     strings.TrimSpace(name),
		Street:   strings.TrimSpace(street),
		Postcode: strings.TrimSpace(postcode),
		City:     strings.TrimSpace(city),
		Province: strings.TrimSpace(province),
		Country:  country,
	}
}

// String renders the address as a geocoding query.
func (a Address) String() string {
	return a.Street + " " + a.Postcode + ", " + a.City + ", " + a.Country
}

// Document is a single Documents/Document element. Every simple child element is kept by
// name, so custom fields can be looked up without knowing them in advance.
type Document struct {
	fields map[string]string
}

// New returns a Document with the given fields. It is mainly useful in tests.
func New(fields map[string]string) Document {
	doc := Document{fields: make(map[string]string, len(fields))}
	for k, v := range fields {
		doc.fields[k] = strings.TrimSpace(v)
	}
	return doc
}

// UnmarshalXML satisfies the xml.Unmarshaler interface.
func (d *Document) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	d.fields = make(map[string]string)
	for {
		token, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		switch elem := token.(type) {
		case xml.StartElement:
			var value struct {
				Text string `xml:",chardata"`
			}
			if err = dec.DecodeElement(&value, &elem); err != nil {
				return err
			}
			d.fields[elem.Name.Local] = strings.TrimSpace(value.Text)
		case xml.EndElement:
			if elem.Name == start.Name {
				return nil
			}
		}
	}
}

// Get returns the value of the child element name, or an empty string.
func (d Document) Get(name string) string {
	return d.fields[name]
}

// Has reports whether the document carries a non-empty child element name.
func (d Document) Has(name string) bool {
	return d.fields[name] != ""
}

func (d Document) CustomerCode() string {
	return d.fields["CustomerCode"]
}

func (d Document) CustomerName() string {
	return d.fields["CustomerName"]
}

func (d Document) CustomerFiscalCode() string {
	return d.fields["CustomerFiscalCode"]
}

func (d Document) CustomerVatCode() string {
	return d.fields["CustomerVatCode"]
}

func (d Document) TransportedWeight() string {
	return d.fields["TransportedWeight"]
}

// CustomField returns the value of CustomField{n}.
func (d Document) CustomField(n int) string {
	return d.fields["CustomField"+strconv.Itoa(n)]
}

// Customer returns the customer sub-address.
func (d Document) Customer() Address {
	return d.subAddress("Customer")
}

// Delivery returns the delivery sub-address. Use HasDelivery to check if it is set.
func (d Document) Delivery() Address {
	return d.subAddress("Delivery")
}

// HasDelivery reports whether the document overrides the customer address.
func (d Document) HasDelivery() bool {
	return d.Has("DeliveryAddress")
}

// Shipping returns the delivery sub-address if set, the customer sub-address otherwise.
func (d Document) Shipping() Address {
	if d.HasDelivery() {
		return d.Delivery()
	}
	return d.Customer()
}

func (d Document) subAddress(prefix string) Address {
	return newAddress(d.fields[prefix+"Name"], d.fields[prefix+"Address"], d.fields[prefix+"Postcode"],
		d.fields[prefix+"City"], d.fields[prefix+"Province"], d.fields[prefix+"Country"])
}
