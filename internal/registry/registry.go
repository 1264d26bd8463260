// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package registry loads the customer and supplier addresses from the Easyfatt database.
package registry

import (
	"cmp"
	"context"
	"database/sql"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/wneessen/easyfatt-export/internal/logger"
)

// Address is a primary or secondary (delivery) address of a registry entry.
type Address struct {
	Code       string
	Name       string
	Street     string
	Postcode   string
	City       string
	Province   string
	Country    string
	Alias      string
	IsCustomer bool
	IsSupplier bool
	IsPrimary  bool
	FiscalCode string
	VATCode    string
	Homepage   string
}

// String renders the address as a geocoding query.
func (a Address) String() string {
	return a.Street + " " + a.Postcode + ", " + a.City + ", " + a.Country
}

// SameLocation reports whether the address equals the given location, ignoring case.
func (a Address) SameLocation(street, postcode, city, country string) bool {
	return strings.EqualFold(a.Street, street) &&
		strings.EqualFold(a.Postcode, postcode) &&
		strings.EqualFold(a.City, city) &&
		strings.EqualFold(a.Country, country)
}

// Sort orders addresses by code, primary addresses first, then by alias, and drops the
// ones without a street.
func Sort(addresses []Address) []Address {
	sorted := slices.DeleteFunc(slices.Clone(addresses), func(a Address) bool {
		return strings.TrimSpace(a.Street) == ""
	})
	slices.SortStableFunc(sorted, func(a, b Address) int {
		if c := cmp.Compare(a.Code, b.Code); c != 0 {
			return c
		}
		if a.IsPrimary != b.IsPrimary {
			if a.IsPrimary {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Alias, b.Alias)
	})
	return sorted
}

const (
	primaryQuery = `SELECT anag."CodAnagr", anag."Nome", anag."Indirizzo", anag."Cap", anag."Citta", anag."Prov",
	COALESCE(naz."NomeNazionePrint", 'Italia'),
	CASE WHEN anag."Cliente" = 1 THEN 1 ELSE 0 END,
	CASE WHEN anag."Fornitore" = 1 THEN 1 ELSE 0 END,
	anag."CodiceFiscale", anag."PartitaIva", anag."HomePage"
FROM "TAnagrafica" anag
LEFT JOIN "TNazioni" naz ON anag."Nazione" = naz."NomeNazione"`

	destinationQuery = `SELECT anag."CodAnagr", td."Nome", td."Indirizzo", td."Cap", td."Citta", td."Prov",
	COALESCE(naz."NomeNazionePrint", 'Italia'),
	CASE WHEN anag."Cliente" = 1 THEN 1 ELSE 0 END,
	CASE WHEN anag."Fornitore" = 1 THEN 1 ELSE 0 END,
	anag."CodiceFiscale", anag."PartitaIva", anag."HomePage", td."CodDest"
FROM "TAnagraficaDest" td
LEFT JOIN "TAnagrafica" anag ON td."IDAnagr" = anag."IDAnagr"
LEFT JOIN "TNazioni" naz ON td."Nazione" = naz."NomeNazione"`
)

// Registry reads addresses from an Easyfatt database.
type Registry struct {
	db  *sql.DB
	log *logger.Logger
}

// Open connects to the database and checks that it is reachable.
func Open(ctx context.Context, log *logger.Logger, driver, dsn string) (*Registry, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driver)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to connect to %s database", driver)
	}
	return &Registry{db: db, log: log}, nil
}

// Close closes the database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Load returns every primary and secondary address, sorted with Sort.
func (r *Registry) Load(ctx context.Context) ([]Address, error) {
	primary, err := r.query(ctx, primaryQuery, true)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load primary addresses")
	}
	secondary, err := r.query(ctx, destinationQuery, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load delivery addresses")
	}
	r.log.Debug("loaded registry addresses", "primary", len(primary), "secondary", len(secondary))

	return Sort(append(primary, secondary...)), nil
}

func (r *Registry) query(ctx context.Context, query string, primary bool) ([]Address, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "query failed")
	}
	defer func() { _ = rows.Close() }()

	var addresses []Address
	for rows.Next() {
		var (
			code, name, street, postcode, city, province, country sql.NullString
			fiscal, vat, homepage, alias                           sql.NullString
			customer, supplier                                     int
		)
		dest := []any{&code, &name, &street, &postcode, &city, &province, &country, &customer, &supplier,
			&fiscal, &vat, &homepage}
		if !primary {
			dest = append(dest, &alias)
		}
		if err = rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, "failed to scan address")
		}
		if !code.Valid || code.String == "" {
			r.log.Warn("skipping registry address without code", "name", name.String, "street", street.String)
			continue
		}
		addresses = append(addresses, Address{
			Code:       strings.TrimSpace(code.String),
			Name:       strings.TrimSpace(name.String),
			Street:     strings.TrimSpace(street.String),
			Postcode:   strings.TrimSpace(postcode.String),
			City:       strings.TrimSpace(city.String),
			Province:   strings.TrimSpace(province.String),
			Country:    strings.TrimSpace(country.String),
			Alias:      strings.TrimSpace(alias.String),
			IsCustomer: customer == 1,
			IsSupplier: supplier == 1,
			IsPrimary:  primary,
			FiscalCode: strings.TrimSpace(fiscal.String),
			VATCode:    strings.TrimSpace(vat.String),
			Homepage:   strings.TrimSpace(homepage.String),
		})
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate addresses")
	}
	return addresses, nil
}
