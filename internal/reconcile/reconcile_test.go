// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package reconcile

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wneessen/easyfatt-export/internal/document"
	"github.com/wneessen/easyfatt-export/internal/geocode"
	"github.com/wneessen/easyfatt-export/internal/kml"
	"github.com/wneessen/easyfatt-export/internal/logger"
	"github.com/wneessen/easyfatt-export/internal/registry"
)

const testTitle = "{customerName} ({customerCode}) {notes}"

// fakeCoder resolves every query to a single location, except the ones listed in fail.
type fakeCoder struct {
	mu      sync.Mutex
	fail    map[string]bool
	queries map[string]int
}

func newFakeCoder(fail ...string) *fakeCoder {
	f := &fakeCoder{fail: make(map[string]bool), queries: make(map[string]int)}
	for _, query := range fail {
		f.fail[query] = true
	}
	return f
}

func (f *fakeCoder) Name() string { return "fake" }

func (f *fakeCoder) Search(_ context.Context, query, _ string) ([]geocode.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries[query]++
	if f.fail[query] {
		return nil, nil
	}
	return []geocode.Location{{Address: query, Latitude: 45, Longitude: float64(len(query))}}, nil
}

var testAddresses = []registry.Address{
	{Code: "F0001", Name: "Verdi Forniture", Street: "Via Verdi 3", Postcode: "40121", City: "Bologna",
		Country: "Italia", IsSupplier: true, IsPrimary: true},
	{Code: "C0001", Name: "Rossi Mario - Magazzino", Street: "Via Po 2", Postcode: "10123", City: "Torino",
		Country: "Italia", Alias: "A", IsCustomer: true},
	{Code: "C0001", Name: "Rossi Mario", Street: "Via Roma 1", Postcode: "20121", City: "Milano",
		Country: "Italia", IsCustomer: true, IsPrimary: true, Homepage: "rossi.it"},
	{Code: "C0002", Name: "Bianchi Srl", Street: "Corso Italia 5", Postcode: "10121", City: "Torino",
		Country: "Italia", IsCustomer: true, IsSupplier: true, IsPrimary: true},
	{Code: "C0003", Name: "Neri Giulia", Street: "Piazza Duomo 2", Postcode: "50122", City: "Firenze",
		Country: "Italia", IsCustomer: true, IsPrimary: true},
	{Code: "C0004", Name: "Senza Indirizzo", Street: "", Postcode: "", City: "", Country: "Italia",
		IsCustomer: true, IsPrimary: true},
}

func testDocuments() []document.Document {
	return []document.Document{
		document.New(map[string]string{
			"CustomerCode": "C0001", "CustomerName": "Rossi Mario", "CustomerAddress": "via roma 1",
			"CustomerPostcode": "20121", "CustomerCity": "MILANO",
		}),
		document.New(map[string]string{
			"CustomerCode": "C0001", "CustomerName": "Rossi Mario", "CustomerAddress": "Via Vecchia 4",
			"CustomerPostcode": "20121", "CustomerCity": "Milano", "DeliveryAddress": "Via Nuova 9",
			"DeliveryPostcode": "20100", "DeliveryCity": "Milano",
		}),
		document.New(map[string]string{
			"CustomerCode": "C0002", "CustomerName": "Bianchi Srl", "CustomerAddress": "Corso Italia 5",
			"CustomerPostcode": "10121", "CustomerCity": "Torino", "CustomerCountry": "Italia",
		}),
		document.New(map[string]string{
			"CustomerCode": "C0009", "CustomerName": "Gialli Luca", "CustomerAddress": "Viale Europa 7",
			"CustomerPostcode": "00144", "CustomerCity": "Roma",
		}),
	}
}

func TestReconciler_Run(t *testing.T) {
	ctx := context.Background()
	coder := newFakeCoder()
	store := geocode.NewMemoryStore()
	searcher := geocode.NewSearcher(coder, store, testLogger())
	company := document.Company{Name: "Ferramenta Rossi S.r.l.", Address: "Via Roma 1", Postcode: "20121",
		City: "Milano"}

	result, err := New(searcher, testLogger(), testTitle, WithCompany(company)).
		Run(ctx, testAddresses, testDocuments())
	require.NoError(t, err)

	customers := byName(result.Customers)
	suppliers := byName(result.Suppliers)

	t.Run("counters are reported", func(t *testing.T) {
		assert.Equal(t, 4, result.Documents)
		assert.Equal(t, 3, result.Processed)
		assert.Equal(t, 1, result.Unregistered)
		assert.Equal(t, 1, result.New)
		assert.Equal(t, 4, result.Hidden)
		assert.Len(t, result.Customers, 7)
		assert.Len(t, result.Suppliers, 2)
	})
	t.Run("company placemark is added", func(t *testing.T) {
		p, ok := customers["Ferramenta Rossi S.r.l. (MY COMPANY)"]
		require.True(t, ok)
		assert.Equal(t, kml.StyleCompany, p.Style)
		assert.False(t, p.Hidden)
	})
	t.Run("a record matched by a document is visible", func(t *testing.T) {
		p, ok := customers["Rossi Mario (C0001)"]
		require.True(t, ok)
		assert.False(t, p.Hidden)
		assert.Equal(t, kml.StyleCustomers, p.Style)
		assert.Equal(t, "via roma 1 20121, MILANO, Italia", p.Address)
	})
	t.Run("a record without matching document is hidden", func(t *testing.T) {
		p, ok := customers["Rossi Mario - Magazzino (C0001)"]
		require.True(t, ok)
		assert.True(t, p.Hidden)
	})
	t.Run("an unknown delivery address is new", func(t *testing.T) {
		p, ok := customers["Rossi Mario (C0001) - NUOVO!"]
		require.True(t, ok)
		assert.False(t, p.Hidden)
		assert.Equal(t, "Via Nuova 9 20100, Milano, Italia", p.Address)
	})
	t.Run("a customer without documents is hidden", func(t *testing.T) {
		p, ok := customers["Neri Giulia (C0003)"]
		require.True(t, ok)
		assert.True(t, p.Hidden)
	})
	t.Run("records without street are dropped", func(t *testing.T) {
		_, ok := customers["Senza Indirizzo (C0004)"]
		assert.False(t, ok)
	})
	t.Run("a customer that is also a supplier is in both folders", func(t *testing.T) {
		c, ok := customers["Bianchi Srl (C0002)"]
		require.True(t, ok)
		assert.False(t, c.Hidden)
		s, ok := suppliers["Bianchi Srl (C0002)"]
		require.True(t, ok)
		assert.True(t, s.Hidden)
		assert.Equal(t, kml.StyleSuppliers, s.Style)
	})
	t.Run("unregistered customers are visible and not cached", func(t *testing.T) {
		p, ok := customers["Gialli Luca (C0009) - CLIENTE NON CENSITO!"]
		require.True(t, ok)
		assert.False(t, p.Hidden)
		_, cached, err := store.Get(ctx, "Viale Europa 7 00144, Roma, Italia")
		require.NoError(t, err)
		assert.False(t, cached)
		_, cached, err = store.Get(ctx, "Via Verdi 3 40121, Bologna, Italia")
		require.NoError(t, err)
		assert.True(t, cached)
	})
}

func TestReconciler_Run_homepage(t *testing.T) {
	searcher := geocode.NewSearcher(newFakeCoder(), nil, testLogger())
	docs := testDocuments()
	result, err := New(searcher, testLogger(), "{customerName} {customerHomepage}").
		Run(context.Background(), testAddresses, docs)
	require.NoError(t, err)

	names := byName(result.Customers)
	assert.Contains(t, names, "Rossi Mario rossi.it")
	assert.Contains(t, names, "Gialli Luca N/D")
}

func TestReconciler_Run_policies(t *testing.T) {
	failing := "Piazza Duomo 2 50122, Firenze, Italia"

	t.Run("abort stops at the first geocoding error", func(t *testing.T) {
		searcher := geocode.NewSearcher(newFakeCoder(failing), nil, testLogger())
		_, err := New(searcher, testLogger(), testTitle).Run(context.Background(), testAddresses, testDocuments())
		require.Error(t, err)
		assert.True(t, geocode.IsGeocodingError(err))
	})
	t.Run("skip leaves the address out", func(t *testing.T) {
		searcher := geocode.NewSearcher(newFakeCoder(failing), nil, testLogger())
		result, err := New(searcher, testLogger(), testTitle, WithPolicy(geocode.OnErrorSkip)).
			Run(context.Background(), testAddresses, testDocuments())
		require.NoError(t, err)
		assert.NotContains(t, byName(result.Customers), "Neri Giulia (C0003)")
		assert.Len(t, result.Customers, 5)
	})
	t.Run("collect reports every error", func(t *testing.T) {
		coder := newFakeCoder(failing, "Viale Europa 7 00144, Roma, Italia")
		searcher := geocode.NewSearcher(coder, nil, testLogger())
		result, err := New(searcher, testLogger(), testTitle, WithPolicy(geocode.OnErrorCollect)).
			Run(context.Background(), testAddresses, testDocuments())
		require.Error(t, err)
		var agg *geocode.AggregateError
		require.ErrorAs(t, err, &agg)
		assert.Len(t, agg.Errors, 2)
		assert.Len(t, result.Suppliers, 2)
		assert.Equal(t, 1, result.Unregistered)
	})
	t.Run("invalid title templates fail", func(t *testing.T) {
		searcher := geocode.NewSearcher(newFakeCoder(), nil, testLogger())
		_, err := New(searcher, testLogger(), "{unknownField}").
			Run(context.Background(), testAddresses, testDocuments())
		require.Error(t, err)
		assert.False(t, geocode.IsGeocodingError(err))
	})
}

func TestReconciler_Run_groups(t *testing.T) {
	t.Run("documents of a group are claimed once", func(t *testing.T) {
		coder := newFakeCoder()
		searcher := geocode.NewSearcher(coder, nil, testLogger())
		addresses := []registry.Address{
			{Code: "C0001", Name: "Rossi", Street: "Via Roma 1", Postcode: "20121", City: "Milano",
				Country: "Italia", IsCustomer: true, IsPrimary: true},
			{Code: "C0001", Name: "Rossi Deposito", Street: "Via Nuova 9", Postcode: "20100", City: "Milano",
				Country: "Italia", Alias: "B", IsCustomer: true},
		}
		docs := testDocuments()[:2]
		result, err := New(searcher, testLogger(), testTitle).Run(context.Background(), addresses, docs)
		require.NoError(t, err)

		names := byName(result.Customers)
		assert.False(t, names["Rossi (C0001)"].Hidden)
		assert.False(t, names["Rossi Deposito (C0001)"].Hidden)
		assert.Equal(t, 0, result.New)
		assert.Equal(t, 2, result.Processed)
	})
	t.Run("new placemarks are flushed before the next group", func(t *testing.T) {
		searcher := geocode.NewSearcher(newFakeCoder(), nil, testLogger())
		addresses := testAddresses[1:4]
		result, err := New(searcher, testLogger(), testTitle).Run(context.Background(), addresses, testDocuments()[:3])
		require.NoError(t, err)

		names := make([]string, len(result.Customers))
		for i, p := range result.Customers {
			names[i] = p.Name
		}
		assert.Equal(t, []string{
			"Rossi Mario (C0001)",
			"Rossi Mario - Magazzino (C0001)",
			"Rossi Mario (C0001) - NUOVO!",
			"Bianchi Srl (C0002)",
		}, names)
	})
	t.Run("the trailing group is flushed", func(t *testing.T) {
		searcher := geocode.NewSearcher(newFakeCoder(), nil, testLogger())
		addresses := testAddresses[1:3]
		result, err := New(searcher, testLogger(), testTitle).Run(context.Background(), addresses, testDocuments()[:2])
		require.NoError(t, err)
		assert.Equal(t, 1, result.New)
		assert.Contains(t, byName(result.Customers), "Rossi Mario (C0001) - NUOVO!")
	})
}

func byName(placemarks []kml.Placemark) map[string]kml.Placemark {
	names := make(map[string]kml.Placemark, len(placemarks))
	for _, p := range placemarks {
		names[p.Name] = p
	}
	return names
}

func testLogger() *logger.Logger {
	return logger.NewLogger(slog.LevelDebug, io.Discard)
}
