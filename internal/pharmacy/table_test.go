package pharmacy

import (
	"bytes"
	"context"
	"encoding/csv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource serves joined records directly. When block is set every read
// waits for it to close.
type stubSource struct {
	medicines []Medicine
	suppliers []Supplier
	purchases []PurchaseRecord
	sales     []SaleRecord
	block     map[Kind]chan struct{}
	calls     atomic.Int32
}

func newStubSource() *stubSource {
	data := SampleData()
	return &stubSource{
		medicines: data.Medicines,
		suppliers: data.Suppliers,
		purchases: JoinPurchases(data.Purchases, data.Medicines, data.Suppliers),
		sales:     JoinSales(data.Sales, data.Medicines),
	}
}

func (s *stubSource) wait(kind Kind) {
	s.calls.Add(1)
	if ch, ok := s.block[kind]; ok {
		<-ch
	}
}

func (s *stubSource) GetMedicines(ctx context.Context) []Medicine {
	s.wait(KindMedicines)
	return s.medicines
}

func (s *stubSource) GetSuppliers(ctx context.Context) []Supplier {
	s.wait(KindSuppliers)
	return s.suppliers
}

func (s *stubSource) GetPurchases(ctx context.Context) []PurchaseRecord {
	s.wait(KindPurchases)
	return s.purchases
}

func (s *stubSource) GetSales(ctx context.Context) []SaleRecord {
	s.wait(KindSales)
	return s.sales
}

func fixedToday() time.Time {
	return mustDate("2024-11-01")
}

func loadTable(t *testing.T, kind Kind, src Source, query string) Table {
	t.Helper()
	table, err := NewTable(kind, src, fixedToday)
	require.NoError(t, err)
	table.SetQuery(query)
	table.Load(context.Background())
	return table
}

func TestTableStartsLoading(t *testing.T) {
	for _, kind := range Kinds {
		table, err := NewTable(kind, newStubSource(), fixedToday)
		require.NoError(t, err)
		assert.Equal(t, StateLoading, table.State())

		model := table.Model()
		assert.Equal(t, "Loading "+string(kind)+"…", model.Placeholder)
		assert.Equal(t, len(model.Columns), model.Colspan)
		assert.Empty(t, model.Rows)
	}
}

func TestTableColspans(t *testing.T) {
	want := map[Kind]int{KindMedicines: 8, KindSuppliers: 4, KindPurchases: 6, KindSales: 5}
	for kind, colspan := range want {
		table := loadTable(t, kind, newStubSource(), "no such thing")
		model := table.Model()
		assert.Equal(t, StateEmpty, model.State, kind)
		assert.Equal(t, colspan, model.Colspan, kind)
		assert.Equal(t, "No "+string(kind)+" found", model.Placeholder)
	}
}

func TestNewTableRejectsUnknownKind(t *testing.T) {
	_, err := NewTable(Kind("patients"), newStubSource(), fixedToday)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestMedicinesTable(t *testing.T) {
	src := newStubSource()
	src.medicines[4].QuantityInStock = 4

	table := loadTable(t, KindMedicines, src, "")
	model := table.Model()
	require.Equal(t, StatePopulated, model.State)
	require.Len(t, model.Rows, 5)
	assert.Equal(t, "Medicines Inventory", model.Title)

	first := model.Rows[0].Cells
	assert.Equal(t, "1", first[0].Text)
	assert.Equal(t, Cell{Text: "Paracetamol", Strong: true}, first[1])
	assert.Equal(t, "$5.99", first[4].Text)
	assert.Equal(t, "150", first[5].Text)
	assert.Equal(t, "Jun 15, 2025", first[6].Text)
	assert.Equal(t, Cell{Text: "In Stock", Badge: "badge-success"}, first[7])

	// Amoxicillin expires within a month of the fixed date.
	assert.Equal(t, "Expiring Soon", model.Rows[1].Cells[7].Text)
	assert.Equal(t, "badge-danger", model.Rows[4].Cells[7].Badge)
}

func TestMedicinesTableFilter(t *testing.T) {
	cases := map[string][]int64{
		"PFIZER":    {2},
		"anti":      {2, 3, 4, 5},
		"ibu":       {4},
		"analgesic": {1},
		"zzz":       {},
	}
	for query, want := range cases {
		table := loadTable(t, KindMedicines, newStubSource(), query)
		got := []int64{}
		for _, m := range table.Records().([]Medicine) {
			got = append(got, m.ID)
		}
		assert.Equal(t, want, got, query)
	}
}

func TestSuppliersTableFilter(t *testing.T) {
	ids := func(query string) []int64 {
		table := loadTable(t, KindSuppliers, newStubSource(), query)
		out := []int64{}
		for _, s := range table.Records().([]Supplier) {
			out = append(out, s.ID)
		}
		return out
	}
	assert.Equal(t, []int64{1, 4}, ids("medi"))
	assert.Equal(t, []int64{3}, ids("INFO@"))
	assert.Equal(t, []int64{2}, ids("234-5678"))
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(""))
}

func TestPurchasesTable(t *testing.T) {
	src := newStubSource()
	table := loadTable(t, KindPurchases, src, "")
	model := table.Model()
	require.Len(t, model.Rows, 5)
	assert.Equal(t, "Purchase History", model.Title)
	assert.Equal(t, []string{"1", "Paracetamol", "Global Health Supplies", "Oct 15, 2023", "50", "$249.50"}, texts(model.Rows[0]))
}

func TestPurchasesTableFilter(t *testing.T) {
	src := newStubSource()
	src.purchases = append(src.purchases, PurchaseRecord{
		Purchase: Purchase{ID: 6, MedicineID: 99, SupplierID: 98, PurchaseDate: mustDate("2024-02-01"), Quantity: 1, TotalCost: money("1.00")},
	})
	ids := func(query string) []int64 {
		table := loadTable(t, KindPurchases, src, query)
		out := []int64{}
		for _, p := range table.Records().([]PurchaseRecord) {
			out = append(out, p.ID)
		}
		return out
	}
	assert.Equal(t, []int64{2, 3}, ids("2023-11"))
	assert.Equal(t, []int64{1, 4}, ids("global"))
	assert.Equal(t, []int64{5}, ids("metformin"))
	assert.Equal(t, []int64{6}, ids("2024-02"))
	// Unresolved names never match, not even the empty string they render as.
	assert.Equal(t, []int64{}, ids("unknown"))
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, ids(""))

	table := loadTable(t, KindPurchases, src, "2024-02")
	assert.Equal(t, []string{"6", "", "", "Feb 1, 2024", "1", "$1.00"}, texts(table.Model().Rows[0]))
}

func TestSalesTableFilter(t *testing.T) {
	ids := func(query string) []int64 {
		table := loadTable(t, KindSales, newStubSource(), query)
		out := []int64{}
		for _, s := range table.Records().([]SaleRecord) {
			out = append(out, s.ID)
		}
		return out
	}
	assert.Equal(t, []int64{1, 5}, ids("PARA"))
	assert.Equal(t, []int64{4}, ids("2024-01-15"))
	assert.Equal(t, []int64{}, ids("Jan 15"))

	table := loadTable(t, KindSales, newStubSource(), "amox")
	model := table.Model()
	assert.Equal(t, "Sales History", model.Title)
	assert.Equal(t, []string{"3", "Amoxicillin", "Jan 12, 2024", "8", "$100.00"}, texts(model.Rows[0]))
}

func TestTableFilterIgnoresCase(t *testing.T) {
	for _, kind := range []Kind{KindMedicines, KindPurchases, KindSales} {
		upper := loadTable(t, kind, newStubSource(), "PARA")
		lower := loadTable(t, kind, newStubSource(), "para")
		assert.NotEmpty(t, upper.Model().Rows, kind)
		assert.Equal(t, upper.Records(), lower.Records(), kind)
	}
}

func TestTableQueryChangeRefilters(t *testing.T) {
	src := newStubSource()
	table := loadTable(t, KindMedicines, src, "zzz")
	assert.Equal(t, StateEmpty, table.State())

	table.SetQuery("bayer")
	assert.Equal(t, StatePopulated, table.State())
	assert.Len(t, table.Model().Rows, 1)

	table.SetQuery("")
	assert.Len(t, table.Model().Rows, 5)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestTableLoadsOnce(t *testing.T) {
	src := newStubSource()
	table, err := NewTable(KindSuppliers, src, fixedToday)
	require.NoError(t, err)

	assert.Equal(t, StatePopulated, table.Load(context.Background()))
	assert.Equal(t, StatePopulated, table.Load(context.Background()))
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestTableStaysLoadingWhenContextEnds(t *testing.T) {
	release := make(chan struct{})
	src := newStubSource()
	src.block = map[Kind]chan struct{}{KindSales: release}
	defer close(release)

	table, err := NewTable(KindSales, src, fixedToday)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, StateLoading, table.Load(ctx))
	assert.Equal(t, "Loading sales…", table.Model().Placeholder)
	assert.Empty(t, table.Records())

	var buf bytes.Buffer
	assert.ErrorIs(t, table.WriteCSV(&buf), ErrNotLoaded)
}

func TestTableEmptyCollection(t *testing.T) {
	src := newStubSource()
	src.suppliers = []Supplier{}
	table := loadTable(t, KindSuppliers, src, "")
	assert.Equal(t, StateEmpty, table.State())
	assert.Equal(t, "No suppliers found", table.Model().Placeholder)
}

func TestTableWriteCSV(t *testing.T) {
	table := loadTable(t, KindMedicines, newStubSource(), "loratadine")

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"ID", "Name", "Category", "Manufacturer", "Price", "Stock", "Expiry Date", "Status"}, records[0])
	assert.Equal(t, []string{"3", "Loratadine", "Antihistamine", "Bayer", "$8.75", "100", "Mar 22, 2025", "In Stock"}, records[1])
}

func texts(row Row) []string {
	out := make([]string, 0, len(row.Cells))
	for _, c := range row.Cells {
		out = append(out, c.Text)
	}
	return out
}
