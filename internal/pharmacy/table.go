package pharmacy

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ViewState is the lifecycle of a table view.
type ViewState int

const (
	StateLoading ViewState = iota
	StatePopulated
	StateEmpty
)

func (s ViewState) String() string {
	switch s {
	case StatePopulated:
		return "populated"
	case StateEmpty:
		return "empty"
	default:
		return "loading"
	}
}

var (
	// ErrUnknownKind is returned for a collection name outside Kinds.
	ErrUnknownKind = errors.New("pharmacy: unknown collection")
	// ErrNotLoaded is returned when a view is exported before its data arrived.
	ErrNotLoaded = errors.New("pharmacy: table not loaded")
)

// Column is a table header.
type Column struct {
	Header string
}

// Cell is one formatted table cell. Badge holds a CSS class when the cell
// renders as a status badge.
type Cell struct {
	Text   string
	Badge  string
	Strong bool
}

// Row is one formatted table row.
type Row struct {
	Cells []Cell
}

// TableModel is the render-ready form of a view.
type TableModel struct {
	Kind        Kind
	Title       string
	Columns     []Column
	Rows        []Row
	State       ViewState
	Placeholder string
	Colspan     int
}

// TableSpec configures a TableView for one record type.
type TableSpec[T any] struct {
	Kind    Kind
	Title   string
	Columns []Column
	Fetch   func(ctx context.Context) []T
	Match   func(m matcher, rec T) bool
	Cells   func(rec T, today time.Time) []Cell
}

// TableView fetches its collection once, filters it in memory and formats
// rows for display. A view is owned by a single request.
type TableView[T any] struct {
	spec    TableSpec[T]
	today   func() time.Time
	started bool
	loaded  bool
	records []T
	query   string
	state   ViewState
}

// NewTableView returns a view in the loading state.
func NewTableView[T any](spec TableSpec[T], today func() time.Time) *TableView[T] {
	if today == nil {
		today = time.Now
	}
	return &TableView[T]{spec: spec, today: today, state: StateLoading}
}

// Kind reports the collection shown by the view.
func (v *TableView[T]) Kind() Kind {
	return v.spec.Kind
}

// Load fetches the collection on first call. When ctx ends before the fetch
// resolves, the view stays loading and the late result is dropped.
func (v *TableView[T]) Load(ctx context.Context) ViewState {
	if v.started {
		return v.state
	}
	v.started = true

	done := make(chan []T, 1)
	go func() {
		done <- v.spec.Fetch(ctx)
	}()
	select {
	case records := <-done:
		v.records = records
		v.loaded = true
		v.refresh()
	case <-ctx.Done():
	}
	return v.state
}

// SetQuery replaces the search string and re-filters the fetched records.
func (v *TableView[T]) SetQuery(query string) {
	v.query = query
	if v.loaded {
		v.refresh()
	}
}

// State reports the current lifecycle state.
func (v *TableView[T]) State() ViewState {
	return v.state
}

// Filtered returns the fetched records matching the query, in fetch order.
func (v *TableView[T]) Filtered() []T {
	if !v.loaded {
		return []T{}
	}
	m := newMatcher(v.query)
	out := make([]T, 0, len(v.records))
	for _, rec := range v.records {
		if m.empty() || v.spec.Match(m, rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Records returns Filtered as an untyped value for encoding.
func (v *TableView[T]) Records() any {
	return v.Filtered()
}

// Model formats the view for rendering.
func (v *TableView[T]) Model() TableModel {
	model := TableModel{
		Kind:    v.spec.Kind,
		Title:   v.spec.Title,
		Columns: v.spec.Columns,
		State:   v.state,
		Colspan: len(v.spec.Columns),
	}
	switch v.state {
	case StateLoading:
		model.Placeholder = fmt.Sprintf("Loading %s…", v.spec.Kind)
	case StateEmpty:
		model.Placeholder = fmt.Sprintf("No %s found", v.spec.Kind)
	default:
		model.Rows = v.rows()
	}
	return model
}

// WriteCSV writes the header and the formatted filtered rows.
func (v *TableView[T]) WriteCSV(w io.Writer) error {
	if !v.loaded {
		return ErrNotLoaded
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := make([]string, 0, len(v.spec.Columns))
	for _, col := range v.spec.Columns {
		header = append(header, col.Header)
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range v.rows() {
		record := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			record = append(record, cell.Text)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (v *TableView[T]) rows() []Row {
	today := v.today()
	filtered := v.Filtered()
	rows := make([]Row, 0, len(filtered))
	for _, rec := range filtered {
		rows = append(rows, Row{Cells: v.spec.Cells(rec, today)})
	}
	return rows
}

func (v *TableView[T]) refresh() {
	if len(v.Filtered()) > 0 {
		v.state = StatePopulated
		return
	}
	v.state = StateEmpty
}

// Table is the kind-independent view of a TableView.
type Table interface {
	Kind() Kind
	Load(ctx context.Context) ViewState
	SetQuery(query string)
	State() ViewState
	Model() TableModel
	Records() any
	WriteCSV(w io.Writer) error
}

// NewTable builds the view for a collection.
func NewTable(kind Kind, src Source, today func() time.Time) (Table, error) {
	switch kind {
	case KindMedicines:
		return NewTableView(MedicinesTable(src), today), nil
	case KindSuppliers:
		return NewTableView(SuppliersTable(src), today), nil
	case KindPurchases:
		return NewTableView(PurchasesTable(src), today), nil
	case KindSales:
		return NewTableView(SalesTable(src), today), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// MedicinesTable is the inventory table with a stock status column.
func MedicinesTable(src Source) TableSpec[Medicine] {
	return TableSpec[Medicine]{
		Kind:  KindMedicines,
		Title: "Medicines Inventory",
		Columns: []Column{
			{Header: "ID"}, {Header: "Name"}, {Header: "Category"}, {Header: "Manufacturer"},
			{Header: "Price"}, {Header: "Stock"}, {Header: "Expiry Date"}, {Header: "Status"},
		},
		Fetch: src.GetMedicines,
		Match: func(m matcher, rec Medicine) bool {
			return m.fold(rec.Name) || m.fold(rec.Category) || m.fold(rec.Manufacturer)
		},
		Cells: func(rec Medicine, today time.Time) []Cell {
			status := GetStockStatus(rec, today)
			return []Cell{
				{Text: formatID(rec.ID)},
				{Text: rec.Name, Strong: true},
				{Text: rec.Category},
				{Text: rec.Manufacturer},
				{Text: FormatCurrency(rec.Price)},
				{Text: strconv.Itoa(rec.QuantityInStock)},
				{Text: FormatDate(rec.ExpiryDate)},
				{Text: string(status), Badge: status.BadgeClass()},
			}
		},
	}
}

// SuppliersTable lists distributors.
func SuppliersTable(src Source) TableSpec[Supplier] {
	return TableSpec[Supplier]{
		Kind:    KindSuppliers,
		Title:   "Suppliers",
		Columns: []Column{{Header: "ID"}, {Header: "Name"}, {Header: "Contact Number"}, {Header: "Email"}},
		Fetch:   src.GetSuppliers,
		Match: func(m matcher, rec Supplier) bool {
			return m.fold(rec.Name) || m.fold(rec.Email) || m.exact(rec.ContactNumber)
		},
		Cells: func(rec Supplier, _ time.Time) []Cell {
			return []Cell{
				{Text: formatID(rec.ID)},
				{Text: rec.Name, Strong: true},
				{Text: rec.ContactNumber},
				{Text: rec.Email},
			}
		},
	}
}

// PurchasesTable is the purchase history.
func PurchasesTable(src Source) TableSpec[PurchaseRecord] {
	return TableSpec[PurchaseRecord]{
		Kind:  KindPurchases,
		Title: "Purchase History",
		Columns: []Column{
			{Header: "ID"}, {Header: "Medicine"}, {Header: "Supplier"},
			{Header: "Date"}, {Header: "Quantity"}, {Header: "Total Cost"},
		},
		Fetch: src.GetPurchases,
		Match: func(m matcher, rec PurchaseRecord) bool {
			return m.name(rec.MedicineName) || m.name(rec.SupplierName) || m.exact(ISODate(rec.PurchaseDate))
		},
		Cells: func(rec PurchaseRecord, _ time.Time) []Cell {
			return []Cell{
				{Text: formatID(rec.ID)},
				{Text: rec.MedicineName.String(), Strong: true},
				{Text: rec.SupplierName.String()},
				{Text: FormatDate(rec.PurchaseDate)},
				{Text: strconv.Itoa(rec.Quantity)},
				{Text: FormatCurrency(rec.TotalCost)},
			}
		},
	}
}

// SalesTable is the sales history.
func SalesTable(src Source) TableSpec[SaleRecord] {
	return TableSpec[SaleRecord]{
		Kind:  KindSales,
		Title: "Sales History",
		Columns: []Column{
			{Header: "ID"}, {Header: "Medicine"}, {Header: "Date"},
			{Header: "Quantity"}, {Header: "Total Amount"},
		},
		Fetch: src.GetSales,
		Match: func(m matcher, rec SaleRecord) bool {
			return m.name(rec.MedicineName) || m.exact(ISODate(rec.SaleDate))
		},
		Cells: func(rec SaleRecord, _ time.Time) []Cell {
			return []Cell{
				{Text: formatID(rec.ID)},
				{Text: rec.MedicineName.String(), Strong: true},
				{Text: FormatDate(rec.SaleDate)},
				{Text: strconv.Itoa(rec.QuantitySold)},
				{Text: FormatCurrency(rec.TotalAmount)},
			}
		},
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
