package pharmacy

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Store is the backing store for the four pharmacy collections. List
// operations return rows ordered by identity.
type Store interface {
	ListMedicines(ctx context.Context) ([]Medicine, error)
	GetMedicine(ctx context.Context, id int64) (Medicine, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	ListPurchases(ctx context.Context) ([]Purchase, error)
	ListSales(ctx context.Context) ([]Sale, error)
}

// Dataset groups the four collections for seeding and fixtures.
type Dataset struct {
	Medicines []Medicine
	Suppliers []Supplier
	Purchases []Purchase
	Sales     []Sale
}

var validate = validator.New()

// Validate checks field constraints, non-negative money and referential
// integrity across the dataset.
func (d Dataset) Validate() error {
	medicines := make(map[int64]struct{}, len(d.Medicines))
	for _, m := range d.Medicines {
		if err := validate.Struct(m); err != nil {
			return fmt.Errorf("pharmacy: medicine %d: %w", m.ID, err)
		}
		if m.Price.IsNegative() {
			return fmt.Errorf("medicine %d price: %w", m.ID, ErrNegativeAmount)
		}
		medicines[m.ID] = struct{}{}
	}
	suppliers := make(map[int64]struct{}, len(d.Suppliers))
	for _, s := range d.Suppliers {
		if err := validate.Struct(s); err != nil {
			return fmt.Errorf("pharmacy: supplier %d: %w", s.ID, err)
		}
		suppliers[s.ID] = struct{}{}
	}
	for _, p := range d.Purchases {
		if err := validate.Struct(p); err != nil {
			return fmt.Errorf("pharmacy: purchase %d: %w", p.ID, err)
		}
		if p.TotalCost.IsNegative() {
			return fmt.Errorf("purchase %d total cost: %w", p.ID, ErrNegativeAmount)
		}
		if _, ok := medicines[p.MedicineID]; !ok {
			return fmt.Errorf("purchase %d medicine %d: %w", p.ID, p.MedicineID, ErrIntegrity)
		}
		if _, ok := suppliers[p.SupplierID]; !ok {
			return fmt.Errorf("purchase %d supplier %d: %w", p.ID, p.SupplierID, ErrIntegrity)
		}
	}
	for _, s := range d.Sales {
		if err := validate.Struct(s); err != nil {
			return fmt.Errorf("pharmacy: sale %d: %w", s.ID, err)
		}
		if s.TotalAmount.IsNegative() {
			return fmt.Errorf("sale %d total amount: %w", s.ID, ErrNegativeAmount)
		}
		if _, ok := medicines[s.MedicineID]; !ok {
			return fmt.Errorf("sale %d medicine %d: %w", s.ID, s.MedicineID, ErrIntegrity)
		}
	}
	return nil
}

// FixtureStore keeps the collections in memory.
type FixtureStore struct {
	mu   sync.RWMutex
	data Dataset
}

// NewFixtureStore validates the dataset and returns a store serving copies of it.
func NewFixtureStore(data Dataset) (*FixtureStore, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	s := &FixtureStore{data: Dataset{
		Medicines: append([]Medicine(nil), data.Medicines...),
		Suppliers: append([]Supplier(nil), data.Suppliers...),
		Purchases: append([]Purchase(nil), data.Purchases...),
		Sales:     append([]Sale(nil), data.Sales...),
	}}
	sort.Slice(s.data.Medicines, func(i, j int) bool { return s.data.Medicines[i].ID < s.data.Medicines[j].ID })
	sort.Slice(s.data.Suppliers, func(i, j int) bool { return s.data.Suppliers[i].ID < s.data.Suppliers[j].ID })
	sort.Slice(s.data.Purchases, func(i, j int) bool { return s.data.Purchases[i].ID < s.data.Purchases[j].ID })
	sort.Slice(s.data.Sales, func(i, j int) bool { return s.data.Sales[i].ID < s.data.Sales[j].ID })
	return s, nil
}

func (s *FixtureStore) ListMedicines(ctx context.Context) ([]Medicine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Medicine(nil), s.data.Medicines...), nil
}

func (s *FixtureStore) GetMedicine(ctx context.Context, id int64) (Medicine, error) {
	if err := ctx.Err(); err != nil {
		return Medicine{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.data.Medicines {
		if m.ID == id {
			return m, nil
		}
	}
	return Medicine{}, ErrNotFound
}

func (s *FixtureStore) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Supplier(nil), s.data.Suppliers...), nil
}

func (s *FixtureStore) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	if err := ctx.Err(); err != nil {
		return Supplier{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sup := range s.data.Suppliers {
		if sup.ID == id {
			return sup, nil
		}
	}
	return Supplier{}, ErrNotFound
}

func (s *FixtureStore) ListPurchases(ctx context.Context) ([]Purchase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Purchase(nil), s.data.Purchases...), nil
}

func (s *FixtureStore) ListSales(ctx context.Context) ([]Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Sale(nil), s.data.Sales...), nil
}

func mustDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SampleData returns the demo pharmacy dataset.
func SampleData() Dataset {
	return Dataset{
		Medicines: []Medicine{
			{ID: 1, Name: "Paracetamol", Category: "Analgesic", Manufacturer: "Johnson & Johnson", Price: money("5.99"), QuantityInStock: 150, ExpiryDate: mustDate("2025-06-15")},
			{ID: 2, Name: "Amoxicillin", Category: "Antibiotic", Manufacturer: "Pfizer", Price: money("12.50"), QuantityInStock: 80, ExpiryDate: mustDate("2024-12-01")},
			{ID: 3, Name: "Loratadine", Category: "Antihistamine", Manufacturer: "Bayer", Price: money("8.75"), QuantityInStock: 100, ExpiryDate: mustDate("2025-03-22")},
			{ID: 4, Name: "Ibuprofen", Category: "Anti-inflammatory", Manufacturer: "GSK", Price: money("7.25"), QuantityInStock: 120, ExpiryDate: mustDate("2025-05-10")},
			{ID: 5, Name: "Metformin", Category: "Antidiabetic", Manufacturer: "Merck", Price: money("15.30"), QuantityInStock: 60, ExpiryDate: mustDate("2024-10-18")},
		},
		Suppliers: []Supplier{
			{ID: 1, Name: "MediPharma Distributors", ContactNumber: "+1-555-123-4567", Email: "contact@medipharma.com"},
			{ID: 2, Name: "Global Health Supplies", ContactNumber: "+1-555-234-5678", Email: "sales@globalhealthsupplies.com"},
			{ID: 3, Name: "PharmaPlus Inc.", ContactNumber: "+1-555-345-6789", Email: "info@pharmaplus.com"},
			{ID: 4, Name: "MediTech Suppliers", ContactNumber: "+1-555-456-7890", Email: "orders@meditechsuppliers.com"},
		},
		Purchases: []Purchase{
			{ID: 1, MedicineID: 1, SupplierID: 2, PurchaseDate: mustDate("2023-10-15"), Quantity: 50, TotalCost: money("249.50")},
			{ID: 2, MedicineID: 2, SupplierID: 1, PurchaseDate: mustDate("2023-11-02"), Quantity: 30, TotalCost: money("337.50")},
			{ID: 3, MedicineID: 3, SupplierID: 3, PurchaseDate: mustDate("2023-11-10"), Quantity: 40, TotalCost: money("320.00")},
			{ID: 4, MedicineID: 4, SupplierID: 2, PurchaseDate: mustDate("2023-12-05"), Quantity: 45, TotalCost: money("303.75")},
			{ID: 5, MedicineID: 5, SupplierID: 4, PurchaseDate: mustDate("2024-01-10"), Quantity: 25, TotalCost: money("357.50")},
		},
		Sales: []Sale{
			{ID: 1, MedicineID: 1, SaleDate: mustDate("2024-01-05"), QuantitySold: 10, TotalAmount: money("59.90")},
			{ID: 2, MedicineID: 3, SaleDate: mustDate("2024-01-08"), QuantitySold: 5, TotalAmount: money("43.75")},
			{ID: 3, MedicineID: 2, SaleDate: mustDate("2024-01-12"), QuantitySold: 8, TotalAmount: money("100.00")},
			{ID: 4, MedicineID: 4, SaleDate: mustDate("2024-01-15"), QuantitySold: 12, TotalAmount: money("87.00")},
			{ID: 5, MedicineID: 1, SaleDate: mustDate("2024-01-18"), QuantitySold: 7, TotalAmount: money("41.93")},
		},
	}
}
