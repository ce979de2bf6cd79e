package pharmacy

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Kind names one of the four pharmacy collections.
type Kind string

const (
	KindMedicines Kind = "medicines"
	KindSuppliers Kind = "suppliers"
	KindPurchases Kind = "purchases"
	KindSales     Kind = "sales"
)

// Kinds lists the collections in dashboard order.
var Kinds = []Kind{KindMedicines, KindSuppliers, KindPurchases, KindSales}

// ParseKind resolves a collection name.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Source is the read contract consumed by table views and the dashboard.
type Source interface {
	GetMedicines(ctx context.Context) []Medicine
	GetSuppliers(ctx context.Context) []Supplier
	GetPurchases(ctx context.Context) []PurchaseRecord
	GetSales(ctx context.Context) []SaleRecord
}

// Service reads the pharmacy collections from a Store. Collection reads never
// fail: a store error is logged, counted and served as an empty collection.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
}

// NewService wires a Store with logging and failure metrics.
func NewService(store Store, logger *slog.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, metrics: metrics}
}

// GetMedicines returns every medicine.
func (s *Service) GetMedicines(ctx context.Context) []Medicine {
	medicines, err := s.store.ListMedicines(ctx)
	if err != nil {
		s.fetchFailed(ctx, KindMedicines, err)
		return []Medicine{}
	}
	if medicines == nil {
		return []Medicine{}
	}
	return medicines
}

// GetSuppliers returns every supplier.
func (s *Service) GetSuppliers(ctx context.Context) []Supplier {
	suppliers, err := s.store.ListSuppliers(ctx)
	if err != nil {
		s.fetchFailed(ctx, KindSuppliers, err)
		return []Supplier{}
	}
	if suppliers == nil {
		return []Supplier{}
	}
	return suppliers
}

// GetPurchases returns purchases with medicine and supplier names resolved.
func (s *Service) GetPurchases(ctx context.Context) []PurchaseRecord {
	var (
		purchases []Purchase
		medicines []Medicine
		suppliers []Supplier
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		purchases, err = s.store.ListPurchases(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		medicines, err = s.store.ListMedicines(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		suppliers, err = s.store.ListSuppliers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fetchFailed(ctx, KindPurchases, err)
		return []PurchaseRecord{}
	}
	return JoinPurchases(purchases, medicines, suppliers)
}

// GetSales returns sales with medicine names resolved.
func (s *Service) GetSales(ctx context.Context) []SaleRecord {
	var (
		sales     []Sale
		medicines []Medicine
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = s.store.ListSales(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		medicines, err = s.store.ListMedicines(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fetchFailed(ctx, KindSales, err)
		return []SaleRecord{}
	}
	return JoinSales(sales, medicines)
}

// GetMedicine looks up one medicine. Unlike the collection reads it reports
// errors, including ErrNotFound.
func (s *Service) GetMedicine(ctx context.Context, id int64) (Medicine, error) {
	return s.store.GetMedicine(ctx, id)
}

// GetSupplier looks up one supplier.
func (s *Service) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	return s.store.GetSupplier(ctx, id)
}

// JoinPurchases resolves display names by key. A purchase whose medicine or
// supplier is missing keeps that name unresolved.
func JoinPurchases(purchases []Purchase, medicines []Medicine, suppliers []Supplier) []PurchaseRecord {
	medicineNames := medicineIndex(medicines)
	supplierNames := make(map[int64]string, len(suppliers))
	for _, sup := range suppliers {
		supplierNames[sup.ID] = sup.Name
	}
	records := make([]PurchaseRecord, 0, len(purchases))
	for _, p := range purchases {
		rec := PurchaseRecord{Purchase: p}
		if name, ok := medicineNames[p.MedicineID]; ok {
			rec.MedicineName = ResolvedName(name)
		}
		if name, ok := supplierNames[p.SupplierID]; ok {
			rec.SupplierName = ResolvedName(name)
		}
		records = append(records, rec)
	}
	return records
}

// JoinSales resolves medicine names by key.
func JoinSales(sales []Sale, medicines []Medicine) []SaleRecord {
	medicineNames := medicineIndex(medicines)
	records := make([]SaleRecord, 0, len(sales))
	for _, sale := range sales {
		rec := SaleRecord{Sale: sale}
		if name, ok := medicineNames[sale.MedicineID]; ok {
			rec.MedicineName = ResolvedName(name)
		}
		records = append(records, rec)
	}
	return records
}

func medicineIndex(medicines []Medicine) map[int64]string {
	names := make(map[int64]string, len(medicines))
	for _, m := range medicines {
		names[m.ID] = m.Name
	}
	return names
}

func (s *Service) fetchFailed(ctx context.Context, kind Kind, err error) {
	if ctx.Err() != nil {
		// Caller stopped waiting.
		s.logger.Debug("pharmacy fetch abandoned", slog.String("collection", string(kind)), slog.Any("error", err))
		return
	}
	s.logger.Error("pharmacy fetch failed", slog.String("collection", string(kind)), slog.Any("error", err))
	s.metrics.FetchFailed(kind)
}
