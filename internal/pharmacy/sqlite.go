package pharmacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by an embedded SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite connects to the SQLite database at dsn and enables foreign keys.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("pharmacy: open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pharmacy: enable foreign keys: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Dates are kept as ISO text so the driver never guesses a time layout.
type medicineRow struct {
	ID              int64           `db:"medicine_id"`
	Name            string          `db:"name"`
	Category        string          `db:"category"`
	Manufacturer    string          `db:"manufacturer"`
	Price           decimal.Decimal `db:"price"`
	QuantityInStock int             `db:"quantity_in_stock"`
	ExpiryDate      string          `db:"expiry_date"`
}

func (r medicineRow) toDomain() (Medicine, error) {
	expiry, err := ParseDate(r.ExpiryDate)
	if err != nil {
		return Medicine{}, fmt.Errorf("pharmacy: medicine %d expiry: %w", r.ID, err)
	}
	return Medicine{
		ID:              r.ID,
		Name:            r.Name,
		Category:        r.Category,
		Manufacturer:    r.Manufacturer,
		Price:           r.Price,
		QuantityInStock: r.QuantityInStock,
		ExpiryDate:      expiry,
	}, nil
}

type purchaseRow struct {
	ID           int64           `db:"purchase_id"`
	MedicineID   int64           `db:"medicine_id"`
	SupplierID   int64           `db:"supplier_id"`
	PurchaseDate string          `db:"purchase_date"`
	Quantity     int             `db:"quantity"`
	TotalCost    decimal.Decimal `db:"total_cost"`
}

type saleRow struct {
	ID           int64           `db:"sale_id"`
	MedicineID   int64           `db:"medicine_id"`
	SaleDate     string          `db:"sale_date"`
	QuantitySold int             `db:"quantity_sold"`
	TotalAmount  decimal.Decimal `db:"total_amount"`
}

func (s *SQLiteStore) ListMedicines(ctx context.Context) ([]Medicine, error) {
	var rows []medicineRow
	if err := s.db.SelectContext(ctx, &rows, selectMedicines+` ORDER BY medicine_id`); err != nil {
		return nil, fmt.Errorf("pharmacy: list medicines: %w", err)
	}
	medicines := make([]Medicine, 0, len(rows))
	for _, row := range rows {
		m, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		medicines = append(medicines, m)
	}
	return medicines, nil
}

func (s *SQLiteStore) GetMedicine(ctx context.Context, id int64) (Medicine, error) {
	var row medicineRow
	err := s.db.GetContext(ctx, &row, selectMedicines+` WHERE medicine_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Medicine{}, ErrNotFound
	}
	if err != nil {
		return Medicine{}, err
	}
	return row.toDomain()
}

func (s *SQLiteStore) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var suppliers []Supplier
	if err := s.db.SelectContext(ctx, &suppliers, selectSuppliers+` ORDER BY supplier_id`); err != nil {
		return nil, fmt.Errorf("pharmacy: list suppliers: %w", err)
	}
	return suppliers, nil
}

func (s *SQLiteStore) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	var sup Supplier
	err := s.db.GetContext(ctx, &sup, selectSuppliers+` WHERE supplier_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Supplier{}, ErrNotFound
	}
	return sup, err
}

func (s *SQLiteStore) ListPurchases(ctx context.Context) ([]Purchase, error) {
	var rows []purchaseRow
	if err := s.db.SelectContext(ctx, &rows, selectPurchases); err != nil {
		return nil, fmt.Errorf("pharmacy: list purchases: %w", err)
	}
	purchases := make([]Purchase, 0, len(rows))
	for _, row := range rows {
		date, err := ParseDate(row.PurchaseDate)
		if err != nil {
			return nil, fmt.Errorf("pharmacy: purchase %d date: %w", row.ID, err)
		}
		purchases = append(purchases, Purchase{
			ID:           row.ID,
			MedicineID:   row.MedicineID,
			SupplierID:   row.SupplierID,
			PurchaseDate: date,
			Quantity:     row.Quantity,
			TotalCost:    row.TotalCost,
		})
	}
	return purchases, nil
}

func (s *SQLiteStore) ListSales(ctx context.Context) ([]Sale, error) {
	var rows []saleRow
	if err := s.db.SelectContext(ctx, &rows, selectSales); err != nil {
		return nil, fmt.Errorf("pharmacy: list sales: %w", err)
	}
	sales := make([]Sale, 0, len(rows))
	for _, row := range rows {
		date, err := ParseDate(row.SaleDate)
		if err != nil {
			return nil, fmt.Errorf("pharmacy: sale %d date: %w", row.ID, err)
		}
		sales = append(sales, Sale{
			ID:           row.ID,
			MedicineID:   row.MedicineID,
			SaleDate:     date,
			QuantitySold: row.QuantitySold,
			TotalAmount:  row.TotalAmount,
		})
	}
	return sales, nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS medicines (
		medicine_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		manufacturer TEXT NOT NULL DEFAULT '',
		price TEXT NOT NULL CHECK (CAST(price AS REAL) >= 0),
		quantity_in_stock INTEGER NOT NULL CHECK (quantity_in_stock >= 0),
		expiry_date TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS suppliers (
		supplier_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		contact_number TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS purchases (
		purchase_id INTEGER PRIMARY KEY,
		medicine_id INTEGER NOT NULL,
		supplier_id INTEGER NOT NULL,
		purchase_date TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		total_cost TEXT NOT NULL CHECK (CAST(total_cost AS REAL) >= 0),
		FOREIGN KEY(medicine_id) REFERENCES medicines(medicine_id),
		FOREIGN KEY(supplier_id) REFERENCES suppliers(supplier_id)
	);`,
	`CREATE TABLE IF NOT EXISTS sales (
		sale_id INTEGER PRIMARY KEY,
		medicine_id INTEGER NOT NULL,
		sale_date TEXT NOT NULL,
		quantity_sold INTEGER NOT NULL CHECK (quantity_sold > 0),
		total_amount TEXT NOT NULL CHECK (CAST(total_amount AS REAL) >= 0),
		FOREIGN KEY(medicine_id) REFERENCES medicines(medicine_id)
	);`,
}

// Migrate creates the pharmacy tables when missing.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("pharmacy: migrate: %w", err)
		}
	}
	return nil
}

// Seed inserts the dataset in one transaction, skipping rows that already exist.
func (s *SQLiteStore) Seed(ctx context.Context, data Dataset) error {
	if err := data.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pharmacy: begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range data.Medicines {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO medicines (medicine_id, name, category, manufacturer, price, quantity_in_stock, expiry_date) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.Name, m.Category, m.Manufacturer, m.Price.StringFixed(2), m.QuantityInStock, m.ExpiryDate.Format(DateLayout)); err != nil {
			return fmt.Errorf("pharmacy: seed medicine %d: %w", m.ID, err)
		}
	}
	for _, sup := range data.Suppliers {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO suppliers (supplier_id, name, contact_number, email) VALUES (?, ?, ?, ?)`,
			sup.ID, sup.Name, sup.ContactNumber, sup.Email); err != nil {
			return fmt.Errorf("pharmacy: seed supplier %d: %w", sup.ID, err)
		}
	}
	for _, p := range data.Purchases {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO purchases (purchase_id, medicine_id, supplier_id, purchase_date, quantity, total_cost) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.MedicineID, p.SupplierID, p.PurchaseDate.Format(DateLayout), p.Quantity, p.TotalCost.StringFixed(2)); err != nil {
			return fmt.Errorf("pharmacy: seed purchase %d: %w", p.ID, err)
		}
	}
	for _, sale := range data.Sales {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO sales (sale_id, medicine_id, sale_date, quantity_sold, total_amount) VALUES (?, ?, ?, ?, ?)`,
			sale.ID, sale.MedicineID, sale.SaleDate.Format(DateLayout), sale.QuantitySold, sale.TotalAmount.StringFixed(2)); err != nil {
			return fmt.Errorf("pharmacy: seed sale %d: %w", sale.ID, err)
		}
	}
	return tx.Commit()
}
