package pharmacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medconnect/medconnect/internal/platform/db"
)

// Repository is the PostgreSQL Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const (
	selectMedicines = `SELECT medicine_id, name, category, manufacturer, price, quantity_in_stock, expiry_date FROM medicines`
	selectSuppliers = `SELECT supplier_id, name, contact_number, email FROM suppliers`
	selectPurchases = `SELECT purchase_id, medicine_id, supplier_id, purchase_date, quantity, total_cost FROM purchases ORDER BY purchase_id`
	selectSales     = `SELECT sale_id, medicine_id, sale_date, quantity_sold, total_amount FROM sales ORDER BY sale_id`
)

func (r *Repository) ListMedicines(ctx context.Context) ([]Medicine, error) {
	rows, err := r.pool.Query(ctx, selectMedicines+` ORDER BY medicine_id`)
	if err != nil {
		return nil, fmt.Errorf("pharmacy: list medicines: %w", err)
	}
	defer rows.Close()

	var medicines []Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		medicines = append(medicines, m)
	}
	return medicines, rows.Err()
}

func (r *Repository) GetMedicine(ctx context.Context, id int64) (Medicine, error) {
	m, err := scanMedicine(r.pool.QueryRow(ctx, selectMedicines+` WHERE medicine_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Medicine{}, ErrNotFound
	}
	return m, err
}

func (r *Repository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, selectSuppliers+` ORDER BY supplier_id`)
	if err != nil {
		return nil, fmt.Errorf("pharmacy: list suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.ContactNumber, &s.Email); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

func (r *Repository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.pool.QueryRow(ctx, selectSuppliers+` WHERE supplier_id = $1`, id).Scan(&s.ID, &s.Name, &s.ContactNumber, &s.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrNotFound
	}
	return s, err
}

func (r *Repository) ListPurchases(ctx context.Context) ([]Purchase, error) {
	rows, err := r.pool.Query(ctx, selectPurchases)
	if err != nil {
		return nil, fmt.Errorf("pharmacy: list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.MedicineID, &p.SupplierID, &p.PurchaseDate, &p.Quantity, &p.TotalCost); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func (r *Repository) ListSales(ctx context.Context) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, selectSales)
	if err != nil {
		return nil, fmt.Errorf("pharmacy: list sales: %w", err)
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.MedicineID, &s.SaleDate, &s.QuantitySold, &s.TotalAmount); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

func scanMedicine(row pgx.Row) (Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.Name, &m.Category, &m.Manufacturer, &m.Price, &m.QuantityInStock, &m.ExpiryDate)
	return m, err
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS medicines (
		medicine_id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		manufacturer TEXT NOT NULL DEFAULT '',
		price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		quantity_in_stock INTEGER NOT NULL CHECK (quantity_in_stock >= 0),
		expiry_date DATE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS suppliers (
		supplier_id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		contact_number TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS purchases (
		purchase_id BIGINT PRIMARY KEY,
		medicine_id BIGINT NOT NULL REFERENCES medicines(medicine_id),
		supplier_id BIGINT NOT NULL REFERENCES suppliers(supplier_id),
		purchase_date DATE NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		total_cost NUMERIC(12,2) NOT NULL CHECK (total_cost >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		sale_id BIGINT PRIMARY KEY,
		medicine_id BIGINT NOT NULL REFERENCES medicines(medicine_id),
		sale_date DATE NOT NULL,
		quantity_sold INTEGER NOT NULL CHECK (quantity_sold > 0),
		total_amount NUMERIC(12,2) NOT NULL CHECK (total_amount >= 0)
	)`,
}

// Migrate creates the pharmacy tables when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, stmt := range postgresSchema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("pharmacy: migrate: %w", err)
			}
		}
		return nil
	})
}

// Seed inserts the dataset in one repeatable-read transaction, skipping rows
// that already exist.
func (r *Repository) Seed(ctx context.Context, data Dataset) error {
	if err := data.Validate(); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, m := range data.Medicines {
		batch.Queue(`INSERT INTO medicines (medicine_id, name, category, manufacturer, price, quantity_in_stock, expiry_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (medicine_id) DO NOTHING`,
			m.ID, m.Name, m.Category, m.Manufacturer, m.Price, m.QuantityInStock, m.ExpiryDate)
	}
	for _, s := range data.Suppliers {
		batch.Queue(`INSERT INTO suppliers (supplier_id, name, contact_number, email)
			VALUES ($1, $2, $3, $4) ON CONFLICT (supplier_id) DO NOTHING`,
			s.ID, s.Name, s.ContactNumber, s.Email)
	}
	for _, p := range data.Purchases {
		batch.Queue(`INSERT INTO purchases (purchase_id, medicine_id, supplier_id, purchase_date, quantity, total_cost)
			VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (purchase_id) DO NOTHING`,
			p.ID, p.MedicineID, p.SupplierID, p.PurchaseDate, p.Quantity, p.TotalCost)
	}
	for _, s := range data.Sales {
		batch.Queue(`INSERT INTO sales (sale_id, medicine_id, sale_date, quantity_sold, total_amount)
			VALUES ($1, $2, $3, $4, $5) ON CONFLICT (sale_id) DO NOTHING`,
			s.ID, s.MedicineID, s.SaleDate, s.QuantitySold, s.TotalAmount)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("pharmacy: seed: %w", err)
		}
		return nil
	})
}
