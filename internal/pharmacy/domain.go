package pharmacy

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO calendar date form used by the store and by search.
const DateLayout = "2006-01-02"

// Medicine is a stocked medicine.
type Medicine struct {
	ID              int64           `db:"medicine_id" json:"medicine_id" validate:"gt=0"`
	Name            string          `db:"name" json:"name" validate:"required"`
	Category        string          `db:"category" json:"category"`
	Manufacturer    string          `db:"manufacturer" json:"manufacturer"`
	Price           decimal.Decimal `db:"price" json:"price"`
	QuantityInStock int             `db:"quantity_in_stock" json:"quantity_in_stock" validate:"gte=0"`
	ExpiryDate      time.Time       `db:"expiry_date" json:"expiry_date"`
}

// Supplier is a medicine distributor.
type Supplier struct {
	ID            int64  `db:"supplier_id" json:"supplier_id" validate:"gt=0"`
	Name          string `db:"name" json:"name" validate:"required"`
	ContactNumber string `db:"contact_number" json:"contact_number"`
	Email         string `db:"email" json:"email" validate:"omitempty,email"`
}

// Purchase is a raw purchase row as stored.
type Purchase struct {
	ID           int64           `db:"purchase_id" json:"purchase_id" validate:"gt=0"`
	MedicineID   int64           `db:"medicine_id" json:"medicine_id" validate:"gt=0"`
	SupplierID   int64           `db:"supplier_id" json:"supplier_id" validate:"gt=0"`
	PurchaseDate time.Time       `db:"purchase_date" json:"purchase_date"`
	Quantity     int             `db:"quantity" json:"quantity" validate:"gt=0"`
	TotalCost    decimal.Decimal `db:"total_cost" json:"total_cost"`
}

// Sale is a raw sale row as stored.
type Sale struct {
	ID           int64           `db:"sale_id" json:"sale_id" validate:"gt=0"`
	MedicineID   int64           `db:"medicine_id" json:"medicine_id" validate:"gt=0"`
	SaleDate     time.Time       `db:"sale_date" json:"sale_date"`
	QuantitySold int             `db:"quantity_sold" json:"quantity_sold" validate:"gt=0"`
	TotalAmount  decimal.Decimal `db:"total_amount" json:"total_amount"`
}

// OptionalName is a display name resolved through a join. Valid is false
// when the referenced record was not in the fetched set.
type OptionalName struct {
	Value string
	Valid bool
}

// ResolvedName returns a valid OptionalName.
func ResolvedName(v string) OptionalName {
	return OptionalName{Value: v, Valid: true}
}

func (n OptionalName) String() string {
	if !n.Valid {
		return ""
	}
	return n.Value
}

// MarshalJSON renders an unresolved name as null.
func (n OptionalName) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// PurchaseRecord is a purchase enriched with joined display names.
type PurchaseRecord struct {
	Purchase
	MedicineName OptionalName `json:"medicine_name"`
	SupplierName OptionalName `json:"supplier_name"`
}

// SaleRecord is a sale enriched with the joined medicine name.
type SaleRecord struct {
	Sale
	MedicineName OptionalName `json:"medicine_name"`
}

// StockStatus classifies a medicine for the inventory table.
type StockStatus string

const (
	StatusLowStock     StockStatus = "Low Stock"
	StatusExpiringSoon StockStatus = "Expiring Soon"
	StatusInStock      StockStatus = "In Stock"
)

// BadgeClass maps a status to its CSS modifier.
func (s StockStatus) BadgeClass() string {
	switch s {
	case StatusLowStock:
		return "badge-danger"
	case StatusExpiringSoon:
		return "badge-warning"
	default:
		return "badge-success"
	}
}

const (
	// LowStockThreshold is the inclusive stock level reported as low.
	LowStockThreshold = 10
	// ExpiryWarningMonths is the inclusive horizon reported as expiring soon.
	ExpiryWarningMonths = 3
	daysPerMonth        = 30
)

// GetStockStatus evaluates low stock first, then expiry relative to today.
func GetStockStatus(m Medicine, today time.Time) StockStatus {
	if m.QuantityInStock <= LowStockThreshold {
		return StatusLowStock
	}
	if MonthsUntil(m.ExpiryDate, today) <= ExpiryWarningMonths {
		return StatusExpiringSoon
	}
	return StatusInStock
}

// MonthsUntil returns the 30-day months between today and the given date.
// Both are compared at calendar-day precision.
func MonthsUntil(date, today time.Time) float64 {
	days := calendarDay(date).Sub(calendarDay(today)).Hours() / 24
	return days / daysPerMonth
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("pharmacy: not found")
	// ErrIntegrity indicates a reference to a missing medicine or supplier.
	ErrIntegrity = errors.New("pharmacy: referential integrity violation")
	// ErrNegativeAmount indicates a negative monetary value.
	ErrNegativeAmount = errors.New("pharmacy: monetary value must be >= 0")
)
