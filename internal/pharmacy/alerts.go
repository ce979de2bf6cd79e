package pharmacy

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const alertSnapshotKey = "pharmacy:stock_alerts:latest"

// AlertItem is a medicine flagged by the stock alert scan.
type AlertItem struct {
	MedicineID      int64       `json:"medicine_id"`
	Name            string      `json:"name"`
	QuantityInStock int         `json:"quantity_in_stock"`
	ExpiryDate      string      `json:"expiry_date"`
	Status          StockStatus `json:"status"`
}

// AlertSnapshot is the latest stock alert scan result.
type AlertSnapshot struct {
	GeneratedAt  time.Time   `json:"generated_at"`
	Scanned      int         `json:"scanned"`
	LowStock     []AlertItem `json:"low_stock"`
	ExpiringSoon []AlertItem `json:"expiring_soon"`
}

// Total counts flagged medicines.
func (s AlertSnapshot) Total() int {
	return len(s.LowStock) + len(s.ExpiringSoon)
}

// BuildAlertSnapshot classifies medicines and keeps those not in stock.
func BuildAlertSnapshot(medicines []Medicine, today time.Time) AlertSnapshot {
	snap := AlertSnapshot{
		GeneratedAt:  today.UTC(),
		Scanned:      len(medicines),
		LowStock:     []AlertItem{},
		ExpiringSoon: []AlertItem{},
	}
	for _, m := range medicines {
		status := GetStockStatus(m, today)
		item := AlertItem{
			MedicineID:      m.ID,
			Name:            m.Name,
			QuantityInStock: m.QuantityInStock,
			ExpiryDate:      ISODate(m.ExpiryDate),
			Status:          status,
		}
		switch status {
		case StatusLowStock:
			snap.LowStock = append(snap.LowStock, item)
		case StatusExpiringSoon:
			snap.ExpiringSoon = append(snap.ExpiringSoon, item)
		}
	}
	return snap
}

// AlertReader returns the latest snapshot, or nil when none was stored.
type AlertReader interface {
	Latest(ctx context.Context) (*AlertSnapshot, error)
}

// AlertStore keeps the latest snapshot in Redis.
type AlertStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAlertStore builds an AlertStore. A zero ttl keeps snapshots until replaced.
func NewAlertStore(client *redis.Client, ttl time.Duration) *AlertStore {
	return &AlertStore{client: client, ttl: ttl}
}

// Save replaces the stored snapshot.
func (s *AlertStore) Save(ctx context.Context, snap AlertSnapshot) error {
	if s == nil || s.client == nil {
		return nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, alertSnapshotKey, raw, s.ttl).Err()
}

// Latest loads the stored snapshot.
func (s *AlertStore) Latest(ctx context.Context) (*AlertSnapshot, error) {
	if s == nil || s.client == nil {
		return nil, nil
	}
	raw, err := s.client.Get(ctx, alertSnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap AlertSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
