package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CentralStoreLabID is the default identifier of the central stock pool.
const CentralStoreLabID = "central-store"

// ChemicalBatch is a purchased lot. Its quantity records the intake total, not availability.
type ChemicalBatch struct {
	ID           string          `db:"id" json:"id"`
	BatchCode    string          `db:"batch_code" json:"batchCode"`
	Name         string          `db:"name" json:"name"`
	DisplayName  string          `db:"display_name" json:"displayName"`
	CanonicalKey string          `db:"canonical_key" json:"-"`
	Vendor       string          `db:"vendor" json:"vendor"`
	Unit         string          `db:"unit" json:"unit"`
	ExpiryDate   *time.Time      `db:"expiry_date" json:"expiryDate,omitempty"`
	Quantity     decimal.Decimal `db:"quantity" json:"quantity"`
	Price        decimal.Decimal `db:"price" json:"price"`
	Department   string          `db:"department" json:"department,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// LiveStock is the per-lab, per-batch quantity row that allocation mutates.
type LiveStock struct {
	ID               string          `db:"id" json:"id"`
	ChemicalBatchID  string          `db:"chemical_batch_id" json:"chemicalBatchId"`
	DisplayName      string          `db:"display_name" json:"displayName"`
	CanonicalKey     string          `db:"canonical_key" json:"-"`
	ChemicalName     string          `db:"chemical_name" json:"chemicalName"`
	Unit             string          `db:"unit" json:"unit"`
	ExpiryDate       *time.Time      `db:"expiry_date" json:"expiryDate,omitempty"`
	Quantity         decimal.Decimal `db:"quantity" json:"quantity"`
	OriginalQuantity decimal.Decimal `db:"original_quantity" json:"originalQuantity"`
	IsAllocated      bool            `db:"is_allocated" json:"isAllocated"`
	LabID            string          `db:"lab_id" json:"labId"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updatedAt"`
}

// OutOfStockEntry remembers when the last central batch of a display name ran out.
type OutOfStockEntry struct {
	ID               string    `db:"id" json:"id"`
	DisplayName      string    `db:"display_name" json:"displayName"`
	Unit             string    `db:"unit" json:"unit"`
	Vendor           string    `db:"vendor" json:"vendor,omitempty"`
	LastOutOfStockAt time.Time `db:"last_out_of_stock_at" json:"lastOutOfStockAt"`
}

// ExpiryBefore orders two optional expiry dates ascending with absent dates last.
func ExpiryBefore(a, b *time.Time) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.Before(*b)
	}
}

// SameExpiry reports whether two optional expiry dates denote the same calendar day.
func SameExpiry(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// SortLiveStockByExpiry sorts rows FIFO: earliest expiry first, absent expiry last, ties by creation time.
func SortLiveStockByExpiry(rows []LiveStock) {
	sort.SliceStable(rows, func(i, j int) bool {
		if ExpiryBefore(rows[i].ExpiryDate, rows[j].ExpiryDate) {
			return true
		}
		if ExpiryBefore(rows[j].ExpiryDate, rows[i].ExpiryDate) {
			return false
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
}

// LiveStockFilter constrains live stock queries. Empty fields match everything.
type LiveStockFilter struct {
	LabID        string
	DisplayName  string
	CanonicalKey string
	NamePattern  string
	PositiveOnly bool
}

// BatchFilter constrains chemical batch queries. Empty fields match everything.
type BatchFilter struct {
	CanonicalKey string
	NamePattern  string
	Vendor       string
	Unit         string
}
