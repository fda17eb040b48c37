package domain

import "time"

type BatchStatus string

const (
	BatchStatusAvailable BatchStatus = "available"
	BatchStatusReserved  BatchStatus = "reserved"
	BatchStatusExpired   BatchStatus = "expired"
	BatchStatusDamaged   BatchStatus = "damaged"
)

func (s BatchStatus) Valid() bool {
	switch s {
	case BatchStatusAvailable, BatchStatusReserved, BatchStatusExpired, BatchStatusDamaged:
		return true
	}
	return false
}

type TransactionType string

const (
	TxnReceive TransactionType = "receive"
	TxnShip    TransactionType = "ship"
	TxnAdjust  TransactionType = "adjust"
	TxnReturn  TransactionType = "return"
	TxnDamage  TransactionType = "damage"
	TxnExpire  TransactionType = "expire"
)

// Adjustable reports whether t may be used for a manual batch adjustment.
func (t TransactionType) Adjustable() bool {
	switch t {
	case TxnAdjust, TxnDamage, TxnExpire, TxnReturn:
		return true
	}
	return false
}

type InventoryBatch struct {
	ID              string
	ProductID       string
	ProductCode     string
	ProductName     string
	BatchNumber     string
	Quantity        int
	ReceivedAt      time.Time
	ExpiresAt       *time.Time
	ManufacturedAt  *time.Time
	SupplierName    string
	PurchaseOrderID string
	Location        string
	Notes           string
	Status          BatchStatus
	CreatedBy       string
	UpdatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// InventoryTransaction is an append-only ledger row. BatchID is empty for
// product-level movements such as order approval.
type InventoryTransaction struct {
	ID              string
	BatchID         string
	ProductID       string
	Type            TransactionType
	Quantity        int
	OrderID         string
	PurchaseOrderID string
	Notes           string
	PerformedBy     string
	PerformedByName string
	CreatedAt       time.Time
}

type Availability struct {
	ProductID string
	Stock     int
	Committed int
	Available int
}
