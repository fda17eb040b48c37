package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

type Product struct {
	ID            string
	Code          string
	Name          string
	UnitPrice     decimal.Decimal
	StockQuantity int
	Status        ProductStatus
	CreatedBy     string
	UpdatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ResolvedVia records which lookup path matched a product reference.
type ResolvedVia string

const (
	ResolvedByID   ResolvedVia = "id"
	ResolvedByCode ResolvedVia = "code"
)

// ProductResolution is either Resolved or Unresolved.
type ProductResolution interface {
	resolution()
}

type Resolved struct {
	Product Product
	Via     ResolvedVia
}

type Unresolved struct {
	Ref string
}

func (Resolved) resolution()   {}
func (Unresolved) resolution() {}

type PartyStatus string

const (
	PartyStatusActive   PartyStatus = "active"
	PartyStatusInactive PartyStatus = "inactive"
)

type Customer struct {
	ID              string
	CompanyName     string
	TaxCode         string
	Address         string
	ShippingAddress string
	Region          string
	Status          PartyStatus
	CreatedBy       string
	CreatedAt       time.Time
}

type Supplier struct {
	ID           string
	CompanyName  string
	TaxCode      string
	Address      string
	ContactName  string
	ContactPhone string
	Status       PartyStatus
	CreatedBy    string
	CreatedAt    time.Time
}
