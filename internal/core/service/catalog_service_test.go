package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/port"
)

func TestCreateProduct_OpeningStockLedger(t *testing.T) {
	f := newFixture(t)
	p := f.product("A", "Widget", 12, 30)

	assert.Equal(t, 30, p.StockQuantity)
	assert.Equal(t, domain.ProductStatusActive, p.Status)
	assert.True(t, decimal.NewFromInt(12).Equal(p.UnitPrice))

	rows := f.ledger(port.TransactionFilter{ProductID: p.ID})
	require.Len(t, rows, 1)
	assert.Equal(t, domain.TxnReceive, rows[0].Type)
	assert.Empty(t, rows[0].BatchID)
	assert.Equal(t, 30, f.ledgerSum(p.ID))

	empty := f.product("B", "Gadget", 5, 0)
	assert.Empty(t, f.ledger(port.TransactionFilter{ProductID: empty.ID}))
}

func TestCreateProduct_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product("A", "Widget", 12, 0)

	tests := []struct {
		name  string
		actor domain.Actor
		in    CreateProductInput
		want  error
	}{
		{"duplicate code", f.admin, CreateProductInput{Code: " A ", Name: "Other"}, domain.ErrUniquenessViolation},
		{"missing name", f.admin, CreateProductInput{Code: "C"}, domain.ErrInvalidInput},
		{"negative price", f.admin, CreateProductInput{Code: "C", Name: "C", UnitPrice: decimal.NewFromInt(-1)}, domain.ErrInvalidInput},
		{"negative stock", f.admin, CreateProductInput{Code: "C", Name: "C", OpeningStock: -1}, domain.ErrInvalidInput},
		{"sales cannot", f.sales, CreateProductInput{Code: "C", Name: "C"}, domain.ErrAuthorizationDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.catalog.CreateProduct(ctx, tt.actor, tt.in)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	_, err := f.catalog.CreateProduct(ctx, f.warehouse, CreateProductInput{Code: "W", Name: "Warehouse made"})
	assert.NoError(t, err)
}

func TestUpdateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product("A", "Widget", 12, 7)
	f.product("B", "Gadget", 5, 0)

	name := "Widget Pro"
	price := decimal.RequireFromString("13.50")
	inactive := domain.ProductStatusInactive
	updated, err := f.catalog.UpdateProduct(ctx, f.admin, a.ID, UpdateProductInput{Name: &name, UnitPrice: &price, Status: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Widget Pro", updated.Name)
	assert.Equal(t, "13.5", updated.UnitPrice.String())
	assert.Equal(t, 7, updated.StockQuantity)

	taken := "B"
	_, err = f.catalog.UpdateProduct(ctx, f.admin, a.ID, UpdateProductInput{Code: &taken})
	assert.True(t, errors.Is(err, domain.ErrUniquenessViolation))

	_, err = f.catalog.UpdateProduct(ctx, f.admin, "missing", UpdateProductInput{Name: &name})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	active, err := f.catalog.ListActiveProducts(ctx, f.shipper)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "B", active[0].Code)
}

func TestCreateParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.catalog.CreateCustomer(ctx, f.sales, CreatePartyInput{CompanyName: "Acme", TaxCode: "0101"})
	require.NoError(t, err)
	assert.Equal(t, domain.PartyStatusActive, c.Status)
	assert.Equal(t, f.sales.ID, c.CreatedBy)

	_, err = f.catalog.CreateCustomer(ctx, f.admin, CreatePartyInput{CompanyName: "Acme 2", TaxCode: "0101"})
	assert.True(t, errors.Is(err, domain.ErrUniquenessViolation))

	_, err = f.catalog.CreateCustomer(ctx, f.warehouse, CreatePartyInput{CompanyName: "X", TaxCode: "9"})
	assert.True(t, errors.Is(err, domain.ErrAuthorizationDenied))

	_, err = f.catalog.CreateCustomer(ctx, f.sales, CreatePartyInput{CompanyName: "X"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	// customers and suppliers have separate tax code spaces
	_, err = f.catalog.CreateSupplier(ctx, f.admin, CreatePartyInput{CompanyName: "Globex", TaxCode: "0101"})
	require.NoError(t, err)

	_, err = f.catalog.CreateSupplier(ctx, f.sales, CreatePartyInput{CompanyName: "Initech", TaxCode: "0202"})
	assert.True(t, errors.Is(err, domain.ErrAuthorizationDenied))
}
