package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-desk/internal/core/domain"
)

func poLine(ref string, qty int, price int64) domain.POLineInput {
	return domain.POLineInput{ProductRef: ref, RequestedQuantity: qty, UnitPrice: decimal.NewFromInt(price)}
}

func TestPurchaseOrder_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	po, err := f.pos.Create(ctx, f.warehouse, CreatePurchaseOrderInput{
		SupplierName: "Globex",
		Items:        []domain.POLineInput{poLine("A", 10, 3), poLine("B", 2, 5)},
		Notes:        "restock",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(po.PONumber, "PO-20240501"), po.PONumber)
	assert.Equal(t, domain.POStatusDraft, po.Status)
	assert.Equal(t, "40", po.Total.String())
	require.Len(t, po.Comments, 1)

	po, err = f.pos.UpdateItems(ctx, f.warehouse, po.ID, []domain.POLineInput{poLine("A", 1, 3)})
	require.NoError(t, err)
	assert.Equal(t, "3", po.Total.String())

	po, err = f.pos.Submit(ctx, f.warehouse, po.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.POStatusPendingApproval, po.Status)

	_, err = f.pos.UpdateItems(ctx, f.warehouse, po.ID, []domain.POLineInput{poLine("A", 2, 3)})
	assert.True(t, errors.Is(err, domain.ErrInvalidState), "only drafts are editable")

	_, err = f.pos.Approve(ctx, f.warehouse, po.ID)
	assert.True(t, errors.Is(err, domain.ErrAuthorizationDenied))

	_, err = f.pos.Reject(ctx, f.admin, po.ID, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	po, err = f.pos.Reject(ctx, f.admin, po.ID, "too expensive")
	require.NoError(t, err)
	assert.Equal(t, domain.POStatusDraft, po.Status)
	assert.Equal(t, "too expensive", po.RejectionReason)
	assert.Equal(t, "Purchase order rejected: too expensive", po.Comments[len(po.Comments)-1].Text)

	_, err = f.pos.Submit(ctx, f.warehouse, po.ID)
	require.NoError(t, err)
	po, err = f.pos.Approve(ctx, f.admin, po.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.POStatusApproved, po.Status)
	assert.Equal(t, f.admin.ID, po.ApprovedBy)
	require.NotNil(t, po.ApprovedAt)
	assert.Empty(t, po.RejectionReason)

	po, err = f.pos.SendToSupplier(ctx, f.warehouse, po.ID)
	require.NoError(t, err)
	po, err = f.pos.MarkReceived(ctx, f.warehouse, po.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.POStatusPartiallyReceived, po.Status)
	po, err = f.pos.MarkReceived(ctx, f.warehouse, po.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.POStatusCompleted, po.Status)

	_, err = f.pos.Cancel(ctx, f.warehouse, po.ID)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	err = f.pos.Delete(ctx, f.admin, po.ID)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestPurchaseOrder_CancelAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	po, err := f.pos.Create(ctx, f.warehouse, CreatePurchaseOrderInput{SupplierName: "Globex", Items: []domain.POLineInput{poLine("A", 1, 1)}})
	require.NoError(t, err)

	_, err = f.pos.Cancel(ctx, f.warehouse, po.ID)
	require.NoError(t, err)

	err = f.pos.Delete(ctx, f.warehouse, po.ID)
	assert.True(t, errors.Is(err, domain.ErrAuthorizationDenied))

	require.NoError(t, f.pos.Delete(ctx, f.admin, po.ID))
	_, err = f.pos.Get(ctx, f.admin, po.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPurchaseOrder_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pos.Create(ctx, f.sales, CreatePurchaseOrderInput{SupplierName: "Globex", Items: []domain.POLineInput{poLine("A", 1, 1)}})
	assert.True(t, errors.Is(err, domain.ErrAuthorizationDenied))

	_, err = f.pos.Create(ctx, f.warehouse, CreatePurchaseOrderInput{Items: []domain.POLineInput{poLine("A", 1, 1)}})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.pos.Create(ctx, f.warehouse, CreatePurchaseOrderInput{SupplierName: "Globex", Items: []domain.POLineInput{poLine("A", 0, 1)}})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.pos.Submit(ctx, f.warehouse, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPurchaseOrder_CommentsAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.pos.Create(ctx, f.warehouse, CreatePurchaseOrderInput{SupplierName: "Globex", Items: []domain.POLineInput{poLine("A", 1, 1)}})
	require.NoError(t, err)
	second, err := f.pos.Create(ctx, f.admin, CreatePurchaseOrderInput{SupplierName: "Initech", Items: []domain.POLineInput{poLine("B", 1, 1)}})
	require.NoError(t, err)
	assert.NotEqual(t, first.PONumber, second.PONumber)

	po, err := f.pos.AddComment(ctx, f.warehouse2, first.ID, "  call on Monday ")
	require.NoError(t, err)
	require.Len(t, po.Comments, 1)
	assert.Equal(t, "call on Monday", po.Comments[0].Text)
	assert.Equal(t, f.warehouse2.Name, po.Comments[0].ActorName)

	_, err = f.pos.AddComment(ctx, f.warehouse, first.ID, " ")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	list, err := f.pos.List(ctx, f.warehouse)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.pos.List(ctx, f.shipper)
	assert.True(t, errors.Is(err, domain.ErrAuthorizationDenied))
}
