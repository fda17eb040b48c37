package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPOStatus(t *testing.T) {
	to, err := NextPOStatus(POStatusPendingApproval, POActionReject)
	require.NoError(t, err)
	assert.Equal(t, POStatusDraft, to)

	to, err = NextPOStatus(POStatusPartiallyReceived, POActionReceivePartial)
	require.NoError(t, err)
	assert.Equal(t, POStatusPartiallyReceived, to)

	to, err = NextPOStatus(POStatusSentToSupplier, POActionCancel)
	require.NoError(t, err)
	assert.Equal(t, POStatusCancelled, to)

	_, err = NextPOStatus(POStatusCompleted, POActionCancel)
	assert.True(t, errors.Is(err, ErrInvalidState))

	_, err = NextPOStatus(POStatusDraft, POActionApprove)
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestNewPurchaseOrderLines(t *testing.T) {
	lines, total, err := NewPurchaseOrderLines([]POLineInput{
		{ProductRef: "A", RequestedQuantity: 4, UnitPrice: decimal.NewFromInt(5)},
		{ProductRef: "B", RequestedQuantity: 1, UnitPrice: decimal.RequireFromString("2.50")},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.True(t, lines[0].LineTotal.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "22.5", total.String())

	_, _, err = NewPurchaseOrderLines(nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, _, err = NewPurchaseOrderLines([]POLineInput{{ProductRef: "A", RequestedQuantity: 0}})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
