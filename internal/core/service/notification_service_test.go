package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-desk/internal/core/domain"
)

func TestNotifications_ReadState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product("A", "Widget", 10, 10)

	f.order(f.sales, line(p.ID, 1, 10))
	f.order(f.sales, line(p.ID, 1, 10))

	inbox := f.inbox(f.accountant)
	require.Len(t, inbox, 2)
	assert.Equal(t, domain.NotifyOrderSubmitted, inbox[0].Type)
	assert.True(t, inbox[0].CreatedAt.After(inbox[1].CreatedAt))

	n, err := f.notes.UnreadCount(ctx, f.accountant)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	err = f.notes.MarkAsRead(ctx, f.sales, inbox[0].ID)
	assert.True(t, errors.Is(err, domain.ErrAuthorizationDenied))

	err = f.notes.MarkAsRead(ctx, f.accountant, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, f.notes.MarkAsRead(ctx, f.accountant, inbox[0].ID))
	n, err = f.notes.UnreadCount(ctx, f.accountant)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, f.notes.MarkAllAsRead(ctx, f.accountant))
	n, err = f.notes.UnreadCount(ctx, f.accountant)
	require.NoError(t, err)
	assert.Zero(t, n)
	for _, item := range f.inbox(f.accountant) {
		assert.True(t, item.IsRead)
	}
}

func TestNotifications_ListLimit(t *testing.T) {
	f := newFixture(t)
	p := f.product("A", "Widget", 10, 0)

	for i := 0; i < notificationListLimit+5; i++ {
		f.order(f.sales, line(p.ID, 1, 10))
	}
	assert.Len(t, f.inbox(f.accountant), notificationListLimit)

	n, err := f.notes.UnreadCount(context.Background(), f.accountant)
	require.NoError(t, err)
	assert.Equal(t, notificationListLimit+5, n)
}
