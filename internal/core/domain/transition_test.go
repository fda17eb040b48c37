package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []OrderStatus{
	OrderStatusPending, OrderStatusApproved, OrderStatusEditRequested, OrderStatusRejected,
	OrderStatusWarehouseConfirmed, OrderStatusWarehouseRejected, OrderStatusShipped,
	OrderStatusCompleted, OrderStatusPartialComplete, OrderStatusFailed, OrderStatusCancelled,
}

func TestNextEdge_OnlyTableEdges(t *testing.T) {
	allowed := map[OrderStatus]map[Action]OrderStatus{}
	for _, e := range edges {
		if allowed[e.From] == nil {
			allowed[e.From] = map[Action]OrderStatus{}
		}
		allowed[e.From][e.Action] = e.To
	}

	actions := []Action{
		ActionApprove, ActionReject, ActionRequestEdit, ActionConfirmWarehouse,
		ActionRejectWarehouse, ActionShip, ActionComplete, ActionPartialComplete,
		ActionFail, ActionCancel,
	}

	for _, from := range allStatuses {
		for _, action := range actions {
			edge, err := NextEdge(from, action)
			to, ok := allowed[from][action]
			if !ok {
				require.Error(t, err, "%s from %s", action, from)
				assert.True(t, errors.Is(err, ErrInvalidState))
				continue
			}
			require.NoError(t, err)
			assert.Equal(t, to, edge.To)
		}
	}
}

func TestNextEdge_TerminalStatusesHaveNoExits(t *testing.T) {
	for _, s := range allStatuses {
		if !s.Terminal() {
			continue
		}
		for _, e := range edges {
			assert.NotEqual(t, s, e.From, "terminal status %s has an outgoing edge", s)
		}
	}
}

func TestNextEdge_ErrorMessage(t *testing.T) {
	_, err := NextEdge(OrderStatusApproved, ActionApprove)
	require.Error(t, err)
	assert.Equal(t, "cannot approve orders: order is approved", err.Error())

	var stateErr *InvalidStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, "approved", stateErr.Status)
}

func TestActionRoles(t *testing.T) {
	assert.ElementsMatch(t, []Role{RoleAccountant, RoleAdmin}, ActionRoles(ActionApprove))
	assert.ElementsMatch(t, []Role{RoleWarehouseManager, RoleAdmin}, ActionRoles(ActionConfirmWarehouse))
	assert.ElementsMatch(t, []Role{RoleShipper, RoleAdmin}, ActionRoles(ActionShip))
	assert.Nil(t, ActionRoles(ActionComplete))
}

func TestStatusAction(t *testing.T) {
	action, ok := StatusAction(OrderStatusShipped)
	require.True(t, ok)
	assert.Equal(t, ActionShip, action)

	_, ok = StatusAction(OrderStatusApproved)
	assert.False(t, ok)
}

func TestScopeFor(t *testing.T) {
	order := Order{CreatedBy: "sales-1", Status: OrderStatusPending}

	assert.True(t, ScopeFor(Actor{ID: "acc", Role: RoleAccountant}).Contains(order))
	assert.True(t, ScopeFor(Actor{ID: "adm", Role: RoleAdmin}).Contains(order))
	assert.True(t, ScopeFor(Actor{ID: "sales-1", Role: RoleSales}).Contains(order))
	assert.False(t, ScopeFor(Actor{ID: "sales-2", Role: RoleSales}).Contains(order))
	assert.False(t, ScopeFor(Actor{ID: "wh", Role: RoleWarehouseManager}).Contains(order))
	assert.False(t, ScopeFor(Actor{ID: "sh", Role: RoleShipper}).Contains(order))

	order.Status = OrderStatusApproved
	assert.True(t, ScopeFor(Actor{ID: "wh", Role: RoleWarehouseManager}).Contains(order))
	assert.False(t, ScopeFor(Actor{ID: "sh", Role: RoleShipper}).Contains(order))

	order.Status = OrderStatusShipped
	assert.True(t, ScopeFor(Actor{ID: "sh", Role: RoleShipper}).Contains(order))
	assert.False(t, ScopeFor(Actor{ID: "", Role: Role("guest")}).Contains(order))
}

func TestVoucherAllowed(t *testing.T) {
	for _, s := range allStatuses {
		want := s == OrderStatusApproved || s == OrderStatusWarehouseConfirmed
		assert.Equal(t, want, VoucherAllowed(s), s)
	}
}
