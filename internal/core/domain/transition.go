package domain

type Action string

const (
	ActionCreate           Action = "create orders"
	ActionApprove          Action = "approve orders"
	ActionReject           Action = "reject orders"
	ActionRequestEdit      Action = "request order edits"
	ActionConfirmWarehouse Action = "confirm warehouse inventory"
	ActionRejectWarehouse  Action = "reject orders at the warehouse"
	ActionShip             Action = "mark orders as shipped"
	ActionComplete         Action = "mark orders as completed"
	ActionPartialComplete  Action = "mark orders as partially completed"
	ActionFail             Action = "mark orders as failed"
	ActionCancel           Action = "cancel orders"
	ActionCreateVoucher    Action = "create delivery vouchers"
)

// Edge is one permitted status change. A nil Roles slice means any actor
// that can see the order may take it.
type Edge struct {
	From   OrderStatus
	Action Action
	To     OrderStatus
	Roles  []Role
}

var (
	CreateOrderRoles = []Role{RoleSales, RoleAdmin}
	reviewRoles      = []Role{RoleAccountant, RoleAdmin}
	warehouseRoles   = []Role{RoleWarehouseManager, RoleAdmin}
	shipperRoles     = []Role{RoleShipper, RoleAdmin}
	adminOnly        = []Role{RoleAdmin}
)

var edges = []Edge{
	{OrderStatusPending, ActionApprove, OrderStatusApproved, reviewRoles},
	{OrderStatusPending, ActionReject, OrderStatusRejected, reviewRoles},
	{OrderStatusPending, ActionRequestEdit, OrderStatusEditRequested, reviewRoles},
	{OrderStatusApproved, ActionConfirmWarehouse, OrderStatusWarehouseConfirmed, warehouseRoles},
	{OrderStatusApproved, ActionRejectWarehouse, OrderStatusWarehouseRejected, warehouseRoles},
	{OrderStatusWarehouseConfirmed, ActionShip, OrderStatusShipped, shipperRoles},

	{OrderStatusShipped, ActionComplete, OrderStatusCompleted, nil},
	{OrderStatusShipped, ActionPartialComplete, OrderStatusPartialComplete, nil},
	{OrderStatusShipped, ActionFail, OrderStatusFailed, nil},
	{OrderStatusShipped, ActionCancel, OrderStatusCancelled, nil},
	{OrderStatusWarehouseConfirmed, ActionComplete, OrderStatusCompleted, nil},
	{OrderStatusWarehouseConfirmed, ActionPartialComplete, OrderStatusPartialComplete, nil},
	{OrderStatusWarehouseConfirmed, ActionFail, OrderStatusFailed, nil},
	{OrderStatusWarehouseConfirmed, ActionCancel, OrderStatusCancelled, nil},

	// administrative cancellation before any stock was committed
	{OrderStatusPending, ActionCancel, OrderStatusCancelled, adminOnly},
	{OrderStatusEditRequested, ActionCancel, OrderStatusCancelled, adminOnly},
}

// NextEdge returns the edge leaving from for action, or an InvalidStateError.
func NextEdge(from OrderStatus, action Action) (Edge, error) {
	for _, e := range edges {
		if e.From == from && e.Action == action {
			return e, nil
		}
	}
	return Edge{}, &InvalidStateError{Entity: "order", Action: string(action), Status: string(from)}
}

// ActionRoles lists every role named by any edge for action. The result is
// nil when some edge for action is open to any visible actor.
func ActionRoles(action Action) []Role {
	seen := make(map[Role]bool)
	var out []Role
	for _, e := range edges {
		if e.Action != action {
			continue
		}
		if e.Roles == nil {
			return nil
		}
		for _, r := range e.Roles {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	return out
}

// StatusAction maps a target status accepted by a status update to the
// action that reaches it.
func StatusAction(target OrderStatus) (Action, bool) {
	switch target {
	case OrderStatusShipped:
		return ActionShip, true
	case OrderStatusCompleted:
		return ActionComplete, true
	case OrderStatusPartialComplete:
		return ActionPartialComplete, true
	case OrderStatusFailed:
		return ActionFail, true
	case OrderStatusCancelled:
		return ActionCancel, true
	}
	return "", false
}

func VoucherAllowed(s OrderStatus) bool {
	return s == OrderStatusApproved || s == OrderStatusWarehouseConfirmed
}

var (
	warehouseVisible = []OrderStatus{OrderStatusApproved, OrderStatusWarehouseConfirmed, OrderStatusWarehouseRejected}
	shipperVisible   = []OrderStatus{OrderStatusWarehouseConfirmed, OrderStatusShipped, OrderStatusCompleted, OrderStatusPartialComplete, OrderStatusFailed}
)

// OrderScope is the query-side filter a role is allowed to see.
type OrderScope struct {
	All       bool
	CreatedBy string
	Statuses  []OrderStatus
}

func ScopeFor(actor Actor) OrderScope {
	switch actor.Role {
	case RoleAccountant, RoleAdmin:
		return OrderScope{All: true}
	case RoleSales:
		return OrderScope{CreatedBy: actor.ID}
	case RoleWarehouseManager:
		return OrderScope{Statuses: warehouseVisible}
	case RoleShipper:
		return OrderScope{Statuses: shipperVisible}
	}
	return OrderScope{Statuses: []OrderStatus{}}
}

func (s OrderScope) Contains(o Order) bool {
	if s.All {
		return true
	}
	if s.CreatedBy != "" {
		return o.CreatedBy == s.CreatedBy
	}
	for _, st := range s.Statuses {
		if o.Status == st {
			return true
		}
	}
	return false
}
