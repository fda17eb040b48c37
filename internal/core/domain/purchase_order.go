package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseOrderStatus string

const (
	POStatusDraft             PurchaseOrderStatus = "draft"
	POStatusPendingApproval   PurchaseOrderStatus = "pending_approval"
	POStatusApproved          PurchaseOrderStatus = "approved"
	POStatusSentToSupplier    PurchaseOrderStatus = "sent_to_supplier"
	POStatusPartiallyReceived PurchaseOrderStatus = "partially_received"
	POStatusCompleted         PurchaseOrderStatus = "completed"
	POStatusCancelled         PurchaseOrderStatus = "cancelled"
)

func (s PurchaseOrderStatus) Terminal() bool {
	return s == POStatusCompleted || s == POStatusCancelled
}

type PurchaseOrderLine struct {
	ProductRef        string
	ProductName       string
	RequestedQuantity int
	UnitPrice         decimal.Decimal
	LineTotal         decimal.Decimal
}

type PurchaseOrder struct {
	ID              string
	PONumber        string
	SupplierName    string
	Items           []PurchaseOrderLine
	Total           decimal.Decimal
	Status          PurchaseOrderStatus
	CreatedBy       string
	ApprovedBy      string
	ApprovedAt      *time.Time
	RejectionReason string
	Comments        []Comment
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type POAction string

const (
	POActionSubmit          POAction = "submit"
	POActionApprove         POAction = "approve"
	POActionReject          POAction = "reject"
	POActionSend            POAction = "send to supplier"
	POActionReceivePartial  POAction = "mark partially received"
	POActionReceiveComplete POAction = "mark completed"
	POActionCancel          POAction = "cancel"
)

var poEdges = map[POAction]map[PurchaseOrderStatus]PurchaseOrderStatus{
	POActionSubmit:  {POStatusDraft: POStatusPendingApproval},
	POActionApprove: {POStatusPendingApproval: POStatusApproved},
	POActionReject:  {POStatusPendingApproval: POStatusDraft},
	POActionSend:    {POStatusApproved: POStatusSentToSupplier},
	POActionReceivePartial: {
		POStatusSentToSupplier:    POStatusPartiallyReceived,
		POStatusPartiallyReceived: POStatusPartiallyReceived,
	},
	POActionReceiveComplete: {
		POStatusSentToSupplier:    POStatusCompleted,
		POStatusPartiallyReceived: POStatusCompleted,
	},
	POActionCancel: {
		POStatusDraft:             POStatusCancelled,
		POStatusPendingApproval:   POStatusCancelled,
		POStatusApproved:          POStatusCancelled,
		POStatusSentToSupplier:    POStatusCancelled,
		POStatusPartiallyReceived: POStatusCancelled,
	},
}

func NextPOStatus(from PurchaseOrderStatus, action POAction) (PurchaseOrderStatus, error) {
	if to, ok := poEdges[action][from]; ok {
		return to, nil
	}
	return "", &InvalidStateError{Entity: "purchase order", Action: string(action), Status: string(from)}
}

type POLineInput struct {
	ProductRef        string
	ProductName       string
	RequestedQuantity int
	UnitPrice         decimal.Decimal
}

func NewPurchaseOrderLines(inputs []POLineInput) ([]PurchaseOrderLine, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, InvalidInput("purchase order must have at least one line")
	}
	lines := make([]PurchaseOrderLine, 0, len(inputs))
	total := decimal.Zero
	for i, in := range inputs {
		if strings.TrimSpace(in.ProductRef) == "" {
			return nil, decimal.Zero, InvalidInput("line %d: product is required", i+1)
		}
		if in.RequestedQuantity <= 0 {
			return nil, decimal.Zero, InvalidInput("line %d: quantity must be positive", i+1)
		}
		if in.UnitPrice.IsNegative() {
			return nil, decimal.Zero, InvalidInput("line %d: unit price must not be negative", i+1)
		}
		lineTotal := in.UnitPrice.Mul(decimal.NewFromInt(int64(in.RequestedQuantity)))
		lines = append(lines, PurchaseOrderLine{
			ProductRef:        in.ProductRef,
			ProductName:       in.ProductName,
			RequestedQuantity: in.RequestedQuantity,
			UnitPrice:         in.UnitPrice,
			LineTotal:         lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return lines, total, nil
}

func (po PurchaseOrder) Clone() PurchaseOrder {
	c := po
	c.Items = append([]PurchaseOrderLine(nil), po.Items...)
	c.Comments = append([]Comment(nil), po.Comments...)
	if po.ApprovedAt != nil {
		t := *po.ApprovedAt
		c.ApprovedAt = &t
	}
	return c
}
