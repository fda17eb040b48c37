package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/order-desk/internal/config"
	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/core/service"
)

const (
	GRPCServiceName = "orderdesk.v1.OrderService"

	// JSONCodecName is the content-subtype clients pass with
	// grpc.CallContentSubtype.
	JSONCodecName = "json"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type OrderActionRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Text    string `json:"text"`
}

type StatusChangeRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	UpdateStatusRequest
}

type GetOrderRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

type orderServiceServer interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error)
	ApproveOrder(ctx context.Context, req *OrderActionRequest) (*OrderResponse, error)
	RejectOrder(ctx context.Context, req *OrderActionRequest) (*OrderResponse, error)
	ConfirmWarehouse(ctx context.Context, req *OrderActionRequest) (*OrderResponse, error)
	UpdateOrderStatus(ctx context.Context, req *StatusChangeRequest) (*OrderResponse, error)
	GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderResponse, error)
}

type GRPCHandler struct {
	svc    Services
	tokens *TokenIssuer
	logger logrus.FieldLogger
}

func NewGRPCHandler(svc Services, tokens *TokenIssuer, logger logrus.FieldLogger) *GRPCHandler {
	if logger == nil {
		logger = config.NopLogger()
	}
	registerValidators()
	return &GRPCHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register attaches the order service to s.
func (h *GRPCHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&orderServiceDesc, h)
}

var orderServiceDesc = grpc.ServiceDesc{
	ServiceName: GRPCServiceName,
	HandlerType: (*orderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateOrder", orderServiceServer.CreateOrder),
		unary("ApproveOrder", orderServiceServer.ApproveOrder),
		unary("RejectOrder", orderServiceServer.RejectOrder),
		unary("ConfirmWarehouse", orderServiceServer.ConfirmWarehouse),
		unary("UpdateOrderStatus", orderServiceServer.UpdateOrderStatus),
		unary("GetOrder", orderServiceServer.GetOrder),
	},
	Streams: []grpc.StreamDesc{},
}

func unary[Req, Resp any](name string, call func(orderServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(orderServiceServer), ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + GRPCServiceName + "/" + name}
			return interceptor(ctx, req, info, func(ctx context.Context, r any) (any, error) {
				return call(srv.(orderServiceServer), ctx, r.(*Req))
			})
		},
	}
}

func (h *GRPCHandler) actor(ctx context.Context) (domain.Actor, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	var bearer string
	if vals := md.Get("authorization"); len(vals) > 0 {
		bearer = vals[0]
	}
	principal, err := h.tokens.Principal(bearer)
	if err != nil {
		return domain.Actor{}, err
	}
	return h.svc.Guard.ResolveActor(ctx, principal)
}

func validate(req any) error {
	if err := binding.Validator.ValidateStruct(req); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func (h *GRPCHandler) reply(method string, order domain.Order, err error) (*OrderResponse, error) {
	if err != nil {
		if httpStatus(err) == http.StatusInternalServerError {
			config.LogError(h.logger, "GRPCHandler", method, "request failed", nil, err)
		}
		return nil, grpcError(err)
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

func (h *GRPCHandler) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, grpcError(err)
	}
	items := make([]domain.LineInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = item.input()
	}
	order, err := h.svc.Orders.CreateOrder(ctx, actor, service.CreateOrderInput{
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		Items:           items,
		ShippingAddress: req.ShippingAddress.toDomain(),
		Notes:           req.Notes,
		IdempotencyKey:  req.IdempotencyKey,
	})
	return h.reply("CreateOrder", order, err)
}

func (h *GRPCHandler) ApproveOrder(ctx context.Context, req *OrderActionRequest) (*OrderResponse, error) {
	return h.act(ctx, "ApproveOrder", req, h.svc.Orders.ApproveOrder)
}

func (h *GRPCHandler) RejectOrder(ctx context.Context, req *OrderActionRequest) (*OrderResponse, error) {
	return h.act(ctx, "RejectOrder", req, h.svc.Orders.RejectOrder)
}

func (h *GRPCHandler) ConfirmWarehouse(ctx context.Context, req *OrderActionRequest) (*OrderResponse, error) {
	return h.act(ctx, "ConfirmWarehouse", req, h.svc.Orders.ConfirmWarehouse)
}

func (h *GRPCHandler) act(ctx context.Context, method string, req *OrderActionRequest, call func(context.Context, domain.Actor, string, string) (domain.Order, error)) (*OrderResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, grpcError(err)
	}
	order, err := call(ctx, actor, req.OrderID, req.Text)
	return h.reply(method, order, err)
}

func (h *GRPCHandler) UpdateOrderStatus(ctx context.Context, req *StatusChangeRequest) (*OrderResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, grpcError(err)
	}
	shipped := make([]domain.ShippedQuantity, len(req.ShippedQuantities))
	for i, sq := range req.ShippedQuantities {
		shipped[i] = domain.ShippedQuantity{ProductRef: sq.ProductID, Quantity: sq.Quantity}
	}
	order, err := h.svc.Orders.UpdateOrderStatus(ctx, actor, req.OrderID, service.UpdateStatusInput{
		Status:            domain.OrderStatus(req.Status),
		TrackingNumber:    req.TrackingNumber,
		ShippedQuantities: shipped,
		Notes:             req.Notes,
	})
	return h.reply("UpdateOrderStatus", order, err)
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, grpcError(err)
	}
	order, err := h.svc.Orders.GetOrder(ctx, actor, req.OrderID)
	return h.reply("GetOrder", order, err)
}
