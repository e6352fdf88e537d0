package grpc

import (
	"context"

	"github.com/vibast-solutions/ms-go-payment-approvals/app/types"
	"google.golang.org/grpc"
)

const ServiceName = "approvals.ApprovalsService"

const (
	methodHealth         = "Health"
	methodSubmitPayment  = "SubmitPayment"
	methodApprovePayment = "ApprovePayment"
	methodRejectPayment  = "RejectPayment"
	methodGetPayment     = "GetPayment"
	methodListPayments   = "ListPayments"
)

type ApprovalsServiceServer interface {
	Health(context.Context, *types.HealthRequest) (*types.HealthResponse, error)
	SubmitPayment(context.Context, *types.SubmitPaymentRequest) (*types.SubmitPaymentResponse, error)
	ApprovePayment(context.Context, *types.DecidePaymentRequest) (*types.DecisionResponse, error)
	RejectPayment(context.Context, *types.DecidePaymentRequest) (*types.DecisionResponse, error)
	GetPayment(context.Context, *types.GetPaymentRequest) (*types.PaymentEnvelopeResponse, error)
	ListPayments(context.Context, *types.ListPaymentsRequest) (*types.ListPaymentsResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ApprovalsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodHealth, Handler: unaryHandler(methodHealth, ApprovalsServiceServer.Health)},
		{MethodName: methodSubmitPayment, Handler: unaryHandler(methodSubmitPayment, ApprovalsServiceServer.SubmitPayment)},
		{MethodName: methodApprovePayment, Handler: unaryHandler(methodApprovePayment, ApprovalsServiceServer.ApprovePayment)},
		{MethodName: methodRejectPayment, Handler: unaryHandler(methodRejectPayment, ApprovalsServiceServer.RejectPayment)},
		{MethodName: methodGetPayment, Handler: unaryHandler(methodGetPayment, ApprovalsServiceServer.GetPayment)},
		{MethodName: methodListPayments, Handler: unaryHandler(methodListPayments, ApprovalsServiceServer.ListPayments)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "approvals.proto",
}

func RegisterApprovalsServiceServer(s grpc.ServiceRegistrar, srv ApprovalsServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](
	method string,
	call func(ApprovalsServiceServer, context.Context, *Req) (*Resp, error),
) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + ServiceName + "/" + method

	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ApprovalsServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ApprovalsServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client calls the approvals service over a connection using the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Health(ctx context.Context, in *types.HealthRequest, opts ...grpc.CallOption) (*types.HealthResponse, error) {
	out := new(types.HealthResponse)
	if err := c.invoke(ctx, methodHealth, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SubmitPayment(ctx context.Context, in *types.SubmitPaymentRequest, opts ...grpc.CallOption) (*types.SubmitPaymentResponse, error) {
	out := new(types.SubmitPaymentResponse)
	if err := c.invoke(ctx, methodSubmitPayment, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ApprovePayment(ctx context.Context, in *types.DecidePaymentRequest, opts ...grpc.CallOption) (*types.DecisionResponse, error) {
	out := new(types.DecisionResponse)
	if err := c.invoke(ctx, methodApprovePayment, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RejectPayment(ctx context.Context, in *types.DecidePaymentRequest, opts ...grpc.CallOption) (*types.DecisionResponse, error) {
	out := new(types.DecisionResponse)
	if err := c.invoke(ctx, methodRejectPayment, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPayment(ctx context.Context, in *types.GetPaymentRequest, opts ...grpc.CallOption) (*types.PaymentEnvelopeResponse, error) {
	out := new(types.PaymentEnvelopeResponse)
	if err := c.invoke(ctx, methodGetPayment, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListPayments(ctx context.Context, in *types.ListPaymentsRequest, opts ...grpc.CallOption) (*types.ListPaymentsResponse, error) {
	out := new(types.ListPaymentsResponse)
	if err := c.invoke(ctx, methodListPayments, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out interface{}, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}
