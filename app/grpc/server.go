package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-payment-approvals/app/gateway"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/mapper"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/service"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Server struct {
	approvalService *service.ApprovalService
}

func NewServer(approvalService *service.ApprovalService) *Server {
	return &Server{approvalService: approvalService}
}

func (s *Server) Health(_ context.Context, _ *types.HealthRequest) (*types.HealthResponse, error) {
	return &types.HealthResponse{Status: "ok"}, nil
}

func (s *Server) SubmitPayment(ctx context.Context, req *types.SubmitPaymentRequest) (*types.SubmitPaymentResponse, error) {
	l := loggerWithContext(ctx)
	if err := req.Validate(); err != nil {
		l.WithError(err).Debug("Submit payment validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.approvalService.SubmitProof(ctx, req)
	if err != nil {
		return nil, s.toStatus(ctx, err, "Submit payment failed")
	}
	logWarnings(ctx, result.Payment.ID, result.Warnings)

	return mapper.SubmitResultToProto(result), nil
}

func (s *Server) ApprovePayment(ctx context.Context, req *types.DecidePaymentRequest) (*types.DecisionResponse, error) {
	return s.decide(ctx, req, gateway.ActionApprove)
}

func (s *Server) RejectPayment(ctx context.Context, req *types.DecidePaymentRequest) (*types.DecisionResponse, error) {
	return s.decide(ctx, req, gateway.ActionReject)
}

func (s *Server) decide(ctx context.Context, req *types.DecidePaymentRequest, action gateway.Action) (*types.DecisionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.approvalService.Decide(ctx, req.GetId(), req.GetReviewerId(), action)
	if err != nil {
		return nil, s.toStatus(ctx, err, "Decide payment failed")
	}
	logWarnings(ctx, req.GetId(), result.Warnings)

	return mapper.DecisionResultToProto(result), nil
}

func (s *Server) GetPayment(ctx context.Context, req *types.GetPaymentRequest) (*types.PaymentEnvelopeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.approvalService.GetPayment(ctx, req.GetId())
	if err != nil {
		return nil, s.toStatus(ctx, err, "Get payment failed")
	}

	return &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToProto(item)}, nil
}

func (s *Server) ListPayments(ctx context.Context, req *types.ListPaymentsRequest) (*types.ListPaymentsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	items, err := s.approvalService.ListPayments(ctx, req)
	if err != nil {
		return nil, s.toStatus(ctx, err, "List payments failed")
	}

	return &types.ListPaymentsResponse{Payments: mapper.PaymentsToProto(items)}, nil
}

func (s *Server) toStatus(ctx context.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrUnknownPlan):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return status.Error(codes.PermissionDenied, "reviewer is not authorized")
	case errors.Is(err, service.ErrUnknownPayment):
		return status.Error(codes.NotFound, "payment not found")
	case errors.Is(err, service.ErrStoreUnavailable):
		loggerWithContext(ctx).WithError(err).Error(logMessage)
		return status.Error(codes.Unavailable, "payment store unavailable")
	default:
		loggerWithContext(ctx).WithError(err).Error(logMessage)
		return status.Error(codes.Internal, "internal server error")
	}
}

func logWarnings(ctx context.Context, paymentID uint64, warnings []service.DeliveryWarning) {
	for _, w := range warnings {
		loggerWithContext(ctx).
			WithError(w.Err).
			WithField("payment_id", paymentID).
			WithField("target", w.Target).
			Warn("Delivery failed")
	}
}
