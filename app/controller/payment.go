package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/factory"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/gateway"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/mapper"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/service"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/types"
)

type PaymentController struct {
	approvalService *service.ApprovalService
	logger          logrus.FieldLogger
}

func NewPaymentController(approvalService *service.ApprovalService) *PaymentController {
	return &PaymentController{
		approvalService: approvalService,
		logger:          factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) SubmitPayment(ctx echo.Context) error {
	req, err := types.NewSubmitPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.approvalService.SubmitProof(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Submit payment failed")
	}
	c.logWarnings(ctx, result.Payment.ID, result.Warnings)

	return ctx.JSON(http.StatusCreated, mapper.SubmitResultToProto(result))
}

func (c *PaymentController) ApprovePayment(ctx echo.Context) error {
	return c.decide(ctx, gateway.ActionApprove)
}

func (c *PaymentController) RejectPayment(ctx echo.Context) error {
	return c.decide(ctx, gateway.ActionReject)
}

func (c *PaymentController) decide(ctx echo.Context, action gateway.Action) error {
	req, err := types.NewDecidePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.approvalService.Decide(ctx.Request().Context(), req.GetId(), req.GetReviewerId(), action)
	if err != nil {
		return c.writeServiceError(ctx, err, "Decide payment failed")
	}
	c.logWarnings(ctx, req.GetId(), result.Warnings)

	return ctx.JSON(http.StatusOK, mapper.DecisionResultToProto(result))
}

func (c *PaymentController) GetPayment(ctx echo.Context) error {
	req, err := types.NewGetPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.approvalService.GetPayment(ctx.Request().Context(), req.GetId())
	if err != nil {
		return c.writeServiceError(ctx, err, "Get payment failed")
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToProto(item)})
}

func (c *PaymentController) ListPayments(ctx echo.Context) error {
	req, err := types.NewListPaymentsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.approvalService.ListPayments(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "List payments failed")
	}

	return ctx.JSON(http.StatusOK, &types.ListPaymentsResponse{Payments: mapper.PaymentsToProto(items)})
}

func (c *PaymentController) writeServiceError(ctx echo.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrUnknownPlan):
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return c.writeError(ctx, http.StatusForbidden, "reviewer is not authorized")
	case errors.Is(err, service.ErrUnknownPayment):
		return c.writeError(ctx, http.StatusNotFound, "payment not found")
	case errors.Is(err, service.ErrStoreUnavailable):
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return c.writeError(ctx, http.StatusServiceUnavailable, "payment store unavailable")
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func (c *PaymentController) logWarnings(ctx echo.Context, paymentID uint64, warnings []service.DeliveryWarning) {
	for _, w := range warnings {
		factory.LoggerWithContext(c.logger, ctx).
			WithError(w.Err).
			WithField("payment_id", paymentID).
			WithField("target", w.Target).
			Warn("Delivery failed")
	}
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
