package types

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	statusPending   = "pending"
	statusConfirmed = "confirmed"
	statusRejected  = "rejected"
)

func NewSubmitPaymentRequestFromContext(ctx echo.Context) (*SubmitPaymentRequest, error) {
	var body SubmitPaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.SubmitterHandle = strings.TrimSpace(body.SubmitterHandle)
	body.PlanCode = strings.ToUpper(strings.TrimSpace(body.PlanCode))
	body.ProofText = strings.TrimSpace(body.ProofText)
	body.ProofPhotoRef = strings.TrimSpace(body.ProofPhotoRef)
	body.ProofDocumentRef = strings.TrimSpace(body.ProofDocumentRef)
	body.Locale = strings.ToLower(strings.TrimSpace(body.Locale))

	return &body, nil
}

func (r *SubmitPaymentRequest) Validate() error {
	if r.GetSubmitterId() <= 0 {
		return errors.New("submitter_id must be > 0")
	}
	if strings.TrimSpace(r.GetPlanCode()) == "" {
		return errors.New("plan_code is required")
	}
	return nil
}

func NewDecidePaymentRequestFromContext(ctx echo.Context) (*DecidePaymentRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body DecidePaymentRequest
	if err = ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.ID = id

	return &body, nil
}

func (r *DecidePaymentRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid payment id")
	}
	if r.GetReviewerId() == 0 {
		return errors.New("reviewer_id is required")
	}
	return nil
}

func NewGetPaymentRequestFromContext(ctx echo.Context) (*GetPaymentRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &GetPaymentRequest{ID: id}, nil
}

func (r *GetPaymentRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid payment id")
	}
	return nil
}

func NewListPaymentsRequestFromContext(ctx echo.Context) (*ListPaymentsRequest, error) {
	req := &ListPaymentsRequest{
		Limit:  100,
		Offset: 0,
	}

	if status := strings.ToLower(strings.TrimSpace(ctx.QueryParam("status"))); status != "" {
		req.HasStatus = true
		req.Status = status
	}

	if submitterRaw := strings.TrimSpace(ctx.QueryParam("submitter_id")); submitterRaw != "" {
		submitterID, err := strconv.ParseInt(submitterRaw, 10, 64)
		if err != nil {
			return nil, err
		}
		req.SubmitterID = submitterID
	}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}

	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListPaymentsRequest) Validate() error {
	if r.Limit == 0 {
		r.Limit = 100
	}
	if r.GetLimit() <= 0 || r.GetLimit() > 500 {
		return errors.New("limit must be between 1 and 500")
	}
	if r.GetOffset() < 0 {
		return errors.New("offset must be >= 0")
	}
	if r.GetHasStatus() && !isValidPaymentStatus(r.GetStatus()) {
		return errors.New("invalid status")
	}
	return nil
}

func isValidPaymentStatus(status string) bool {
	switch status {
	case statusPending, statusConfirmed, statusRejected:
		return true
	default:
		return false
	}
}
