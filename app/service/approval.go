package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/entity"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/factory"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/gateway"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/plan"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/preference"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/repository"
	"github.com/vibast-solutions/ms-go-payment-approvals/config"
)

const (
	defaultListLimit = int32(100)
	defaultBatchSize = int32(100)
	maxListLimit     = int32(500)
)

type Outcome string

const (
	OutcomeAccepted       Outcome = "accepted"
	OutcomeUpdated        Outcome = "updated"
	OutcomeAlreadyDecided Outcome = "already_decided"
)

const (
	TargetReviewer   = "reviewer"
	TargetCredential = "credential"
	TargetSubmitter  = "submitter"
	TargetEvents     = "events"
)

// DeliveryWarning reports a side effect that failed after the durable write.
// It never means the state change itself failed.
type DeliveryWarning struct {
	Target string
	Err    error
}

func (w DeliveryWarning) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", w.Target, w.Err)
}

func (w DeliveryWarning) Unwrap() []error {
	return []error{ErrDeliveryFailed, w.Err}
}

type SubmitResult struct {
	Outcome  Outcome
	Payment  *entity.Payment
	Warnings []DeliveryWarning
}

type DecisionResult struct {
	Outcome    Outcome
	Payment    *entity.Payment
	Credential string
	Warnings   []DeliveryWarning
}

type submitPaymentRequest interface {
	GetSubmitterId() int64
	GetSubmitterHandle() string
	GetPlanCode() string
	GetProofText() string
	GetProofPhotoRef() string
	GetProofDocumentRef() string
	GetLocale() string
}

type decidePaymentRequest interface {
	GetId() uint64
	GetReviewerId() int64
}

type listPaymentsRequest interface {
	GetHasStatus() bool
	GetStatus() string
	GetSubmitterId() int64
	GetLimit() int32
	GetOffset() int32
}

type paymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uint64) (*entity.Payment, error)
	CompareAndUpdate(ctx context.Context, id uint64, expectedStatus string, mutate repository.MutateFunc) (*entity.Payment, error)
	List(ctx context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error)
	ListReviewerUndelivered(ctx context.Context, createdBefore time.Time, limit int32) ([]*entity.Payment, error)
	ListSubmitterUndelivered(ctx context.Context, decidedBefore time.Time, limit int32) ([]*entity.Payment, error)
}

type paymentEventRepository interface {
	Create(ctx context.Context, event *entity.PaymentEvent) error
}

// Gateways groups the outbound channels. Any nil member falls back to a
// disabled channel, so deliveries are recorded as pending redelivery.
type Gateways struct {
	Reviewer    gateway.ReviewerNotifier
	Submitter   gateway.UserNotifier
	Credentials gateway.CredentialIssuer
	Events      gateway.EventPublisher
}

type ApprovalService struct {
	paymentRepo  paymentRepository
	eventRepo    paymentEventRepository
	catalog      *plan.Catalog
	reviewer     gateway.ReviewerNotifier
	submitter    gateway.UserNotifier
	credentials  gateway.CredentialIssuer
	events       gateway.EventPublisher
	reviewerIDs  map[int64]struct{}
	approvalsCfg config.ApprovalsConfig
	logger       logrus.FieldLogger
	now          func() time.Time
}

func NewApprovalService(
	paymentRepo paymentRepository,
	eventRepo paymentEventRepository,
	catalog *plan.Catalog,
	gateways Gateways,
	approvalsCfg config.ApprovalsConfig,
) *ApprovalService {
	logger := factory.NewModuleLogger("approval-service")
	disabled := gateway.Disabled{Logger: logger}

	if catalog == nil {
		catalog = plan.DefaultCatalog()
	}
	if gateways.Reviewer == nil {
		gateways.Reviewer = disabled
	}
	if gateways.Submitter == nil {
		gateways.Submitter = disabled
	}
	if gateways.Credentials == nil {
		gateways.Credentials = disabled
	}
	if gateways.Events == nil {
		gateways.Events = gateway.NopPublisher{}
	}

	reviewerIDs := make(map[int64]struct{}, len(approvalsCfg.ReviewerIDs))
	for _, id := range approvalsCfg.ReviewerIDs {
		reviewerIDs[id] = struct{}{}
	}

	return &ApprovalService{
		paymentRepo:  paymentRepo,
		eventRepo:    eventRepo,
		catalog:      catalog,
		reviewer:     gateways.Reviewer,
		submitter:    gateways.Submitter,
		credentials:  gateways.Credentials,
		events:       gateways.Events,
		reviewerIDs:  reviewerIDs,
		approvalsCfg: approvalsCfg,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *ApprovalService) Catalog() *plan.Catalog {
	return s.catalog
}

func (s *ApprovalService) IsReviewer(userID int64) bool {
	_, ok := s.reviewerIDs[userID]
	return ok
}

// SubmitProof persists a new pending record and then asks the reviewers to
// decide on it. The record is durable before any notification is attempted.
func (s *ApprovalService) SubmitProof(ctx context.Context, req submitPaymentRequest) (*SubmitResult, error) {
	submitterID := req.GetSubmitterId()
	if submitterID <= 0 {
		return nil, fmt.Errorf("%w: submitter_id is required", ErrInvalidRequest)
	}

	selected, err := s.catalog.Get(req.GetPlanCode())
	if err != nil {
		if errors.Is(err, plan.ErrPlanNotFound) {
			return nil, ErrUnknownPlan
		}
		return nil, err
	}

	proof := entity.Proof{
		Text:        normalizeOptionalString(req.GetProofText()),
		PhotoRef:    normalizeOptionalString(req.GetProofPhotoRef()),
		DocumentRef: normalizeOptionalString(req.GetProofDocumentRef()),
	}
	if proof.Empty() && !s.approvalsCfg.AllowEmptyProof {
		return nil, fmt.Errorf("%w: proof is required", ErrInvalidRequest)
	}

	now := s.now()
	payment := &entity.Payment{
		SubmitterID:     submitterID,
		SubmitterHandle: normalizeOptionalString(strings.TrimPrefix(strings.TrimSpace(req.GetSubmitterHandle()), "@")),
		PlanCode:        selected.Code,
		Proof:           proof,
		Locale:          preference.Normalize(req.GetLocale()),
		Status:          entity.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	storeCtx, cancel := s.storeContext(ctx)
	err = s.paymentRepo.Create(storeCtx, payment)
	cancel()
	if err != nil {
		return nil, storeUnavailable(err)
	}

	s.recordEvent(ctx, &entity.PaymentEvent{
		PaymentID: payment.ID,
		EventType: entity.EventPaymentSubmitted,
		NewStatus: payment.Status,
		ActorID:   &submitterID,
	})

	// Side effects run detached from the caller so a dropped client cannot
	// interrupt delivery of an already durable record.
	sideCtx := context.WithoutCancel(ctx)
	result := &SubmitResult{Outcome: OutcomeAccepted, Payment: payment}

	if latest, warning := s.deliverReviewCard(sideCtx, payment); warning != nil {
		result.Warnings = append(result.Warnings, *warning)
	} else if latest != nil {
		result.Payment = latest
	}

	if warning := s.publish(sideCtx, gateway.EventTypeSubmitted, result.Payment); warning != nil {
		result.Warnings = append(result.Warnings, *warning)
	}

	return result, nil
}

func (s *ApprovalService) Approve(ctx context.Context, req decidePaymentRequest) (*DecisionResult, error) {
	return s.Decide(ctx, req.GetId(), req.GetReviewerId(), gateway.ActionApprove)
}

func (s *ApprovalService) Reject(ctx context.Context, req decidePaymentRequest) (*DecisionResult, error) {
	return s.Decide(ctx, req.GetId(), req.GetReviewerId(), gateway.ActionReject)
}

// Decide moves a pending record to confirmed or rejected. Exactly one caller
// wins the transition; everyone else gets OutcomeAlreadyDecided with the
// record as stored, and no side effect is repeated for them.
func (s *ApprovalService) Decide(ctx context.Context, id uint64, reviewerID int64, action gateway.Action) (*DecisionResult, error) {
	if !s.IsReviewer(reviewerID) {
		return nil, ErrForbidden
	}

	var target, eventType string
	switch action {
	case gateway.ActionApprove:
		target, eventType = entity.StatusConfirmed, entity.EventPaymentConfirmed
	case gateway.ActionReject:
		target, eventType = entity.StatusRejected, entity.EventPaymentRejected
	default:
		return nil, fmt.Errorf("%w: unsupported action %q", ErrInvalidRequest, action)
	}
	if id == 0 {
		return nil, ErrUnknownPayment
	}

	now := s.now()
	storeCtx, cancel := s.storeContext(ctx)
	payment, err := s.paymentRepo.CompareAndUpdate(storeCtx, id, entity.StatusPending, func(p *entity.Payment) error {
		decidedAt := now
		reviewer := reviewerID
		p.Status = target
		p.DecidedAt = &decidedAt
		p.ReviewerID = &reviewer
		return nil
	})
	cancel()
	switch {
	case errors.Is(err, repository.ErrStatusConflict):
		return &DecisionResult{Outcome: OutcomeAlreadyDecided, Payment: payment}, nil
	case errors.Is(err, repository.ErrPaymentNotFound):
		return nil, ErrUnknownPayment
	case err != nil:
		return nil, storeUnavailable(err)
	}

	oldStatus := entity.StatusPending
	s.recordEvent(ctx, &entity.PaymentEvent{
		PaymentID: payment.ID,
		EventType: eventType,
		OldStatus: &oldStatus,
		NewStatus: payment.Status,
		ActorID:   &reviewerID,
	})

	sideCtx := context.WithoutCancel(ctx)
	result := &DecisionResult{Outcome: OutcomeUpdated, Payment: payment}

	if action == gateway.ActionApprove {
		latest, credential, warning := s.issueCredential(sideCtx, payment)
		if warning != nil {
			result.Warnings = append(result.Warnings, *warning)
		}
		if latest != nil {
			result.Payment = latest
		}
		result.Credential = credential
	}

	if latest, warning := s.deliverOutcome(sideCtx, result.Payment, result.Credential); warning != nil {
		result.Warnings = append(result.Warnings, *warning)
	} else if latest != nil {
		result.Payment = latest
	}

	if warning := s.publish(sideCtx, gateway.EventTypeDecided, result.Payment); warning != nil {
		result.Warnings = append(result.Warnings, *warning)
	}

	return result, nil
}

func (s *ApprovalService) GetPayment(ctx context.Context, id uint64) (*entity.Payment, error) {
	if id == 0 {
		return nil, ErrUnknownPayment
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	payment, err := s.paymentRepo.FindByID(storeCtx, id)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if payment == nil {
		return nil, ErrUnknownPayment
	}
	return payment, nil
}

func (s *ApprovalService) ListPayments(ctx context.Context, req listPaymentsRequest) ([]*entity.Payment, error) {
	if req.GetHasStatus() && !entity.IsValidStatus(req.GetStatus()) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, req.GetStatus())
	}
	if req.GetOffset() < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", ErrInvalidRequest)
	}

	limit := req.GetLimit()
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	items, err := s.paymentRepo.List(storeCtx, repository.PaymentFilter{
		HasStatus:   req.GetHasStatus(),
		Status:      req.GetStatus(),
		SubmitterID: req.GetSubmitterId(),
		Limit:       limit,
		Offset:      req.GetOffset(),
	})
	if err != nil {
		return nil, storeUnavailable(err)
	}
	return items, nil
}

// deliverReviewCard sends the review card and records the delivery. It returns
// the updated record when the delivery mark was stored.
func (s *ApprovalService) deliverReviewCard(ctx context.Context, payment *entity.Payment) (*entity.Payment, *DeliveryWarning) {
	notifyCtx, cancel := s.timeoutContext(ctx, s.approvalsCfg.NotifyTimeout)
	err := s.reviewer.NotifyReviewer(notifyCtx, payment, gateway.ReviewActions)
	cancel()
	if err != nil {
		s.recordDeliveryFailure(ctx, payment, TargetReviewer, entity.EventReviewerNotifyFailed, err)
		return nil, &DeliveryWarning{Target: TargetReviewer, Err: err}
	}

	s.recordEvent(ctx, &entity.PaymentEvent{
		PaymentID: payment.ID,
		EventType: entity.EventReviewerNotified,
		NewStatus: payment.Status,
	})

	// The record may already be decided by now; the card is moot then.
	return s.markDelivered(ctx, payment.ID, entity.StatusPending, func(p *entity.Payment, at time.Time) {
		p.ReviewerNotifiedAt = &at
	}), nil
}

func (s *ApprovalService) issueCredential(ctx context.Context, payment *entity.Payment) (*entity.Payment, string, *DeliveryWarning) {
	if payment.Credential != nil {
		return nil, *payment.Credential, nil
	}
	if s.approvalsCfg.CredentialScopeID == 0 {
		return nil, "", nil
	}

	maxUses := s.approvalsCfg.CredentialMaxUses
	if maxUses <= 0 {
		maxUses = 1
	}

	issueCtx, cancel := s.timeoutContext(ctx, s.approvalsCfg.CredentialTimeout)
	credential, err := s.credentials.Issue(issueCtx, s.approvalsCfg.CredentialScopeID, payment.SubmitterID, s.approvalsCfg.CredentialTTL, maxUses)
	cancel()
	if err != nil {
		s.recordDeliveryFailure(ctx, payment, TargetCredential, entity.EventCredentialFailed, err)
		return nil, "", &DeliveryWarning{Target: TargetCredential, Err: err}
	}

	s.recordEvent(ctx, &entity.PaymentEvent{
		PaymentID: payment.ID,
		EventType: entity.EventCredentialIssued,
		NewStatus: payment.Status,
	})

	latest := s.markDelivered(ctx, payment.ID, payment.Status, func(p *entity.Payment, _ time.Time) {
		value := credential
		p.Credential = &value
	})
	return latest, credential, nil
}

func (s *ApprovalService) deliverOutcome(ctx context.Context, payment *entity.Payment, credential string) (*entity.Payment, *DeliveryWarning) {
	notifyCtx, cancel := s.timeoutContext(ctx, s.approvalsCfg.NotifyTimeout)
	err := s.submitter.NotifyUser(notifyCtx, payment.SubmitterID, payment.Status, payment.Locale, credential)
	cancel()
	if err != nil {
		s.recordDeliveryFailure(ctx, payment, TargetSubmitter, entity.EventSubmitterNotifyFailed, err)
		return nil, &DeliveryWarning{Target: TargetSubmitter, Err: err}
	}

	s.recordEvent(ctx, &entity.PaymentEvent{
		PaymentID: payment.ID,
		EventType: entity.EventSubmitterNotified,
		NewStatus: payment.Status,
	})

	return s.markDelivered(ctx, payment.ID, payment.Status, func(p *entity.Payment, at time.Time) {
		p.SubmitterNotifiedAt = &at
	}), nil
}

// markDelivered stores delivery bookkeeping conditioned on the status the
// caller observed. A failure here only delays redelivery bookkeeping.
func (s *ApprovalService) markDelivered(ctx context.Context, id uint64, expectedStatus string, apply func(p *entity.Payment, at time.Time)) *entity.Payment {
	at := s.now()
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	latest, err := s.paymentRepo.CompareAndUpdate(storeCtx, id, expectedStatus, func(p *entity.Payment) error {
		apply(p, at)
		return nil
	})
	if err != nil {
		if !errors.Is(err, repository.ErrStatusConflict) {
			s.logger.WithError(err).WithField("payment_id", id).Warn("Failed to record delivery")
		}
		return nil
	}
	return latest
}

func (s *ApprovalService) publish(ctx context.Context, eventType string, payment *entity.Payment) *DeliveryWarning {
	publishCtx, cancel := s.timeoutContext(ctx, s.approvalsCfg.NotifyTimeout)
	defer cancel()

	err := s.events.Publish(publishCtx, gateway.DecisionEvent{
		Type:        eventType,
		PaymentID:   payment.ID,
		SubmitterID: payment.SubmitterID,
		PlanCode:    payment.PlanCode,
		Status:      payment.Status,
		ReviewerID:  payment.ReviewerID,
		DecidedAt:   payment.DecidedAt,
		OccurredAt:  s.now(),
	})
	if err != nil {
		s.logger.WithError(err).WithField("payment_id", payment.ID).WithField("target", TargetEvents).Warn("Delivery failed")
		return &DeliveryWarning{Target: TargetEvents, Err: err}
	}
	return nil
}

func (s *ApprovalService) recordDeliveryFailure(ctx context.Context, payment *entity.Payment, target, eventType string, cause error) {
	s.logger.WithError(cause).
		WithField("payment_id", payment.ID).
		WithField("target", target).
		Warn("Delivery failed")

	detail := truncate(cause.Error(), 1024)
	s.recordEvent(ctx, &entity.PaymentEvent{
		PaymentID: payment.ID,
		EventType: eventType,
		NewStatus: payment.Status,
		Detail:    &detail,
	})
}

func (s *ApprovalService) recordEvent(ctx context.Context, event *entity.PaymentEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	storeCtx, cancel := s.storeContext(context.WithoutCancel(ctx))
	defer cancel()
	_ = s.eventRepo.Create(storeCtx, event)
}

func (s *ApprovalService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return s.timeoutContext(ctx, s.approvalsCfg.StoreTimeout)
}

func (s *ApprovalService) timeoutContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *ApprovalService) batchSize() int32 {
	if s.approvalsCfg.JobBatchSize <= 0 {
		return defaultBatchSize
	}
	return s.approvalsCfg.JobBatchSize
}

func storeUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func normalizeOptionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
