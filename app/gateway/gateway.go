package gateway

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-payment-approvals/app/entity"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ReviewActions is the action set offered on every review card.
var ReviewActions = []Action{ActionApprove, ActionReject}

type ReviewerNotifier interface {
	NotifyReviewer(ctx context.Context, payment *entity.Payment, actions []Action) error
}

// UserNotifier delivers the outcome of a decision. credential is empty when none
// was issued.
type UserNotifier interface {
	NotifyUser(ctx context.Context, userID int64, outcome string, locale string, credential string) error
}

type CredentialIssuer interface {
	Issue(ctx context.Context, scopeTargetID int64, holderID int64, ttl time.Duration, maxUses int) (string, error)
}

const (
	EventTypeSubmitted = "payment.submitted"
	EventTypeDecided   = "payment.decided"
)

type DecisionEvent struct {
	Type        string     `json:"type"`
	PaymentID   uint64     `json:"payment_id"`
	SubmitterID int64      `json:"submitter_id"`
	PlanCode    string     `json:"plan_code"`
	Status      string     `json:"status"`
	ReviewerID  *int64     `json:"reviewer_id,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event DecisionEvent) error
}
