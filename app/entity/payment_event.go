package entity

import "time"

const (
	EventPaymentSubmitted      = "payment_submitted"
	EventPaymentConfirmed      = "payment_confirmed"
	EventPaymentRejected       = "payment_rejected"
	EventReviewerNotified      = "reviewer_notified"
	EventReviewerNotifyFailed  = "reviewer_notify_failed"
	EventCredentialIssued      = "credential_issued"
	EventCredentialFailed      = "credential_failed"
	EventSubmitterNotified     = "submitter_notified"
	EventSubmitterNotifyFailed = "submitter_notify_failed"
)

type PaymentEvent struct {
	ID uint64

	PaymentID uint64

	EventType string

	OldStatus *string
	NewStatus string

	ActorID *int64
	Detail  *string

	CreatedAt time.Time
}
