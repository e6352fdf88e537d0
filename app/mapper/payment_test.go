package mapper

import (
	"errors"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-payment-approvals/app/entity"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/service"
)

func TestPaymentToProtoDecided(t *testing.T) {
	decidedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	reviewer := int64(7)
	text := "tx-hash"
	credential := "https://t.me/+abc"

	out := PaymentToProto(&entity.Payment{
		ID:          1001,
		SubmitterID: 42,
		PlanCode:    "T1",
		Proof:       entity.Proof{Text: &text},
		Locale:      "en",
		Status:      entity.StatusConfirmed,
		DecidedAt:   &decidedAt,
		ReviewerID:  &reviewer,
		Credential:  &credential,
		CreatedAt:   decidedAt.Add(-time.Hour),
		UpdatedAt:   decidedAt,
	})

	if out.ID != 1001 || out.Status != entity.StatusConfirmed || out.ReviewerID != 7 {
		t.Fatalf("unexpected mapped payment: %+v", out)
	}
	if out.DecidedAt != "2026-03-01T10:00:00Z" {
		t.Fatalf("unexpected decided_at: %q", out.DecidedAt)
	}
	if out.ProofText != "tx-hash" || out.Credential != credential {
		t.Fatalf("unexpected proof/credential: %+v", out)
	}
	if out.ReviewerNotifiedAt != "" {
		t.Fatalf("expected empty reviewer_notified_at, got %q", out.ReviewerNotifiedAt)
	}
}

func TestPaymentToProtoNil(t *testing.T) {
	if PaymentToProto(nil) != nil {
		t.Fatal("expected nil for nil payment")
	}
}

func TestDecisionResultToProtoCarriesWarnings(t *testing.T) {
	out := DecisionResultToProto(&service.DecisionResult{
		Outcome:  service.OutcomeUpdated,
		Payment:  &entity.Payment{ID: 1, Status: entity.StatusRejected},
		Warnings: []service.DeliveryWarning{{Target: service.TargetSubmitter, Err: errors.New("blocked")}},
	})

	if out.Outcome != "updated" {
		t.Fatalf("unexpected outcome: %s", out.Outcome)
	}
	if len(out.Warnings) != 1 || out.Warnings[0] != "submitter delivery failed: blocked" {
		t.Fatalf("unexpected warnings: %v", out.Warnings)
	}
}
