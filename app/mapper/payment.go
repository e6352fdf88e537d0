package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-payment-approvals/app/entity"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/service"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/types"
)

func PaymentToProto(item *entity.Payment) *types.Payment {
	if item == nil {
		return nil
	}

	return &types.Payment{
		ID:                  item.ID,
		SubmitterID:         item.SubmitterID,
		SubmitterHandle:     derefString(item.SubmitterHandle),
		PlanCode:            item.PlanCode,
		ProofText:           derefString(item.Proof.Text),
		ProofPhotoRef:       derefString(item.Proof.PhotoRef),
		ProofDocumentRef:    derefString(item.Proof.DocumentRef),
		Locale:              item.Locale,
		Status:              item.Status,
		DecidedAt:           formatTime(item.DecidedAt),
		ReviewerID:          derefInt64(item.ReviewerID),
		Credential:          derefString(item.Credential),
		ReviewerNotifiedAt:  formatTime(item.ReviewerNotifiedAt),
		SubmitterNotifiedAt: formatTime(item.SubmitterNotifiedAt),
		CreatedAt:           item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentsToProto(items []*entity.Payment) []*types.Payment {
	result := make([]*types.Payment, 0, len(items))
	for _, item := range items {
		result = append(result, PaymentToProto(item))
	}
	return result
}

func SubmitResultToProto(result *service.SubmitResult) *types.SubmitPaymentResponse {
	if result == nil {
		return nil
	}
	return &types.SubmitPaymentResponse{
		Outcome:  string(result.Outcome),
		Payment:  PaymentToProto(result.Payment),
		Warnings: warningsToStrings(result.Warnings),
	}
}

func DecisionResultToProto(result *service.DecisionResult) *types.DecisionResponse {
	if result == nil {
		return nil
	}
	return &types.DecisionResponse{
		Outcome:    string(result.Outcome),
		Payment:    PaymentToProto(result.Payment),
		Credential: result.Credential,
		Warnings:   warningsToStrings(result.Warnings),
	}
}

func warningsToStrings(warnings []service.DeliveryWarning) []string {
	if len(warnings) == 0 {
		return nil
	}
	result := make([]string, 0, len(warnings))
	for _, w := range warnings {
		result = append(result, w.Error())
	}
	return result
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func formatTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
