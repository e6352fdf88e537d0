package types

// Wire messages shared by the HTTP and gRPC transports. Getters are nil-safe
// so handlers can read optional messages without checks.

type SubmitPaymentRequest struct {
	SubmitterID      int64  `json:"submitter_id"`
	SubmitterHandle  string `json:"submitter_handle,omitempty"`
	PlanCode         string `json:"plan_code"`
	ProofText        string `json:"proof_text,omitempty"`
	ProofPhotoRef    string `json:"proof_photo_ref,omitempty"`
	ProofDocumentRef string `json:"proof_document_ref,omitempty"`
	Locale           string `json:"locale,omitempty"`
}

func (r *SubmitPaymentRequest) GetSubmitterId() int64 {
	if r == nil {
		return 0
	}
	return r.SubmitterID
}

func (r *SubmitPaymentRequest) GetSubmitterHandle() string {
	if r == nil {
		return ""
	}
	return r.SubmitterHandle
}

func (r *SubmitPaymentRequest) GetPlanCode() string {
	if r == nil {
		return ""
	}
	return r.PlanCode
}

func (r *SubmitPaymentRequest) GetProofText() string {
	if r == nil {
		return ""
	}
	return r.ProofText
}

func (r *SubmitPaymentRequest) GetProofPhotoRef() string {
	if r == nil {
		return ""
	}
	return r.ProofPhotoRef
}

func (r *SubmitPaymentRequest) GetProofDocumentRef() string {
	if r == nil {
		return ""
	}
	return r.ProofDocumentRef
}

func (r *SubmitPaymentRequest) GetLocale() string {
	if r == nil {
		return ""
	}
	return r.Locale
}

type DecidePaymentRequest struct {
	ID         uint64 `json:"id"`
	ReviewerID int64  `json:"reviewer_id"`
}

func (r *DecidePaymentRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.ID
}

func (r *DecidePaymentRequest) GetReviewerId() int64 {
	if r == nil {
		return 0
	}
	return r.ReviewerID
}

type GetPaymentRequest struct {
	ID uint64 `json:"id"`
}

func (r *GetPaymentRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.ID
}

type ListPaymentsRequest struct {
	HasStatus   bool   `json:"has_status,omitempty"`
	Status      string `json:"status,omitempty"`
	SubmitterID int64  `json:"submitter_id,omitempty"`
	Limit       int32  `json:"limit,omitempty"`
	Offset      int32  `json:"offset,omitempty"`
}

func (r *ListPaymentsRequest) GetHasStatus() bool {
	if r == nil {
		return false
	}
	return r.HasStatus
}

func (r *ListPaymentsRequest) GetStatus() string {
	if r == nil {
		return ""
	}
	return r.Status
}

func (r *ListPaymentsRequest) GetSubmitterId() int64 {
	if r == nil {
		return 0
	}
	return r.SubmitterID
}

func (r *ListPaymentsRequest) GetLimit() int32 {
	if r == nil {
		return 0
	}
	return r.Limit
}

func (r *ListPaymentsRequest) GetOffset() int32 {
	if r == nil {
		return 0
	}
	return r.Offset
}

type Payment struct {
	ID                  uint64 `json:"id,string"`
	SubmitterID         int64  `json:"submitter_id"`
	SubmitterHandle     string `json:"submitter_handle,omitempty"`
	PlanCode            string `json:"plan_code"`
	ProofText           string `json:"proof_text,omitempty"`
	ProofPhotoRef       string `json:"proof_photo_ref,omitempty"`
	ProofDocumentRef    string `json:"proof_document_ref,omitempty"`
	Locale              string `json:"locale"`
	Status              string `json:"status"`
	DecidedAt           string `json:"decided_at,omitempty"`
	ReviewerID          int64  `json:"reviewer_id,omitempty"`
	Credential          string `json:"credential,omitempty"`
	ReviewerNotifiedAt  string `json:"reviewer_notified_at,omitempty"`
	SubmitterNotifiedAt string `json:"submitter_notified_at,omitempty"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

type PaymentEnvelopeResponse struct {
	Payment *Payment `json:"payment"`
}

type SubmitPaymentResponse struct {
	Outcome  string   `json:"outcome"`
	Payment  *Payment `json:"payment"`
	Warnings []string `json:"warnings,omitempty"`
}

type DecisionResponse struct {
	Outcome    string   `json:"outcome"`
	Payment    *Payment `json:"payment"`
	Credential string   `json:"credential,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

type ListPaymentsResponse struct {
	Payments []*Payment `json:"payments"`
}

type HealthRequest struct{}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
