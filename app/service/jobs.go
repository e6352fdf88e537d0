package service

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-payment-approvals/app/entity"
)

// RedeliverBatch retries deliveries that never completed: review cards for
// pending records and outcome notices for decided ones. Credentials are only
// re-sent from the stored value, never issued again.
func (s *ApprovalService) RedeliverBatch(ctx context.Context) error {
	cutoff := s.redeliverCutoff()

	var firstErr error

	storeCtx, cancel := s.storeContext(ctx)
	pending, err := s.paymentRepo.ListReviewerUndelivered(storeCtx, cutoff, s.batchSize())
	cancel()
	if err != nil {
		return storeUnavailable(err)
	}
	for _, payment := range pending {
		if payment == nil {
			continue
		}
		if _, warning := s.deliverReviewCard(ctx, payment); warning != nil {
			firstErr = keepFirstErr(firstErr, warning)
		}
	}

	storeCtx, cancel = s.storeContext(ctx)
	decided, err := s.paymentRepo.ListSubmitterUndelivered(storeCtx, cutoff, s.batchSize())
	cancel()
	if err != nil {
		return keepFirstErr(firstErr, storeUnavailable(err))
	}
	for _, payment := range decided {
		if payment == nil || !entity.IsTerminalStatus(payment.Status) {
			continue
		}
		credential := ""
		if payment.Credential != nil {
			credential = *payment.Credential
		}
		if _, warning := s.deliverOutcome(ctx, payment, credential); warning != nil {
			firstErr = keepFirstErr(firstErr, warning)
		}
	}

	return firstErr
}

func (s *ApprovalService) redeliverCutoff() time.Time {
	return s.now().Add(-s.approvalsCfg.RedeliverMinAge)
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
