package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-payment-approvals/app/entity"
)

type storeFixture struct {
	db       DBTX
	payments *PaymentRepository
	events   *PaymentEventRepository
}

func strPtr(v string) *string { return &v }

func newPendingPayment(submitterID int64, createdAt time.Time) *entity.Payment {
	return &entity.Payment{
		SubmitterID:     submitterID,
		SubmitterHandle: strPtr("alice"),
		PlanCode:        "T1",
		Proof:           entity.Proof{Text: strPtr("0xabcdef")},
		Locale:          "en",
		Status:          entity.StatusPending,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func decide(status string, reviewerID int64, at time.Time) MutateFunc {
	return func(p *entity.Payment) error {
		p.Status = status
		p.ReviewerID = &reviewerID
		p.DecidedAt = &at
		return nil
	}
}

// runPaymentStoreSuite exercises the store contract against a real engine.
func runPaymentStoreSuite(t *testing.T, open func(t *testing.T) storeFixture) {
	t.Run("CreateAndFind", func(t *testing.T) {
		f := open(t)
		ctx := context.Background()
		now := time.Now().UTC().Truncate(time.Microsecond)

		payment := newPendingPayment(42, now)
		payment.Proof.PhotoRef = strPtr("photo")
		if err := f.payments.Create(ctx, payment); err != nil {
			t.Fatalf("create: %v", err)
		}
		if payment.ID == 0 || payment.Version != 1 {
			t.Fatalf("expected id and version to be assigned, got %+v", payment)
		}

		got, err := f.payments.FindByID(ctx, payment.ID)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got == nil || got.SubmitterID != 42 || got.PlanCode != "T1" || got.Status != entity.StatusPending {
			t.Fatalf("unexpected record %+v", got)
		}
		if got.Proof.Text == nil || *got.Proof.Text != "0xabcdef" || got.Proof.PhotoRef == nil || got.Proof.DocumentRef != nil {
			t.Fatalf("unexpected proof %+v", got.Proof)
		}
		if !got.CreatedAt.Equal(now) {
			t.Fatalf("expected created_at %v, got %v", now, got.CreatedAt)
		}
		if got.DecidedAt != nil || got.ReviewerID != nil || got.Credential != nil {
			t.Fatalf("expected empty decision fields, got %+v", got)
		}
	})

	t.Run("FindMissingReturnsNil", func(t *testing.T) {
		f := open(t)
		got, err := f.payments.FindByID(context.Background(), 987654321)
		if err != nil || got != nil {
			t.Fatalf("expected nil, nil; got %+v, %v", got, err)
		}
	})

	t.Run("CompareAndUpdateFromExpectedStatus", func(t *testing.T) {
		f := open(t)
		ctx := context.Background()
		now := time.Now().UTC().Truncate(time.Microsecond)

		payment := newPendingPayment(42, now)
		if err := f.payments.Create(ctx, payment); err != nil {
			t.Fatalf("create: %v", err)
		}

		updated, err := f.payments.CompareAndUpdate(ctx, payment.ID, entity.StatusPending, decide(entity.StatusConfirmed, 7, now))
		if err != nil {
			t.Fatalf("compare and update: %v", err)
		}
		if updated.Status != entity.StatusConfirmed || updated.Version != 2 {
			t.Fatalf("unexpected updated record %+v", updated)
		}

		stored, _ := f.payments.FindByID(ctx, payment.ID)
		if stored.Status != entity.StatusConfirmed || stored.ReviewerID == nil || *stored.ReviewerID != 7 || stored.DecidedAt == nil {
			t.Fatalf("unexpected stored record %+v", stored)
		}
	})

	t.Run("CompareAndUpdateConflictReturnsCurrent", func(t *testing.T) {
		f := open(t)
		ctx := context.Background()
		now := time.Now().UTC()

		payment := newPendingPayment(42, now)
		_ = f.payments.Create(ctx, payment)
		if _, err := f.payments.CompareAndUpdate(ctx, payment.ID, entity.StatusPending, decide(entity.StatusRejected, 7, now)); err != nil {
			t.Fatalf("first decision: %v", err)
		}

		called := false
		current, err := f.payments.CompareAndUpdate(ctx, payment.ID, entity.StatusPending, func(p *entity.Payment) error {
			called = true
			return nil
		})
		if !errors.Is(err, ErrStatusConflict) {
			t.Fatalf("expected ErrStatusConflict, got %v", err)
		}
		if called {
			t.Fatal("mutate must not run on a status mismatch")
		}
		if current == nil || current.Status != entity.StatusRejected {
			t.Fatalf("expected current record, got %+v", current)
		}
	})

	t.Run("CompareAndUpdateMissing", func(t *testing.T) {
		f := open(t)
		_, err := f.payments.CompareAndUpdate(context.Background(), 5, entity.StatusPending, decide(entity.StatusConfirmed, 7, time.Now()))
		if !errors.Is(err, ErrPaymentNotFound) {
			t.Fatalf("expected ErrPaymentNotFound, got %v", err)
		}
	})

	t.Run("CompareAndUpdateMutateErrorWritesNothing", func(t *testing.T) {
		f := open(t)
		ctx := context.Background()
		payment := newPendingPayment(42, time.Now().UTC())
		_ = f.payments.Create(ctx, payment)

		boom := errors.New("boom")
		_, err := f.payments.CompareAndUpdate(ctx, payment.ID, entity.StatusPending, func(p *entity.Payment) error {
			p.Status = entity.StatusConfirmed
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected mutate error, got %v", err)
		}
		stored, _ := f.payments.FindByID(ctx, payment.ID)
		if stored.Status != entity.StatusPending || stored.Version != 1 {
			t.Fatalf("expected untouched record, got %+v", stored)
		}
	})

	t.Run("ConcurrentDecisionsHaveOneWinner", func(t *testing.T) {
		f := open(t)
		ctx := context.Background()
		payment := newPendingPayment(42, time.Now().UTC())
		if err := f.payments.Create(ctx, payment); err != nil {
			t.Fatalf("create: %v", err)
		}

		const deciders = 12
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
			failure error
		)
		for i := 0; i < deciders; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				status := entity.StatusConfirmed
				if i%2 == 1 {
					status = entity.StatusRejected
				}
				_, err := f.payments.CompareAndUpdate(ctx, payment.ID, entity.StatusPending, decide(status, int64(100+i), time.Now().UTC()))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					winners++
				case errors.Is(err, ErrStatusConflict), errors.Is(err, ErrWriteContention):
				default:
					failure = err
				}
			}(i)
		}
		wg.Wait()

		if failure != nil {
			t.Fatalf("unexpected error: %v", failure)
		}
		if winners != 1 {
			t.Fatalf("expected exactly one winner, got %d", winners)
		}
		stored, _ := f.payments.FindByID(ctx, payment.ID)
		if stored.Version != 2 {
			t.Fatalf("expected a single write, got version %d", stored.Version)
		}
	})

	t.Run("ListFiltersAndPages", func(t *testing.T) {
		f := open(t)
		ctx := context.Background()
		base := time.Now().UTC().Add(-time.Hour)

		var ids []uint64
		for i := 0; i < 5; i++ {
			submitter := int64(42)
			if i == 4 {
				submitter = 43
			}
			p := newPendingPayment(submitter, base.Add(time.Duration(i)*time.Minute))
			if err := f.payments.Create(ctx, p); err != nil {
				t.Fatalf("create: %v", err)
			}
			ids = append(ids, p.ID)
		}
		if _, err := f.payments.CompareAndUpdate(ctx, ids[0], entity.StatusPending, decide(entity.StatusRejected, 7, base)); err != nil {
			t.Fatalf("decide: %v", err)
		}

		pending, err := f.payments.List(ctx, PaymentFilter{HasStatus: true, Status: entity.StatusPending, Limit: 10})
		if err != nil || len(pending) != 4 {
			t.Fatalf("expected 4 pending, got %d (%v)", len(pending), err)
		}
		if pending[0].ID != ids[4] {
			t.Fatalf("expected newest first, got %d", pending[0].ID)
		}

		mine, _ := f.payments.List(ctx, PaymentFilter{SubmitterID: 43, Limit: 10})
		if len(mine) != 1 || mine[0].ID != ids[4] {
			t.Fatalf("unexpected submitter filter result %+v", mine)
		}

		page, _ := f.payments.List(ctx, PaymentFilter{Limit: 2, Offset: 3})
		if len(page) != 2 || page[1].ID != ids[0] {
			t.Fatalf("unexpected page %+v", page)
		}
	})

	t.Run("UndeliveredQueries", func(t *testing.T) {
		f := open(t)
		ctx := context.Background()
		old := time.Now().UTC().Add(-2 * time.Hour)
		fresh := time.Now().UTC()
		cutoff := time.Now().UTC().Add(-time.Hour)

		stale := newPendingPayment(1, old)
		recent := newPendingPayment(2, fresh)
		delivered := newPendingPayment(3, old)
		delivered.ReviewerNotifiedAt = &old
		decided := newPendingPayment(4, old)
		for _, p := range []*entity.Payment{stale, recent, delivered, decided} {
			if err := f.payments.Create(ctx, p); err != nil {
				t.Fatalf("create: %v", err)
			}
		}
		if _, err := f.payments.CompareAndUpdate(ctx, decided.ID, entity.StatusPending, decide(entity.StatusConfirmed, 7, old)); err != nil {
			t.Fatalf("decide: %v", err)
		}

		reviewer, err := f.payments.ListReviewerUndelivered(ctx, cutoff, 10)
		if err != nil || len(reviewer) != 1 || reviewer[0].ID != stale.ID {
			t.Fatalf("unexpected reviewer backlog %+v (%v)", reviewer, err)
		}

		submitter, err := f.payments.ListSubmitterUndelivered(ctx, cutoff, 10)
		if err != nil || len(submitter) != 1 || submitter[0].ID != decided.ID {
			t.Fatalf("unexpected submitter backlog %+v (%v)", submitter, err)
		}

		_, err = f.payments.CompareAndUpdate(ctx, decided.ID, entity.StatusConfirmed, func(p *entity.Payment) error {
			p.SubmitterNotifiedAt = &fresh
			return nil
		})
		if err != nil {
			t.Fatalf("mark delivered: %v", err)
		}
		submitter, _ = f.payments.ListSubmitterUndelivered(ctx, cutoff, 10)
		if len(submitter) != 0 {
			t.Fatalf("expected empty submitter backlog, got %d", len(submitter))
		}
	})

	t.Run("EventsAreAppendedInOrder", func(t *testing.T) {
		f := open(t)
		ctx := context.Background()
		actor := int64(7)
		old := entity.StatusPending

		for _, e := range []*entity.PaymentEvent{
			{PaymentID: 11, EventType: entity.EventPaymentSubmitted, NewStatus: entity.StatusPending, CreatedAt: time.Now()},
			{PaymentID: 11, EventType: entity.EventPaymentConfirmed, OldStatus: &old, NewStatus: entity.StatusConfirmed, ActorID: &actor, CreatedAt: time.Now()},
			{PaymentID: 12, EventType: entity.EventPaymentSubmitted, NewStatus: entity.StatusPending, CreatedAt: time.Now()},
		} {
			if err := f.events.Create(ctx, e); err != nil {
				t.Fatalf("create event: %v", err)
			}
			if e.ID == 0 {
				t.Fatal("expected event id")
			}
		}

		items, err := f.events.ListByPayment(ctx, 11)
		if err != nil {
			t.Fatalf("list events: %v", err)
		}
		if len(items) != 2 || items[1].EventType != entity.EventPaymentConfirmed || items[1].ActorID == nil || *items[1].ActorID != 7 {
			t.Fatalf("unexpected events %+v", items)
		}
	})
}
