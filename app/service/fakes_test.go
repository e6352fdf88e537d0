package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-payment-approvals/app/entity"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/gateway"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/repository"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/types"
	"github.com/vibast-solutions/ms-go-payment-approvals/config"
)

type servicePaymentRepo struct {
	mu       sync.Mutex
	payments map[uint64]*entity.Payment
	nextID   uint64

	createErr error
	findErr   error
}

func newServicePaymentRepo() *servicePaymentRepo {
	return &servicePaymentRepo{
		payments: map[uint64]*entity.Payment{},
		nextID:   1,
	}
}

func (r *servicePaymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	id := r.nextID
	r.nextID++
	payment.ID = id
	if payment.Version == 0 {
		payment.Version = 1
	}
	r.payments[id] = payment.Clone()
	return nil
}

func (r *servicePaymentRepo) FindByID(_ context.Context, id uint64) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	item, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	return item.Clone(), nil
}

func (r *servicePaymentRepo) CompareAndUpdate(_ context.Context, id uint64, expectedStatus string, mutate repository.MutateFunc) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	current, ok := r.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	if current.Status != expectedStatus {
		return current.Clone(), repository.ErrStatusConflict
	}
	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.Version = current.Version + 1
	r.payments[id] = next
	return next.Clone(), nil
}

func (r *servicePaymentRepo) List(_ context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.Payment, 0)
	for _, item := range r.payments {
		if filter.HasStatus && item.Status != filter.Status {
			continue
		}
		if filter.SubmitterID != 0 && item.SubmitterID != filter.SubmitterID {
			continue
		}
		items = append(items, item.Clone())
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })

	start := int(filter.Offset)
	if start > len(items) {
		return []*entity.Payment{}, nil
	}
	end := start + int(filter.Limit)
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], nil
}

func (r *servicePaymentRepo) ListReviewerUndelivered(_ context.Context, createdBefore time.Time, limit int32) ([]*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.Payment, 0)
	for _, item := range r.payments {
		if item.Status == entity.StatusPending && item.ReviewerNotifiedAt == nil && !item.CreatedAt.After(createdBefore) {
			items = append(items, item.Clone())
		}
	}
	return limitItems(items, limit), nil
}

func (r *servicePaymentRepo) ListSubmitterUndelivered(_ context.Context, decidedBefore time.Time, limit int32) ([]*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.Payment, 0)
	for _, item := range r.payments {
		if entity.IsTerminalStatus(item.Status) && item.SubmitterNotifiedAt == nil && item.DecidedAt != nil && !item.DecidedAt.After(decidedBefore) {
			items = append(items, item.Clone())
		}
	}
	return limitItems(items, limit), nil
}

func (r *servicePaymentRepo) get(id uint64) *entity.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payments[id].Clone()
}

func limitItems(items []*entity.Payment, limit int32) []*entity.Payment {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if limit <= 0 || int(limit) >= len(items) {
		return items
	}
	return items[:limit]
}

type serviceEventRepo struct {
	mu     sync.Mutex
	events []*entity.PaymentEvent
}

func (r *serviceEventRepo) Create(_ context.Context, event *entity.PaymentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyItem := *event
	r.events = append(r.events, &copyItem)
	return nil
}

func (r *serviceEventRepo) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, event := range r.events {
		if event.EventType == eventType {
			n++
		}
	}
	return n
}

type userNotice struct {
	UserID     int64
	Outcome    string
	Locale     string
	Credential string
}

type fakeGateway struct {
	mu sync.Mutex

	notifyReviewerFn func(ctx context.Context, payment *entity.Payment) error
	notifyUserFn     func(ctx context.Context, userID int64) error
	issueFn          func(ctx context.Context, scopeTargetID, holderID int64) (string, error)

	reviewerCards []uint64
	userNotices   []userNotice
	issued        []int64
}

func (g *fakeGateway) NotifyReviewer(ctx context.Context, payment *entity.Payment, actions []gateway.Action) error {
	if len(actions) != 2 {
		return errors.New("unexpected action set")
	}
	if g.notifyReviewerFn != nil {
		if err := g.notifyReviewerFn(ctx, payment); err != nil {
			return err
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reviewerCards = append(g.reviewerCards, payment.ID)
	return nil
}

func (g *fakeGateway) NotifyUser(ctx context.Context, userID int64, outcome string, locale string, credential string) error {
	if g.notifyUserFn != nil {
		if err := g.notifyUserFn(ctx, userID); err != nil {
			return err
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.userNotices = append(g.userNotices, userNotice{UserID: userID, Outcome: outcome, Locale: locale, Credential: credential})
	return nil
}

func (g *fakeGateway) Issue(ctx context.Context, scopeTargetID int64, holderID int64, _ time.Duration, maxUses int) (string, error) {
	if maxUses != 1 {
		return "", errors.New("credential must be single use")
	}
	if g.issueFn != nil {
		return g.issueFn(ctx, scopeTargetID, holderID)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issued = append(g.issued, holderID)
	return "https://t.me/+invite", nil
}

func (g *fakeGateway) snapshot() ([]uint64, []userNotice, []int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]uint64(nil), g.reviewerCards...), append([]userNotice(nil), g.userNotices...), append([]int64(nil), g.issued...)
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []gateway.DecisionEvent
}

func (p *fakePublisher) Publish(_ context.Context, event gateway.DecisionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

const (
	testReviewerID  = int64(7)
	testSubmitterID = int64(42)
	testScopeID     = int64(-1001)
)

func testApprovalsConfig() config.ApprovalsConfig {
	return config.ApprovalsConfig{
		ReviewerIDs:        []int64{testReviewerID, 8},
		StoreTimeout:       time.Second,
		NotifyTimeout:      time.Second,
		CredentialTimeout:  time.Second,
		CredentialTTL:      24 * time.Hour,
		CredentialMaxUses:  1,
		CredentialScopeID:  testScopeID,
		ProofMinTextLength: 5,
		JobBatchSize:       10,
	}
}

type testHarness struct {
	service   *ApprovalService
	repo      *servicePaymentRepo
	events    *serviceEventRepo
	gateway   *fakeGateway
	publisher *fakePublisher
}

func newTestHarness(cfg config.ApprovalsConfig) *testHarness {
	repo := newServicePaymentRepo()
	events := &serviceEventRepo{}
	gw := &fakeGateway{}
	publisher := &fakePublisher{}
	svc := NewApprovalService(repo, events, nil, Gateways{
		Reviewer:    gw,
		Submitter:   gw,
		Credentials: gw,
		Events:      publisher,
	}, cfg)
	return &testHarness{service: svc, repo: repo, events: events, gateway: gw, publisher: publisher}
}

func validSubmitRequest() *types.SubmitPaymentRequest {
	return &types.SubmitPaymentRequest{
		SubmitterID:     testSubmitterID,
		SubmitterHandle: "@alice",
		PlanCode:        "t2",
		ProofText:       "0xabcdef123456",
		Locale:          "ru",
	}
}
