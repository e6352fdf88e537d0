package telegram

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/repository"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/service"
	"github.com/vibast-solutions/ms-go-payment-approvals/config"
)

const (
	testReviewChatID = int64(-100500)
	testInviteChatID = int64(-100600)
	testReviewerID   = int64(7)
	testSubmitterID  = int64(42)
)

type fakeBotAPI struct {
	mu sync.Mutex

	sendFn    func(c tgbotapi.Chattable) error
	requestFn func(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)

	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
	updates   chan tgbotapi.Update
	stopped   bool
}

func newFakeBotAPI() *fakeBotAPI {
	return &fakeBotAPI{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	fn := f.sendFn
	f.mu.Unlock()
	if fn != nil {
		if err := fn(c); err != nil {
			return tgbotapi.Message{}, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeBotAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	fn := f.requestFn
	f.requested = append(f.requested, c)
	f.mu.Unlock()
	if fn != nil {
		return fn(c)
	}
	return &tgbotapi.APIResponse{Ok: true, Result: json.RawMessage(`true`)}, nil
}

func (f *fakeBotAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeBotAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeBotAPI) sentSnapshot() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.sent...)
}

func (f *fakeBotAPI) requestedSnapshot() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.requested...)
}

// inviteResponder answers createChatInviteLink and acknowledges everything else.
func inviteResponder(link string) func(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return func(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
		if _, ok := c.(tgbotapi.CreateChatInviteLinkConfig); ok {
			raw, _ := json.Marshal(tgbotapi.ChatInviteLink{InviteLink: link, MemberLimit: 1})
			return &tgbotapi.APIResponse{Ok: true, Result: raw}, nil
		}
		return &tgbotapi.APIResponse{Ok: true, Result: json.RawMessage(`true`)}, nil
	}
}

type sequentialIDs struct {
	mu   sync.Mutex
	next uint64
}

func (g *sequentialIDs) NextID() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.next
}

func openTestStore(t *testing.T) (*repository.PaymentRepository, *repository.PaymentEventRepository) {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "approvals.db") + "?_busy_timeout=5000&_journal_mode=WAL"
	db, err := sql.Open(repository.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := repository.Migrate(context.Background(), db, repository.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repository.NewPaymentRepository(db, repository.SQLite, &sequentialIDs{}),
		repository.NewPaymentEventRepository(db, repository.SQLite)
}

func testApprovalsConfig() config.ApprovalsConfig {
	return config.ApprovalsConfig{
		ReviewerIDs:        []int64{testReviewerID},
		StoreTimeout:       time.Second,
		NotifyTimeout:      time.Second,
		CredentialTimeout:  time.Second,
		CredentialTTL:      time.Hour,
		CredentialMaxUses:  1,
		CredentialScopeID:  testInviteChatID,
		ProofMinTextLength: 5,
		JobBatchSize:       10,
	}
}

type botHarness struct {
	api      *fakeBotAPI
	bot      *Bot
	service  *service.ApprovalService
	payments *repository.PaymentRepository
}

func newBotHarness(t *testing.T) *botHarness {
	t.Helper()

	api := newFakeBotAPI()
	api.requestFn = inviteResponder("https://t.me/+abc")
	payments, events := openTestStore(t)

	gw := NewGateway(api, testReviewChatID, "en", nil)
	svc := service.NewApprovalService(payments, events, nil, service.Gateways{
		Reviewer:    gw,
		Submitter:   gw,
		Credentials: NewInviteIssuer(api),
	}, testApprovalsConfig())

	bot := NewBot(api, svc, nil, BotConfig{PollTimeout: 1, Workers: 2, ProofMinTextLength: 5})
	return &botHarness{api: api, bot: bot, service: svc, payments: payments}
}

var errTelegramDown = errors.New("telegram down")
