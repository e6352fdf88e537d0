package telegram

import (
	"context"
	"errors"
	"html"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/factory"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/gateway"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/i18n"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/plan"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/preference"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/service"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/types"
)

const defaultWorkers = 8

type responses []tgbotapi.Chattable

type BotConfig struct {
	PollTimeout        int
	Workers            int
	ProofMinTextLength int
}

// Bot is the chat front end: submitters pick a plan and send proof, reviewers
// press the decision buttons on review cards.
type Bot struct {
	api       botAPI
	approvals *service.ApprovalService
	catalog   *plan.Catalog
	prefs     preference.Store
	cfg       BotConfig
	logger    logrus.FieldLogger

	mu sync.Mutex
	// awaiting maps a user to the plan whose proof they are about to send.
	awaiting map[int64]string
}

func NewBot(api botAPI, approvals *service.ApprovalService, prefs preference.Store, cfg BotConfig) *Bot {
	if prefs == nil {
		prefs = preference.NewMemoryStore()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Bot{
		api:       api,
		approvals: approvals,
		catalog:   approvals.Catalog(),
		prefs:     prefs,
		cfg:       cfg,
		logger:    factory.NewModuleLogger("telegram-bot"),
		awaiting:  map[int64]string{},
	}
}

// Run long-polls for updates until ctx is cancelled. Updates are handled
// concurrently by a bounded set of workers.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout
	updates := b.api.GetUpdatesChan(u)

	sem := make(chan struct{}, b.cfg.Workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(update tgbotapi.Update) {
				defer wg.Done()
				defer func() { <-sem }()
				b.HandleUpdate(ctx, update)
			}(update)
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	logger := b.logger.WithField("request_id", uuid.NewString()).WithField("update_id", update.UpdateID)
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("Update handler panicked")
		}
	}()

	var (
		res responses
		err error
	)
	switch {
	case update.CallbackQuery != nil:
		res, err = b.handleQuery(ctx, logger, update.CallbackQuery)
	case update.Message != nil:
		res, err = b.handleMessage(ctx, logger, update.Message)
	default:
		return
	}
	if err != nil {
		logger.WithError(err).Warn("Update handling failed")
	}

	for _, r := range res {
		if _, err := b.api.Request(r); err != nil {
			logger.WithError(err).Warn("Failed to send response")
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, logger logrus.FieldLogger, msg *tgbotapi.Message) (responses, error) {
	if msg.From == nil || msg.Chat == nil {
		return nil, nil
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID
	locale := b.prefs.Get(ctx, userID)

	if msg.IsCommand() {
		b.clearAwaiting(userID)
		switch msg.Command() {
		case "start", "lang":
			return responses{languagePicker(chatID, locale)}, nil
		case "menu":
			return responses{menuMessage(chatID, locale)}, nil
		case "help":
			return responses{tgbotapi.NewMessage(chatID, i18n.Tr(locale, "help.text"))}, nil
		case "ping":
			return responses{tgbotapi.NewMessage(chatID, i18n.Tr(locale, "pong"))}, nil
		default:
			return responses{menuMessage(chatID, locale)}, nil
		}
	}

	// Menu buttons take precedence over a pending proof and cancel it.
	text := strings.TrimSpace(msg.Text)
	switch {
	case matchesAny(text, i18n.All("menu.btn.tariffs")):
		b.clearAwaiting(userID)
		return responses{b.planList(chatID, locale)}, nil
	case matchesAny(text, i18n.All("menu.btn.lang")):
		b.clearAwaiting(userID)
		return responses{languagePicker(chatID, locale)}, nil
	case matchesAny(text, i18n.All("menu.btn.help")):
		b.clearAwaiting(userID)
		return responses{tgbotapi.NewMessage(chatID, i18n.Tr(locale, "help.text"))}, nil
	}

	if planCode, ok := b.awaitingPlan(userID); ok {
		return b.handleProof(ctx, logger, msg, planCode, locale)
	}
	return responses{menuMessage(chatID, locale)}, nil
}

func (b *Bot) handleProof(ctx context.Context, logger logrus.FieldLogger, msg *tgbotapi.Message, planCode, locale string) (responses, error) {
	chatID := msg.Chat.ID
	req := &types.SubmitPaymentRequest{
		SubmitterID:     msg.From.ID,
		SubmitterHandle: msg.From.UserName,
		PlanCode:        planCode,
		Locale:          locale,
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		text = strings.TrimSpace(msg.Caption)
	}
	if utf8.RuneCountInString(text) >= b.cfg.ProofMinTextLength {
		req.ProofText = text
	}
	if len(msg.Photo) > 0 {
		req.ProofPhotoRef = msg.Photo[len(msg.Photo)-1].FileID
	}
	if msg.Document != nil {
		req.ProofDocumentRef = msg.Document.FileID
	}

	if req.ProofText == "" && req.ProofPhotoRef == "" && req.ProofDocumentRef == "" {
		return responses{tgbotapi.NewMessage(chatID, i18n.Tr(locale, "proof.empty"))}, nil
	}

	result, err := b.approvals.SubmitProof(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownPlan):
			b.clearAwaiting(msg.From.ID)
			logger.WithError(err).WithField("plan", planCode).Warn("Proof submitted for a withdrawn plan")
			return responses{tgbotapi.NewMessage(chatID, i18n.Tr(locale, "proof.plan_gone"))}, nil
		case errors.Is(err, service.ErrInvalidRequest):
			return responses{tgbotapi.NewMessage(chatID, i18n.Tr(locale, "proof.empty"))}, nil
		default:
			return responses{tgbotapi.NewMessage(chatID, i18n.Tr(locale, "proof.retry"))}, pkgerrors.Wrap(err, "submit proof")
		}
	}

	b.clearAwaiting(msg.From.ID)
	for _, w := range result.Warnings {
		logger.WithError(w.Err).WithField("payment_id", result.Payment.ID).WithField("target", w.Target).Warn("Delivery failed")
	}
	logger.WithField("payment_id", result.Payment.ID).Info("Payment proof submitted")

	return responses{tgbotapi.NewMessage(chatID, i18n.Tr(locale, "proof.received"))}, nil
}

func (b *Bot) handleQuery(ctx context.Context, logger logrus.FieldLogger, query *tgbotapi.CallbackQuery) (responses, error) {
	if query.From == nil {
		return nil, pkgerrors.New("callback query received without sender")
	}
	userID := query.From.ID
	locale := b.prefs.Get(ctx, userID)
	data := query.Data

	if action, paymentID, ok := parseDecisionData(data); ok {
		return b.handleDecision(ctx, logger, query, action, paymentID, locale)
	}

	if query.Message == nil {
		return responses{tgbotapi.NewCallback(query.ID, "")}, pkgerrors.New("callback query received without message")
	}
	chatID := query.Message.Chat.ID

	switch {
	case strings.HasPrefix(data, prefixLang):
		locale = preference.Normalize(strings.TrimPrefix(data, prefixLang))
		if err := b.prefs.Set(ctx, userID, locale); err != nil {
			logger.WithError(err).Warn("Failed to store language")
		}
		return responses{
			tgbotapi.NewCallback(query.ID, i18n.Tr(locale, "lang.saved")),
			menuMessage(chatID, locale),
		}, nil

	case strings.HasPrefix(data, prefixPlan):
		p, err := b.catalog.Get(strings.TrimPrefix(data, prefixPlan))
		if err != nil {
			return responses{tgbotapi.NewCallback(query.ID, i18n.Tr(locale, "cb.not_found"))}, pkgerrors.Wrapf(err, "unknown plan in %q", data)
		}
		return responses{
			tgbotapi.NewCallback(query.ID, ""),
			b.paymentInstructions(chatID, locale, p),
		}, nil

	case strings.HasPrefix(data, prefixProof):
		p, err := b.catalog.Get(strings.TrimPrefix(data, prefixProof))
		if err != nil {
			return responses{tgbotapi.NewCallback(query.ID, i18n.Tr(locale, "cb.not_found"))}, pkgerrors.Wrapf(err, "unknown plan in %q", data)
		}
		b.setAwaiting(userID, p.Code)
		return responses{
			tgbotapi.NewCallback(query.ID, ""),
			tgbotapi.NewMessage(chatID, i18n.Tr(locale, "proof.prompt")),
		}, nil
	}

	return responses{tgbotapi.NewCallback(query.ID, "")}, pkgerrors.Errorf("unknown callback data: %s", data)
}

func (b *Bot) handleDecision(ctx context.Context, logger logrus.FieldLogger, query *tgbotapi.CallbackQuery, action gateway.Action, paymentID uint64, locale string) (responses, error) {
	logger = logger.WithField("payment_id", paymentID).WithField("reviewer_id", query.From.ID)

	result, err := b.approvals.Decide(ctx, paymentID, query.From.ID, action)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			return responses{tgbotapi.NewCallback(query.ID, i18n.Tr(locale, "cb.forbidden"))}, nil
		case errors.Is(err, service.ErrUnknownPayment):
			return responses{tgbotapi.NewCallback(query.ID, i18n.Tr(locale, "cb.not_found"))}, nil
		default:
			return responses{tgbotapi.NewCallback(query.ID, i18n.Tr(locale, "cb.failed"))}, pkgerrors.Wrap(err, "decide payment")
		}
	}

	answer := i18n.Tr(locale, "cb.ok")
	if result.Outcome == service.OutcomeAlreadyDecided {
		answer = i18n.Tr(locale, "cb.already")
	}
	for _, w := range result.Warnings {
		logger.WithError(w.Err).WithField("target", w.Target).Warn("Delivery failed")
	}
	logger.WithField("outcome", result.Outcome).Info("Payment decision handled")

	callback := tgbotapi.NewCallback(query.ID, answer)
	if len(result.Warnings) > 0 {
		callback = tgbotapi.NewCallbackWithAlert(query.ID, i18n.Tr(locale, "cb.warning"))
	}
	res := responses{callback}
	if query.Message != nil {
		chatID := query.Message.Chat.ID
		res = append(res, tgbotapi.NewEditMessageReplyMarkup(
			chatID,
			query.Message.MessageID,
			tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
		))
		for _, w := range result.Warnings {
			res = append(res, tgbotapi.NewMessage(chatID, warningText(locale, paymentID, w)))
		}
	}
	return res, nil
}

// warningText tells the reviewer which follow-up of a recorded decision did not go through.
func warningText(locale string, paymentID uint64, w service.DeliveryWarning) string {
	id := strconv.FormatUint(paymentID, 10)
	reason := "unknown error"
	if w.Err != nil {
		reason = w.Err.Error()
	}
	switch w.Target {
	case service.TargetCredential:
		return i18n.Tr(locale, "admin.warn_credential", "id", id, "error", reason)
	case service.TargetSubmitter:
		return i18n.Tr(locale, "admin.warn_submitter", "id", id, "error", reason)
	default:
		return i18n.Tr(locale, "admin.warn_delivery", "id", id, "target", w.Target, "error", reason)
	}
}

func (b *Bot) planList(chatID int64, locale string) tgbotapi.Chattable {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0)
	for _, p := range b.catalog.All() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(planLine(locale, p), prefixPlan+p.Code),
		))
	}
	msg := tgbotapi.NewMessage(chatID, i18n.Tr(locale, "tariffs.title"))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	return msg
}

func (b *Bot) paymentInstructions(chatID int64, locale string, p plan.Plan) tgbotapi.Chattable {
	lines := []string{
		i18n.Tr(locale, "plan.chosen", "plan", html.EscapeString(planLine(locale, p))),
		"",
		i18n.Tr(locale, "pay.instructions"),
	}
	for _, w := range b.catalog.Wallets() {
		lines = append(lines, i18n.Tr(locale, "pay.wallet_line", "label", html.EscapeString(w.Label), "address", html.EscapeString(w.Address)))
	}

	msg := tgbotapi.NewMessage(chatID, strings.Join(lines, "\n"))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(i18n.Tr(locale, "pay.send_proof_button"), prefixProof+p.Code),
	))
	return msg
}

func (b *Bot) awaitingPlan(userID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	code, ok := b.awaiting[userID]
	return code, ok
}

func (b *Bot) setAwaiting(userID int64, planCode string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.awaiting[userID] = planCode
}

func (b *Bot) clearAwaiting(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.awaiting, userID)
}

func languagePicker(chatID int64, locale string) tgbotapi.Chattable {
	msg := tgbotapi.NewMessage(chatID, i18n.Tr(locale, "start.choose_language"))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("English", prefixLang+"en"),
		tgbotapi.NewInlineKeyboardButtonData("Русский", prefixLang+"ru"),
	))
	return msg
}

func menuMessage(chatID int64, locale string) tgbotapi.Chattable {
	msg := tgbotapi.NewMessage(chatID, i18n.Tr(locale, "menu.title"))
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(i18n.Tr(locale, "menu.btn.tariffs"))),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(i18n.Tr(locale, "menu.btn.lang")),
			tgbotapi.NewKeyboardButton(i18n.Tr(locale, "menu.btn.help")),
		),
	)
	return msg
}

func matchesAny(text string, candidates []string) bool {
	for _, c := range candidates {
		if text == c {
			return true
		}
	}
	return false
}
