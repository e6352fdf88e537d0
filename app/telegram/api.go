package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/gateway"
)

// botAPI is the subset of *tgbotapi.BotAPI the package relies on.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

func NewBotAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return api, nil
}

const (
	prefixLang  = "lang:"
	prefixPlan  = "plan:"
	prefixProof = "proof:"
	prefixPaid  = "paid:"
	prefixRej   = "rej:"
)

func decisionData(action gateway.Action, paymentID uint64) string {
	switch action {
	case gateway.ActionApprove:
		return prefixPaid + strconv.FormatUint(paymentID, 10)
	case gateway.ActionReject:
		return prefixRej + strconv.FormatUint(paymentID, 10)
	default:
		return ""
	}
}

func parseDecisionData(data string) (gateway.Action, uint64, bool) {
	var action gateway.Action
	var raw string
	switch {
	case strings.HasPrefix(data, prefixPaid):
		action, raw = gateway.ActionApprove, strings.TrimPrefix(data, prefixPaid)
	case strings.HasPrefix(data, prefixRej):
		action, raw = gateway.ActionReject, strings.TrimPrefix(data, prefixRej)
	default:
		return "", 0, false
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return "", 0, false
	}
	return action, id, true
}

// callWithContext runs a blocking API call and gives up when ctx ends. The
// HTTP request itself cannot be aborted and finishes in the background.
func callWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	done := make(chan result, 1)
	go func() {
		value, err := fn()
		done <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("telegram call abandoned: %w", ctx.Err())
	case r := <-done:
		return r.value, r.err
	}
}
