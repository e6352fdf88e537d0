package telegram

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/entity"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/factory"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/gateway"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/i18n"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/plan"
)

// Bot API length limits for media captions and message text.
const (
	captionLimit = 1024
	messageLimit = 4096
)

// Gateway delivers review cards to the reviewer chat and outcomes to
// submitters over the Bot API.
type Gateway struct {
	api            botAPI
	reviewChatID   int64
	reviewerLocale string
	catalog        *plan.Catalog
	logger         logrus.FieldLogger
}

func NewGateway(api botAPI, reviewChatID int64, reviewerLocale string, catalog *plan.Catalog) *Gateway {
	if catalog == nil {
		catalog = plan.DefaultCatalog()
	}
	return &Gateway{
		api:            api,
		reviewChatID:   reviewChatID,
		reviewerLocale: reviewerLocale,
		catalog:        catalog,
		logger:         factory.NewModuleLogger("telegram-gateway"),
	}
}

func (g *Gateway) NotifyReviewer(ctx context.Context, payment *entity.Payment, actions []gateway.Action) error {
	limit := messageLimit
	if payment.Proof.PhotoRef != nil || payment.Proof.DocumentRef != nil {
		limit = captionLimit
	}
	text := g.reviewCardText(payment, limit)
	keyboard := reviewKeyboard(g.reviewerLocale, payment.ID, actions)

	var card tgbotapi.Chattable
	switch {
	case payment.Proof.PhotoRef != nil:
		photo := tgbotapi.NewPhoto(g.reviewChatID, tgbotapi.FileID(*payment.Proof.PhotoRef))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = keyboard
		card = photo
	case payment.Proof.DocumentRef != nil:
		doc := tgbotapi.NewDocument(g.reviewChatID, tgbotapi.FileID(*payment.Proof.DocumentRef))
		doc.Caption = text
		doc.ParseMode = tgbotapi.ModeHTML
		doc.ReplyMarkup = keyboard
		card = doc
	default:
		msg := tgbotapi.NewMessage(g.reviewChatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = keyboard
		card = msg
	}

	if _, err := callWithContext(ctx, func() (tgbotapi.Message, error) { return g.api.Send(card) }); err != nil {
		return errors.Wrapf(err, "send review card for payment %d", payment.ID)
	}
	g.logger.WithField("payment_id", payment.ID).Debug("Review card sent")
	return nil
}

func (g *Gateway) NotifyUser(ctx context.Context, userID int64, outcome string, locale string, credential string) error {
	var text string
	switch outcome {
	case entity.StatusConfirmed:
		inviteText := i18n.Tr(locale, "user.invite_pending")
		if credential != "" {
			inviteText = i18n.Tr(locale, "user.invite_text", "link", credential)
		}
		text = i18n.Tr(locale, "user.paid_confirmed", "invite_text", inviteText)
	case entity.StatusRejected:
		text = i18n.Tr(locale, "user.rejected")
	default:
		return errors.Errorf("no notice for outcome %q", outcome)
	}

	msg := tgbotapi.NewMessage(userID, text)
	if _, err := callWithContext(ctx, func() (tgbotapi.Message, error) { return g.api.Send(msg) }); err != nil {
		return errors.Wrapf(err, "send %s notice to user %d", outcome, userID)
	}
	return nil
}

// reviewCardText renders the card and shortens the proof text until the card fits in limit runes.
func (g *Gateway) reviewCardText(payment *entity.Payment, limit int) string {
	uname := "id:" + strconv.FormatInt(payment.SubmitterID, 10)
	if payment.SubmitterHandle != nil {
		uname = "@" + html.EscapeString(*payment.SubmitterHandle)
	}

	tline := payment.PlanCode
	if p, err := g.catalog.Get(payment.PlanCode); err == nil {
		tline = planLine(g.reviewerLocale, p)
	}

	render := func(hash string, truncated bool) string {
		hashLine := ""
		if hash != "" || truncated {
			escaped := html.EscapeString(hash)
			if truncated {
				escaped += "…"
			}
			hashLine = i18n.Tr(g.reviewerLocale, "admin.hash_line", "hash", escaped)
		}
		return i18n.Tr(g.reviewerLocale, "admin.new_payment",
			"uname", uname,
			"tline", html.EscapeString(tline),
			"hash_line", hashLine,
		)
	}

	if payment.Proof.Text == nil {
		return render("", false)
	}
	proof := []rune(*payment.Proof.Text)
	text := render(string(proof), false)
	for overflow := utf8.RuneCountInString(text) - limit; overflow > 0 && len(proof) > 0; overflow = utf8.RuneCountInString(text) - limit {
		proof = proof[:max(len(proof)-overflow-1, 0)]
		text = render(string(proof), true)
	}
	return text
}

func reviewKeyboard(locale string, paymentID uint64, actions []gateway.Action) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(actions))
	for _, action := range actions {
		label := i18n.Tr(locale, "admin.paid_btn")
		if action == gateway.ActionReject {
			label = i18n.Tr(locale, "admin.rej_btn")
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, decisionData(action, paymentID)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func planLine(locale string, p plan.Plan) string {
	return i18n.Tr(locale, "plan.line",
		"title", p.Title(locale),
		"price", strconv.FormatInt(p.Price, 10),
		"currency", p.Currency,
		"days", fmt.Sprint(p.Days),
	)
}
