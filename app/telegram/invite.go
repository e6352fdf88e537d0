package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// InviteIssuer creates limited invite links to a private chat. The bot must be
// an administrator of that chat.
type InviteIssuer struct {
	api botAPI
	now func() time.Time
}

func NewInviteIssuer(api botAPI) *InviteIssuer {
	return &InviteIssuer{api: api, now: time.Now}
}

func (i *InviteIssuer) Issue(ctx context.Context, scopeTargetID int64, holderID int64, ttl time.Duration, maxUses int) (string, error) {
	if scopeTargetID == 0 {
		return "", errors.New("invite target chat is not configured")
	}

	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: scopeTargetID},
		Name:        fmt.Sprintf("sub-%d", holderID),
		MemberLimit: maxUses,
	}
	if ttl > 0 {
		cfg.ExpireDate = int(i.now().Add(ttl).Unix())
	}

	resp, err := callWithContext(ctx, func() (*tgbotapi.APIResponse, error) { return i.api.Request(cfg) })
	if err != nil {
		return "", errors.Wrapf(err, "create invite link for user %d", holderID)
	}

	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", errors.Wrap(err, "decode invite link")
	}
	if link.InviteLink == "" {
		return "", errors.New("telegram returned an empty invite link")
	}
	return link.InviteLink, nil
}
