package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/entity"
)

var ErrChannelDisabled = errors.New("delivery channel is disabled")

// Disabled stands in for the chat channel when no bot token is configured.
// Every delivery fails with ErrChannelDisabled so records stay undelivered and
// the redelivery job picks them up once a channel exists.
type Disabled struct {
	Logger logrus.FieldLogger
}

func (d Disabled) NotifyReviewer(_ context.Context, payment *entity.Payment, _ []Action) error {
	d.log().WithField("payment_id", payment.ID).Debug("Reviewer channel disabled")
	return ErrChannelDisabled
}

func (d Disabled) NotifyUser(_ context.Context, userID int64, outcome string, _ string, _ string) error {
	d.log().WithField("user_id", userID).WithField("outcome", outcome).Debug("User channel disabled")
	return ErrChannelDisabled
}

func (d Disabled) Issue(context.Context, int64, int64, time.Duration, int) (string, error) {
	return "", ErrChannelDisabled
}

func (d Disabled) log() logrus.FieldLogger {
	if d.Logger != nil {
		return d.Logger
	}
	return logrus.StandardLogger()
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, DecisionEvent) error {
	return nil
}
