package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"stagechat/internal/pkg/logx"
)

// Dispatcher fans one notification out to every subscribed identity except
// the sender and those currently connected (live fan-out already reaches
// them). It does not check room membership: an offline subscriber is
// notified about every room.
type Dispatcher struct {
	subs   SubscriptionStore
	sender Sender
	logger zerolog.Logger
}

// NewDispatcher constructs a Dispatcher over the given store and sender.
func NewDispatcher(subs SubscriptionStore, sender Sender) *Dispatcher {
	return &Dispatcher{
		subs:   subs,
		sender: sender,
		logger: logx.With("push-dispatcher"),
	}
}

// Notify delivers {title: sender nickname, body, deep link to roomID} to
// each recipient independently. A failed delivery is logged and never
// affects the other recipients or the originating send; addresses the push
// service reports gone are pruned.
func (d *Dispatcher) Notify(ctx context.Context, senderNickname string, roomID int64, body string, connected map[string]struct{}) {
	table, err := d.subs.All(ctx)
	if err != nil {
		d.logger.Error().Err(err).Msg("subscription table read failed, skipping push fan-out")
		return
	}

	payload, err := json.Marshal(Notification{
		Title: senderNickname,
		Body:  body,
		URL:   fmt.Sprintf("/?room=%d", roomID),
	})
	if err != nil {
		d.logger.Error().Err(err).Msg("notification payload marshal failed")
		return
	}

	for nickname, sub := range table {
		if nickname == senderNickname {
			continue
		}
		if _, online := connected[nickname]; online {
			continue
		}

		if err := d.sender.Send(ctx, sub, payload); err != nil {
			var gone *ErrSubscriptionGone
			if errors.As(err, &gone) {
				d.logger.Info().
					Str("recipient", nickname).
					Int("status", gone.StatusCode).
					Msg("pruning expired push subscription")

				if rmErr := d.subs.Remove(ctx, nickname); rmErr != nil {
					d.logger.Error().Err(rmErr).Str("recipient", nickname).Msg("subscription prune failed")
				}
				continue
			}

			d.logger.Warn().
				Err(err).
				Str("recipient", nickname).
				Int64("room_id", roomID).
				Msg("push delivery failed")
		}
	}
}
