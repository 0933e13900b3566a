// Package bot is the Telegram front end: a long-poll loop that parses
// commands and routes free text to the session manager.
package bot

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"wallet-bot/internal/alerting"
)

// Poller fetches inbound updates.
type Poller interface {
	GetUpdates(ctx context.Context, offset int64) ([]Update, error)
}

// Bot drives the inbound event loop.
type Bot struct {
	poller Poller
	sender alerting.Sender
	router *Router
	logger zerolog.Logger
}

// New constructs the bot loop.
func New(poller Poller, sender alerting.Sender, router *Router, logger zerolog.Logger) *Bot {
	return &Bot{
		poller: poller,
		sender: sender,
		router: router,
		logger: logger.With().Str("component", "bot").Logger(),
	}
}

// Run polls until ctx is cancelled. Poll failures back off briefly and
// the loop continues; a single user's handler failure never stops it.
func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := b.poller.GetUpdates(ctx, offset)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			b.logger.Warn().Err(err).Msg("getUpdates failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			go b.handle(ctx, *update.Message)
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Int64("user_id", msg.From.ID).Msg("handler panicked")
		}
	}()

	reply := b.router.Dispatch(ctx, msg.From.ID, msg.Text)
	if reply == "" {
		return
	}
	if err := b.sender.Send(ctx, msg.Chat.ID, reply); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", msg.Chat.ID).Msg("reply delivery failed")
	}
}
