package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"PulseWatch/internal/domain/models"
)

var ErrNoChat = errors.New("no telegram chat for user")

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// Telegram sends notifications as chat messages. Users without a mapped chat
// fall back to the default chat when one is configured.
type Telegram struct {
	sender      messageSender
	defaultChat int64
	userChats   map[string]int64
}

func NewTelegram(token string, defaultChat int64, userChats map[string]int64) (*Telegram, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newTelegram(b, defaultChat, userChats), nil
}

func newTelegram(sender messageSender, defaultChat int64, userChats map[string]int64) *Telegram {
	if userChats == nil {
		userChats = map[string]int64{}
	}
	return &Telegram{sender: sender, defaultChat: defaultChat, userChats: userChats}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Dispatch(ctx context.Context, n models.Notification) error {
	chat, ok := t.userChats[n.UserID]
	if !ok {
		chat = t.defaultChat
	}
	if chat == 0 {
		return fmt.Errorf("%w %s", ErrNoChat, n.UserID)
	}

	_, err := t.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chat,
		Text:   n.Title + "\n" + n.Body,
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
