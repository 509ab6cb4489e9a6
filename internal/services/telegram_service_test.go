package services

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, msg)
	}
	return tgbotapi.Message{}, b.err
}

func TestTelegramService_SendMessage(t *testing.T) {
	bot := &fakeBot{}
	svc := &TelegramService{bot: bot}

	require.NoError(t, svc.SendMessage(-1001, "<b>Summit</b>"))
	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(-1001), bot.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, bot.sent[0].ParseMode)
	assert.Equal(t, "<b>Summit</b>", bot.sent[0].Text)
}

func TestTelegramService_SkipsWhenDisabled(t *testing.T) {
	svc, err := NewTelegramService("")
	require.NoError(t, err)
	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.SendMessage(42, "hi"))

	var nilSvc *TelegramService
	assert.NoError(t, nilSvc.SendMessage(42, "hi"))

	bot := &fakeBot{}
	enabled := &TelegramService{bot: bot}
	assert.NoError(t, enabled.SendMessage(0, "hi"))
	assert.Empty(t, bot.sent)
}

func TestTelegramService_WrapsSendError(t *testing.T) {
	apiErr := errors.New("Forbidden: bot was blocked by the user")
	svc := &TelegramService{bot: &fakeBot{err: apiErr}}
	assert.ErrorIs(t, svc.SendMessage(5, "hi"), apiErr)
}
