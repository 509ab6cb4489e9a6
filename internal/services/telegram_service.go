package services

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botAPI is the part of *tgbotapi.BotAPI the service uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramService struct {
	bot botAPI
}

// NewTelegramService connects the bot. An empty token yields a service that skips every send.
func NewTelegramService(botToken string) (*TelegramService, error) {
	if botToken == "" {
		return &TelegramService{}, nil
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	log.Printf("[tg][init] authorized as @%s", bot.Self.UserName)
	return &TelegramService{bot: bot}, nil
}

// Enabled reports whether messages are actually delivered.
func (t *TelegramService) Enabled() bool {
	return t != nil && t.bot != nil
}

// SendMessage sends an HTML-formatted message to chatID.
func (t *TelegramService) SendMessage(chatID int64, text string) error {
	if !t.Enabled() || chatID == 0 {
		log.Printf("[tg][skip] bot disabled or chatID empty (enabled? %v chatID=%d)", t.Enabled(), chatID)
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("[tg][send][err] chatID=%d: %v", chatID, err)
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	log.Printf("[tg][send] chatID=%d", chatID)
	return nil
}
