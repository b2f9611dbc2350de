package services

import (
	tele "gopkg.in/telebot.v3"
)

// TelegramSender delivers a text message to a chat.
type TelegramSender interface {
	SendMsg(chatID int64, text string) error
}

type Bot struct {
	bot *tele.Bot
}

// NewBot builds an offline bot: it only sends, it never polls for updates.
// An empty apiURL means the public Bot API.
func NewBot(token, apiURL string) (*Bot, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:   token,
		URL:     apiURL,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}

	return &Bot{b}, nil
}

func (bot *Bot) SendMsg(chatID int64, text string) error {
	_, err := bot.bot.Send(tele.ChatID(chatID), text, &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	})
	return err
}
