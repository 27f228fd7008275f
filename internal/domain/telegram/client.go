package telegram

import "gopkg.in/telebot.v3"

// Client sends text messages to a Telegram chat. The coach relay depends on
// this interface rather than on the bot library directly.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
