package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/omarshaarawi/flagcoach/internal/service"
)

const chatterHint = "I only answer commands. Send /help to see them."

var commandMenu = []tgbotapi.BotCommand{
	{Command: "roster", Description: "Roster and counters"},
	{Command: "here", Description: "Toggle attendance: /here <name>"},
	{Command: "offense", Description: "Run an offensive series"},
	{Command: "defense", Description: "Run a defensive series"},
	{Command: "undo", Description: "Undo the last series"},
	{Command: "bench", Description: "Preview who sits next"},
	{Command: "captains", Description: "Pick this game's captains"},
	{Command: "newgame", Description: "Archive this game, start the next"},
	{Command: "help", Description: "All commands"},
}

// TelegramBot serves one team chat. When chatID is set, updates from any
// other chat are dropped.
type TelegramBot struct {
	bot     *tgbotapi.BotAPI
	handler *Handler
	chatID  int64
}

func NewTelegramBot(token string, chatID int64, rotationService *service.RotationService) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}

	return &TelegramBot{
		bot:     bot,
		handler: NewHandler(rotationService),
		chatID:  chatID,
	}, nil
}

func (t *TelegramBot) Start(ctx context.Context) error {
	slog.Info("Authorized on account", "username", t.bot.Self.UserName, "team_chat", t.chatID)
	if _, err := t.bot.Request(tgbotapi.NewSetMyCommands(commandMenu...)); err != nil {
		slog.Error("Failed to register command menu", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)
	defer t.bot.StopReceivingUpdates()

	for {
		select {
		case update := <-updates:
			reply := t.route(update)
			if reply == nil {
				continue
			}
			if _, err := t.bot.Send(reply); err != nil {
				slog.Error("Failed to send reply", "chat_id", update.Message.Chat.ID, "error", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// route decides what, if anything, to answer. Commands go to the handler;
// plain chatter gets a hint in a private chat and is ignored in a group.
func (t *TelegramBot) route(update tgbotapi.Update) tgbotapi.Chattable {
	m := update.Message
	if m == nil || m.Chat == nil {
		return nil
	}
	if t.chatID != 0 && m.Chat.ID != t.chatID {
		slog.Warn("Ignoring message from another chat", "chat_id", m.Chat.ID)
		return nil
	}
	if !m.IsCommand() {
		if m.Chat.IsPrivate() {
			return tgbotapi.NewMessage(m.Chat.ID, chatterHint)
		}
		return nil
	}

	slog.Info("Command received", "command", m.Command(), "args", m.CommandArguments())
	return t.handler.HandleCommand(update)
}

// SendMessage posts a Markdown message to the team chat.
func (t *TelegramBot) SendMessage(text string) error {
	if t.chatID == 0 {
		return fmt.Errorf("chat ID not set")
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("sending to team chat: %w", err)
	}
	return nil
}
