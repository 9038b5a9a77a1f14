package bot

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func message(chatID int64, chatType, text string) tgbotapi.Update {
	m := &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID, Type: chatType},
	}
	if strings.HasPrefix(text, "/") {
		end := strings.IndexByte(text, ' ')
		if end < 0 {
			end = len(text)
		}
		m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}}
	}
	return tgbotapi.Update{Message: m}
}

func TestRoute(t *testing.T) {
	tb := &TelegramBot{handler: newTestHandler(t, 2), chatID: testChat}

	if got := tb.route(tgbotapi.Update{}); got != nil {
		t.Errorf("update without a message: got %T, want nothing", got)
	}
	if got := tb.route(message(7, "private", "/roster")); got != nil {
		t.Errorf("command from another chat answered with %T", got)
	}
	if got := tb.route(message(testChat, "group", "great catch!")); got != nil {
		t.Errorf("group chatter answered with %T", got)
	}

	got := text(t, tb.route(message(testChat, "private", "who plays qb?")))
	if got != chatterHint {
		t.Errorf("private chatter reply %q, want the hint", got)
	}

	got = text(t, tb.route(message(testChat, "group", "/add Ava")))
	if !strings.Contains(got, "Added *Ava*") {
		t.Errorf("command reply %q", got)
	}
}

func TestRoute_AnyChatWhenUnset(t *testing.T) {
	tb := &TelegramBot{handler: newTestHandler(t, 2)}
	msg, ok := tb.route(message(99, "group", "/help")).(tgbotapi.MessageConfig)
	if !ok || !strings.Contains(msg.Text, "/offense") {
		t.Errorf("help not answered without a configured chat: %+v", msg)
	}
}
