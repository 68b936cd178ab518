package bot

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

type sentMessage struct {
	chatId int64
	text   string
}

// apiRecorder captures outgoing api calls through the bot's call seams.
type apiRecorder struct {
	sent      []sentMessage
	deleted   []int64
	failChats map[int64]bool
	status    string
}

func newCommandBot(rec *apiRecorder) *TgBot {
	t := &TgBot{
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		config: BotConfig{LeaderboardSize: 10},
	}
	t.send = func(chatId int64, text string, _ *tgbotapi.SendMessageOpts) (*tgbotapi.Message, error) {
		if rec.failChats[chatId] {
			return nil, errors.New("Forbidden: bot can't initiate conversation with a user")
		}
		rec.sent = append(rec.sent, sentMessage{chatId: chatId, text: text})
		return &tgbotapi.Message{}, nil
	}
	t.deleteMessage = func(_ int64, messageId int64) error {
		rec.deleted = append(rec.deleted, messageId)
		return nil
	}
	t.memberStatus = func(int64, int64) (string, error) {
		return rec.status, nil
	}
	return t
}

func groupCommandContext(userId int64) *ext.Context {
	return &ext.Context{
		EffectiveChat:    &tgbotapi.Chat{Id: -100500, Title: "Test Group", Type: "supergroup"},
		EffectiveUser:    &tgbotapi.User{Id: userId, FirstName: "Ada"},
		EffectiveMessage: &tgbotapi.Message{MessageId: 42, Chat: tgbotapi.Chat{Id: -100500}},
	}
}

func TestChatId_DeliversPrivatelyAndCleansUp(t *testing.T) {
	rec := &apiRecorder{status: "administrator"}
	bot := newCommandBot(rec)

	if err := bot.chatId(nil, groupCommandContext(7)); err != nil {
		t.Fatalf("chatId: %v", err)
	}

	if len(rec.sent) != 1 || rec.sent[0].chatId != 7 {
		t.Fatalf("sent = %+v, want one private message to user 7", rec.sent)
	}
	if !strings.Contains(rec.sent[0].text, "-100500") {
		t.Fatalf("private message %q must carry the chat id", rec.sent[0].text)
	}
	if len(rec.deleted) != 1 || rec.deleted[0] != 42 {
		t.Fatalf("deleted = %v, want the command message removed", rec.deleted)
	}
}

func TestChatId_PrivateChatClosed(t *testing.T) {
	// the admin never pressed /start in a private chat, so the direct
	// message bounces: the bot must answer in the group with a hint and
	// must not delete the command message.
	rec := &apiRecorder{status: "creator", failChats: map[int64]bool{7: true}}
	bot := newCommandBot(rec)

	if err := bot.chatId(nil, groupCommandContext(7)); err != nil {
		t.Fatalf("chatId: %v", err)
	}

	if len(rec.sent) != 1 || rec.sent[0].chatId != -100500 {
		t.Fatalf("sent = %+v, want one hint in the group", rec.sent)
	}
	if !strings.Contains(rec.sent[0].text, "/start") {
		t.Fatalf("group hint %q must point at /start", rec.sent[0].text)
	}
	if len(rec.deleted) != 0 {
		t.Fatalf("deleted = %v, command message must stay when delivery failed", rec.deleted)
	}
}

func TestChatId_NonAdminIgnored(t *testing.T) {
	rec := &apiRecorder{status: "member"}
	bot := newCommandBot(rec)

	if err := bot.chatId(nil, groupCommandContext(7)); err != nil {
		t.Fatalf("chatId: %v", err)
	}

	if len(rec.sent) != 0 || len(rec.deleted) != 0 {
		t.Fatalf("sent = %+v deleted = %v, want no activity for a regular member", rec.sent, rec.deleted)
	}
}
