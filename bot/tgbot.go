// Package bot implements the Telegram surface of the invite-challenge
// tracker.
//
// Architecture overview:
//   - tgbot.go    — TgBot struct, lifecycle (Start/Stop), handler wiring
//   - commands.go — /start, /help, /chat_id, /top10, /my_stats, /bot_stats,
//     /start_challenge
//   - tracking.go — chat_member updates → entity.MemberEvent → core engine
//   - announce.go — challenge start/end announcements (scheduler.Announcer)
//   - helpers.go  — Sanitize, plainResponse, owner check
//
// Data flow for invite attribution:
//
//	chat_member update → memberEvent() → core.TrackMemberEvent →
//	  classification → atomic ledger upsert
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"

	"sanoqchi/impl/core"
	"sanoqchi/lib/sl"
)

// BotConfig holds Telegram-specific configuration loaded from the YAML
// config file.
type BotConfig struct {
	OwnerId         int64
	LeaderboardSize int64
}

// TgBot is the central Telegram bot instance. It feeds membership updates
// into the engine and answers the command set in private chats.
type TgBot struct {
	log     *slog.Logger
	api     *tgbotapi.Bot
	core    *core.Core
	updater *ext.Updater
	config  BotConfig

	// api call seams, bound to the bot instance in NewTgBot
	send          func(chatId int64, text string, opts *tgbotapi.SendMessageOpts) (*tgbotapi.Message, error)
	deleteMessage func(chatId int64, messageId int64) error
	memberStatus  func(chatId int64, userId int64) (string, error)
}

func NewTgBot(apiKey string, engine *core.Core, log *slog.Logger, cfg BotConfig) (*TgBot, error) {
	if cfg.LeaderboardSize == 0 {
		cfg.LeaderboardSize = 10
	}

	tgBot := &TgBot{
		log:    log.With(sl.Module("tgbot")),
		core:   engine,
		config: cfg,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api
	tgBot.send = api.SendMessage
	tgBot.deleteMessage = func(chatId int64, messageId int64) error {
		_, err := api.DeleteMessage(chatId, messageId, nil)
		return err
	}
	tgBot.memberStatus = func(chatId int64, userId int64) (string, error) {
		member, err := api.GetChatMember(chatId, userId, nil)
		if err != nil {
			return "", err
		}
		return member.MergeChatMember().Status, nil
	}

	return tgBot, nil
}

func (t *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))
	dispatcher.AddHandler(handlers.NewCommand("chat_id", t.chatId))
	dispatcher.AddHandler(handlers.NewCommand("top10", t.top10))
	dispatcher.AddHandler(handlers.NewCommand("my_stats", t.myStats))
	dispatcher.AddHandler(handlers.NewCommand("bot_stats", t.botStats))
	dispatcher.AddHandler(handlers.NewCommand("start_challenge", t.startChallenge))

	dispatcher.AddHandler(handlers.NewChatMember(func(u *tgbotapi.ChatMemberUpdated) bool {
		return u != nil
	}, t.onChatMember))

	// chat_member updates are only delivered when explicitly requested.
	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout:        9,
			AllowedUpdates: []string{"message", "chat_member", "my_chat_member"},
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}

// handlerContext bounds the store work done inside one update.
func handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
