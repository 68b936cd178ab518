package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"sanoqchi/impl/core"
	"sanoqchi/lib/sl"
)

func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat.Type != "private" {
		return nil
	}
	chatId := ctx.EffectiveUser.Id

	cctx, cancel := handlerContext()
	defer cancel()
	err := t.core.RegisterBotUser(cctx, chatId)
	if err != nil {
		t.reportError(chatId, "/start", err)
		return nil
	}

	t.plainResponse(chatId,
		"*Invite counter bot*\n\n"+
			"Counts how many people each member adds to a group during a challenge\\.\n\n"+
			"You can:\n"+
			"\\- See your stats here with /my\\_stats\n\n"+
			"Admins can:\n"+
			"\\- Run a challenge in their group\n\n"+
			"See /help for the full guide\\.")
	return nil
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id

	t.plainResponse(chatId,
		"*Invite counter bot: admin guide*\n\n"+
			"The bot counts who added how many people to a group during a challenge\\.\n\n"+
			"*Setup:*\n"+
			"1\\. Add the bot to your group\n"+
			"2\\. Make it an admin\n"+
			"3\\. Grant the delete messages permission\n\n"+
			"*Starting a challenge* \\(in this private chat\\):\n"+
			"`/start_challenge CHAT_ID YYYY-MM-DD YYYY-MM-DD`\n\n"+
			"Example:\n"+
			"`/start_challenge -1001234567890 2025-01-01 2025-01-31`\n\n"+
			"*Getting the chat id:*\n"+
			"Send /chat\\_id in the group; the id is delivered to your private chat\\.\n\n"+
			"*Stats:*\n"+
			"/top10 \\- ten most active participants\n"+
			"/my\\_stats \\- your personal numbers\n\n"+
			"Only people added by hand are counted\\. Joins through invite links are ignored\\.")
	return nil
}

// chatId reports the group's chat id to the requesting admin in private,
// then removes the command message to keep the group clean. The private
// send fails when the admin never opened a chat with the bot; in that case
// the bot answers in the group with a hint and leaves the command message
// in place.
func (t *TgBot) chatId(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chat := ctx.EffectiveChat
	if chat.Type != "group" && chat.Type != "supergroup" {
		return nil
	}

	status, err := t.memberStatus(chat.Id, ctx.EffectiveUser.Id)
	if err != nil {
		t.log.Warn("resolving member status", sl.Err(err))
		return nil
	}
	if status != "administrator" && status != "creator" {
		return nil
	}

	err = t.sendMarkdown(ctx.EffectiveUser.Id, fmt.Sprintf(
		"Group chat id:\n`%d`\n\nGroup title:\n%s",
		chat.Id, Sanitize(chat.Title),
	))
	if err != nil {
		t.log.Debug("private delivery failed", sl.Err(err))
		t.plainResponse(chat.Id,
			"I could not message you privately\\.\n"+
				"Open a private chat with me, press /start, then try again\\.")
		return nil
	}

	err = t.deleteMessage(chat.Id, ctx.EffectiveMessage.MessageId)
	if err != nil {
		// the bot may lack the delete permission; the command still worked
		t.log.Debug("deleting command message", sl.Err(err))
	}
	return nil
}

func (t *TgBot) top10(_ *tgbotapi.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat.Type != "private" {
		return nil
	}
	chatId := ctx.EffectiveUser.Id

	cctx, cancel := handlerContext()
	defer cancel()
	challenge, err := t.core.AnyActiveChallenge(cctx)
	if err != nil {
		t.reportError(chatId, "/top10", err)
		return nil
	}
	if challenge == nil {
		t.plainResponse(chatId,
			"No active challenge right now\\.\n"+
				"When one starts it will be announced in the group\\.")
		return nil
	}

	top, err := t.core.ChatLeaderboard(cctx, challenge.ChatId, t.config.LeaderboardSize)
	if err != nil {
		t.reportError(chatId, "/top10", err)
		return nil
	}
	if len(top) == 0 {
		t.plainResponse(chatId, "No stats yet\\.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("*TOP 10 participants*\n\n")
	for i, row := range top {
		sb.WriteString(fmt.Sprintf("%d\\. %s: %d\n", i+1, Sanitize(row.InviterName), row.Count))
	}
	t.plainResponse(chatId, sb.String())
	return nil
}

func (t *TgBot) myStats(_ *tgbotapi.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat.Type != "private" {
		return nil
	}
	chatId := ctx.EffectiveUser.Id

	cctx, cancel := handlerContext()
	defer cancel()
	announced, err := t.core.HasAnnouncedChallenge(cctx)
	if err != nil {
		t.reportError(chatId, "/my_stats", err)
		return nil
	}
	if !announced {
		t.plainResponse(chatId,
			"No active challenge right now\\.\n\n"+
				"When a new one starts it will be announced in the group\\.")
		return nil
	}

	stats, err := t.core.UserStats(cctx, chatId)
	if err != nil {
		t.reportError(chatId, "/my_stats", err)
		return nil
	}

	t.plainResponse(chatId, fmt.Sprintf(
		"*Your stats*\n\n"+
			"People you added: %d\n"+
			"Total participants: %d\n\n"+
			"The challenge is still running\\.",
		stats.TotalInvited, stats.Participants,
	))
	return nil
}

func (t *TgBot) botStats(_ *tgbotapi.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat.Type != "private" {
		return nil
	}
	chatId := ctx.EffectiveUser.Id
	if !t.isOwner(chatId) {
		return nil
	}

	cctx, cancel := handlerContext()
	defer cancel()
	stats, err := t.core.BotStats(cctx)
	if err != nil {
		t.reportError(chatId, "/bot_stats", err)
		return nil
	}

	t.plainResponse(chatId, fmt.Sprintf(
		"*Bot totals*\n\n"+
			"Users: %d\n"+
			"Groups: %d\n"+
			"Challenges: %d\n"+
			"People added: %d",
		stats.Users, stats.Groups, stats.Challenges, stats.Invites,
	))
	return nil
}

func (t *TgBot) startChallenge(_ *tgbotapi.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat.Type != "private" {
		return nil
	}
	chatId := ctx.EffectiveUser.Id
	if !t.isOwner(chatId) {
		t.plainResponse(chatId, "You are not allowed to use this command\\.")
		return nil
	}

	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) != 4 {
		t.plainResponse(chatId,
			"Format:\n`/start_challenge CHAT_ID YYYY-MM-DD YYYY-MM-DD`")
		return nil
	}

	targetChat, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		t.plainResponse(chatId, "Invalid chat id: `"+Sanitize(args[1])+"`")
		return nil
	}

	cctx, cancel := handlerContext()
	defer cancel()
	challenge, err := t.core.ConfigureChallenge(cctx, targetChat, args[2], args[3])
	if errors.Is(err, core.ErrInvalidRange) {
		t.plainResponse(chatId, "Start date must not be after the end date\\.")
		return nil
	}
	if err != nil {
		t.plainResponse(chatId, "Could not save the challenge: "+Sanitize(err.Error()))
		return nil
	}

	t.plainResponse(chatId, fmt.Sprintf(
		"Challenge saved\\.\n\n"+
			"Window: %s to %s\n"+
			"The group will be notified when it starts\\.",
		Sanitize(challenge.StartDate), Sanitize(challenge.EndDate),
	))
	return nil
}
