package bot

import (
	"log/slog"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"sanoqchi/entity"
	"sanoqchi/lib/sl"
)

// onChatMember feeds membership state changes into the attribution engine.
// All classification lives in the engine; this layer only converts the
// platform update into a MemberEvent.
func (t *TgBot) onChatMember(_ *tgbotapi.Bot, ctx *ext.Context) error {
	update := ctx.ChatMember
	if update == nil {
		return nil
	}

	cctx, cancel := handlerContext()
	defer cancel()

	if update.Chat.Type == "group" || update.Chat.Type == "supergroup" {
		err := t.core.RegisterBotGroup(cctx, update.Chat.Id, update.Chat.Title)
		if err != nil {
			t.log.Debug("registering group", sl.Err(err))
		}
	}

	ev := memberEvent(update)
	err := t.core.TrackMemberEvent(cctx, ev)
	if err != nil {
		// a store failure drops this one event; the stream continues
		t.log.Warn("tracking member event",
			slog.Int64("chat_id", ev.ChatId),
			sl.Err(err),
		)
	}
	return nil
}

func memberEvent(update *tgbotapi.ChatMemberUpdated) entity.MemberEvent {
	old := update.OldChatMember.MergeChatMember()
	current := update.NewChatMember.MergeChatMember()

	ev := entity.MemberEvent{
		ChatId:        update.Chat.Id,
		ChatTitle:     update.Chat.Title,
		OldStatus:     entity.MemberStatus(old.Status),
		NewStatus:     entity.MemberStatus(current.Status),
		ViaInviteLink: update.InviteLink != nil,
		ActorId:       update.From.Id,
		ActorName:     displayName(&update.From),
	}
	return ev
}
