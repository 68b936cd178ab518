package bot

import (
	"strings"
	"testing"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"sanoqchi/entity"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a-b.c!", "a\\-b\\.c\\!"},
		{"2025-01-01", "2025\\-01\\-01"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := Sanitize(tc.in); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		user *tgbotapi.User
		want string
	}{
		{&tgbotapi.User{FirstName: "Ada"}, "Ada"},
		{&tgbotapi.User{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{nil, ""},
	}
	for _, tc := range tests {
		if got := displayName(tc.user); got != tc.want {
			t.Errorf("displayName = %q, want %q", got, tc.want)
		}
	}
}

func TestFormatResults(t *testing.T) {
	empty := formatResults(nil)
	if !strings.Contains(empty, "Nobody participated") {
		t.Fatalf("empty result text = %q", empty)
	}

	text := formatResults([]entity.LeaderboardRow{
		{InviterName: "A", Count: 5},
		{InviterName: "B", Count: 4},
		{InviterName: "C", Count: 3},
		{InviterName: "D", Count: 2},
	})
	for _, medal := range []string{"🥇 A: 5", "🥈 B: 4", "🥉 C: 3"} {
		if !strings.Contains(text, medal) {
			t.Errorf("results missing %q in %q", medal, text)
		}
	}
	if !strings.Contains(text, "4\\. D: 2") {
		t.Errorf("fourth place should use an ordinal, got %q", text)
	}
}

func TestMemberEvent(t *testing.T) {
	update := &tgbotapi.ChatMemberUpdated{
		Chat: tgbotapi.Chat{Id: -100123, Title: "Test Group", Type: "supergroup"},
		From: tgbotapi.User{Id: 7, FirstName: "Ada", LastName: "Lovelace"},
		OldChatMember: tgbotapi.ChatMemberLeft{
			User: tgbotapi.User{Id: 55, FirstName: "New"},
		},
		NewChatMember: tgbotapi.ChatMemberMember{
			User: tgbotapi.User{Id: 55, FirstName: "New"},
		},
	}

	ev := memberEvent(update)
	if ev.ChatId != -100123 || ev.OldStatus != entity.StatusLeft || ev.NewStatus != entity.StatusMember {
		t.Fatalf("event = %+v", ev)
	}
	if ev.ViaInviteLink {
		t.Fatal("no invite link on the update")
	}
	if ev.ActorId != 7 || ev.ActorName != "Ada Lovelace" {
		t.Fatalf("actor = (%d, %q), want (7, Ada Lovelace)", ev.ActorId, ev.ActorName)
	}

	update.InviteLink = &tgbotapi.ChatInviteLink{InviteLink: "https://t.me/+abc"}
	if ev := memberEvent(update); !ev.ViaInviteLink {
		t.Fatal("invite link must be carried into the event")
	}
}
