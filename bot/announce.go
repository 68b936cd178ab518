package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"sanoqchi/entity"
)

// The bot implements scheduler.Announcer. Errors are returned instead of
// swallowed so the scheduler keeps the lifecycle flag clear and retries the
// announcement on its next sweep.

func (t *TgBot) AnnounceStarted(chatId int64) error {
	text := "The challenge has started\\!\n\n" +
		"Who can add the most people?\n\n" +
		"Check your stats in a private chat with the bot\\."
	return t.sendMarkdown(chatId, text)
}

func (t *TgBot) AnnounceEnded(chatId int64, top []entity.LeaderboardRow) error {
	return t.sendMarkdown(chatId, formatResults(top))
}

func formatResults(top []entity.LeaderboardRow) string {
	if len(top) == 0 {
		return "The challenge is over\\!\n\nNobody participated\\."
	}

	medals := []string{"🥇", "🥈", "🥉"}
	var sb strings.Builder
	sb.WriteString("The challenge is over\\!\n\n")
	for i, row := range top {
		rank := fmt.Sprintf("%d\\.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		sb.WriteString(fmt.Sprintf("%s %s: %d\n", rank, Sanitize(row.InviterName), row.Count))
	}
	sb.WriteString("\nThanks to everyone who took part\\!")
	return sb.String()
}

func (t *TgBot) sendMarkdown(chatId int64, text string) error {
	_, err := t.send(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("send message to %d: %w", chatId, err)
	}
	return nil
}
