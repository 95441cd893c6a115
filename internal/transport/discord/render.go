package discord

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"trivia-bot/internal/domain"
)

const (
	colorPurple = 0x9B59B6
	colorGold   = 0xF1C40F

	customIDPrefix = "trivia"
	// Discord rejects button labels longer than this.
	maxLabelLen = 80
)

var optionEmojis = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣"}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"~", `\~`,
	"`", "\\`",
	"|", `\|`,
	">", `\>`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func roundEmbed(view domain.RoundView, displayName string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Trivia! (%s)", view.Difficulty.Title()),
		Description: "**" + escapeMarkdown(view.Question) + "**",
		Color:       colorPurple,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Question for " + displayName},
	}
	if view.Category != "" {
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: "Category", Value: escapeMarkdown(view.Category), Inline: true},
		}
	}
	return embed
}

// answerButtons renders one button per option. With a finished outcome all
// buttons are disabled, the chosen one is green or red and the correct one
// green.
func answerButtons(view domain.RoundView, out *domain.Outcome) []discordgo.MessageComponent {
	buttons := make([]discordgo.MessageComponent, 0, len(view.Options))
	for _, opt := range view.Options {
		b := discordgo.Button{
			Label:    truncate(opt.Label, maxLabelLen),
			Style:    discordgo.PrimaryButton,
			CustomID: customID(view.SessionID, opt.Index),
		}
		if opt.Index < len(optionEmojis) {
			b.Emoji = &discordgo.ComponentEmoji{Name: optionEmojis[opt.Index]}
		}
		if out != nil {
			b.Disabled = true
			switch {
			case opt.Index == out.CorrectIndex:
				b.Style = discordgo.SuccessButton
			case opt.Index == out.Chosen.Index:
				b.Style = discordgo.DangerButton
			default:
				b.Style = discordgo.SecondaryButton
			}
		}
		buttons = append(buttons, b)
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}

func outcomeContent(out domain.Outcome, mention string) string {
	answer := escapeMarkdown(out.CorrectAnswer)
	switch {
	case out.State == domain.StateExpired:
		return fmt.Sprintf("Time's up! The answer was **%s** ⌛", answer)
	case out.Correct:
		return fmt.Sprintf("Correct, %s! ✅", mention)
	default:
		return fmt.Sprintf("Incorrect. The answer was **%s** ❌", answer)
	}
}

func leaderboardEmbed(lb domain.Leaderboard) *discordgo.MessageEmbed {
	var sb strings.Builder
	for _, e := range lb.Entries {
		fmt.Fprintf(&sb, "%d. <@%s> - **%d** points\n", e.Rank, e.UserID, e.Score)
	}
	return &discordgo.MessageEmbed{
		Title:       "🏆 Trivia Leaderboard 🏆",
		Description: sb.String(),
		Color:       colorGold,
	}
}

func customID(sessionID string, index int) string {
	return customIDPrefix + ":" + sessionID + ":" + strconv.Itoa(index)
}

// parseCustomID splits "trivia:{sessionID}:{index}".
func parseCustomID(id string) (string, int, bool) {
	rest, ok := strings.CutPrefix(id, customIDPrefix+":")
	if !ok {
		return "", 0, false
	}
	i := strings.LastIndex(rest, ":")
	if i <= 0 {
		return "", 0, false
	}
	index, err := strconv.Atoi(rest[i+1:])
	if err != nil {
		return "", 0, false
	}
	return rest[:i], index, true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
