package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"trivia-bot/internal/app"
	"trivia-bot/internal/domain"
)

// Handler turns chat commands and button clicks into trivia use cases.
type Handler struct {
	service *app.TriviaService
	prefix  string
	logger  *slog.Logger

	// watchers tracks goroutines waiting for rounds to expire.
	watchers sync.WaitGroup
}

func NewHandler(service *app.TriviaService, prefix string, logger *slog.Logger) *Handler {
	if prefix == "" {
		prefix = "!"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, prefix: prefix, logger: logger}
}

// HandleMessage dispatches prefixed commands: trivia, leaderboard and ping.
func (h *Handler) HandleMessage(ctx context.Context, s Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	content, ok := strings.CutPrefix(strings.TrimSpace(m.Content), h.prefix)
	if !ok {
		return
	}
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return
	}

	switch strings.ToLower(fields[0]) {
	case "trivia":
		difficulty := ""
		if len(fields) > 1 {
			difficulty = fields[1]
		}
		h.startTrivia(ctx, s, m, difficulty)
	case "leaderboard":
		h.sendLeaderboard(s, m.ChannelID)
	case "ping":
		latency := s.HeartbeatLatency().Milliseconds()
		h.send(s, m.ChannelID, fmt.Sprintf("🏓 Pong! (%d ms)", latency))
	}
}

func (h *Handler) startTrivia(ctx context.Context, s Session, m *discordgo.MessageCreate, difficulty string) {
	session, err := h.service.StartRound(ctx, m.Author.ID, m.ChannelID, difficulty)
	if err != nil {
		h.send(s, m.ChannelID, domain.UserMessage(err))
		return
	}

	view := session.View()
	msg, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{roundEmbed(view, displayName(m))},
		Components: answerButtons(view, nil),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "discord: send round failed", "session", view.SessionID, "error", err)
		return
	}

	h.watchers.Add(1)
	go func() {
		defer h.watchers.Done()
		<-session.Done()
		out, _ := session.Outcome()
		if out.State != domain.StateExpired {
			return
		}
		content := outcomeContent(out, "")
		components := answerButtons(view, &out)
		if _, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
			ID:         msg.ID,
			Channel:    msg.ChannelID,
			Content:    &content,
			Components: &components,
		}); err != nil {
			h.logger.Warn("discord: mark round expired failed", "session", view.SessionID, "error", err)
		}
	}()
}

// HandleInteraction resolves answer button clicks.
func (h *Handler) HandleInteraction(ctx context.Context, s Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	sessionID, index, ok := parseCustomID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}
	user := interactionUser(i)
	if user == nil {
		return
	}

	round, hasRound := h.service.Round(sessionID)
	out, err := h.service.SubmitAnswer(ctx, sessionID, user.ID, domain.AnswerOption{Index: index})
	if err != nil {
		h.respondEphemeral(s, i, domain.UserMessage(err))
		return
	}

	content := outcomeContent(out, user.Mention())
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{Content: content},
	}
	if hasRound {
		resp.Data.Components = answerButtons(round.View(), &out)
	}
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		h.logger.WarnContext(ctx, "discord: respond to answer failed", "session", sessionID, "error", err)
	}

	if out.Correct {
		h.send(s, i.ChannelID, fmt.Sprintf("%s now has **%d** points!", user.Mention(), out.Score))
	}
}

func (h *Handler) sendLeaderboard(s Session, channelID string) {
	lb := h.service.Leaderboard(app.LeaderboardSize)
	if len(lb.Entries) == 0 {
		h.send(s, channelID, fmt.Sprintf("Nobody has played yet! Be the first with `%strivia`.", h.prefix))
		return
	}
	if _, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{leaderboardEmbed(lb)},
	}); err != nil {
		h.logger.Warn("discord: send leaderboard failed", "channel", channelID, "error", err)
	}
}

// Wait blocks until every expiry watcher has finished.
func (h *Handler) Wait() {
	h.watchers.Wait()
}

func (h *Handler) send(s Session, channelID, content string) {
	if _, err := s.ChannelMessageSend(channelID, content); err != nil {
		h.logger.Warn("discord: send message failed", "channel", channelID, "error", err)
	}
}

func (h *Handler) respondEphemeral(s Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.logger.Warn("discord: ephemeral response failed", "error", err)
	}
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func displayName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}
