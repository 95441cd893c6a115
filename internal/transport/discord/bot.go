package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Bot owns the gateway connection and routes events to the Handler.
type Bot struct {
	session *discordgo.Session
	handler *Handler
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewBot(token string, handler *Handler, logger *slog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	if logger == nil {
		logger = slog.Default()
	}
	b := &Bot{session: session, handler: handler, logger: logger}
	b.ctx, b.cancel = context.WithCancel(context.Background())

	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)
	return b, nil
}

// Open connects to the gateway.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

// Close disconnects after pending expiry edits were sent.
func (b *Bot) Close() error {
	b.handler.Wait()
	b.cancel()
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("discord: connected", "user", r.User.String(), "guilds", len(r.Guilds))
	if err := s.UpdateGameStatus(0, "Trivia!"); err != nil {
		b.logger.Warn("discord: set presence failed", "error", err)
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	b.handler.HandleMessage(b.ctx, s, m)
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.handler.HandleInteraction(b.ctx, s, i)
}
