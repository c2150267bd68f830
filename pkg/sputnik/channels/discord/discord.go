// Package discord implements the Discord channel for Sputnik using discordgo.
//
// Features:
//   - Send/receive text messages in DMs and guild channels
//   - Slash-style text commands (/start, /clear, ...)
//   - Typing indicators
//   - Long message splitting (2000 character limit)
//   - Guild and channel allowlists
//   - Automatic reconnection via discordgo's gateway
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/akazantsev/sputnik/pkg/sputnik/channels"
)

// Config holds Discord channel configuration.
type Config struct {
	// Token is the Discord bot token.
	Token string `yaml:"token"`

	// AllowedGuilds restricts which guild (server) IDs the bot responds in.
	// Empty means respond in all guilds.
	AllowedGuilds []string `yaml:"allowed_guilds"`

	// AllowedChannels restricts which channel IDs the bot responds in.
	// Empty means respond in all channels.
	AllowedChannels []string `yaml:"allowed_channels"`

	// RespondToGuilds enables responding in guild channels.
	RespondToGuilds bool `yaml:"respond_to_guilds"`

	// RespondToDMs enables responding in direct messages.
	RespondToDMs bool `yaml:"respond_to_dms"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RespondToGuilds: true,
		RespondToDMs:    true,
	}
}

// Discord implements channels.Channel and channels.PresenceChannel.
type Discord struct {
	cfg     Config
	logger  *slog.Logger
	session *discordgo.Session

	// messages is the channel for incoming messages forwarded to the assistant.
	messages chan *channels.IncomingMessage

	// connected tracks connection state.
	connected atomic.Bool

	// lastMsg tracks the last message timestamp for health.
	lastMsg atomic.Value // time.Time

	// errorCount tracks consecutive errors.
	errorCount atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Discord channel instance.
func New(cfg Config, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discord{
		cfg:      cfg,
		logger:   logger.With("component", "discord"),
		messages: make(chan *channels.IncomingMessage, 256),
	}
}

// ---------- Channel Interface ----------

// Name returns "discord".
func (d *Discord) Name() string { return "discord" }

// Connect opens the Discord gateway WebSocket connection.
func (d *Discord) Connect(ctx context.Context) error {
	if d.cfg.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	session, err := discordgo.New("Bot " + d.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord: creating session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	session.AddHandler(d.onMessageCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: opening gateway: %w", err)
	}

	d.session = session
	d.connected.Store(true)

	user := session.State.User
	d.logger.Info("discord: connected", "bot", user.Username, "id", user.ID)

	return nil
}

// Disconnect closes the Discord gateway connection.
func (d *Discord) Disconnect() error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.session != nil {
		d.session.Close()
	}
	d.connected.Store(false)
	d.logger.Info("discord: disconnected")
	return nil
}

// Send sends a text message to the specified channel.
func (d *Discord) Send(ctx context.Context, to string, message *channels.OutgoingMessage) error {
	if d.session == nil {
		return channels.ErrChannelDisconnected
	}

	content := message.Content

	// Discord has a 2000 character limit per message.
	if len(content) <= 2000 {
		msgSend := &discordgo.MessageSend{Content: content}
		if message.ReplyTo != "" {
			msgSend.Reference = &discordgo.MessageReference{MessageID: message.ReplyTo}
		}
		_, err := d.session.ChannelMessageSendComplex(to, msgSend)
		return err
	}

	// For long messages, split into chunks.
	chunks := splitMessage(content, 2000)
	for i, chunk := range chunks {
		msgSend := &discordgo.MessageSend{Content: chunk}
		if i == 0 && message.ReplyTo != "" {
			msgSend.Reference = &discordgo.MessageReference{MessageID: message.ReplyTo}
		}
		if _, err := d.session.ChannelMessageSendComplex(to, msgSend); err != nil {
			return err
		}
	}
	return nil
}

// Receive returns the incoming messages channel.
func (d *Discord) Receive() <-chan *channels.IncomingMessage {
	return d.messages
}

// IsConnected returns true if the bot is connected.
func (d *Discord) IsConnected() bool { return d.connected.Load() }

// Health returns the channel health status.
func (d *Discord) Health() channels.HealthStatus {
	var lastAt time.Time
	if v := d.lastMsg.Load(); v != nil {
		lastAt = v.(time.Time)
	}
	return channels.HealthStatus{
		Connected:     d.connected.Load(),
		LastMessageAt: lastAt,
		ErrorCount:    int(d.errorCount.Load()),
	}
}

// ---------- PresenceChannel Interface ----------

// SendTyping sends a typing indicator to the channel.
func (d *Discord) SendTyping(ctx context.Context, to string) error {
	if d.session == nil {
		return nil
	}
	return d.session.ChannelTyping(to)
}

// ---------- Event Handlers ----------

// onMessageCreate handles incoming Discord messages.
func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore messages from the bot itself and other bots.
	if m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	isGroup := m.GuildID != ""

	if isGroup && !d.cfg.RespondToGuilds {
		return
	}
	if !isGroup && !d.cfg.RespondToDMs {
		return
	}

	// Apply guild filter.
	if len(d.cfg.AllowedGuilds) > 0 && m.GuildID != "" {
		if !contains(d.cfg.AllowedGuilds, m.GuildID) {
			return
		}
	}

	// Apply channel filter.
	if len(d.cfg.AllowedChannels) > 0 {
		if !contains(d.cfg.AllowedChannels, m.ChannelID) {
			return
		}
	}

	command, content := splitCommand(m.Content)

	incoming := &channels.IncomingMessage{
		ID:        m.ID,
		Channel:   "discord",
		From:      m.Author.ID,
		FromName:  m.Author.Username,
		ChatID:    m.ChannelID,
		IsGroup:   isGroup,
		Command:   command,
		Content:   content,
		Timestamp: m.Timestamp,
	}

	if m.ReferencedMessage != nil {
		incoming.ReplyTo = m.ReferencedMessage.ID
	}

	d.lastMsg.Store(time.Now())
	d.errorCount.Store(0)

	select {
	case d.messages <- incoming:
	default:
		d.logger.Warn("discord: message buffer full, dropping message", "msg_id", incoming.ID)
	}
}

// ---------- Helpers ----------

// splitCommand extracts a "/command args" prefix from message text.
// Non-command text returns ("", text).
func splitCommand(text string) (command, rest string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	head, tail, _ := strings.Cut(text[1:], " ")
	if head == "" {
		return "", text
	}
	return strings.ToLower(head), strings.TrimSpace(tail)
}

// contains reports whether list includes the given ID.
func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

// splitMessage splits a message into chunks respecting the given limit.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}
		// Try to split at a newline.
		cutAt := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/2 {
			cutAt = idx + 1
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	return chunks
}

// Compile-time interface verification.
var (
	_ channels.Channel         = (*Discord)(nil)
	_ channels.PresenceChannel = (*Discord)(nil)
)
