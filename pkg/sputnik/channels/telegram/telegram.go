// Package telegram implements the Telegram channel for Sputnik using the
// Telegram Bot API directly via HTTP — no external dependencies.
//
// Features:
//   - Long polling for updates (getUpdates)
//   - Send/receive text messages with Markdown or HTML formatting
//   - Bot command extraction (/start, /clear, ...)
//   - Typing indicators (sendChatAction)
//   - Group and DM support
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/akazantsev/sputnik/pkg/sputnik/channels"
)

// Config holds Telegram channel configuration.
type Config struct {
	// Token is the Telegram Bot API token (from @BotFather).
	Token string `yaml:"token"`

	// AllowedChats restricts which chat IDs the bot responds to.
	// Empty means respond to all chats.
	AllowedChats []int64 `yaml:"allowed_chats"`

	// RespondToGroups enables responding in group chats.
	RespondToGroups bool `yaml:"respond_to_groups"`

	// RespondToDMs enables responding in direct messages.
	RespondToDMs bool `yaml:"respond_to_dms"`

	// ParseMode sets the parse mode for outgoing messages ("Markdown" or "HTML").
	ParseMode string `yaml:"parse_mode"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RespondToGroups: true,
		RespondToDMs:    true,
		ParseMode:       "Markdown",
	}
}

// Telegram implements channels.Channel and channels.PresenceChannel.
type Telegram struct {
	cfg    Config
	logger *slog.Logger
	client *http.Client

	// baseURL is the Telegram Bot API base URL (https://api.telegram.org/bot<token>).
	baseURL string

	// botUsername is filled from getMe and used to strip "@bot" command suffixes.
	botUsername string

	// messages is the channel for incoming messages forwarded to the assistant.
	messages chan *channels.IncomingMessage

	// connected tracks connection state.
	connected atomic.Bool

	// lastMsg tracks the last message timestamp for health.
	lastMsg atomic.Value // time.Time

	// errorCount tracks consecutive errors.
	errorCount atomic.Int64

	// offset is the last processed update ID + 1.
	offset int64

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Telegram channel instance.
func New(cfg Config, logger *slog.Logger) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ParseMode == "" {
		cfg.ParseMode = "Markdown"
	}
	return &Telegram{
		cfg:      cfg,
		logger:   logger.With("component", "telegram"),
		client:   &http.Client{Timeout: 60 * time.Second},
		baseURL:  "https://api.telegram.org/bot" + cfg.Token,
		messages: make(chan *channels.IncomingMessage, 256),
	}
}

// ---------- Channel Interface ----------

// Name returns "telegram".
func (t *Telegram) Name() string { return "telegram" }

// Connect starts the long-polling loop for receiving updates.
func (t *Telegram) Connect(ctx context.Context) error {
	if t.cfg.Token == "" {
		return fmt.Errorf("telegram: bot token is required")
	}

	// Prevent double-connect goroutine leak.
	if t.connected.Load() {
		return nil
	}

	t.ctx, t.cancel = context.WithCancel(ctx)

	// Verify token by calling getMe.
	me, err := t.getMe()
	if err != nil {
		return fmt.Errorf("telegram: failed to verify token: %w", err)
	}
	t.botUsername = me.Username
	t.logger.Info("telegram: connected", "bot", me.Username, "id", me.ID)
	t.connected.Store(true)

	go t.pollLoop()

	return nil
}

// Disconnect stops the polling loop.
func (t *Telegram) Disconnect() error {
	if t.cancel != nil {
		t.cancel()
	}
	t.connected.Store(false)
	t.logger.Info("telegram: disconnected")
	return nil
}

// Send sends a text message to the specified chat.
func (t *Telegram) Send(ctx context.Context, to string, message *channels.OutgoingMessage) error {
	if !t.connected.Load() {
		return channels.ErrChannelDisconnected
	}
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat ID %q: %w", to, err)
	}

	payload := map[string]any{
		"chat_id":    chatID,
		"text":       message.Content,
		"parse_mode": t.cfg.ParseMode,
	}
	if message.ReplyTo != "" {
		if msgID, e := strconv.ParseInt(message.ReplyTo, 10, 64); e == nil {
			payload["reply_parameters"] = map[string]any{"message_id": msgID}
		}
	}

	if _, err := t.apiCall("sendMessage", payload); err != nil {
		// Formatting errors are the common failure: retry once as plain text.
		payload["parse_mode"] = ""
		if _, retryErr := t.apiCall("sendMessage", payload); retryErr != nil {
			t.errorCount.Add(1)
			return err
		}
	}
	return nil
}

// Receive returns the incoming messages channel.
func (t *Telegram) Receive() <-chan *channels.IncomingMessage {
	return t.messages
}

// IsConnected returns true if the bot is connected.
func (t *Telegram) IsConnected() bool { return t.connected.Load() }

// Health returns the channel health status.
func (t *Telegram) Health() channels.HealthStatus {
	var lastAt time.Time
	if v := t.lastMsg.Load(); v != nil {
		lastAt = v.(time.Time)
	}
	return channels.HealthStatus{
		Connected:     t.connected.Load(),
		LastMessageAt: lastAt,
		ErrorCount:    int(t.errorCount.Load()),
	}
}

// ---------- PresenceChannel Interface ----------

// SendTyping sends a "typing..." chat action.
func (t *Telegram) SendTyping(ctx context.Context, to string) error {
	if !t.connected.Load() {
		return nil
	}
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return nil // ignore invalid chat IDs
	}
	_, err = t.apiCall("sendChatAction", map[string]any{
		"chat_id": chatID,
		"action":  "typing",
	})
	return err
}

// ---------- Internal Methods ----------

// pollLoop runs the getUpdates long-polling loop.
func (t *Telegram) pollLoop() {
	t.logger.Info("telegram: polling started")
	backoff := time.Second

	for {
		select {
		case <-t.ctx.Done():
			t.logger.Info("telegram: polling stopped")
			return
		default:
		}

		updates, err := t.getUpdates(t.offset, 100, 30)
		if err != nil {
			t.errorCount.Add(1)
			t.logger.Warn("telegram: getUpdates error", "error", err, "backoff", backoff)
			select {
			case <-t.ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}

		backoff = time.Second
		t.errorCount.Store(0)

		for _, u := range updates {
			if u.UpdateID >= t.offset {
				t.offset = u.UpdateID + 1
			}
			t.processUpdate(u)
		}
	}
}

// processUpdate converts a Telegram update into an IncomingMessage.
func (t *Telegram) processUpdate(u tgUpdate) {
	msg := u.Message
	if msg == nil {
		return
	}

	isGroup := msg.Chat.Type == "group" || msg.Chat.Type == "supergroup"

	// Apply chat filter.
	if len(t.cfg.AllowedChats) > 0 {
		allowed := false
		for _, id := range t.cfg.AllowedChats {
			if id == msg.Chat.ID {
				allowed = true
				break
			}
		}
		if !allowed {
			return
		}
	}

	// Apply group/DM filter.
	if isGroup && !t.cfg.RespondToGroups {
		return
	}
	if !isGroup && !t.cfg.RespondToDMs {
		return
	}

	// Build sender info.
	from := ""
	fromName := ""
	if msg.From != nil {
		from = strconv.FormatInt(msg.From.ID, 10)
		fromName = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
		if fromName == "" {
			fromName = msg.From.Username
		}
	}

	command, content := t.splitCommand(msg.Text)

	incoming := &channels.IncomingMessage{
		ID:        strconv.FormatInt(int64(msg.MessageID), 10),
		Channel:   "telegram",
		From:      from,
		FromName:  fromName,
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		IsGroup:   isGroup,
		Command:   command,
		Content:   content,
		Timestamp: time.Unix(int64(msg.Date), 0),
	}

	if msg.ReplyToMessage != nil {
		incoming.ReplyTo = strconv.FormatInt(int64(msg.ReplyToMessage.MessageID), 10)
	}

	t.lastMsg.Store(time.Now())

	select {
	case t.messages <- incoming:
	default:
		t.logger.Warn("telegram: message buffer full, dropping message", "msg_id", incoming.ID)
	}
}

// splitCommand extracts a bot command from message text. "/start arg" yields
// ("start", "arg"); "/start@mybot" addressed to another bot is treated as
// plain text. Non-command text returns ("", text).
func (t *Telegram) splitCommand(text string) (command, rest string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}

	head, tail, _ := strings.Cut(text[1:], " ")
	if head == "" {
		return "", text
	}

	// Handle the "/cmd@botname" form used in groups.
	if name, target, ok := strings.Cut(head, "@"); ok {
		if t.botUsername != "" && !strings.EqualFold(target, t.botUsername) {
			return "", text
		}
		head = name
	}

	return strings.ToLower(head), strings.TrimSpace(tail)
}

// ---------- Telegram Bot API Types ----------

type tgUpdate struct {
	UpdateID int64      `json:"update_id"`
	Message  *tgMessage `json:"message"`
}

type tgMessage struct {
	MessageID      int        `json:"message_id"`
	From           *tgUser    `json:"from"`
	Chat           tgChat     `json:"chat"`
	Date           int        `json:"date"`
	Text           string     `json:"text"`
	ReplyToMessage *tgMessage `json:"reply_to_message"`
}

type tgUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	IsBot     bool   `json:"is_bot"`
}

type tgChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"` // "private", "group", "supergroup", "channel"
}

type tgBotUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// ---------- API Helpers ----------

// apiCall makes a POST request to the Telegram Bot API.
func (t *Telegram) apiCall(method string, payload map[string]any) (json.RawMessage, error) {
	url := t.baseURL + "/" + method
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("telegram: marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(t.ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telegram: creating request for %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("telegram: decoding %s response: %w", method, err)
	}
	if !result.OK {
		return nil, fmt.Errorf("telegram: %s: %s", method, result.Description)
	}
	return result.Result, nil
}

// getMe verifies the bot token and returns bot info.
func (t *Telegram) getMe() (*tgBotUser, error) {
	// Connect calls getMe before t.ctx exists; use a bounded standalone context.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	url := t.baseURL + "/getMe"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram: creating getMe request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: getMe request failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("telegram: decoding getMe response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("telegram: getMe: %s", result.Description)
	}

	var user tgBotUser
	if err := json.Unmarshal(result.Result, &user); err != nil {
		return nil, fmt.Errorf("telegram: parsing getMe: %w", err)
	}
	return &user, nil
}

// getUpdates fetches new updates using long polling.
func (t *Telegram) getUpdates(offset int64, limit, timeoutSecs int) ([]tgUpdate, error) {
	payload := map[string]any{
		"offset":          offset,
		"limit":           limit,
		"timeout":         timeoutSecs,
		"allowed_updates": []string{"message"},
	}
	data, err := t.apiCall("getUpdates", payload)
	if err != nil {
		return nil, err
	}
	var updates []tgUpdate
	if err := json.Unmarshal(data, &updates); err != nil {
		return nil, fmt.Errorf("telegram: parsing updates: %w", err)
	}
	return updates, nil
}

// Compile-time interface verification.
var (
	_ channels.Channel         = (*Telegram)(nil)
	_ channels.PresenceChannel = (*Telegram)(nil)
)
