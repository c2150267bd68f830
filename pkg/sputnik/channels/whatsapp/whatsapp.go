// Package whatsapp implements the WhatsApp channel for Sputnik using
// whatsmeow — a native Go WhatsApp Web API library. No Node.js, no Baileys.
//
// Features:
//   - QR code login with persistent session (SQLite)
//   - Send/receive text messages
//   - Group and DM support
//   - Typing indicators
//   - Automatic reconnection via whatsmeow
package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.mau.fi/whatsmeow"
	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/akazantsev/sputnik/pkg/sputnik/channels"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for session store.
)

// Config holds WhatsApp channel configuration.
type Config struct {
	// Enabled turns the channel on/off. WhatsApp requires a QR login, so it
	// is opt-in rather than inferred from a token.
	Enabled bool `yaml:"enabled"`

	// SessionDir is the directory for session persistence (SQLite).
	SessionDir string `yaml:"session_dir"`

	// RespondToGroups enables responding in group chats.
	RespondToGroups bool `yaml:"respond_to_groups"`

	// RespondToDMs enables responding in direct messages.
	RespondToDMs bool `yaml:"respond_to_dms"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SessionDir:      "./sessions/whatsapp",
		RespondToGroups: false,
		RespondToDMs:    true,
	}
}

// WhatsApp implements channels.Channel and channels.PresenceChannel.
type WhatsApp struct {
	cfg    Config
	client *whatsmeow.Client
	logger *slog.Logger

	// messages is the channel for incoming messages.
	messages chan *channels.IncomingMessage

	// connected tracks connection state.
	connected atomic.Bool

	// lastMsg tracks the last message timestamp for health.
	lastMsg atomic.Value // time.Time

	// errorCount tracks consecutive errors.
	errorCount atomic.Int64

	// messagesClosed prevents sending to a closed channel after Disconnect.
	messagesClosed atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new WhatsApp channel instance.
func New(cfg Config, logger *slog.Logger) *WhatsApp {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SessionDir == "" {
		cfg.SessionDir = "./sessions/whatsapp"
	}
	return &WhatsApp{
		cfg:      cfg,
		logger:   logger.With("component", "whatsapp"),
		messages: make(chan *channels.IncomingMessage, 256),
	}
}

// ---------- Channel Interface ----------

// Name returns "whatsapp".
func (w *WhatsApp) Name() string { return "whatsapp" }

// Connect establishes the WhatsApp Web connection via whatsmeow.
// On first login the QR code is emitted to the log for scanning.
func (w *WhatsApp) Connect(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	if err := os.MkdirAll(w.cfg.SessionDir, 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	dbPath := w.cfg.SessionDir + "/whatsapp.db"
	container, err := sqlstore.New(w.ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL", dbPath),
		waLog.Noop)
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}

	device, err := w.getDevice(w.ctx, container)
	if err != nil {
		return fmt.Errorf("getting device: %w", err)
	}

	// Device name shown in the WhatsApp linked devices list.
	store.SetOSInfo("Sputnik", [3]uint32{1, 0, 0})

	w.client = whatsmeow.NewClient(device, waLog.Noop)
	w.client.AddEventHandler(w.handleEvent)
	w.client.EnableAutoReconnect = true
	w.client.InitialAutoReconnect = true

	if w.client.Store.ID == nil {
		// First login — QR flow runs in the background so startup is not blocked.
		w.logger.Info("whatsapp: no existing session, QR login required")
		go func() {
			if err := w.loginWithQR(w.ctx); err != nil {
				w.logger.Warn("whatsapp: QR login pending", "error", err)
			}
		}()
		return nil
	}

	// Existing session — reconnect.
	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}

	w.connected.Store(true)
	w.logger.Info("whatsapp: connected (existing session)", "jid", w.clientJID())

	return nil
}

// Disconnect gracefully closes the WhatsApp connection.
func (w *WhatsApp) Disconnect() error {
	w.connected.Store(false)

	if w.cancel != nil {
		w.cancel()
	}
	if w.client != nil {
		w.client.Disconnect()
	}

	if w.messagesClosed.CompareAndSwap(false, true) {
		close(w.messages)
	}

	w.logger.Info("whatsapp: disconnected")
	return nil
}

// Send sends a text message to the specified JID.
func (w *WhatsApp) Send(ctx context.Context, to string, msg *channels.OutgoingMessage) error {
	if !w.connected.Load() {
		return channels.ErrChannelDisconnected
	}

	jid, err := parseJID(to)
	if err != nil {
		return fmt.Errorf("invalid JID %q: %w", to, err)
	}

	waMsg := &waE2E.Message{Conversation: proto.String(msg.Content)}

	if _, err := w.client.SendMessage(ctx, jid, waMsg); err != nil {
		w.errorCount.Add(1)
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// Receive returns the incoming messages channel.
func (w *WhatsApp) Receive() <-chan *channels.IncomingMessage {
	return w.messages
}

// IsConnected returns true if the client is connected and logged in.
func (w *WhatsApp) IsConnected() bool { return w.connected.Load() }

// Health returns the channel health status.
func (w *WhatsApp) Health() channels.HealthStatus {
	var lastAt time.Time
	if v := w.lastMsg.Load(); v != nil {
		lastAt = v.(time.Time)
	}
	return channels.HealthStatus{
		Connected:     w.connected.Load(),
		LastMessageAt: lastAt,
		ErrorCount:    int(w.errorCount.Load()),
	}
}

// ---------- PresenceChannel Interface ----------

// SendTyping sends a "composing..." chat state.
func (w *WhatsApp) SendTyping(ctx context.Context, to string) error {
	if !w.connected.Load() {
		return nil
	}
	jid, err := parseJID(to)
	if err != nil {
		return nil
	}
	return w.client.SendChatPresence(ctx, jid, types.ChatPresenceComposing, types.ChatPresenceMediaText)
}

// ---------- Event Handling ----------

// handleEvent is the whatsmeow event dispatcher.
func (w *WhatsApp) handleEvent(rawEvt interface{}) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		w.handleMessageEvt(evt)

	case *events.Connected:
		w.connected.Store(true)
		w.errorCount.Store(0)
		w.logger.Info("whatsapp: connected", "jid", w.clientJID())

	case *events.Disconnected:
		w.connected.Store(false)
		w.logger.Warn("whatsapp: disconnected from server")

	case *events.LoggedOut:
		w.connected.Store(false)
		w.logger.Warn("whatsapp: logged out, session invalidated — delete the session dir and relink")

	case *events.StreamReplaced:
		w.connected.Store(false)
		w.logger.Warn("whatsapp: stream replaced by another client")
	}
}

// handleMessageEvt converts an incoming WhatsApp text message event into an
// IncomingMessage. Media messages are ignored.
func (w *WhatsApp) handleMessageEvt(evt *events.Message) {
	if evt.Info.IsFromMe {
		return
	}
	if evt.Info.Chat.Server == "broadcast" {
		return
	}

	isGroup := evt.Info.IsGroup
	if isGroup && !w.cfg.RespondToGroups {
		return
	}
	if !isGroup && !w.cfg.RespondToDMs {
		return
	}

	text := extractText(evt.Message)
	if text == "" {
		return
	}

	command, content := splitCommand(text)

	msg := &channels.IncomingMessage{
		ID:        string(evt.Info.ID),
		Channel:   "whatsapp",
		From:      evt.Info.Sender.String(),
		FromName:  evt.Info.PushName,
		ChatID:    evt.Info.Chat.String(),
		IsGroup:   isGroup,
		Command:   command,
		Content:   content,
		Timestamp: evt.Info.Timestamp,
	}

	w.lastMsg.Store(time.Now())

	if w.messagesClosed.Load() {
		return
	}
	select {
	case w.messages <- msg:
	default:
		w.logger.Warn("whatsapp: message buffer full, dropping message", "msg_id", msg.ID)
	}
}

// ---------- Internal ----------

// getDevice returns the first stored device or creates a new one.
func (w *WhatsApp) getDevice(ctx context.Context, container *sqlstore.Container) (*store.Device, error) {
	devices, err := container.GetAllDevices(ctx)
	if err != nil {
		return nil, err
	}
	if len(devices) > 0 {
		return devices[0], nil
	}
	return container.NewDevice(), nil
}

// loginWithQR handles the QR code login flow, logging each code so it can be
// rendered and scanned (e.g. with any terminal QR tool).
func (w *WhatsApp) loginWithQR(ctx context.Context) error {
	qrChan, err := w.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("getting QR channel: %w", err)
	}

	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("connecting for QR: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-qrChan:
			if !ok {
				return fmt.Errorf("QR channel closed unexpectedly")
			}
			switch evt.Event {
			case "code":
				w.logger.Info("whatsapp: scan QR code to link device", "code", evt.Code)
			case "success":
				w.logger.Info("whatsapp: device linked successfully")
				return nil
			case "timeout":
				return fmt.Errorf("QR login timed out")
			}
		}
	}
}

// clientJID returns the current client JID if available.
func (w *WhatsApp) clientJID() string {
	if w.client != nil && w.client.Store.ID != nil {
		return w.client.Store.ID.String()
	}
	return ""
}

// extractText returns the text content of a WhatsApp message, or "" for
// non-text messages.
func extractText(waMsg *waE2E.Message) string {
	if waMsg == nil {
		return ""
	}
	if waMsg.Conversation != nil {
		return waMsg.GetConversation()
	}
	if ext := waMsg.ExtendedTextMessage; ext != nil {
		return ext.GetText()
	}
	return ""
}

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

// parseJID parses a JID string or bare phone number into a types.JID.
func parseJID(s string) (types.JID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.JID{}, fmt.Errorf("empty JID")
	}

	// Already a full JID with server.
	if strings.Contains(s, "@") {
		return types.ParseJID(s)
	}

	// Bare phone number — add the default user server.
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)

	if len(digits) < 10 {
		return types.JID{}, fmt.Errorf("phone number too short: %s", s)
	}

	return types.NewJID(digits, types.DefaultUserServer), nil
}

// Compile-time interface verification.
var (
	_ channels.Channel         = (*WhatsApp)(nil)
	_ channels.PresenceChannel = (*WhatsApp)(nil)
)
