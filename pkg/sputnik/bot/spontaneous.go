// spontaneous.go implements the background loop that sends unprompted
// messages to randomly chosen active conversations, plus optional cron
// schedules for fixed check-in times.
package bot

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/akazantsev/sputnik/pkg/sputnik/channels"
)

// Sender delivers outbound messages. Satisfied by *channels.Manager.
type Sender interface {
	Send(ctx context.Context, channelName, to string, msg *channels.OutgoingMessage) error
}

// SpontaneousConfig configures the spontaneous messenger.
type SpontaneousConfig struct {
	// Enabled turns the background loop on/off.
	Enabled bool `yaml:"enabled"`

	// MinInterval and MaxInterval bound the random wait between attempts.
	MinInterval time.Duration `yaml:"min_interval"`
	MaxInterval time.Duration `yaml:"max_interval"`

	// Prompt is the instruction sent alongside the persona system message
	// to have the model invent an unprompted message.
	Prompt string `yaml:"prompt"`

	// Schedules holds optional cron expressions for fixed check-in times
	// (e.g. "0 9 * * *" for every morning), in addition to the random loop.
	Schedules []string `yaml:"schedules"`
}

// DefaultSpontaneousConfig returns a SpontaneousConfig with sensible defaults.
func DefaultSpontaneousConfig() SpontaneousConfig {
	return SpontaneousConfig{
		Enabled:     true,
		MinInterval: 1600 * time.Second,
		MaxInterval: 4200 * time.Second,
		Prompt:      "Come up with a short, natural message to send out of the blue, as if you just thought of the person. Write only the message itself.",
	}
}

// Messenger runs the spontaneous message loop. It shares only the active
// set and the completer with the controller and never touches conversation
// histories.
type Messenger struct {
	cfg      SpontaneousConfig
	active   *ActiveSet
	complete Completer
	sender   Sender
	persona  string
	logger   *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMessenger creates a spontaneous messenger. personaPrompt is the same
// system directive the controller seeds histories with.
func NewMessenger(cfg SpontaneousConfig, active *ActiveSet, completer Completer, sender Sender, personaPrompt string, logger *slog.Logger) *Messenger {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 1600 * time.Second
	}
	if cfg.MaxInterval < cfg.MinInterval {
		cfg.MaxInterval = cfg.MinInterval
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultSpontaneousConfig().Prompt
	}

	return &Messenger{
		cfg:      cfg,
		active:   active,
		complete: completer,
		sender:   sender,
		persona:  personaPrompt,
		logger:   logger.With("component", "spontaneous"),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		done:     make(chan struct{}),
	}
}

// Start launches the random-interval loop and registers any cron schedules.
func (m *Messenger) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if len(m.cfg.Schedules) > 0 {
		m.cron = cron.New()
		for _, expr := range m.cfg.Schedules {
			if _, err := m.cron.AddFunc(expr, m.fire); err != nil {
				m.logger.Warn("skipping invalid schedule", "schedule", expr, "error", err)
				continue
			}
			m.logger.Info("check-in schedule registered", "schedule", expr)
		}
		m.cron.Start()
	}

	go m.loop()

	m.logger.Info("spontaneous messenger started",
		"min_interval", m.cfg.MinInterval,
		"max_interval", m.cfg.MaxInterval,
		"schedules", len(m.cfg.Schedules),
	)
	return nil
}

// Stop terminates the loop and cron entries, waiting for the loop to exit.
func (m *Messenger) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
	<-m.done
	m.logger.Info("spontaneous messenger stopped")
}

// loop waits a random duration between attempts until the context is done.
func (m *Messenger) loop() {
	defer close(m.done)

	for {
		wait := m.randomInterval()
		select {
		case <-m.ctx.Done():
			return
		case <-time.After(wait):
			m.fire()
		}
	}
}

// fire performs one spontaneous message attempt: pick a random active
// conversation, generate a message, deliver it. Failures are logged and the
// loop continues; an empty active set is a no-op.
func (m *Messenger) fire() {
	m.rngMu.Lock()
	ref, ok := m.active.Pick(m.rng)
	m.rngMu.Unlock()

	if !ok {
		m.logger.Debug("no active conversations, skipping")
		return
	}

	messages := []Message{
		SystemMessage(m.persona),
		UserMessage(m.cfg.Prompt),
	}

	text, err := m.complete.Complete(m.ctx, messages)
	if err != nil {
		m.logger.Warn("spontaneous completion failed", "conversation", ref, "error", err)
		return
	}

	if err := m.sender.Send(m.ctx, ref.Channel, ref.ChatID, &channels.OutgoingMessage{Content: text}); err != nil {
		m.logger.Warn("spontaneous delivery failed", "conversation", ref, "error", err)
		return
	}

	m.logger.Info("spontaneous message sent", "conversation", ref)
}

// randomInterval draws a wait uniformly from [MinInterval, MaxInterval].
func (m *Messenger) randomInterval() time.Duration {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()

	spread := m.cfg.MaxInterval - m.cfg.MinInterval
	if spread <= 0 {
		return m.cfg.MinInterval
	}
	return m.cfg.MinInterval + time.Duration(m.rng.Int63n(int64(spread)+1))
}
