// assistant.go wires the channel manager, history store, active set,
// controller, and spontaneous messenger together and runs the serve loop.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/akazantsev/sputnik/pkg/sputnik/channels"
)

// Assistant is the composition root. It consumes the manager's aggregated
// message stream and dispatches each message in its own goroutine; ordering
// within one conversation is preserved by the controller's per-conversation
// locks.
type Assistant struct {
	manager    *channels.Manager
	controller *Controller
	messenger  *Messenger
	logger     *slog.Logger

	wg sync.WaitGroup
}

// NewAssistant creates an assistant. messenger may be nil when spontaneous
// messaging is disabled.
func NewAssistant(manager *channels.Manager, controller *Controller, messenger *Messenger, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		manager:    manager,
		controller: controller,
		messenger:  messenger,
		logger:     logger.With("component", "assistant"),
	}
}

// Run starts the channels and the spontaneous messenger, then serves
// incoming messages until ctx is cancelled. It blocks.
func (a *Assistant) Run(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		return fmt.Errorf("starting channels: %w", err)
	}

	if a.messenger != nil {
		if err := a.messenger.Start(ctx); err != nil {
			return fmt.Errorf("starting spontaneous messenger: %w", err)
		}
	}

	a.logger.Info("assistant running")

	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			return nil
		case msg, ok := <-a.manager.Messages():
			if !ok {
				a.shutdown()
				return nil
			}
			a.wg.Add(1)
			go func(msg *channels.IncomingMessage) {
				defer a.wg.Done()
				a.handleMessage(msg)
			}(msg)
		}
	}
}

// shutdown stops the background pieces and waits for in-flight turns.
func (a *Assistant) shutdown() {
	a.logger.Info("shutting down")
	if a.messenger != nil {
		a.messenger.Stop()
	}
	a.manager.Stop()
	a.wg.Wait()
	a.logger.Info("assistant stopped")
}

// handleMessage processes one inbound message end to end. In-flight turns
// use a background context so shutdown does not abort them mid-completion;
// the completion client carries its own timeout.
func (a *Assistant) handleMessage(msg *channels.IncomingMessage) {
	ctx := context.Background()

	// Typing indicator only for turns that will hit the model.
	if msg.Command == "" && strings.TrimSpace(msg.Content) != "" {
		if err := a.manager.SendTyping(ctx, msg.Channel, msg.ChatID); err != nil {
			a.logger.Debug("typing indicator failed",
				"channel", msg.Channel,
				"chat", msg.ChatID,
				"error", err,
			)
		}
	}

	reply := a.controller.Handle(ctx, msg)
	if reply == "" {
		return
	}

	out := &channels.OutgoingMessage{Content: reply}
	if msg.IsGroup {
		out.ReplyTo = msg.ID
	}

	if err := a.manager.Send(ctx, msg.Channel, msg.ChatID, out); err != nil {
		a.logger.Error("delivery failed",
			"channel", msg.Channel,
			"chat", msg.ChatID,
			"error", err,
		)
	}
}
