package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/akazantsev/sputnik/pkg/sputnik/bot"
	"github.com/akazantsev/sputnik/pkg/sputnik/channels"
	"github.com/akazantsev/sputnik/pkg/sputnik/config"
)

// newChatCmd creates the `sputnik chat` command: a local REPL against the
// persona, no messaging platform involved.
func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the persona locally",
		Long: `Chat with the configured persona in the terminal. Pass a message for a
single reply, or run without arguments for an interactive session.
Commands work as in a real chat: /start, /clear.

Examples:
  sputnik chat "how was your day?"
  sputnik chat`,
		Args: cobra.MaximumNArgs(1),
		RunE: runChat,
	}

	cmd.Flags().StringP("model", "m", "", "override the configured model")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg)
	config.ResolveCredentials(cfg, logger)

	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.API.Model = model
	}

	store := bot.NewHistoryStore(cfg.Persona.MaxHistory)
	active := bot.NewActiveSet()
	completer := bot.NewCompletionClient(cfg.API, logger)
	controller := bot.NewController(store, active, completer, cfg.Persona, logger)

	// Single-shot mode.
	if len(args) > 0 {
		reply := controller.Handle(context.Background(), localMessage(args[0]))
		fmt.Println(reply)
		return nil
	}

	// Interactive REPL.
	rl, err := readline.New("you> ")
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("Chatting with the persona. /clear resets, Ctrl+D exits.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			fmt.Println("bye!")
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		reply := controller.Handle(context.Background(), localMessage(line))
		fmt.Printf("bot> %s\n", reply)
	}
}

// localMessage wraps terminal input in the incoming-message shape the
// controller consumes, extracting /commands like a real channel does.
func localMessage(text string) *channels.IncomingMessage {
	text = strings.TrimSpace(text)

	var command string
	if strings.HasPrefix(text, "/") {
		head, tail, _ := strings.Cut(text[1:], " ")
		if head != "" {
			command = strings.ToLower(head)
			text = strings.TrimSpace(tail)
		}
	}

	return &channels.IncomingMessage{
		ID:        "local",
		Channel:   "local",
		From:      "terminal",
		ChatID:    "terminal",
		Command:   command,
		Content:   text,
		Timestamp: time.Now(),
	}
}
