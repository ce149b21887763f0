package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/teemow/mahakaal/internal/agent"
	"github.com/teemow/mahakaal/internal/conversation"
	"github.com/teemow/mahakaal/internal/events"
	"github.com/teemow/mahakaal/internal/session"
)

// maxResultWidth truncates tool results in the terminal.
const maxResultWidth = 200

var (
	statusColor = color.New(color.FgCyan)
	toolColor   = color.New(color.FgGreen)
	resultColor = color.New(color.FgMagenta)
	answerColor = color.New(color.FgBlue)
	errorColor  = color.New(color.FgRed)
)

func newChatCmd() *cobra.Command {
	var (
		sessionID int64
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		Long: `Run the scheduling assistant in-process with an interactive prompt.

Commands at the prompt:
  /reset   Start a new conversation
  /exit    Leave (Ctrl+D works too)

Ctrl+C while the assistant is working cancels the current request.
With --session the conversation is loaded from and stored in the chat
session database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := prepare(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger, nil)
			if err != nil {
				return err
			}
			ag, err := a.newAgent()
			if err != nil {
				return err
			}

			var store *session.Store
			if sessionID != 0 {
				store, err = session.Open(ctx, cfg.Session.DBPath, session.WithLogger(logger))
				if err != nil {
					return err
				}
				defer store.Close()
			}

			return runChat(ctx, ag, store, sessionID, verbose)
		},
	}

	cmd.Flags().Int64Var(&sessionID, "session", 0, "Resume and store a chat session by id")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show every history update")
	cmd.Flags().String("db-path", session.DefaultPath, "Chat session database")
	addModelFlags(cmd)

	return cmd
}

func runChat(ctx context.Context, ag *agent.Agent, store *session.Store, sessionID int64, verbose bool) error {
	var history []conversation.Message
	if store != nil {
		s, err := store.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		if history, err = store.Messages(ctx, sessionID); err != nil {
			return err
		}
		ag = ag.ForSession(sessionID)
		statusColor.Printf("Resuming %q (%d messages)\n", s.Title, len(history))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            color.GreenString("➤ "),
		HistoryFile:       historyFile(),
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "bye",
	})
	if err != nil {
		return fmt.Errorf("failed to create prompt: %w", err)
	}
	defer rl.Close()

	renderer := &terminalRenderer{w: rl.Stdout(), verbose: verbose}

	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}

		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			history = nil
			statusColor.Fprintln(rl.Stdout(), "Started a new conversation.")
			continue
		}

		user := conversation.User(input)
		history = append(history, user)

		runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		res := ag.Run(runCtx, history, renderer)
		stop()

		appended := res.Appended()
		history = append(history, appended...)

		if store != nil {
			msgs := append([]conversation.Message{user}, appended...)
			if err := store.AppendMessages(context.WithoutCancel(ctx), sessionID, msgs...); err != nil {
				errorColor.Fprintf(rl.Stdout(), "failed to store session: %v\n", err)
			}
		}
		if errors.Is(res.Err, context.Canceled) {
			errorColor.Fprintln(rl.Stdout(), "canceled")
		}
	}
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".mahakaal_history")
}

// terminalRenderer prints agent events as colored lines.
type terminalRenderer struct {
	w       io.Writer
	verbose bool
}

func (r *terminalRenderer) Emit(e events.Event) error {
	var err error
	switch e.Type {
	case events.TypeStatus:
		_, err = statusColor.Fprintf(r.w, "… %s\n", e.Content)
	case events.TypeLog:
		if e.Data != nil {
			_, err = toolColor.Fprintf(r.w, "➤ %s %s\n", e.Content, compactJSON(e.Data))
		} else {
			_, err = resultColor.Fprintf(r.w, "  %s\n", truncate(e.Content, maxResultWidth))
		}
	case events.TypeHistoryAppend:
		if r.verbose {
			_, err = fmt.Fprintf(r.w, "  [%s] %s\n", e.Content, compactJSON(e.Data))
		}
	case events.TypeAnswer:
		_, err = answerColor.Fprintf(r.w, "\n%s\n\n", e.Content)
	case events.TypeError:
		_, err = errorColor.Fprintf(r.w, "✗ %s\n", e.Content)
	}
	return err
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func truncate(s string, width int) string {
	runes := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(runes) <= width {
		return string(runes)
	}
	return string(runes[:width-3]) + "..."
}
