package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/newcast-health/intakeflow/internal/presentation/tui"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/registry"
)

// ChatSessions is the part of the session manager a chat drives.
type ChatSessions interface {
	Start(ctx context.Context, sessionID string) (string, *domain.Outcome, error)
	Invoke(ctx context.Context, sessionID, name string, args map[string]any) (*domain.Outcome, error)
	Record(ctx context.Context, sessionID string, msgs ...domain.Message) error
	Get(ctx context.Context, sessionID string) (*domain.FlowContext, error)
	Tools(sessionID string) ([]registry.Tool, error)
	End(ctx context.Context, sessionID string) error
}

const chatHelp = `Commands:
  <function> [json arguments]   invoke a function, e.g. record_allergies {"allergies": []}
  say <text>                    record a user message
  :functions                    list the legal functions
  :context                      print the collected facts
  :help                         show this help
  :quit                         end the session
`

// Chat is an interactive session played by hand from a terminal.
type Chat struct {
	Sessions ChatSessions
	Renderer *tui.Renderer
	In       io.Reader
	Out      io.Writer
}

// Run starts a session and reads commands until :quit, end of input or ctx is done.
// The session is always ended before Run returns.
func (c *Chat) Run(ctx context.Context, sessionID string) error {
	id, outcome, err := c.Sessions.Start(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer func() {
		_ = c.Sessions.End(context.WithoutCancel(ctx), id)
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintf(c.Out, ">>> Session '%s' started. Type :help for commands.\n", id)
	if err := c.Renderer.RenderOutcome(outcome); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(c.Out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.Out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.Out)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		done, err := c.handle(ctx, id, line)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// handle executes one command line. It reports whether the chat is over.
func (c *Chat) handle(ctx context.Context, id, line string) (bool, error) {
	switch {
	case line == "":
		return false, nil
	case line == ":quit" || line == ":q":
		fmt.Fprintf(c.Out, ">>> Session '%s' ended.\n", id)
		return true, nil
	case line == ":help":
		fmt.Fprint(c.Out, chatHelp)
		return false, nil
	case line == ":functions":
		tools, err := c.Sessions.Tools(id)
		if err != nil {
			return false, c.Renderer.RenderFailure(err)
		}
		for _, t := range tools {
			fmt.Fprintf(c.Out, "  %s\n", t.Name)
		}
		return false, nil
	case line == ":context":
		snap, err := c.Sessions.Get(ctx, id)
		if err != nil {
			return false, c.Renderer.RenderFailure(err)
		}
		data, err := json.MarshalIndent(snap.Facts, "", "  ")
		if err != nil {
			return false, err
		}
		fmt.Fprintf(c.Out, "%s\n", data)
		return false, nil
	case strings.HasPrefix(line, "say "):
		msg := domain.Message{Role: domain.RoleUser, Content: strings.TrimSpace(strings.TrimPrefix(line, "say "))}
		if err := c.Sessions.Record(ctx, id, msg); err != nil {
			return false, c.Renderer.RenderFailure(err)
		}
		return false, nil
	}

	name, args, err := ParseCall(line)
	if err != nil {
		fmt.Fprintf(c.Out, ">>> %v\n", err)
		return false, nil
	}
	outcome, err := c.Sessions.Invoke(ctx, id, name, args)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return true, nil
		}
		return false, c.Renderer.RenderFailure(err)
	}
	if err := c.Renderer.RenderOutcome(outcome); err != nil {
		return false, err
	}
	if outcome.Ended {
		fmt.Fprintf(c.Out, ">>> Session '%s' finished.\n", id)
		return true, nil
	}
	return false, nil
}

// ParseCall splits "name {json}" into a function name and its arguments.
// A missing argument object means no arguments.
func ParseCall(line string) (string, map[string]any, error) {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	if name == "" {
		return "", nil, errors.New("missing function name")
	}
	args := map[string]any{}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return name, args, nil
	}
	if err := json.Unmarshal([]byte(rest), &args); err != nil {
		return "", nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return name, args, nil
}
