package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"golang.org/x/term"
)

// Renderer prints conversation outcomes as markdown.
type Renderer struct {
	out io.Writer
	md  *glamour.TermRenderer
}

// NewRenderer returns a renderer writing to out. Terminal output detects a
// light or dark background; anything else is rendered without colors.
func NewRenderer(out io.Writer) (*Renderer, error) {
	style := glamour.WithStandardStyle("notty")
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		style = glamour.WithAutoStyle()
	}
	md, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(100))
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &Renderer{out: out, md: md}, nil
}

// Markdown renders an outcome as a markdown document.
func Markdown(o *domain.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", o.NodeID)
	for _, m := range o.Messages {
		if m.Role == domain.RoleSystem {
			fmt.Fprintf(&b, "> %s\n\n", m.Content)
			continue
		}
		fmt.Fprintf(&b, "%s\n\n", m.Content)
	}
	if o.Ended {
		b.WriteString("*Conversation ended.*\n")
		return b.String()
	}
	if len(o.Functions) > 0 {
		b.WriteString("**Functions**\n\n")
		for _, fn := range o.Functions {
			if fn.Description != "" {
				fmt.Fprintf(&b, "- `%s`: %s\n", fn.Name, fn.Description)
			} else {
				fmt.Fprintf(&b, "- `%s`\n", fn.Name)
			}
		}
	}
	return b.String()
}

// RenderOutcome prints the node that became current and its legal functions.
func (r *Renderer) RenderOutcome(o *domain.Outcome) error {
	if o == nil {
		return nil
	}
	return r.render(Markdown(o))
}

// RenderFailure prints a failed invocation.
func (r *Renderer) RenderFailure(err error) error {
	f := domain.Classify(err)
	return r.render(fmt.Sprintf("**%s**: %s\n", f.Kind, f.Message))
}

func (r *Renderer) render(markdown string) error {
	s, err := r.md.Render(markdown)
	if err != nil {
		// Fall back to raw markdown.
		s = markdown
	}
	_, err = io.WriteString(r.out, s)
	return err
}
