package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/hsaleh/chequeflow/internal/model"
	"github.com/hsaleh/chequeflow/internal/orchestrator"
)

// Runner drives one conversational session from a terminal.
type Runner struct {
	orch   *orchestrator.Orchestrator
	in     *bufio.Reader
	out    io.Writer
	key    string
	active bool
}

// NewRunner creates an interactive session runner.
func NewRunner(orch *orchestrator.Orchestrator, in io.Reader, out io.Writer) *Runner {
	return &Runner{
		orch: orch,
		in:   bufio.NewReader(in),
		out:  out,
	}
}

// Run loops until the session commits, is cancelled, or input ends.
//
// Commands: /file <path> uploads an artifact, /confirm commits, /cancel
// aborts, /quit leaves without cancelling. Anything else is a text turn.
func (r *Runner) Run(ctx context.Context) error {
	result, err := r.orch.StartSession(ctx)
	if err != nil {
		return err
	}
	r.key = result.Session.Key
	r.active = true

	fmt.Fprintln(r.out, TitleStyle.Render("chequeflow session"))
	fmt.Fprintln(r.out, SubtleStyle.Render("session "+r.key))
	r.say(result.Message)

	for r.active {
		fmt.Fprint(r.out, PromptStyle.Render("> "))
		line, err := r.in.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.dispatch(ctx, line); err != nil {
			fmt.Fprintln(r.out, ErrorStyle.Render(err.Error()))
		}
	}
	return nil
}

func (r *Runner) dispatch(ctx context.Context, line string) error {
	switch {
	case line == "/quit":
		r.active = false
		return nil
	case line == "/cancel":
		result, err := r.orch.Cancel(ctx, r.key)
		if err != nil {
			return err
		}
		r.say(result.Message)
		r.active = false
		return nil
	case line == "/confirm":
		result, err := r.orch.Confirm(ctx, r.key, nil)
		if err != nil {
			return err
		}
		r.finish(result)
		return nil
	case strings.HasPrefix(line, "/file "):
		return r.upload(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/file ")))
	default:
		result, err := r.orch.HandleTurn(ctx, r.key, orchestrator.TurnInput{Text: line})
		if err != nil {
			return err
		}
		r.say(result.Message)
		return nil
	}
}

func (r *Runner) upload(ctx context.Context, path string) error {
	artifact, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	result, err := r.orch.HandleTurn(ctx, r.key, orchestrator.TurnInput{
		Artifact: artifact,
		MIMEType: mime.TypeByExtension(filepath.Ext(path)),
	})
	if err != nil {
		return err
	}
	r.say(result.Message)
	return nil
}

func (r *Runner) finish(result *orchestrator.TurnResult) {
	r.say(result.Message)
	if result.Committed != nil {
		fmt.Fprintln(r.out, SuccessStyle.Render(fmt.Sprintf(
			"transaction %s committed (%s, profit %s)",
			result.Committed.ID, result.Committed.Status,
			result.Committed.Profit.StringFixed(2))))
		r.active = false
		return
	}
	// Confirm returned a next-step prompt; keep the session going.
	if result.Session != nil && result.Session.State == model.StateCommitted {
		r.active = false
	}
}

func (r *Runner) say(message string) {
	fmt.Fprintln(r.out, AssistantStyle.Render(message))
}
