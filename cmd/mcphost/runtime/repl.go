package runtime

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zhiyu220/MCP-demo/internal/config"
	"github.com/zhiyu220/MCP-demo/internal/logger"
	"github.com/zhiyu220/MCP-demo/internal/orchestrator"
)

const maxInputLine = 1 << 20

type REPL struct {
	components   *RuntimeComponents
	turner       turner
	scanner      *bufio.Scanner
	out          io.Writer
	exitKeywords []string
}

type turner interface {
	Turn(ctx context.Context, input string) (*orchestrator.Result, error)
}

func NewREPL(components *RuntimeComponents, in io.Reader, out io.Writer) *REPL {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), maxInputLine)

	keywords := components.Config.Orchestrator.ExitKeywords
	if len(keywords) == 0 {
		keywords = config.DefaultExitKeywords
	}

	return &REPL{
		components:   components,
		turner:       components.Orchestrator,
		scanner:      scanner,
		out:          out,
		exitKeywords: keywords,
	}
}

// Start reads lines until an exit keyword, EOF or cancellation. A fatal
// turn error ends the loop and is returned; a round-limit error is printed
// and the loop continues.
func (r *REPL) Start() error {
	ctx := r.components.Ctx
	if r.components.Resumed {
		fmt.Fprintf(r.out, "Resumed session %s (%d messages)\n", r.components.SessionID, r.components.State.Len())
	} else {
		fmt.Fprintf(r.out, "Session %s\n", r.components.SessionID)
	}
	fmt.Fprintf(r.out, "Type %s to quit, /help for commands.\n", strings.Join(r.exitKeywords, " or "))

	for {
		if ctx.Err() != nil {
			return nil
		}

		fmt.Fprint(r.out, "\n> ")
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(r.out)
			return nil
		}

		text := strings.TrimSpace(r.scanner.Text())
		if text == "" {
			continue
		}
		if r.isExit(text) {
			return nil
		}

		if r.components.Commands != nil && r.components.Commands.CanHandle(text) {
			if err := r.components.Commands.Execute(ctx, text); err != nil {
				return err
			}
			continue
		}

		if err := r.turn(ctx, text); err != nil {
			return err
		}
	}
}

func (r *REPL) turn(ctx context.Context, text string) error {
	res, err := r.turner.Turn(ctx, text)
	if err == nil {
		fmt.Fprintf(r.out, "\n%s\n", res.Answer)
		return nil
	}

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	if !orchestrator.IsFatal(err) {
		logger.From(ctx).Warn("Turn aborted", "error", err)
		fmt.Fprintf(r.out, "\n%v\n", err)
		return nil
	}
	return err
}

func (r *REPL) isExit(text string) bool {
	for _, kw := range r.exitKeywords {
		if strings.EqualFold(text, strings.TrimSpace(kw)) {
			return true
		}
	}
	return false
}
