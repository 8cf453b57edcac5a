// Package console runs an intake session over line-based text streams.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"intake-chatbot/internal/core"
	"intake-chatbot/pkg"
)

const (
	botPrefix  = "Chatbot: "
	userPrompt = "You: "
)

type line struct {
	text string
	err  error
}

// Console implements core.Dialog on top of a reader and a writer.  Lines
// are read on a separate goroutine so a blocked read can be abandoned when
// the session context is cancelled.
type Console struct {
	in    io.Reader
	out   io.Writer
	lines chan line
	once  sync.Once
}

// New creates a console reading from r and writing to w.
func New(r io.Reader, w io.Writer) *Console {
	return &Console{in: r, out: w, lines: make(chan line)}
}

func (c *Console) start() {
	c.once.Do(func() {
		go func() {
			scanner := bufio.NewScanner(c.in)
			for scanner.Scan() {
				c.lines <- line{text: scanner.Text()}
			}
			err := scanner.Err()
			if err == nil {
				err = io.EOF
			}
			c.lines <- line{err: err}
			close(c.lines)
		}()
	})
}

// Say prints a bot line.
func (c *Console) Say(text string) {
	fmt.Fprintf(c.out, "%s%s\n", botPrefix, text)
}

// Ask prints a question and waits for the answer.
func (c *Console) Ask(ctx context.Context, question string) (string, error) {
	return c.read(ctx, botPrefix+question)
}

// ReadLine prompts for the next user utterance.
func (c *Console) ReadLine(ctx context.Context) (string, error) {
	return c.read(ctx, userPrompt)
}

func (c *Console) read(ctx context.Context, prompt string) (string, error) {
	c.start()
	fmt.Fprint(c.out, prompt)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

// Run greets the user and feeds every line to the agent until the user
// leaves, input ends or ctx is cancelled.  Only the user's exit command or
// the end of input stops the loop; turn failures are handled by the agent.
func Run(ctx context.Context, agent *core.Agent, c *Console, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	st := pkg.NewConversationState()
	agent.Greet()

	for {
		text, err := c.ReadLine(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				logger.Warn("input read failed", zap.Error(err))
			}
			fmt.Fprintln(c.out)
			c.Say(core.SessionEnded)
			return
		}

		switch agent.Handle(ctx, st, text) {
		case core.End:
			return
		case core.Interrupted:
			fmt.Fprintln(c.out)
			c.Say(core.SessionEnded)
			return
		}
	}
}
