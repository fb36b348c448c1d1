package consent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

var ErrNoTerminal = errors.New("no controlling terminal")

type Prompter interface {
	Ask(ctx context.Context, question string) (bool, error)
}

// TTYPrompter asks on the controlling terminal, never on stdout/stderr.
type TTYPrompter struct {
	Path string
}

func (p TTYPrompter) Ask(ctx context.Context, question string) (bool, error) {
	path := p.Path
	if path == "" {
		path = "/dev/tty"
	}

	tty, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNoTerminal, err)
	}
	defer tty.Close()

	if !isatty.IsTerminal(tty.Fd()) {
		return false, ErrNoTerminal
	}

	return ask(ctx, tty, question)
}

// AssumeYes grants every request without asking.
type AssumeYes struct{}

func (AssumeYes) Ask(context.Context, string) (bool, error) { return true, nil }

func ask(ctx context.Context, rw io.ReadWriter, question string) (bool, error) {
	if _, err := fmt.Fprint(rw, question); err != nil {
		return false, err
	}

	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(rw).ReadString('\n')
		answer <- line
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
