// Package command runs an external recognizer binary, whisper-cli by
// default, and reads the transcript from its standard output.
package command

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	log "log/slog"
	"os/exec"
	"strings"

	"transcribe/internal/speech"
)

const (
	Name = "command"

	DefaultBin = "whisper-cli"
)

// maxLine bounds a single line of recognizer output.
var maxLine = 1 << 20

// DefaultArgs is the whisper-cli invocation: no timestamps, text on stdout.
var DefaultArgs = []string{"-m", "{model}", "-nt", "-l", "{lang}", "-f", "{file}"}

type Config struct {
	Bin   string
	Args  []string // {file}, {lang} and {model} are substituted
	Model string
}

type Engine struct {
	cfg Config
}

func New(cfg Config) (*Engine, error) {
	if cfg.Bin == "" {
		cfg.Bin = DefaultBin
	}
	if len(cfg.Args) == 0 {
		cfg.Args = DefaultArgs
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Recognizer(locale string) (speech.Recognizer, error) {
	path, err := exec.LookPath(e.cfg.Bin)
	if err != nil {
		return nil, err
	}
	return &recognizer{cfg: e.cfg, path: path, lang: speech.Language(locale)}, nil
}

type recognizer struct {
	cfg  Config
	path string
	lang string
}

func (r *recognizer) IsAvailable() bool { return r.path != "" }

func (r *recognizer) args(file string) []string {
	repl := strings.NewReplacer("{file}", file, "{lang}", r.lang, "{model}", r.cfg.Model)
	out := make([]string, len(r.cfg.Args))
	for i, a := range r.cfg.Args {
		out[i] = repl.Replace(a)
	}
	return out
}

func (r *recognizer) Start(ctx context.Context, req speech.Request, handler func(speech.Notification)) error {
	cmd := exec.CommandContext(ctx, r.path, r.args(req.Path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	log.Debug("Started recognizer command", "cmd", cmd.String())

	go func() {
		var lines []string
		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			lines = append(lines, line)
			if req.ReportPartials {
				handler(speech.Notification{Text: line})
			}
		}

		if err := sc.Err(); err != nil {
			cmd.Process.Kill()
			cmd.Wait()
			handler(speech.Notification{Err: fmt.Errorf("read output: %w", err)})
			return
		}

		if err := cmd.Wait(); err != nil {
			handler(speech.Notification{Err: commandError(err, stderr.String())})
			return
		}
		handler(speech.Notification{Text: speech.JoinText(lines), Final: true})
	}()
	return nil
}

// commandError prefers the last line the command wrote to stderr.
func commandError(err error, stderr string) error {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if last := strings.TrimSpace(lines[len(lines)-1]); last != "" {
		return fmt.Errorf("%s (%w)", last, err)
	}
	return err
}
