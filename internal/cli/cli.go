// Package cli wires configuration, logging and the selected engine
// around a single transcription and turns its outcome into process
// output and an exit status.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"slices"
	"strings"

	"github.com/lmittmann/tint"
	flag "github.com/spf13/pflag"

	"transcribe/internal/consent"
	"transcribe/internal/coordinator"
	"transcribe/internal/speech"
)

// Factory builds an engine from the resolved options.
type Factory func(Options) (speech.Engine, error)

type Engines map[string]Factory

func (e Engines) names() []string {
	names := make([]string, 0, len(e))
	for n := range e {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// Run executes one invocation and returns the exit status. stdout only
// ever receives the transcript; stderr receives one diagnostic line
// plus any logs enabled with --log.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer, engines Engines) int {
	var o Options
	fs := newFlagSet(&o)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stdout, "usage: transcribe [flags] <audio-file>\n\nengines: %s\n\n%s", strings.Join(engines.names(), ", "), fs.FlagUsages())
			return coordinator.ExitOK
		}
		return fail(stderr, fmt.Errorf("%w: %v", coordinator.ErrUsage, err))
	}

	if err := loadEnv(fs, &o); err != nil {
		return fail(stderr, fmt.Errorf("%w: %v", coordinator.ErrUsage, err))
	}

	if err := setupLogging(o.LogLevel, stderr); err != nil {
		return fail(stderr, fmt.Errorf("%w: %v", coordinator.ErrUsage, err))
	}

	if fs.NArg() != 1 {
		return fail(stderr, coordinator.ErrUsage)
	}
	if o.Timeout <= 0 {
		return fail(stderr, fmt.Errorf("%w: timeout must be positive", coordinator.ErrUsage))
	}

	factory, ok := engines[o.Engine]
	if !ok {
		return fail(stderr, fmt.Errorf("%w: unknown engine %q (available: %s)",
			coordinator.ErrUsage, o.Engine, strings.Join(engines.names(), ", ")))
	}

	log.Debug("Booting up", "engine", o.Engine, "locale", o.Locale, "timeout", o.Timeout)

	engine := &lazyEngine{name: o.Engine, factory: factory, opts: o}
	defer engine.Close()

	var prompter consent.Prompter = consent.TTYPrompter{}
	if o.AssumeYes {
		prompter = consent.AssumeYes{}
	}
	gate := consent.NewGate(o.Engine, consent.NewJSONStore(o.ConsentFile), prompter)

	c := coordinator.New(coordinator.Config{
		Auth:    gate,
		Engine:  engine,
		Locale:  o.Locale,
		Timeout: o.Timeout,
	})

	text, err := c.Transcribe(ctx, fs.Arg(0))
	if err != nil {
		return fail(stderr, err)
	}

	fmt.Fprintln(stdout, oneLine(text))
	return coordinator.ExitOK
}

func setupLogging(level string, w io.Writer) error {
	if level == "quiet" || level == "" {
		log.SetDefault(log.New(log.DiscardHandler))
		return nil
	}
	lvl, ok := logLevelMap[level]
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}
	log.SetDefault(log.New(tint.NewHandler(w, &tint.Options{
		Level: lvl,
	})))
	return nil
}

func fail(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "error: %s\n", oneLine(err.Error()))
	return coordinator.ExitCode(err)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
