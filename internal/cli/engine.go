package cli

import (
	"io"
	log "log/slog"

	"transcribe/internal/speech"
)

// lazyEngine defers building the engine until a recognizer is asked for,
// so a missing file or a refused consent never loads a model.
type lazyEngine struct {
	name    string
	factory Factory
	opts    Options

	engine speech.Engine
}

func (l *lazyEngine) Name() string { return l.name }

func (l *lazyEngine) Recognizer(locale string) (speech.Recognizer, error) {
	if l.engine == nil {
		e, err := l.factory(l.opts)
		if err != nil {
			log.Debug("Failed to init engine", "engine", l.name, "err", err)
			return nil, err
		}
		l.engine = e
	}
	return l.engine.Recognizer(locale)
}

func (l *lazyEngine) Close() error {
	if c, ok := l.engine.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
