// Package coordinator runs a single recognition request against a speech
// engine and waits, with a deadline, for its terminal outcome.
package coordinator

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"sync"
	"time"

	"transcribe/internal/speech"
)

const DefaultTimeout = 30 * time.Second

type Config struct {
	Auth    speech.Authorizer
	Engine  speech.Engine
	Locale  string
	Timeout time.Duration
}

type Coordinator struct {
	auth    speech.Authorizer
	engine  speech.Engine
	locale  string
	timeout time.Duration
}

func New(cfg Config) *Coordinator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Coordinator{
		auth:    cfg.Auth,
		engine:  cfg.Engine,
		locale:  cfg.Locale,
		timeout: cfg.Timeout,
	}
}

type outcome struct {
	text string
	err  error
}

// Transcribe returns the final transcript of the audio file at path.
// Errors wrap one of the package's sentinel errors.
func (c *Coordinator) Transcribe(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", ErrUsage
	}
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	if err := c.authorize(ctx); err != nil {
		return "", err
	}

	rec, err := c.engine.Recognizer(c.locale)
	if err != nil {
		log.Debug("Recognizer unavailable", "engine", c.engine.Name(), "err", err)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !rec.IsAvailable() {
		return "", ErrUnavailable
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome, 1)
	var once sync.Once
	resolve := func(o outcome) {
		once.Do(func() { done <- o })
	}

	req := speech.Request{Path: path, Locale: c.locale}
	log.Debug("Recognition started", "engine", c.engine.Name(), "path", path, "locale", c.locale)

	err = rec.Start(reqCtx, req, func(n speech.Notification) {
		switch {
		case n.Err != nil:
			resolve(outcome{err: fmt.Errorf("%w: %v", ErrRecognition, n.Err)})
		case n.Final:
			resolve(outcome{text: n.Text})
		}
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognition, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case o := <-done:
		log.Debug("Recognition finished", "engine", c.engine.Name(), "err", o.err)
		return o.text, o.err
	case <-timer.C:
		log.Debug("Recognition deadline exceeded", "engine", c.engine.Name(), "timeout", c.timeout)
		return "", ErrTimeout
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrRecognition, ctx.Err())
	}
}

func (c *Coordinator) authorize(ctx context.Context) error {
	status := c.auth.AuthorizationStatus()
	log.Debug("Authorization status", "engine", c.engine.Name(), "status", status)

	switch status {
	case speech.Authorized:
		return nil
	case speech.NotDetermined:
		if got := c.auth.RequestAuthorization(ctx); got != speech.Authorized {
			log.Debug("Authorization refused", "status", got)
			return ErrNotAuthorized
		}
		return nil
	default:
		return ErrNotAuthorized
	}
}
