// Package openai recognizes speech with the OpenAI audio transcription API.
package openai

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"transcribe/internal/proxy"
	"transcribe/internal/speech"
)

const (
	Name = "openai"

	DefaultModel       = "whisper-1"
	defaultHTTPTimeout = 120 * time.Second
)

type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	ProxyAddr   string
	HTTPTimeout time.Duration
}

type Engine struct {
	cfg    Config
	client openai.Client
}

func New(cfg Config) (*Engine, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}

	httpClient, err := proxy.NewHTTPClient(cfg.ProxyAddr, cfg.HTTPTimeout)
	if err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Engine{cfg: cfg, client: openai.NewClient(opts...)}, nil
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Recognizer(locale string) (speech.Recognizer, error) {
	if e.cfg.APIKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}
	return &recognizer{engine: e, lang: speech.Language(locale)}, nil
}

type recognizer struct {
	engine *Engine
	lang   string
}

func (r *recognizer) IsAvailable() bool { return r.engine.cfg.APIKey != "" }

func (r *recognizer) Start(ctx context.Context, req speech.Request, handler func(speech.Notification)) error {
	f, err := os.Open(req.Path)
	if err != nil {
		return err
	}

	go func() {
		defer f.Close()

		text, err := r.transcribe(ctx, f)
		if err != nil {
			handler(speech.Notification{Err: err})
			return
		}
		handler(speech.Notification{Text: text, Final: true})
	}()
	return nil
}

func (r *recognizer) transcribe(ctx context.Context, f *os.File) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(r.engine.cfg.Model),
	}
	if r.lang != "auto" {
		params.Language = openai.String(r.lang)
	}

	log.Debug("Calling OpenAI transcription", "model", r.engine.cfg.Model, "language", r.lang)

	resp, err := r.engine.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("audio transcription: %w", err)
	}

	return speech.JoinText([]string{resp.Text}), nil
}
