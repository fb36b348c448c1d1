// Package whisper recognizes speech locally with a whisper.cpp model.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"transcribe/internal/speech"
	"transcribe/pkg/audioconv"
)

const Name = "whisper"

type Config struct {
	ModelPath     string
	Threads       int    // <=0 => NumCPU()
	BeamSize      int    // 0 = greedy
	InitialPrompt string // optional prefix prompt
}

type Engine struct {
	cfg   Config
	model whisper.Model
}

// New loads the model once; it is shared by every recognizer of the engine.
func New(cfg Config) (*Engine, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	log.Debug("Loaded whisper model", "path", cfg.ModelPath, "multilingual", m.IsMultilingual())
	return &Engine{cfg: cfg, model: m}, nil
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Close() error {
	if e.model == nil {
		return nil
	}
	return e.model.Close()
}

func (e *Engine) Recognizer(locale string) (speech.Recognizer, error) {
	lang := speech.Language(locale)
	if lang != "auto" && lang != "en" && !e.model.IsMultilingual() {
		return nil, fmt.Errorf("model %s is english-only, cannot serve %q", e.cfg.ModelPath, locale)
	}
	return &recognizer{engine: e, lang: lang}, nil
}

type recognizer struct {
	engine *Engine
	lang   string
}

func (r *recognizer) IsAvailable() bool { return r.engine.model != nil }

func (r *recognizer) Start(ctx context.Context, req speech.Request, handler func(speech.Notification)) error {
	wctx, err := r.engine.model.NewContext()
	if err != nil {
		return fmt.Errorf("new context: %w", err)
	}
	if err := r.configure(wctx); err != nil {
		return err
	}

	go func() {
		text, err := r.run(ctx, wctx, req, handler)
		if err != nil {
			handler(speech.Notification{Err: err})
			return
		}
		handler(speech.Notification{Text: text, Final: true})
	}()
	return nil
}

func (r *recognizer) configure(wctx whisper.Context) error {
	cfg := r.engine.cfg
	if err := wctx.SetLanguage(r.lang); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	wctx.SetTranslate(false)

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if cfg.BeamSize > 0 {
		wctx.SetBeamSize(cfg.BeamSize)
	}
	if cfg.InitialPrompt != "" {
		wctx.SetInitialPrompt(cfg.InitialPrompt)
	}
	return nil
}

func (r *recognizer) run(ctx context.Context, wctx whisper.Context, req speech.Request, handler func(speech.Notification)) (string, error) {
	pcm, err := audioconv.ConvertFileToPCM16k(ctx, req.Path, audioconv.Options{})
	if err != nil {
		return "", err
	}
	if len(pcm) == 0 {
		return "", errors.New("no audio samples in file")
	}

	var onSegment whisper.SegmentCallback
	if req.ReportPartials {
		onSegment = func(s whisper.Segment) {
			handler(speech.Notification{Text: strings.TrimSpace(s.Text)})
		}
	}

	if err := wctx.Process(pcm, nil, onSegment, nil); err != nil {
		return "", fmt.Errorf("process: %w", err)
	}

	var parts []string
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("next segment: %w", err)
		}
		parts = append(parts, s.Text)
	}

	log.Debug("Whisper finished", "segments", len(parts), "language", wctx.DetectedLanguage())
	return speech.JoinText(parts), nil
}
