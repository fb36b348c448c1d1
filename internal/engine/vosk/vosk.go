// Package vosk streams audio to a vosk-server over a websocket and
// collects its utterance results.
package vosk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"sync/atomic"
	"time"

	"transcribe/internal/speech"
	"transcribe/pkg/audioconv"
)

const (
	Name = "vosk"

	DefaultURL       = "ws://localhost:2700"
	defaultChunkSize = 8000
	dialTimeout      = 10 * time.Second
)

type Config struct {
	URL       string
	ChunkSize int // bytes of S16LE audio per frame
}

type Engine struct {
	cfg Config
}

func New(cfg Config) (*Engine, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Name() string { return Name }

// Recognizer connects to the server. The language is fixed by the model
// the server was started with, so locale is not checked.
func (e *Engine) Recognizer(string) (speech.Recognizer, error) {
	web, err := dial(e.cfg.URL, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", e.cfg.URL, err)
	}
	return &recognizer{cfg: e.cfg, web: web}, nil
}

type recognizer struct {
	cfg Config
	web *webSocket
	eof atomic.Bool
}

func (r *recognizer) IsAvailable() bool { return r.web != nil }

type configMessage struct {
	Config struct {
		SampleRate int `json:"sample_rate"`
	} `json:"config"`
}

type eofMessage struct {
	EOF int `json:"eof"`
}

// result is either a partial hypothesis or a finished utterance.
type result struct {
	Partial *string `json:"partial"`
	Text    *string `json:"text"`
}

func (r *recognizer) Start(ctx context.Context, req speech.Request, handler func(speech.Notification)) error {
	go func() {
		defer r.web.close()
		stop := context.AfterFunc(ctx, func() { r.web.close() })
		defer stop()

		text, err := r.run(ctx, req, handler)
		if err != nil {
			handler(speech.Notification{Err: err})
			return
		}
		handler(speech.Notification{Text: text, Final: true})
	}()
	return nil
}

func (r *recognizer) run(ctx context.Context, req speech.Request, handler func(speech.Notification)) (string, error) {
	pcm, err := audioconv.ConvertFileToPCM16k(ctx, req.Path, audioconv.Options{})
	if err != nil {
		return "", err
	}

	sent := make(chan error, 1)
	go func() { sent <- r.send(audioconv.EncodeS16LE(pcm)) }()

	text, err := r.receive(req, handler)
	if err != nil {
		r.web.close()
		<-sent
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	r.web.close()
	if err := <-sent; err != nil {
		return "", fmt.Errorf("send audio: %w", err)
	}
	return text, nil
}

func (r *recognizer) send(audio []byte) error {
	var cfg configMessage
	cfg.Config.SampleRate = audioconv.SampleRate
	if err := r.web.writeJSON(cfg); err != nil {
		return err
	}

	for off := 0; off < len(audio); off += r.cfg.ChunkSize {
		end := min(off+r.cfg.ChunkSize, len(audio))
		if err := r.web.writeAudio(audio[off:end]); err != nil {
			return err
		}
	}

	// the server may close as soon as it reads eof
	r.eof.Store(true)
	return r.web.writeJSON(eofMessage{EOF: 1})
}

// receive reads until the server closes the stream after the final result.
func (r *recognizer) receive(req speech.Request, handler func(speech.Notification)) (string, error) {
	var utterances []string
	for {
		in := r.web.read()
		switch in.kind {
		case connClosed:
			if !r.eof.Load() {
				return "", errors.New("server closed the stream before the end of audio")
			}
			log.Debug("Vosk stream closed", "utterances", len(utterances))
			return speech.JoinText(utterances), nil

		case readFailure:
			return "", fmt.Errorf("read: %w", in.err)

		case readOK:
			var res result
			if err := json.Unmarshal(in.msg, &res); err != nil {
				return "", fmt.Errorf("parse result %q: %w", in.msg, err)
			}
			switch {
			case res.Text != nil:
				if *res.Text == "" {
					continue
				}
				utterances = append(utterances, *res.Text)
				if req.ReportPartials {
					handler(speech.Notification{Text: speech.JoinText(utterances)})
				}
			case res.Partial != nil && *res.Partial != "" && req.ReportPartials:
				handler(speech.Notification{Text: *res.Partial})
			}
		}
	}
}
