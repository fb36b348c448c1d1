package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"transcribe/internal/consent"
	"transcribe/internal/coordinator"
)

// Options is everything an engine factory may need. Flags win over the
// environment, which wins over defaults.
type Options struct {
	EnvFile  string
	LogLevel string
	Engine   string
	Locale   string
	Timeout  time.Duration

	ModelPath string
	Threads   int
	BeamSize  int
	Prompt    string

	Bin string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	ProxyAddr     string

	VoskURL string

	ConsentFile string
	AssumeYes   bool
}

func newFlagSet(o *Options) *flag.FlagSet {
	fs := flag.NewFlagSet("transcribe", flag.ContinueOnError)

	fs.StringVarP(&o.EnvFile, "env", "e", ".env", "Env file path")
	fs.StringVarP(&o.LogLevel, "log", "l", "quiet", "Log level (quiet, debug, info, warn, error)")
	fs.StringVarP(&o.Engine, "engine", "E", "whisper", "Recognition engine")
	fs.StringVarP(&o.Locale, "locale", "L", "en-US", "Speech locale")
	fs.DurationVarP(&o.Timeout, "timeout", "t", coordinator.DefaultTimeout, "Time to wait for the final result")

	fs.StringVarP(&o.ModelPath, "model", "m", "models/ggml-base.en.bin", "Whisper model path")
	fs.IntVar(&o.Threads, "threads", 0, "Whisper threads (0 = all CPUs)")
	fs.IntVar(&o.BeamSize, "beam-size", 0, "Whisper beam size (0 = greedy)")
	fs.StringVar(&o.Prompt, "prompt", "", "Whisper initial prompt")

	fs.StringVar(&o.Bin, "bin", "whisper-cli", "Recognizer binary for the command engine")

	fs.StringVar(&o.OpenAIModel, "openai-model", "whisper-1", "OpenAI transcription model")
	fs.StringVarP(&o.ProxyAddr, "proxy", "p", "", "SOCKS5 proxy address for OpenAI")

	fs.StringVar(&o.VoskURL, "vosk-url", "ws://localhost:2700", "vosk-server websocket URL")

	fs.StringVar(&o.ConsentFile, "consent-file", consent.DefaultPath(), "Consent record path")
	fs.BoolVarP(&o.AssumeYes, "assume-yes", "y", false, "Grant speech recognition consent without asking")

	fs.SortFlags = false
	return fs
}

// envBindings maps flag names to the environment variables that back them.
var envBindings = map[string]string{
	"log":          "TRANSCRIBE_LOG",
	"engine":       "TRANSCRIBE_ENGINE",
	"locale":       "TRANSCRIBE_LOCALE",
	"timeout":      "TRANSCRIBE_TIMEOUT",
	"model":        "WHISPER_MODEL",
	"bin":          "WHISPER_BIN",
	"openai-model": "OPENAI_TRANSCRIBE_MODEL",
	"proxy":        "SOCKS_PROXY",
	"vosk-url":     "VOSK_URL",
	"consent-file": "TRANSCRIBE_CONSENT_FILE",
	"assume-yes":   "TRANSCRIBE_ASSUME_YES",
}

// loadEnv reads the env file, if any, and fills in every option whose
// flag was not given on the command line.
func loadEnv(fs *flag.FlagSet, o *Options) error {
	_ = godotenv.Load(o.EnvFile)

	o.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	o.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")

	for name, key := range envBindings {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" || fs.Changed(name) {
			continue
		}
		if name == "timeout" {
			d, err := parseTimeout(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			o.Timeout = d
			continue
		}
		if err := fs.Set(name, v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// parseTimeout accepts a Go duration or a plain number of seconds.
func parseTimeout(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return time.Duration(secs) * time.Second, nil
}
