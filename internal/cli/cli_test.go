package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"transcribe/internal/consent"
	"transcribe/internal/speech"
)

// scriptEngine replays notifications; hang makes it wait for cancellation.
type scriptEngine struct {
	name   string
	script []speech.Notification
	hang   bool
	closed bool
}

func (e *scriptEngine) Name() string { return e.name }

func (e *scriptEngine) Recognizer(string) (speech.Recognizer, error) { return e, nil }

func (e *scriptEngine) IsAvailable() bool { return true }

func (e *scriptEngine) Start(ctx context.Context, _ speech.Request, handler func(speech.Notification)) error {
	go func() {
		if e.hang {
			<-ctx.Done()
			return
		}
		for _, n := range e.script {
			handler(n)
		}
	}()
	return nil
}

func (e *scriptEngine) Close() error {
	e.closed = true
	return nil
}

func engines(eng *scriptEngine) Engines {
	return Engines{
		"fake": func(Options) (speech.Engine, error) { return eng, nil },
		"broken": func(Options) (speech.Engine, error) {
			return nil, errors.New("load model: no such file")
		},
	}
}

func hello() *scriptEngine {
	return &scriptEngine{name: "fake", script: []speech.Notification{
		{Text: "hello"},
		{Text: "hello world", Final: true},
	}}
}

type result struct {
	code   int
	stdout string
	stderr string
}

func run(t *testing.T, eng Engines, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	base := []string{"--env", filepath.Join(t.TempDir(), "none.env")}
	code := Run(context.Background(), append(base, args...), &stdout, &stderr, eng)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func audioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func consentFile(t *testing.T, decisions map[string]consent.Decision) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "consent.json")
	if decisions != nil {
		if err := consent.NewJSONStore(path).Save(consent.Record{Engines: decisions}); err != nil {
			t.Fatalf("save consent: %v", err)
		}
	}
	return path
}

func assertFailure(t *testing.T, r result, code int, msg string) {
	t.Helper()
	if r.code != code {
		t.Fatalf("exit = %d, want %d (stderr %q)", r.code, code, r.stderr)
	}
	if r.stdout != "" {
		t.Fatalf("stdout = %q, want empty", r.stdout)
	}
	if strings.Count(r.stderr, "\n") != 1 || !strings.HasPrefix(r.stderr, "error: ") {
		t.Fatalf("stderr = %q, want one error line", r.stderr)
	}
	if !strings.Contains(r.stderr, msg) {
		t.Fatalf("stderr = %q, want it to mention %q", r.stderr, msg)
	}
}

func TestRunSuccess(t *testing.T) {
	eng := hello()
	r := run(t, engines(eng), "-E", "fake", "-y", "--consent-file", consentFile(t, nil), audioFile(t))

	if r.code != 0 {
		t.Fatalf("exit = %d, stderr = %q", r.code, r.stderr)
	}
	if r.stdout != "hello world\n" {
		t.Fatalf("stdout = %q, want hello world", r.stdout)
	}
	if r.stderr != "" {
		t.Fatalf("stderr = %q, want empty", r.stderr)
	}
	if !eng.closed {
		t.Fatal("engine was not closed")
	}
}

func TestRunIsRepeatable(t *testing.T) {
	path := audioFile(t)
	consentPath := consentFile(t, map[string]consent.Decision{"fake": consent.Granted})

	first := run(t, engines(hello()), "-E", "fake", "--consent-file", consentPath, path)
	second := run(t, engines(hello()), "-E", "fake", "--consent-file", consentPath, path)
	if first != second {
		t.Fatalf("runs differ: %+v vs %+v", first, second)
	}
}

func TestRunAssumeYesStoresConsent(t *testing.T) {
	path := consentFile(t, nil)
	if r := run(t, engines(hello()), "-E", "fake", "-y", "--consent-file", path, audioFile(t)); r.code != 0 {
		t.Fatalf("exit = %d, stderr = %q", r.code, r.stderr)
	}

	rec, err := consent.NewJSONStore(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rec.Engines["fake"] != consent.Granted {
		t.Fatalf("consent = %v, want granted", rec.Engines)
	}
}

func TestRunNoArguments(t *testing.T) {
	r := run(t, engines(hello()))
	assertFailure(t, r, 1, "usage")
}

func TestRunTooManyArguments(t *testing.T) {
	r := run(t, engines(hello()), "-E", "fake", "a.wav", "b.wav")
	assertFailure(t, r, 1, "usage")
}

func TestRunFileNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.wav")
	r := run(t, engines(hello()), "-E", "fake", "-y", "--consent-file", consentFile(t, nil), missing)
	assertFailure(t, r, 1, "file not found")
}

func TestRunDenied(t *testing.T) {
	for _, d := range []consent.Decision{consent.Refused, consent.Restricted} {
		eng := hello()
		path := consentFile(t, map[string]consent.Decision{"fake": d})
		r := run(t, engines(eng), "-E", "fake", "-y", "--consent-file", path, audioFile(t))
		assertFailure(t, r, 2, "consent file")
		if strings.Contains(r.stderr, "--assume-yes") {
			t.Fatalf("stderr = %q, --assume-yes cannot lift a stored decision", r.stderr)
		}
	}
}

func TestRunEngineInitFailure(t *testing.T) {
	r := run(t, engines(hello()), "-E", "broken", "-y", "--consent-file", consentFile(t, nil), audioFile(t))
	assertFailure(t, r, 3, "load model: no such file")
}

func TestRunChecksBeforeBuildingEngine(t *testing.T) {
	built := 0
	eng := Engines{"broken": func(Options) (speech.Engine, error) {
		built++
		return nil, errors.New("load model: no such file")
	}}

	missing := filepath.Join(t.TempDir(), "missing.wav")
	r := run(t, eng, "-E", "broken", "-y", "--consent-file", consentFile(t, nil), missing)
	assertFailure(t, r, 1, "file not found")

	refused := consentFile(t, map[string]consent.Decision{"broken": consent.Refused})
	r = run(t, eng, "-E", "broken", "--consent-file", refused, audioFile(t))
	assertFailure(t, r, 2, "not authorized")

	if built != 0 {
		t.Fatalf("engine built %d times before the path and consent checks passed", built)
	}
}

func TestRunRecognitionError(t *testing.T) {
	eng := &scriptEngine{name: "fake", script: []speech.Notification{
		{Text: "par"},
		{Err: errors.New("audio is\nunreadable")},
	}}
	r := run(t, engines(eng), "-E", "fake", "-y", "--consent-file", consentFile(t, nil), audioFile(t))
	assertFailure(t, r, 4, "audio is unreadable")
}

func TestRunTimeout(t *testing.T) {
	eng := &scriptEngine{name: "fake", hang: true}
	start := time.Now()
	r := run(t, engines(eng), "-E", "fake", "-y", "-t", "50ms", "--consent-file", consentFile(t, nil), audioFile(t))
	assertFailure(t, r, 5, "timed out")
	if time.Since(start) < 50*time.Millisecond {
		t.Fatal("timed out before the deadline")
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := map[string][]string{
		"unknown engine": {"-E", "nope", "a.wav"},
		"unknown flag":   {"--nope", "a.wav"},
		"bad timeout":    {"-t", "soon", "a.wav"},
		"zero timeout":   {"-t", "0s", "a.wav"},
		"bad log level":  {"-l", "loud", "a.wav"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			assertFailure(t, run(t, engines(hello()), args...), 1, "usage")
		})
	}
}

func TestRunHelp(t *testing.T) {
	r := run(t, engines(hello()), "--help")
	if r.code != 0 {
		t.Fatalf("exit = %d", r.code)
	}
	if !strings.Contains(r.stdout, "usage: transcribe") || !strings.Contains(r.stdout, "broken, fake") {
		t.Fatalf("stdout = %q", r.stdout)
	}
}

func TestRunEnvFile(t *testing.T) {
	for _, key := range []string{"TRANSCRIBE_ENGINE", "TRANSCRIBE_TIMEOUT", "TRANSCRIBE_ASSUME_YES"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	dir := t.TempDir()
	env := filepath.Join(dir, "test.env")
	data := "TRANSCRIBE_ENGINE=fake\nTRANSCRIBE_TIMEOUT=2\nTRANSCRIBE_ASSUME_YES=true\n"
	if err := os.WriteFile(env, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"--env", env, "--consent-file", consentFile(t, nil), audioFile(t)},
		&stdout, &stderr, engines(hello()))
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, stderr.String())
	}
	if stdout.String() != "hello world\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestRunFlagOverridesEnv(t *testing.T) {
	t.Setenv("TRANSCRIBE_ENGINE", "broken")
	r := run(t, engines(hello()), "-E", "fake", "-y", "--consent-file", consentFile(t, nil), audioFile(t))
	if r.code != 0 {
		t.Fatalf("exit = %d, stderr = %q", r.code, r.stderr)
	}
}

func TestParseTimeout(t *testing.T) {
	tests := map[string]time.Duration{
		"30":    30 * time.Second,
		"1m30s": 90 * time.Second,
		"250ms": 250 * time.Millisecond,
	}
	for in, want := range tests {
		got, err := parseTimeout(in)
		if err != nil || got != want {
			t.Errorf("parseTimeout(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := parseTimeout("soon"); err == nil {
		t.Error("expected error for invalid duration")
	}
}
