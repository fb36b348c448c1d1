package command

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"transcribe/internal/speech"
)

func run(t *testing.T, cfg Config, req speech.Request) []speech.Notification {
	t.Helper()
	e, _ := New(cfg)
	rec, err := e.Recognizer("en-US")
	if err != nil {
		t.Fatalf("Recognizer() error = %v", err)
	}
	if !rec.IsAvailable() {
		t.Fatal("recognizer not available")
	}

	got := make(chan speech.Notification, 16)
	if err := rec.Start(context.Background(), req, func(n speech.Notification) { got <- n }); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var all []speech.Notification
	for {
		select {
		case n := <-got:
			all = append(all, n)
			if n.Final || n.Err != nil {
				return all
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("no terminal notification, got %+v", all)
		}
	}
}

func audioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, []byte("hello\n\nworld\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestCommandFinal(t *testing.T) {
	all := run(t, Config{Bin: "cat", Args: []string{"{file}"}}, speech.Request{Path: audioFile(t), ReportPartials: true})

	want := []speech.Notification{
		{Text: "hello"},
		{Text: "world"},
		{Text: "hello world", Final: true},
	}
	if !reflect.DeepEqual(all, want) {
		t.Fatalf("notifications = %+v, want %+v", all, want)
	}
}

func TestCommandSuppressesPartials(t *testing.T) {
	all := run(t, Config{Bin: "cat", Args: []string{"{file}"}}, speech.Request{Path: audioFile(t)})
	if len(all) != 1 || all[0].Text != "hello world" {
		t.Fatalf("notifications = %+v", all)
	}
}

func TestCommandFailure(t *testing.T) {
	cfg := Config{Bin: "sh", Args: []string{"-c", "echo partial; echo loading model >&2; echo bad audio >&2; exit 3"}}
	all := run(t, cfg, speech.Request{Path: audioFile(t)})

	last := all[len(all)-1]
	if last.Err == nil {
		t.Fatalf("notification = %+v, want error", last)
	}
	if !strings.HasPrefix(last.Err.Error(), "bad audio") {
		t.Fatalf("error = %q, want last stderr line", last.Err)
	}
}

func TestCommandLineTooLong(t *testing.T) {
	defer func(n int) { maxLine = n }(maxLine)
	maxLine = 1024

	cfg := Config{Bin: "sh", Args: []string{"-c", `head -c 4096 /dev/zero | tr '\0' a; echo`}}
	all := run(t, cfg, speech.Request{Path: audioFile(t)})

	last := all[len(all)-1]
	if last.Err == nil || last.Final {
		t.Fatalf("notification = %+v, want error", last)
	}
}

func TestArgsSubstitution(t *testing.T) {
	e, _ := New(Config{Bin: "sh", Model: "/models/base.bin"})
	rec, err := e.Recognizer("de-DE")
	if err != nil {
		t.Fatalf("Recognizer() error = %v", err)
	}
	got := rec.(*recognizer).args("/tmp/a.wav")
	want := []string{"-m", "/models/base.bin", "-nt", "-l", "de", "-f", "/tmp/a.wav"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %q, want %q", got, want)
	}
}

func TestRecognizerMissingBinary(t *testing.T) {
	e, _ := New(Config{Bin: "definitely-not-a-recognizer-binary"})
	if _, err := e.Recognizer("en-US"); err == nil {
		t.Fatal("expected lookup error")
	}
}
