package coordinator

import "errors"

var (
	ErrUsage         = errors.New("usage: transcribe <audio-file>")
	ErrFileNotFound  = errors.New("file not found")
	ErrNotAuthorized = errors.New("speech recognition not authorized (a stored refusal is changed in the consent file, see --consent-file)")
	ErrUnavailable   = errors.New("speech recognizer not available")
	ErrRecognition   = errors.New("recognition failed")
	ErrTimeout       = errors.New("transcription timed out")
)

const (
	ExitOK           = 0
	ExitUsage        = 1
	ExitUnauthorized = 2
	ExitUnavailable  = 3
	ExitRecognition  = 4
	ExitTimeout      = 5
)

// ExitCode maps an error returned by Transcribe to the process status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage), errors.Is(err, ErrFileNotFound):
		return ExitUsage
	case errors.Is(err, ErrNotAuthorized):
		return ExitUnauthorized
	case errors.Is(err, ErrUnavailable):
		return ExitUnavailable
	case errors.Is(err, ErrTimeout):
		return ExitTimeout
	default:
		return ExitRecognition
	}
}
