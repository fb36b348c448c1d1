// Package speech describes the recognition service the coordinator talks
// to. Engines implement it; the coordinator never looks past it.
package speech

import (
	"context"
	"strings"
)

type AuthStatus int

const (
	NotDetermined AuthStatus = iota
	Denied
	Restricted
	Authorized
)

func (s AuthStatus) String() string {
	switch s {
	case NotDetermined:
		return "not-determined"
	case Denied:
		return "denied"
	case Restricted:
		return "restricted"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Authorizer reports and requests permission to use an engine.
type Authorizer interface {
	AuthorizationStatus() AuthStatus
	// RequestAuthorization asks the user once and returns the resulting status.
	RequestAuthorization(ctx context.Context) AuthStatus
}

type Request struct {
	Path           string
	Locale         string
	ReportPartials bool
}

// Notification is one delivery from a running recognition. An engine
// sends any number of non-final notifications followed by exactly one
// terminal one: Final with text, or Err set.
type Notification struct {
	Text  string
	Final bool
	Err   error
}

type Engine interface {
	Name() string
	// Recognizer returns a recognizer for locale or an error when the
	// engine cannot serve it.
	Recognizer(locale string) (Recognizer, error)
}

type Recognizer interface {
	IsAvailable() bool
	// Start submits req and returns without waiting for the result.
	// handler is called from an engine goroutine.
	Start(ctx context.Context, req Request, handler func(Notification)) error
}

// Language maps a locale such as "en-US" or "pt_BR" to its base
// language code. An empty locale yields "auto".
func Language(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return "auto"
	}
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	return strings.ToLower(locale)
}

// JoinText joins transcript pieces with single spaces and collapses
// line breaks, so the result always fits on one line.
func JoinText(parts []string) string {
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
