// Package consent keeps track of whether the user allowed an engine to
// process their audio, and asks them when nobody has decided yet.
package consent

import (
	"context"
	"fmt"
	log "log/slog"

	"transcribe/internal/speech"
)

// Gate is the speech.Authorizer backed by a consent Store.
type Gate struct {
	engine   string
	store    Store
	prompter Prompter
}

func NewGate(engine string, store Store, prompter Prompter) *Gate {
	return &Gate{engine: engine, store: store, prompter: prompter}
}

func (g *Gate) AuthorizationStatus() speech.AuthStatus {
	rec, err := g.store.Load()
	if err != nil {
		log.Warn("Consent store unreadable", "err", err)
		return speech.Restricted
	}

	switch rec.Engines[g.engine] {
	case Granted:
		return speech.Authorized
	case Refused:
		return speech.Denied
	case Restricted:
		return speech.Restricted
	default:
		return speech.NotDetermined
	}
}

// RequestAuthorization prompts once and stores the answer. Prompt
// failures leave the record untouched and count as a denial.
func (g *Gate) RequestAuthorization(ctx context.Context) speech.AuthStatus {
	q := fmt.Sprintf("Allow %q speech recognition to process your audio? [y/N] ", g.engine)

	ok, err := g.prompter.Ask(ctx, q)
	if err != nil {
		log.Debug("Consent prompt failed", "engine", g.engine, "err", err)
		return speech.Denied
	}

	decision, status := Refused, speech.Denied
	if ok {
		decision, status = Granted, speech.Authorized
	}

	rec, err := g.store.Load()
	if err != nil {
		log.Warn("Consent store unreadable", "err", err)
		return status
	}
	rec.Engines[g.engine] = decision
	if err := g.store.Save(rec); err != nil {
		log.Warn("Failed to save consent", "err", err)
	}

	return status
}
