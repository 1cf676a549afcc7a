// Package translator holds the remote translation engines. Every engine maps
// its failures onto ErrTransient, ErrPermanent or ErrQuotaExceeded so callers
// can decide with errors.Is.
package translator

import (
	"context"
	"errors"
)

// Failure classes. Engines wrap them with fmt.Errorf("...: %w", ErrX).
var (
	// ErrTransient marks failures worth retrying: rate limits, timeouts, 5xx.
	ErrTransient = errors.New("transient translation failure")

	// ErrPermanent marks failures that will not succeed on retry: bad input,
	// unsupported language, authentication.
	ErrPermanent = errors.New("permanent translation failure")

	// ErrQuotaExceeded marks the remote side refusing because its own
	// character allowance is used up.
	ErrQuotaExceeded = errors.New("translation provider quota exceeded")
)

// Translator turns one piece of text into the target language.
type Translator interface {
	Translate(ctx context.Context, text string, targetLang string) (string, error)
}

// Func adapts a plain function to Translator.
type Func func(ctx context.Context, text string, targetLang string) (string, error)

func (f Func) Translate(ctx context.Context, text string, targetLang string) (string, error) {
	return f(ctx, text, targetLang)
}

// IsRetryable reports whether err is a transient failure.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrTransient)
}
