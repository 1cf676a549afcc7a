package quota

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/MimeLyc/sentence-sub-translator/internal/subtitle"
)

// CountCharacters sums the rune count of every cue's text.
func CountCharacters(cues []subtitle.Cue) int64 {
	var total int64
	for _, cue := range cues {
		total += int64(utf8.RuneCountInString(cue.Text))
	}
	return total
}

// Gate is the pre-flight check in front of the translation pipeline.
type Gate struct {
	store Store
}

func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

// Reserve counts the characters of cues and reserves them for userID.
// Refusals wrap ErrQuotaExceeded.
func (g *Gate) Reserve(ctx context.Context, userID string, cues []subtitle.Cue) (Reservation, error) {
	total := CountCharacters(cues)
	r, err := g.store.CheckAndReserve(ctx, userID, total)
	if err != nil {
		if isRefusal(err) {
			return Reservation{}, fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
		}
		return Reservation{}, fmt.Errorf("reserve %d characters: %w", total, err)
	}
	return r, nil
}

func (g *Gate) Commit(ctx context.Context, r Reservation) error {
	return g.store.Commit(ctx, r)
}

func (g *Gate) Rollback(ctx context.Context, r Reservation) error {
	return g.store.Rollback(ctx, r)
}

func (g *Gate) Usage(ctx context.Context, userID string) (Usage, error) {
	return g.store.Usage(ctx, userID)
}

func isRefusal(err error) bool {
	return errors.Is(err, ErrNoActiveSubscription) || errors.Is(err, ErrLimitExceeded)
}
