package browser

import (
	"context"
	"time"

	"github.com/avolkovs/applybot/internal/common"
)

// Pacer produces the randomized human-like delays required between driver
// actions: a settle delay after state-changing actions and a per-character
// delay while typing. Zero ranges collapse to no delay, which tests rely on.
type Pacer struct {
	settleMin time.Duration
	settleMax time.Duration
	typeMin   time.Duration
	typeMax   time.Duration
}

// NewPacer builds a Pacer from the two delay ranges.
func NewPacer(settleMin, settleMax, typeMin, typeMax time.Duration) *Pacer {
	return &Pacer{settleMin: settleMin, settleMax: settleMax, typeMin: typeMin, typeMax: typeMax}
}

// Settle sleeps for a random duration in the settle range, or until ctx is
// done, whichever comes first.
func (p *Pacer) Settle(ctx context.Context) {
	sleep(ctx, common.RandDuration(p.settleMin, p.settleMax))
}

// KeyDelay sleeps for a random duration in the typing range.
func (p *Pacer) KeyDelay(ctx context.Context) {
	sleep(ctx, common.RandDuration(p.typeMin, p.typeMax))
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
