// Package pacer gates retries of a host operation behind exponential
// backoff. lib/pacer itself has no implementation in the retrieved
// rclone tree (only its tests survived retrieval) so this is rebuilt
// from its call-site shape in backend/ftp/ftp.go — minSleep/maxSleep/
// decayConstant constants, and `pacer.Call(func() (retry bool, err error))`
// — on top of github.com/jpillora/backoff, which rclone's own go.mod
// already pulls in for this exact purpose.
package pacer

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
)

// Pacer retries operations against a single host with exponential
// backoff so that a run of failures backs off instead of hammering the
// remote. Call takes no lock: concurrent Calls on one Pacer run side by
// side and share its backoff state.
type Pacer struct {
	b         *backoff.Backoff
	maxTries  int
	sleep     func(time.Duration)
}

// Option configures a Pacer at construction time.
type Option func(*Pacer)

// WithMaxTries caps the number of attempts Call will make (0 = unlimited,
// matching a host with max_errors == 0 meaning "never auto-pause").
func WithMaxTries(n int) Option {
	return func(p *Pacer) { p.maxTries = n }
}

// New builds a Pacer with the given min/max sleep and exponential decay,
// mirroring backend/ftp/ftp.go's minSleep=10ms, maxSleep=2s, decay=2.
func New(minSleep, maxSleep time.Duration, decayConstant float64, opts ...Option) *Pacer {
	p := &Pacer{
		b: &backoff.Backoff{
			Min:    minSleep,
			Max:    maxSleep,
			Factor: decayConstant,
			Jitter: true,
		},
		sleep: time.Sleep,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Call runs fn, retrying while fn reports retry == true, sleeping with
// exponential backoff between attempts, until fn succeeds, gives up
// (retry == false), the context is cancelled, or maxTries is reached.
func (p *Pacer) Call(ctx context.Context, fn func() (retry bool, err error)) error {
	attempt := 0
	for {
		retry, err := fn()
		attempt++
		if !retry || err == nil {
			p.b.Reset()
			return err
		}
		if p.maxTries > 0 && attempt >= p.maxTries {
			return err
		}
		d := p.b.Duration()
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset clears accumulated backoff state, e.g. after a successful
// connection following a string of failures (spec §4.4: "clear the
// host error-counter" on Success).
func (p *Pacer) Reset() {
	p.b.Reset()
}
