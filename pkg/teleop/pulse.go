package teleop

import (
	"context"
	"errors"
	"time"
)

// Pulser applies an intent for a fixed dwell and then stops the robot.
type Pulser struct {
	session *Session
	dwell   time.Duration
	sleep   func(time.Duration)
}

// NewPulser creates a pulser sending on s.
func NewPulser(s *Session, dwell time.Duration) *Pulser {
	return &Pulser{session: s, dwell: dwell, sleep: time.Sleep}
}

// Pulse sends the scaled intent, waits for the dwell, and sends a stop.
// The stop is attempted even when the first send fails; both errors are
// returned. The dwell cannot be interrupted.
func (p *Pulser) Pulse(ctx context.Context, i Intent) error {
	moveErr := p.session.Send(ctx, p.session.Twist(i))
	if moveErr == nil {
		p.sleep(p.dwell)
	}
	stopErr := p.session.Stop(ctx)
	return errors.Join(moveErr, stopErr)
}
