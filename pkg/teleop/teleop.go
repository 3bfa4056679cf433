// Package teleop provides keyboard teleoperation for mobile robots.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Phase is the lifecycle state of a Controller.
type Phase int

const (
	Idle Phase = iota
	Running
	Stopping
	Terminated
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// KeyReader blocks until one key is available.
type KeyReader interface {
	ReadKey() (byte, error)
}

// Controller manages the teleoperation control loop.
type Controller struct {
	session   *Session
	keys      KeyReader
	pulser    *Pulser
	out       io.Writer
	log       zerolog.Logger
	keepAlive *KeepAlive

	mu    sync.RWMutex
	phase Phase
}

// Config holds configuration for the controller.
type Config struct {
	Session *Session
	Keys    KeyReader
	Dwell   time.Duration
	Out     io.Writer // status lines, one per recognized key
	Logger  zerolog.Logger
}

// NewController creates a new teleoperation controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Session == nil {
		return nil, errors.New("controller needs a session")
	}
	if cfg.Keys == nil {
		return nil, errors.New("controller needs a key reader")
	}
	if cfg.Dwell <= 0 {
		return nil, fmt.Errorf("dwell must be positive, got %v", cfg.Dwell)
	}
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}

	return &Controller{
		session: cfg.Session,
		keys:    cfg.Keys,
		pulser:  NewPulser(cfg.Session, cfg.Dwell),
		out:     cfg.Out,
		log:     cfg.Logger,
	}, nil
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
	c.log.Debug().Stringer("phase", p).Msg("controller phase")
}

// Run starts the keep-alive and processes keys until Ctrl-C or an error.
// Whatever ends the loop, Run sends one final stop, shuts the session down
// and joins the keep-alive before returning. It returns nil when the loop
// ended on Ctrl-C and no cleanup step failed.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != Idle {
		c.mu.Unlock()
		return fmt.Errorf("already %s", c.phase)
	}
	c.phase = Running
	c.mu.Unlock()

	c.keepAlive = StartKeepAlive(ctx, c.session.Link(), c.log)
	c.log.Info().Msg("teleoperation started")

	runErr := c.loop(ctx)
	if runErr != nil {
		fmt.Fprintf(c.out, "Error: %v\n", runErr)
		c.log.Error().Err(runErr).Msg("control loop failed")
	}

	c.setPhase(Stopping)
	stopErr := c.shutdown()
	c.setPhase(Terminated)

	return errors.Join(runErr, stopErr)
}

func (c *Controller) loop(ctx context.Context) error {
	for {
		b, err := c.keys.ReadKey()
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		key := Key(b)
		if key.IsInterrupt() {
			c.log.Debug().Msg("interrupt key")
			return nil
		}

		if msg := key.Describe(); msg != "" {
			fmt.Fprintln(c.out, msg)
		}
		if err := c.pulser.Pulse(ctx, Map(key, c.session.TurnScale())); err != nil {
			return fmt.Errorf("pulse %q: %w", rune(key), err)
		}
	}
}

func (c *Controller) shutdown() error {
	ctx := context.Background()
	var errs []error

	if err := c.session.Stop(ctx); err != nil {
		c.log.Warn().Err(err).Msg("failed to send final stop")
		errs = append(errs, fmt.Errorf("final stop: %w", err))
	}
	if err := c.session.Shutdown(); err != nil {
		c.log.Warn().Err(err).Msg("session shutdown")
		errs = append(errs, fmt.Errorf("session shutdown: %w", err))
	}
	if err := c.keepAlive.Wait(); err != nil {
		errs = append(errs, fmt.Errorf("keep-alive: %w", err))
	}

	c.log.Info().Msg("teleoperation stopped")
	return errors.Join(errs...)
}
