package teleop

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gwillem/keyteleop/pkg/link"
	"github.com/gwillem/keyteleop/pkg/robot"
)

// Session is the open messaging link plus everything needed to turn an
// intent into a message on it. It lives from startup to shutdown.
type Session struct {
	link        link.Link
	topic       string
	linearScale float64
	turnScale   float64
	stamped     bool
	frameID     string
	now         func() time.Time
	log         zerolog.Logger
}

// SessionConfig holds configuration for a session.
type SessionConfig struct {
	Topic       string
	LinearScale float64
	TurnScale   float64
	Stamped     bool
	FrameID     string
	Logger      zerolog.Logger
}

// OpenSession advertises the command topic on l and returns the session.
func OpenSession(ctx context.Context, l link.Link, cfg SessionConfig) (*Session, error) {
	s := &Session{
		link:        l,
		topic:       cfg.Topic,
		linearScale: cfg.LinearScale,
		turnScale:   cfg.TurnScale,
		stamped:     cfg.Stamped,
		frameID:     cfg.FrameID,
		now:         time.Now,
		log:         cfg.Logger,
	}
	if err := l.Advertise(ctx, s.topic, s.messageType()); err != nil {
		return nil, fmt.Errorf("advertise %s: %w", s.topic, err)
	}
	s.log.Info().Str("topic", s.topic).Str("type", s.messageType()).Msg("session open")
	return s, nil
}

func (s *Session) messageType() string {
	if s.stamped {
		return robot.TwistStampedType
	}
	return robot.TwistType
}

// TurnScale returns the angular magnitude used by Map.
func (s *Session) TurnScale() float64 {
	return s.turnScale
}

// Link returns the underlying messaging link.
func (s *Session) Link() link.Link {
	return s.link
}

// Twist scales an intent into a velocity message. Angular speed was
// already scaled by Map.
func (s *Session) Twist(i Intent) robot.Twist {
	return robot.Twist{
		Linear: robot.Vector3{
			X: i.X * s.linearScale,
			Y: i.Y * s.linearScale,
			Z: i.Z * s.linearScale,
		},
		Angular: robot.Vector3{Z: i.Yaw},
	}
}

// Send publishes tw once. Stamped sessions wrap it in a header carrying the
// current time, taken immediately before the publish.
func (s *Session) Send(ctx context.Context, tw robot.Twist) error {
	var msg any = tw
	if s.stamped {
		msg = robot.TwistStamped{
			Header: robot.Header{
				Stamp:   robot.NewTime(s.now()),
				FrameID: s.frameID,
			},
			Twist: tw,
		}
	}
	if err := s.link.Publish(ctx, s.topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", s.topic, err)
	}
	return nil
}

// Stop publishes the zero twist.
func (s *Session) Stop(ctx context.Context) error {
	return s.Send(ctx, robot.Twist{})
}

// Shutdown tells the link to wind down; the keep-alive returns afterwards.
func (s *Session) Shutdown() error {
	s.log.Debug().Msg("session shutdown")
	return s.link.Shutdown()
}
