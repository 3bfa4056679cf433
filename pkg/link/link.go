// Package link carries velocity commands from the controller to the robot.
//
// Two transports are provided: a rosbridge v2 websocket client and a
// line-delimited JSON protocol over a serial port. Both are safe for
// concurrent use by one publishing goroutine and one Spin goroutine.
package link

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrClosed is returned when publishing on a link that has been shut down.
var ErrClosed = errors.New("link: closed")

// Link is a messaging session with the robot.
type Link interface {
	// Advertise announces that msgType messages will be published on topic.
	Advertise(ctx context.Context, topic, msgType string) error

	// Publish sends one message. Each call is written as a single frame.
	Publish(ctx context.Context, topic string, msg any) error

	// Spin services the link in the background (heartbeats, incoming
	// frames) until Shutdown is called or the connection fails. It returns
	// nil after a Shutdown.
	Spin(ctx context.Context) error

	// Shutdown unadvertises topics and makes Spin return.
	Shutdown() error

	// Close releases the underlying connection.
	Close() error
}

// Options are shared by both transports.
type Options struct {
	// KeepAlive is the heartbeat interval used by Spin.
	KeepAlive time.Duration

	// WriteTimeout bounds a single write when the context has no deadline.
	WriteTimeout time.Duration

	Logger zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.KeepAlive <= 0 {
		o.KeepAlive = 5 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = time.Second
	}
	return o
}

// frame is a rosbridge v2 operation. The serial protocol reuses it.
type frame struct {
	Op    string `json:"op"`
	ID    string `json:"id,omitempty"`
	Topic string `json:"topic,omitempty"`
	Type  string `json:"type,omitempty"`
	Msg   any    `json:"msg,omitempty"`
	Level string `json:"level,omitempty"`
}

func newID(op, topic string) string {
	return op + ":" + topic + ":" + uuid.NewString()
}

func writeDeadline(ctx context.Context, fallback time.Duration) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(fallback)
}

// logStatus forwards a status frame received from the robot side.
func logStatus(log zerolog.Logger, f frame) {
	msg, _ := f.Msg.(string)
	switch f.Level {
	case "error":
		log.Error().Str("op", f.Op).Msg(msg)
	case "warning":
		log.Warn().Str("op", f.Op).Msg(msg)
	default:
		log.Debug().Str("op", f.Op).Str("level", f.Level).Msg(msg)
	}
}
