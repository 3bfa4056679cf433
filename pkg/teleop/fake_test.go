package teleop

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gwillem/keyteleop/pkg/robot"
)

type published struct {
	topic string
	msg   any
	at    time.Time
}

// fakeLink records everything the controller does with a link.
type fakeLink struct {
	mu         sync.Mutex
	advertised map[string]string
	sent       []published
	events     []string
	failOn     map[int]error // publish index -> error
	spinErr    error

	done     chan struct{}
	doneOnce sync.Once
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		advertised: make(map[string]string),
		failOn:     make(map[int]error),
		done:       make(chan struct{}),
	}
}

func (f *fakeLink) event(e string) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
}

func (f *fakeLink) Advertise(ctx context.Context, topic, msgType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advertised[topic] = msgType
	return nil
}

func (f *fakeLink) Publish(ctx context.Context, topic string, msg any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.sent)
	f.sent = append(f.sent, published{topic: topic, msg: msg, at: time.Now()})
	f.events = append(f.events, "publish")
	return f.failOn[idx]
}

func (f *fakeLink) Spin(ctx context.Context) error {
	f.event("spin")
	<-f.done
	f.event("spin-exit")
	return f.spinErr
}

func (f *fakeLink) Shutdown() error {
	f.event("shutdown")
	f.doneOnce.Do(func() { close(f.done) })
	return nil
}

func (f *fakeLink) Close() error { return nil }

func (f *fakeLink) published() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.sent...)
}

func (f *fakeLink) eventLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

// twistOf extracts the twist from a plain or stamped message.
func twistOf(t *testing.T, msg any) robot.Twist {
	t.Helper()
	switch m := msg.(type) {
	case robot.Twist:
		return m
	case robot.TwistStamped:
		return m.Twist
	default:
		t.Fatalf("unexpected message type %T", msg)
		return robot.Twist{}
	}
}

// scriptedKeys replays keys, then returns err (io.EOF when nil).
type scriptedKeys struct {
	keys []byte
	err  error
}

func (s *scriptedKeys) ReadKey() (byte, error) {
	if len(s.keys) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		return 0, io.EOF
	}
	k := s.keys[0]
	s.keys = s.keys[1:]
	return k, nil
}

func openTestSession(t *testing.T, l *fakeLink, cfg SessionConfig) *Session {
	t.Helper()
	if cfg.Topic == "" {
		cfg.Topic = "/cmd_vel"
	}
	if cfg.LinearScale == 0 {
		cfg.LinearScale = 0.3
	}
	if cfg.TurnScale == 0 {
		cfg.TurnScale = 1.0
	}
	cfg.Logger = zerolog.Nop()
	s, err := OpenSession(context.Background(), l, cfg)
	if err != nil {
		t.Fatalf("OpenSession() error: %v", err)
	}
	return s
}
