package link

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Rosbridge is a rosbridge v2 websocket client.
type Rosbridge struct {
	conn *websocket.Conn
	opts Options
	log  zerolog.Logger

	writeMu sync.Mutex // gorilla allows one concurrent writer

	mu         sync.Mutex
	advertised map[string]struct{}
	closed     bool
	done       chan struct{}

	shutdownOnce sync.Once
	shutdownErr  error
}

// DialRosbridge connects to a rosbridge server, e.g. ws://robot:9090.
func DialRosbridge(ctx context.Context, url string, opts Options) (*Rosbridge, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial rosbridge %s: %w", url, err)
	}
	opts = opts.withDefaults()
	return &Rosbridge{
		conn:       conn,
		opts:       opts,
		log:        opts.Logger.With().Str("link", "rosbridge").Logger(),
		advertised: make(map[string]struct{}),
		done:       make(chan struct{}),
	}, nil
}

// Advertise implements Link.
func (r *Rosbridge) Advertise(ctx context.Context, topic, msgType string) error {
	err := r.write(ctx, frame{
		Op:    "advertise",
		ID:    newID("advertise", topic),
		Topic: topic,
		Type:  msgType,
	})
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.advertised[topic] = struct{}{}
	r.mu.Unlock()
	r.log.Debug().Str("topic", topic).Str("type", msgType).Msg("advertised")
	return nil
}

// Publish implements Link.
func (r *Rosbridge) Publish(ctx context.Context, topic string, msg any) error {
	return r.write(ctx, frame{
		Op:    "publish",
		ID:    newID("publish", topic),
		Topic: topic,
		Msg:   msg,
	})
}

func (r *Rosbridge) write(ctx context.Context, f frame) error {
	if r.isClosed() {
		return ErrClosed
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.Op, err)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := r.conn.SetWriteDeadline(writeDeadline(ctx, r.opts.WriteTimeout)); err != nil {
		return err
	}
	if err := r.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("rosbridge %s: %w", f.Op, err)
	}
	return nil
}

// Spin pings the server every KeepAlive interval and dispatches incoming
// frames to the logger. A server that stops answering pings for three
// intervals is treated as gone.
func (r *Rosbridge) Spin(ctx context.Context) error {
	pongWait := 3 * r.opts.KeepAlive
	r.conn.SetReadDeadline(time.Now().Add(pongWait))
	r.conn.SetPongHandler(func(string) error {
		return r.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	readErr := make(chan error, 1)
	go func() { readErr <- r.readLoop() }()

	ticker := time.NewTicker(r.opts.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			r.conn.Close()
			<-readErr
			return nil
		case <-ctx.Done():
			r.conn.Close()
			<-readErr
			return ctx.Err()
		case err := <-readErr:
			if r.isClosed() {
				return nil
			}
			r.conn.Close()
			return fmt.Errorf("rosbridge read: %w", err)
		case <-ticker.C:
			err := r.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(r.opts.WriteTimeout))
			if err != nil && !r.isClosed() {
				r.conn.Close()
				<-readErr
				return fmt.Errorf("rosbridge ping: %w", err)
			}
		}
	}
}

func (r *Rosbridge) readLoop() error {
	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			return err
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			r.log.Warn().Err(err).Msg("malformed frame")
			continue
		}
		switch f.Op {
		case "status":
			logStatus(r.log, f)
		default:
			r.log.Debug().Str("op", f.Op).Str("topic", f.Topic).Msg("ignored frame")
		}
	}
}

// Shutdown unadvertises every topic, sends a close frame and stops Spin.
// Calling it more than once is a no-op.
func (r *Rosbridge) Shutdown() error {
	r.shutdownOnce.Do(func() { r.shutdownErr = r.shutdown() })
	return r.shutdownErr
}

func (r *Rosbridge) shutdown() error {
	r.mu.Lock()
	topics := make([]string, 0, len(r.advertised))
	for topic := range r.advertised {
		topics = append(topics, topic)
	}
	r.mu.Unlock()

	var errs []error
	for _, topic := range topics {
		f := frame{Op: "unadvertise", ID: newID("unadvertise", topic), Topic: topic}
		if err := r.write(context.Background(), f); err != nil {
			errs = append(errs, err)
		}
	}

	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := r.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(r.opts.WriteTimeout))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		errs = append(errs, fmt.Errorf("rosbridge close: %w", err))
	}
	close(r.done)
	return errors.Join(errs...)
}

// Close implements Link.
func (r *Rosbridge) Close() error {
	return r.conn.Close()
}

func (r *Rosbridge) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
