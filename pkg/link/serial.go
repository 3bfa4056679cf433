package link

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// Serial speaks line-delimited JSON to a microcontroller driving the base.
// Every frame is one JSON object terminated by '\n'; the frames use the
// rosbridge op names so firmware can share a parser with a bridge.
type Serial struct {
	port io.ReadWriteCloser
	opts Options
	log  zerolog.Logger

	writeMu sync.Mutex

	mu         sync.Mutex
	advertised map[string]struct{}
	closed     bool
	done       chan struct{}

	shutdownOnce sync.Once
	shutdownErr  error

	closeOnce sync.Once
	closeErr  error
}

// OpenSerial opens a serial device such as /dev/ttyUSB0 at the given baud
// rate (8N1).
func OpenSerial(name string, baud int, opts Options) (*Serial, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	return newSerial(port, opts), nil
}

func newSerial(port io.ReadWriteCloser, opts Options) *Serial {
	opts = opts.withDefaults()
	return &Serial{
		port:       port,
		opts:       opts,
		log:        opts.Logger.With().Str("link", "serial").Logger(),
		advertised: make(map[string]struct{}),
		done:       make(chan struct{}),
	}
}

// Advertise implements Link.
func (s *Serial) Advertise(ctx context.Context, topic, msgType string) error {
	if err := s.write(frame{Op: "advertise", Topic: topic, Type: msgType}); err != nil {
		return err
	}
	s.mu.Lock()
	s.advertised[topic] = struct{}{}
	s.mu.Unlock()
	return nil
}

// Publish implements Link. Serial writes are not interruptible, so ctx is
// only checked before the write starts.
func (s *Serial) Publish(ctx context.Context, topic string, msg any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(frame{Op: "publish", Topic: topic, Msg: msg})
}

func (s *Serial) write(f frame) error {
	if s.isClosed() {
		return ErrClosed
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.Op, err)
	}
	data = append(data, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.port.Write(data); err != nil {
		return fmt.Errorf("serial %s: %w", f.Op, err)
	}
	return nil
}

// Spin writes a ping line every KeepAlive interval and logs the lines the
// firmware sends back. Spin owns the read side of the port: when it returns
// the port is closed and the reader has exited.
func (s *Serial) Spin(ctx context.Context) error {
	readErr := make(chan error, 1)
	go func() { readErr <- s.readLoop() }()

	ticker := time.NewTicker(s.opts.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return s.stopReader(readErr, nil)
		case <-ctx.Done():
			return s.stopReader(readErr, ctx.Err())
		case err := <-readErr:
			if s.isClosed() || err == nil {
				return nil
			}
			return fmt.Errorf("serial read: %w", err)
		case <-ticker.C:
			if err := s.write(frame{Op: "ping"}); err != nil && !errors.Is(err, ErrClosed) {
				return s.stopReader(readErr, err)
			}
		}
	}
}

// stopReader closes the port to unblock readLoop and waits for it to return.
func (s *Serial) stopReader(readErr <-chan error, err error) error {
	s.Close()
	<-readErr
	return err
}

func (s *Serial) readLoop() error {
	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var f frame
		if err := json.Unmarshal(line, &f); err != nil {
			s.log.Debug().Str("line", string(line)).Msg("firmware output")
			continue
		}
		switch f.Op {
		case "status":
			logStatus(s.log, f)
		case "pong":
		default:
			s.log.Debug().Str("op", f.Op).Msg("ignored frame")
		}
	}
	return scanner.Err()
}

// Shutdown unadvertises every topic and stops Spin.
func (s *Serial) Shutdown() error {
	s.shutdownOnce.Do(func() { s.shutdownErr = s.shutdown() })
	return s.shutdownErr
}

func (s *Serial) shutdown() error {
	s.mu.Lock()
	topics := make([]string, 0, len(s.advertised))
	for topic := range s.advertised {
		topics = append(topics, topic)
	}
	s.mu.Unlock()

	var errs []error
	for _, topic := range topics {
		if err := s.write(frame{Op: "unadvertise", Topic: topic}); err != nil {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	close(s.done)
	return errors.Join(errs...)
}

// Close implements Link. It is safe to call after Spin has closed the port.
func (s *Serial) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.port.Close() })
	return s.closeErr
}

func (s *Serial) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
