package link

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakePort connects a Serial to in-memory pipes: lines the link writes come
// out of sent, and anything written to firmware is read by the link.
type fakePort struct {
	toHost   *io.PipeReader
	firmware *io.PipeWriter
	fromHost *io.PipeWriter
	sent     *bufio.Scanner
	reading  atomic.Int32
}

func newFakePort() *fakePort {
	hostR, fwW := io.Pipe()
	fwR, hostW := io.Pipe()
	return &fakePort{
		toHost:   hostR,
		firmware: fwW,
		fromHost: hostW,
		sent:     bufio.NewScanner(fwR),
	}
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.reading.Add(1)
	defer p.reading.Add(-1)
	return p.toHost.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) { return p.fromHost.Write(b) }

func (p *fakePort) Close() error {
	p.toHost.Close()
	p.fromHost.Close()
	return nil
}

// next reads the next line the link wrote, in a goroutine so the pipe
// writer is never left blocked.
func (p *fakePort) next(t *testing.T) frame {
	t.Helper()
	line := make(chan string, 1)
	go func() {
		if p.sent.Scan() {
			line <- p.sent.Text()
		}
		close(line)
	}()
	select {
	case l, ok := <-line:
		if !ok {
			t.Fatal("port closed")
		}
		var f frame
		if err := json.Unmarshal([]byte(l), &f); err != nil {
			t.Fatalf("line %q is not a frame: %v", l, err)
		}
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for line")
	}
	return frame{}
}

func TestSerial_PublishWritesOneLinePerFrame(t *testing.T) {
	port := newFakePort()
	s := newSerial(port, Options{Logger: zerolog.Nop()})
	defer s.Close()
	ctx := context.Background()

	go s.Advertise(ctx, "cmd_vel", "geometry_msgs/msg/Twist")
	if f := port.next(t); f.Op != "advertise" || f.Type != "geometry_msgs/msg/Twist" {
		t.Errorf("advertise frame = %+v", f)
	}

	go s.Publish(ctx, "cmd_vel", twist{Linear: map[string]float64{"x": -0.3}})
	f := port.next(t)
	if f.Op != "publish" || f.Topic != "cmd_vel" {
		t.Fatalf("publish frame = %+v", f)
	}
	linear := f.Msg.(map[string]any)["linear"].(map[string]any)
	if linear["x"] != -0.3 {
		t.Errorf("linear.x = %v, want -0.3", linear["x"])
	}
}

func TestSerial_SpinSendsHeartbeats(t *testing.T) {
	port := newFakePort()
	var logs syncBuffer
	s := newSerial(port, Options{KeepAlive: 10 * time.Millisecond, Logger: zerolog.New(&logs)})
	defer s.Close()
	ctx := context.Background()

	spinErr := make(chan error, 1)
	go func() { spinErr <- s.Spin(ctx) }()

	for i := 0; i < 3; i++ {
		if f := port.next(t); f.Op != "ping" {
			t.Fatalf("heartbeat %d = %+v", i, f)
		}
	}

	go io.WriteString(port.firmware, "{\"op\":\"status\",\"level\":\"warning\",\"msg\":\"battery low\"}\n")
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(logs.String(), "battery low") {
		if time.Now().After(deadline) {
			t.Fatalf("status not logged: %q", logs.String())
		}
		// keep draining heartbeats so the writer never blocks
		port.next(t)
	}

	shutdownErr := make(chan error, 1)
	go func() { shutdownErr <- s.Shutdown() }()
	// drain until Spin has stopped
	go func() {
		for port.sent.Scan() {
		}
	}()
	if err := <-shutdownErr; err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	select {
	case err := <-spinErr:
		if err != nil {
			t.Errorf("Spin() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Spin() did not return")
	}

	if err := s.Publish(ctx, "cmd_vel", twist{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() after Shutdown = %v, want ErrClosed", err)
	}
}

func TestSerial_PublishHonoursCancelledContext(t *testing.T) {
	s := newSerial(newFakePort(), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Publish(ctx, "cmd_vel", twist{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Publish() = %v, want context.Canceled", err)
	}
}

func TestSerial_SpinJoinsReaderOnShutdown(t *testing.T) {
	port := newFakePort()
	s := newSerial(port, Options{KeepAlive: time.Hour, Logger: zerolog.Nop()})
	defer s.Close()

	spinErr := make(chan error, 1)
	go func() { spinErr <- s.Spin(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for port.reading.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("reader never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	select {
	case err := <-spinErr:
		if err != nil {
			t.Errorf("Spin() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Spin() did not return")
	}
	if n := port.reading.Load(); n != 0 {
		t.Errorf("%d reads still blocked after Spin returned", n)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() after Spin = %v", err)
	}
}

func TestSerial_SpinJoinsReaderOnCancel(t *testing.T) {
	port := newFakePort()
	s := newSerial(port, Options{KeepAlive: time.Hour, Logger: zerolog.Nop()})
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	spinErr := make(chan error, 1)
	go func() { spinErr <- s.Spin(ctx) }()
	cancel()

	select {
	case err := <-spinErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Spin() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Spin() did not return")
	}
	if n := port.reading.Load(); n != 0 {
		t.Errorf("%d reads still blocked after Spin returned", n)
	}
}

func TestSerial_ConcurrentPublishLinesStayIntact(t *testing.T) {
	port := newFakePort()
	s := newSerial(port, Options{KeepAlive: 2 * time.Millisecond, Logger: zerolog.Nop()})
	defer s.Close()
	ctx := context.Background()

	lines := make(chan string, 64)
	go func() {
		for port.sent.Scan() {
			lines <- port.sent.Text()
		}
		close(lines)
	}()

	spinErr := make(chan error, 1)
	go func() { spinErr <- s.Spin(ctx) }()

	const writers, perWriter = 4, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := s.Publish(ctx, "cmd_vel", twist{}); err != nil {
					t.Errorf("Publish() error: %v", err)
					return
				}
			}
		}()
	}

	published, pings := 0, 0
	timeout := time.After(5 * time.Second)
	for published < writers*perWriter {
		select {
		case l, ok := <-lines:
			if !ok {
				t.Fatal("port closed early")
			}
			var f frame
			if err := json.Unmarshal([]byte(l), &f); err != nil {
				t.Fatalf("line %q is not a frame: %v", l, err)
			}
			switch f.Op {
			case "publish":
				published++
			case "ping":
				pings++
			default:
				t.Fatalf("unexpected frame %+v", f)
			}
		case <-timeout:
			t.Fatalf("got %d of %d publishes", published, writers*perWriter)
		}
	}
	wg.Wait()

	// keep draining so a heartbeat in flight never blocks Spin
	go func() {
		for range lines {
		}
	}()
	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if err := <-spinErr; err != nil {
		t.Errorf("Spin() = %v", err)
	}
	t.Logf("%d heartbeats interleaved", pings)
}
