package nextion

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/kstaniek/go-nextion-bridge/internal/logging"
	"github.com/kstaniek/go-nextion-bridge/internal/transport"
)

// fakePort implements transport.Port for tests. Bytes queued with push are
// returned by Read; respond, when set, turns each written command into reply bytes.
type fakePort struct {
	mu       sync.Mutex
	rx       []byte
	writes   []string
	respond  func(cmd string) []byte
	readErrs []error
	closed   bool
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, os.ErrClosed
	}
	if len(f.readErrs) > 0 {
		err := f.readErrs[0]
		f.readErrs = f.readErrs[1:]
		return 0, err
	}
	if len(f.rx) == 0 {
		return 0, io.EOF
	}
	n := copy(p, f.rx)
	f.rx = f.rx[n:]
	return n, nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := string(stripTerminators(p))
	f.writes = append(f.writes, cmd)
	if f.respond != nil {
		f.rx = append(f.rx, f.respond(cmd)...)
	}
	return len(p), nil
}

func stripTerminators(p []byte) []byte {
	for len(p) > 0 && p[0] == 0xFF {
		p = p[1:]
	}
	for len(p) > 0 && p[len(p)-1] == 0xFF {
		p = p[:len(p)-1]
	}
	return p
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakePort) push(b ...byte) {
	f.mu.Lock()
	f.rx = append(f.rx, b...)
	f.mu.Unlock()
}

func (f *fakePort) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

// bufferedPort adds the availability probe.
type bufferedPort struct {
	fakePort
	probes int
}

func (b *bufferedPort) Buffered() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probes++
	return len(b.rx), nil
}

func wire(code byte, payload ...byte) []byte {
	out := append([]byte{code}, payload...)
	return append(out, 0xFF, 0xFF, 0xFF)
}

func startClient(t *testing.T, port transport.Port, opts ...Option) *Client {
	t.Helper()
	return startClientCtx(t, context.Background(), port, opts...)
}

func startClientCtx(t *testing.T, ctx context.Context, port transport.Port, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithLogger(logging.Discard()),
		WithPollInterval(time.Millisecond),
		WithInitCommands(),
		WithTimeout(time.Second),
	}
	c := New(port, append(base, opts...)...)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", d)
}
