package serial

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kstaniek/go-nextion-bridge/internal/metrics"
	"github.com/kstaniek/go-nextion-bridge/internal/transport"
)

type recordPort struct {
	mu    sync.Mutex
	out   bytes.Buffer
	block chan struct{}
}

func (p *recordPort) Read(b []byte) (int, error) { return 0, nil }
func (p *recordPort) Write(b []byte) (int, error) {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}
func (p *recordPort) Close() error { return nil }

func (p *recordPort) written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.out.Bytes()...)
}

var _ transport.Port = (*recordPort)(nil)

func TestTXWriterWritesAndCounts(t *testing.T) {
	p := &recordPort{}
	before := metrics.Snap().CommandsTx
	w := NewTXWriter(context.Background(), p, 4)
	defer w.Close()
	if err := w.Send([]byte("sendme\xff\xff\xff")); err != nil {
		t.Fatalf("send: %v", err)
	}
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) && metrics.Snap().CommandsTx == before {
		time.Sleep(2 * time.Millisecond)
	}
	if got := p.written(); !bytes.Equal(got, []byte("sendme\xff\xff\xff")) {
		t.Fatalf("unexpected bytes % X", got)
	}
	if metrics.Snap().CommandsTx == before {
		t.Fatalf("expected CommandsTx increment")
	}
}

func TestTXWriterOverflow(t *testing.T) {
	p := &recordPort{block: make(chan struct{})}
	w := NewTXWriter(context.Background(), p, 1)
	defer func() { close(p.block); w.Close() }()
	beforeErrs := metrics.Snap().Errors
	var overflow error
	for i := 0; i < 4; i++ {
		if err := w.Send([]byte{byte(i)}); err != nil && overflow == nil {
			overflow = err
		}
	}
	if !errors.Is(overflow, ErrTxOverflow) {
		t.Fatalf("expected ErrTxOverflow, got %v", overflow)
	}
	if metrics.Snap().Errors == beforeErrs {
		t.Fatalf("expected error metric increment on overflow")
	}
}
