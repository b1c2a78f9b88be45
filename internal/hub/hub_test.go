package hub

import (
	"testing"
	"time"

	"github.com/kstaniek/go-nextion-bridge/internal/metrics"
)

func TestHub_Broadcast_DropDoesNotBlock(t *testing.T) {
	h := New()
	cl := NewClient(4)
	h.Add(cl)
	defer h.Remove(cl)

	// Nobody reads cl.Out, simulating a slow client.
	before := metrics.Snap().HubDrops
	start := time.Now()
	for i := 0; i < 1000; i++ {
		h.Broadcast([]byte(`{"code":136,"kind":"startup"}`))
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Broadcast took too long: %s", elapsed)
	}
	if len(cl.Out) != cap(cl.Out) {
		t.Fatalf("expected client buffer to be full, got len=%d cap=%d", len(cl.Out), cap(cl.Out))
	}
	if got := metrics.Snap().HubDrops - before; got != 996 {
		t.Fatalf("expected 996 drops, got %d", got)
	}
}

func TestHub_Broadcast_DropKeepsOthersFlowing(t *testing.T) {
	h := New()
	slow := NewClient(1)
	fast := NewClient(16)
	h.Add(slow)
	h.Add(fast)
	defer h.Remove(slow)
	defer h.Remove(fast)

	h.Broadcast([]byte("first"))
	for i := 0; i < 10; i++ {
		h.Broadcast([]byte("burst"))
	}
	if len(fast.Out) != 11 {
		t.Fatalf("fast client got %d lines, want 11", len(fast.Out))
	}
	if got := string(<-slow.Out); got != "first" {
		t.Fatalf("slow client head = %q", got)
	}
}

func TestHub_KickPolicyClosesSlowClient(t *testing.T) {
	h := New()
	h.Policy = PolicyKick
	slow := NewClient(1)
	h.Add(slow)
	defer h.Remove(slow)

	h.Broadcast([]byte("a"))
	h.Broadcast([]byte("b"))
	select {
	case <-slow.Closed:
	default:
		t.Fatalf("slow client not kicked")
	}
	// closed clients are skipped
	h.Broadcast([]byte("c"))
	if len(slow.Out) != 1 {
		t.Fatalf("kicked client still receiving: %d", len(slow.Out))
	}
}

func TestHub_RemoveIdempotent(t *testing.T) {
	h := New()
	c := NewClient(1)
	h.Add(c)
	if h.Count() != 1 {
		t.Fatalf("count = %d", h.Count())
	}
	h.Remove(c)
	h.Remove(c)
	if h.Count() != 0 {
		t.Fatalf("count = %d after remove", h.Count())
	}
}

func TestParsePolicy(t *testing.T) {
	if p, ok := ParsePolicy("kick"); !ok || p != PolicyKick {
		t.Fatalf("kick -> %v %v", p, ok)
	}
	if p, ok := ParsePolicy("drop"); !ok || p != PolicyDrop {
		t.Fatalf("drop -> %v %v", p, ok)
	}
	if _, ok := ParsePolicy("block"); ok {
		t.Fatalf("block must be rejected")
	}
}
