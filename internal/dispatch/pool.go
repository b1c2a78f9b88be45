package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kstaniek/go-nextion-bridge/internal/protocol"
	"github.com/kstaniek/go-nextion-bridge/internal/registry"
)

var (
	ErrQueueFull = errors.New("dispatch queue full")
	ErrClosed    = errors.New("dispatch pool closed")
)

const (
	DefaultWorkers = 5
	DefaultQueue   = 256
)

// Config sizes the pool. Zero values select the defaults.
type Config struct {
	Workers int // number of shards / goroutines
	Queue   int // per-shard buffered jobs
}

// Hooks customize Pool reporting.
type Hooks struct {
	// OnDrop is called when a shard queue is full; the job is discarded.
	OnDrop func(l *registry.Listener, msg protocol.Message)
	// OnPanic is called with the recovered value when a listener panics.
	OnPanic func(l *registry.Listener, msg protocol.Message, v any)
}

type job struct {
	l   *registry.Listener
	msg protocol.Message
	err error
}

// Pool delivers messages to listeners on a fixed set of worker goroutines.
// Jobs are sharded by listener ID: one listener always runs on the same
// worker, so it sees messages in submission order, while a slow listener only
// delays the listeners sharing its shard.
//
// Life-cycle:
//
//	p := New(ctx, Config{}, hooks)
//	p.Submit(l, msg, err)
//	p.Close()
//
// Close discards jobs still queued.
type Pool struct {
	mu     sync.RWMutex
	shards []chan job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	hooks  Hooks
	closed atomic.Bool
}

// New starts cfg.Workers goroutines bound to parent.
func New(parent context.Context, cfg Config, hooks Hooks) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Queue <= 0 {
		cfg.Queue = DefaultQueue
	}
	ctx, cancel := context.WithCancel(parent)
	p := &Pool{
		shards: make([]chan job, cfg.Workers),
		ctx:    ctx,
		cancel: cancel,
		hooks:  hooks,
	}
	for i := range p.shards {
		p.shards[i] = make(chan job, cfg.Queue)
		p.wg.Add(1)
		go p.loop(p.shards[i])
	}
	return p
}

func (p *Pool) loop(ch <-chan job) {
	defer p.wg.Done()
	for {
		// Prefer shutdown over queued work.
		select {
		case <-p.ctx.Done():
			return
		default:
		}
		select {
		case j, ok := <-ch:
			if !ok {
				return
			}
			p.run(j)
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) run(j job) {
	defer func() {
		if v := recover(); v != nil && p.hooks.OnPanic != nil {
			p.hooks.OnPanic(j.l, j.msg, v)
		}
	}()
	j.l.Deliver(j.msg, j.err)
}

// Submit queues one delivery without blocking.
func (p *Pool) Submit(l *registry.Listener, msg protocol.Message, err error) error {
	if l == nil {
		return nil
	}
	if p.closed.Load() {
		return ErrClosed
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed.Load() {
		return ErrClosed
	}
	ch := p.shards[l.ID()%uint64(len(p.shards))]
	select {
	case ch <- job{l: l, msg: msg, err: err}:
		return nil
	default:
		if p.hooks.OnDrop != nil {
			p.hooks.OnDrop(l, msg)
		}
		return fmt.Errorf("%w: listener %d", ErrQueueFull, l.ID())
	}
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return len(p.shards) }

// Close stops the workers and waits for them to exit. A listener that is
// running when Close is called is allowed to finish.
func (p *Pool) Close() {
	if p.closed.Swap(true) {
		return
	}
	p.cancel()
	p.mu.Lock()
	for _, ch := range p.shards {
		close(ch)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
