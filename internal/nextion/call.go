package nextion

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kstaniek/go-nextion-bridge/internal/metrics"
	"github.com/kstaniek/go-nextion-bridge/internal/protocol"
	"github.com/kstaniek/go-nextion-bridge/internal/registry"
)

const (
	callPending int32 = iota
	callResolved
	callAbandoned
)

type callResult struct {
	msg protocol.Message
	err error
}

// pendingCall resolves exactly once: by a delivery or by being abandoned.
type pendingCall struct {
	state atomic.Int32
	ch    chan callResult
}

func newPendingCall() *pendingCall { return &pendingCall{ch: make(chan callResult, 1)} }

func (p *pendingCall) deliver(msg protocol.Message, err error) {
	if p.state.CompareAndSwap(callPending, callResolved) {
		p.ch <- callResult{msg: msg, err: err}
	}
}

// abandon reports false when a delivery already won.
func (p *pendingCall) abandon() bool { return p.state.CompareAndSwap(callPending, callAbandoned) }

// Call registers a one-shot listener for codes (plus every device error
// code), runs write, and blocks until a matching reply, the timeout, ctx
// cancellation or shutdown. It returns the decoded value of the reply; a device
// error reply is returned as *protocol.DeviceError. timeout <= 0 uses the
// client default and counts from the write. When the call returns, its
// listener is no longer registered.
//
// Replies carry no correlation id, so calls run one at a time; a Call waits
// for the previous one to finish before writing. A device error caused by a
// plain Write sent while a call is pending resolves that call.
func (c *Client) Call(ctx context.Context, write func() error, codes []protocol.Code, timeout time.Duration) (v any, err error) {
	defer func() { metrics.IncCall(callOutcome(err)) }()
	if !c.active.Load() {
		return nil, ErrNotPermitted
	}
	if timeout <= 0 {
		timeout = c.timeout
	}
	rdone := c.rctx.Done()
	select {
	case c.callSem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	case <-rdone:
		return nil, ErrClosed
	}
	defer func() { <-c.callSem }()
	subs := make([]protocol.Code, 0, len(codes)+len(protocol.ErrorCodes()))
	subs = append(subs, codes...)
	subs = append(subs, protocol.ErrorCodes()...)

	pc := newPendingCall()
	l := registry.NewListener(pc.deliver)
	c.reg.Subscribe(l, false, subs...)

	if err := write(); err != nil {
		c.reg.Unsubscribe(l)
		pc.abandon()
		return nil, err
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	var reason error
	select {
	case r := <-pc.ch:
		return r.value()
	case <-t.C:
		reason = fmt.Errorf("%w after %v waiting for %s", ErrTimeout, timeout, codeList(codes))
	case <-ctx.Done():
		reason = ctx.Err()
	case <-c.done:
		reason = ErrClosed
	case <-rdone:
		reason = ErrClosed
	}
	c.reg.Unsubscribe(l)
	if !pc.abandon() {
		return (<-pc.ch).value()
	}
	c.logger.Debug("call_abandoned", "codes", codeList(codes), "error", reason)
	return nil, reason
}

func (r callResult) value() (any, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.msg.Value, nil
}

// Command writes cmd and waits for one of codes.
func (c *Client) Command(ctx context.Context, cmd string, codes ...protocol.Code) (any, error) {
	return c.Call(ctx, func() error { return c.Write(cmd) }, codes, 0)
}

// Exec writes cmd and waits for the success acknowledgement (requires bkcmd>=1).
func (c *Client) Exec(ctx context.Context, cmd string) error {
	_, err := c.Command(ctx, cmd, protocol.CodeOK)
	return err
}

// CurrentPage asks the display for the active page id.
func (c *Client) CurrentPage(ctx context.Context) (int, error) {
	v, err := c.Command(ctx, "sendme", protocol.CodeCurrentPage)
	if err != nil {
		return 0, err
	}
	page, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("%w: page reply %T", protocol.ErrDecode, v)
	}
	return page, nil
}

// Get reads obj.attr; the result is a string (0x70) or an int (0x71).
func (c *Client) Get(ctx context.Context, obj, attr string) (any, error) {
	return c.Command(ctx, fmt.Sprintf("get %s.%s", obj, attr), protocol.CodeStringValue, protocol.CodeNumericValue)
}

func codeList(codes []protocol.Code) string {
	s := "["
	for i, c := range codes {
		if i > 0 {
			s += " "
		}
		s += c.Hex()
	}
	return s + "]"
}
