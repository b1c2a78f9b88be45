package nextion

import (
	"log/slog"
	"time"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultWorkers     = 5
	defaultQueue       = 256
	defaultTxBuffer    = 64
	defaultReadBufSize = 1024
	defaultPoll        = 5 * time.Millisecond
	rxBackoffMin       = 20 * time.Millisecond
	rxBackoffMax       = 500 * time.Millisecond
)

// defaultInitCommands makes the display reply to every instruction (success and failure).
var defaultInitCommands = []string{"bkcmd=3"}

type Option func(*Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout sets the default Call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithWorkers sets the number of dispatch workers.
func WithWorkers(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithQueue sets the per-worker dispatch queue length.
func WithQueue(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.queue = n
		}
	}
}

// WithTxBuffer sets the number of commands that may wait for the writer.
func WithTxBuffer(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.txBuf = n
		}
	}
}

func WithReadBuffer(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.readBufSize = n
		}
	}
}

// WithMaxPayload bounds a single frame payload (see frame.NewDemux).
func WithMaxPayload(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPayload = n
		}
	}
}

// WithPollInterval sets how long the reader yields when no bytes are available.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.poll = d
		}
	}
}

// WithCommandPrefix also writes FF FF FF before each command.
func WithCommandPrefix(on bool) Option { return func(c *Client) { c.prefix = on } }

// WithInitCommands replaces the commands written on Start. Pass none to send nothing.
func WithInitCommands(cmds ...string) Option {
	return func(c *Client) { c.initCmds = append([]string(nil), cmds...) }
}
