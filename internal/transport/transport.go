package transport

// Port is the byte transport to the display. Read must not block
// indefinitely: it returns what is available (possibly 0 bytes, or io.EOF on
// a read timeout) so the caller can poll.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Buffered is implemented by ports that can report how many received bytes
// are waiting. Readers use it to skip empty reads; bytes arriving between
// Buffered and Read are picked up by the next poll.
type Buffered interface {
	Buffered() (int, error)
}

// Sink is a command transmission target.
type Sink interface {
	Send([]byte) error
}

var _ Sink = (*AsyncTx)(nil)
