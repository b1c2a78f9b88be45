package registry

import (
	"sync"
	"sync/atomic"

	"github.com/kstaniek/go-nextion-bridge/internal/protocol"
)

// Func receives a decoded message, or the raw message plus the decode/device
// error when decoding failed.
type Func func(msg protocol.Message, err error)

var nextID atomic.Uint64

// Listener is a subscription target. Identity is the pointer: registering the
// same *Listener twice for one code is a no-op.
type Listener struct {
	id uint64
	fn Func
}

// NewListener wraps fn in a Listener with a process-unique ID.
func NewListener(fn Func) *Listener {
	return &Listener{id: nextID.Add(1), fn: fn}
}

// ID returns the listener's unique ID (used for worker sharding).
func (l *Listener) ID() uint64 { return l.id }

// Deliver invokes the callback.
func (l *Listener) Deliver(msg protocol.Message, err error) {
	if l.fn != nil {
		l.fn(msg, err)
	}
}

type entry struct {
	l         *Listener
	permanent bool
}

// Registry maps status codes (and protocol.Any) to listeners. All methods are
// safe for concurrent use and serialized by one mutex.
type Registry struct {
	mu     sync.Mutex
	byCode map[protocol.Code][]entry
}

// New creates an empty Registry.
func New() *Registry { return &Registry{byCode: make(map[protocol.Code][]entry)} }

// Subscribe registers l for codes (protocol.Any when none are given). A one-shot
// (non-permanent) listener is delivered to at most once across all its codes.
func (r *Registry) Subscribe(l *Listener, permanent bool, codes ...protocol.Code) {
	if l == nil {
		return
	}
	if len(codes) == 0 {
		codes = []protocol.Code{protocol.Any}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range codes {
		if indexOf(r.byCode[c], l) >= 0 {
			continue
		}
		r.byCode[c] = append(r.byCode[c], entry{l: l, permanent: permanent})
	}
}

// Unsubscribe removes l from codes, or from every code when none are given.
// It reports whether anything was removed.
func (r *Registry) Unsubscribe(l *Listener, codes ...protocol.Code) bool {
	if l == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(codes) == 0 {
		return r.removeAllLocked(l, false)
	}
	removed := false
	for _, c := range codes {
		if r.removeLocked(c, l) {
			removed = true
		}
	}
	return removed
}

// Dispatch resolves the listeners for code: exact-code subscribers first, then
// wildcard subscribers, each in registration order and each at most once.
// One-shot listeners are removed from every code before Dispatch returns, so
// a concurrent Dispatch can never resolve them again.
func (r *Registry) Dispatch(code protocol.Code) []*Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	exact := r.byCode[code]
	var wild []entry
	if code != protocol.Any {
		wild = r.byCode[protocol.Any]
	}
	if len(exact)+len(wild) == 0 {
		return nil
	}
	out := make([]*Listener, 0, len(exact)+len(wild))
	var oneShot []*Listener
	seen := make(map[*Listener]struct{}, len(exact)+len(wild))
	for _, group := range [2][]entry{exact, wild} {
		for _, e := range group {
			if _, dup := seen[e.l]; dup {
				continue
			}
			seen[e.l] = struct{}{}
			out = append(out, e.l)
			if !e.permanent {
				oneShot = append(oneShot, e.l)
			}
		}
	}
	for _, l := range oneShot {
		r.removeAllLocked(l, true)
	}
	return out
}

// Len returns the number of listeners registered for code.
func (r *Registry) Len(code protocol.Code) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byCode[code])
}

// Count returns the total number of (listener, code) registrations.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, es := range r.byCode {
		n += len(es)
	}
	return n
}

// Has reports whether l is registered for any code.
func (r *Registry) Has(l *Listener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, es := range r.byCode {
		if indexOf(es, l) >= 0 {
			return true
		}
	}
	return false
}

func (r *Registry) removeLocked(c protocol.Code, l *Listener) bool {
	es := r.byCode[c]
	i := indexOf(es, l)
	if i < 0 {
		return false
	}
	// Copy so slices handed out earlier keep their view.
	next := make([]entry, 0, len(es)-1)
	next = append(next, es[:i]...)
	next = append(next, es[i+1:]...)
	if len(next) == 0 {
		delete(r.byCode, c)
	} else {
		r.byCode[c] = next
	}
	return true
}

// removeAllLocked drops l from every code; with oneShotOnly it keeps permanent entries.
func (r *Registry) removeAllLocked(l *Listener, oneShotOnly bool) bool {
	removed := false
	for c, es := range r.byCode {
		i := indexOf(es, l)
		if i < 0 || (oneShotOnly && es[i].permanent) {
			continue
		}
		r.removeLocked(c, l)
		removed = true
	}
	return removed
}

func indexOf(es []entry, l *Listener) int {
	for i, e := range es {
		if e.l == l {
			return i
		}
	}
	return -1
}
