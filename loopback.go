package socketcan

import "sync"

// LoopbackBus is an in-memory CAN bus for tests and simulations. Endpoints
// opened from the same bus exchange frames and expose the same option
// surface as a raw socket: per-endpoint loopback, receive-own-messages,
// identifier/mask filters and the non-blocking mode.
type LoopbackBus struct {
	mu        sync.RWMutex
	closed    bool
	endpoints map[*LoopbackChannel]struct{}
}

// NewLoopbackBus creates a new loopback bus.
func NewLoopbackBus() *LoopbackBus {
	return &LoopbackBus{endpoints: make(map[*LoopbackChannel]struct{})}
}

// Open attaches a new endpoint to the bus.
func (b *LoopbackBus) Open() *LoopbackChannel {
	ep := &LoopbackChannel{
		bus:      b,
		ch:       make(chan Frame, 64),
		loopback: true,
	}
	ep.group = newFilterGroup(ep)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		ep.dead = true
		close(ep.ch)
		return ep
	}
	b.endpoints[ep] = struct{}{}
	b.mu.Unlock()
	return ep
}

// Close closes the bus and detaches all endpoints.
func (b *LoopbackBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for ep := range b.endpoints {
		ep.closeNoLock()
	}
	b.endpoints = nil
	b.mu.Unlock()
	return nil
}

// LoopbackChannel is one endpoint of a LoopbackBus.
type LoopbackChannel struct {
	bus   *LoopbackBus
	ch    chan Frame
	group *FilterGroup

	mu          sync.Mutex
	dead        bool
	nonblocking bool
	loopback    bool
	recvOwn     bool
	filtered    bool
	filters     []Filter
}

var (
	_ Channel          = (*LoopbackChannel)(nil)
	_ FilteredReceiver = (*LoopbackChannel)(nil)
)

// SetNonblocking switches the endpoint between blocking and non-blocking
// operation.
func (e *LoopbackChannel) SetNonblocking(nonblocking bool) error {
	e.mu.Lock()
	e.nonblocking = nonblocking
	e.mu.Unlock()
	return nil
}

// SetLoopback enables or disables loopback of sent frames, mirroring the
// CAN_RAW_LOOPBACK socket option. Default is on.
func (e *LoopbackChannel) SetLoopback(enabled bool) error {
	e.mu.Lock()
	e.loopback = enabled
	e.mu.Unlock()
	return nil
}

// SetRecvOwnMsgs controls whether the endpoint receives its own frames when
// loopback is enabled, mirroring CAN_RAW_RECV_OWN_MSGS. Default is off.
func (e *LoopbackChannel) SetRecvOwnMsgs(enabled bool) error {
	e.mu.Lock()
	e.recvOwn = enabled
	e.mu.Unlock()
	return nil
}

// setFilters implements the filterSink contract for the endpoint's group.
// Installing a table, including the empty one, replaces the previous
// matching state in one step.
func (e *LoopbackChannel) setFilters(filters []Filter) error {
	next := make([]Filter, len(filters))
	copy(next, filters)
	e.mu.Lock()
	e.filtered = true
	e.filters = next
	e.mu.Unlock()
	return nil
}

// AddFilter appends one filter to the endpoint's filter group.
func (e *LoopbackChannel) AddFilter(f Filter) error {
	return e.group.Add(f)
}

// ClearFilters installs the empty filter table; the endpoint then receives
// no frames until a new filter is added, like a raw socket.
func (e *LoopbackChannel) ClearFilters() error {
	return e.group.Clear()
}

// FilterGroups returns the endpoint's single filter group.
func (e *LoopbackChannel) FilterGroups() []*FilterGroup {
	return []*FilterGroup{e.group}
}

// accepts applies the installed filter table to a raw identifier word.
// Before any table is installed every frame passes, matching kernel
// behavior for a fresh socket.
func (e *LoopbackChannel) accepts(id uint32) bool {
	if !e.filtered {
		return true
	}
	for _, f := range e.filters {
		if f.Matches(id) {
			return true
		}
	}
	return false
}

// Transmit broadcasts the frame to every endpoint on the bus whose filters
// accept it, including this endpoint when loopback and receive-own-messages
// are both enabled.
func (e *LoopbackChannel) Transmit(f Frame) error {
	e.mu.Lock()
	if e.dead {
		e.mu.Unlock()
		return ErrClosed
	}
	recvOwn := e.loopback && e.recvOwn
	e.mu.Unlock()

	// Snapshot endpoints under the bus lock to avoid holding it while
	// delivering.
	e.bus.mu.RLock()
	if e.bus.closed {
		e.bus.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]*LoopbackChannel, 0, len(e.bus.endpoints))
	for ep := range e.bus.endpoints {
		if ep != e || recvOwn {
			targets = append(targets, ep)
		}
	}
	e.bus.mu.RUnlock()

	for _, t := range targets {
		t.deliver(f)
	}
	return nil
}

func (e *LoopbackChannel) deliver(f Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead || !e.accepts(f.id) {
		return
	}
	// The send cannot block, so it stays under the lock; Close closes the
	// queue under the same lock and can never land mid-send.
	select {
	case e.ch <- f:
	default:
		// a saturated endpoint drops; the bus applies no backpressure
	}
}

// Receive waits for the next frame in blocking mode. In non-blocking mode it
// returns ErrWouldBlock when no frame is queued.
func (e *LoopbackChannel) Receive() (Frame, error) {
	e.mu.Lock()
	nonblocking := e.nonblocking
	e.mu.Unlock()
	if nonblocking {
		select {
		case f, ok := <-e.ch:
			if !ok {
				return Frame{}, ErrClosed
			}
			return f, nil
		default:
			return Frame{}, ErrWouldBlock
		}
	}
	f, ok := <-e.ch
	if !ok {
		return Frame{}, ErrClosed
	}
	return f, nil
}

// Close detaches the endpoint from the bus and closes its queue.
func (e *LoopbackChannel) Close() error {
	e.bus.mu.Lock()
	e.closeNoLock()
	e.bus.mu.Unlock()
	return nil
}

func (e *LoopbackChannel) closeNoLock() {
	e.mu.Lock()
	if e.dead {
		e.mu.Unlock()
		return
	}
	e.dead = true
	close(e.ch)
	if e.bus.endpoints != nil {
		delete(e.bus.endpoints, e)
	}
	e.mu.Unlock()
}
