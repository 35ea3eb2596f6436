package socketcan

import (
	"errors"
	"sync"
	"time"
)

// Mux fans out frames from a Receiver to any number of subscribers, each
// narrowed by an identifier/mask filter.
//
// It owns the provided Receiver and runs a single background goroutine to
// read frames and distribute them. This avoids multiple goroutines competing
// on Receive and gives higher layers non-blocking, filtered consumption. A
// non-blocking receiver is polled; ErrWouldBlock results are absorbed.
//
// Transmission is not proxied; callers keep using the original channel to
// transmit.
type Mux struct {
	in   Receiver
	stop chan struct{}

	mu   sync.RWMutex
	subs map[uint64]*subscriber
	next uint64
}

type subscriber struct {
	filter Filter
	ch     chan Frame
}

// NewMux creates and starts a multiplexer bound to the given Receiver.
func NewMux(in Receiver) *Mux {
	m := &Mux{
		in:   in,
		stop: make(chan struct{}),
		subs: make(map[uint64]*subscriber),
	}
	go m.run()
	return m
}

// Close stops the background reader and closes all subscriber channels.
func (m *Mux) Close() error {
	select {
	case <-m.stop:
		return nil
	default:
	}
	close(m.stop)
	m.mu.Lock()
	for id, s := range m.subs {
		close(s.ch)
		delete(m.subs, id)
	}
	m.mu.Unlock()
	return nil
}

// Subscribe registers a subscriber whose filter selects the frames it
// receives, with the given channel buffer. The cancel function closes the
// channel and should be called when the subscription is no longer needed.
func (m *Mux) Subscribe(filter Filter, buffer int) (<-chan Frame, func()) {
	if buffer < 0 {
		buffer = 0
	}
	s := &subscriber{filter: filter, ch: make(chan Frame, buffer)}
	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = s
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if cur, ok := m.subs[id]; ok && cur == s {
			close(cur.ch)
			delete(m.subs, id)
		}
		m.mu.Unlock()
	}
	return s.ch, cancel
}

func (m *Mux) run() {
	for {
		select {
		case <-m.stop:
			return
		default:
		}
		f, err := m.in.Receive()
		if errors.Is(err, ErrWouldBlock) {
			time.Sleep(time.Millisecond)
			continue
		}
		if err != nil {
			// Propagate closure to subscribers and exit.
			m.mu.Lock()
			for id, s := range m.subs {
				close(s.ch)
				delete(m.subs, id)
			}
			m.mu.Unlock()
			return
		}
		m.mu.RLock()
		for _, s := range m.subs {
			if s.filter.Matches(f.id) {
				select {
				case s.ch <- f:
				default:
					// Drop if the subscriber is slow and its buffer is full.
				}
			}
		}
		m.mu.RUnlock()
	}
}
