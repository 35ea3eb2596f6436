package socketcan

import "errors"

// ErrWouldBlock is returned by Transmit and Receive on a non-blocking
// channel when the operation cannot complete immediately. It is a polling
// signal, not a transport fault; check for it with errors.Is.
var ErrWouldBlock = errors.New("socketcan: operation would block")

// ErrClosed indicates the channel has been closed.
var ErrClosed = errors.New("socketcan: closed")

// Transmitter can queue frames for transmission on a CAN bus.
type Transmitter interface {
	// Transmit writes one frame. In blocking mode it waits until the
	// transport accepts the frame or fails; in non-blocking mode it returns
	// ErrWouldBlock when the transport cannot take the frame immediately.
	Transmit(Frame) error
}

// Receiver delivers frames received from a CAN bus.
type Receiver interface {
	// Receive returns the next frame off the bus, including error frames
	// when the transport's error mask admits them. In non-blocking mode it
	// returns ErrWouldBlock when no frame is ready.
	Receive() (Frame, error)
}

// FilteredReceiver is a Receiver whose reception can be narrowed with
// identifier/mask filters.
type FilteredReceiver interface {
	Receiver

	// AddFilter appends one filter to the channel's filter group.
	AddFilter(Filter) error

	// ClearFilters installs the empty filter table.
	ClearFilters() error

	// FilterGroups enumerates the channel's filter groups. A transport with
	// a single kernel filter table returns a one-element slice.
	FilterGroups() []*FilterGroup
}

// Channel is one CAN bus endpoint. A channel operates in exactly one of two
// states, blocking or non-blocking, toggled with SetNonblocking; every
// Transmit and Receive call behaves according to the state configured at
// call time.
type Channel interface {
	Transmitter
	Receiver

	// SetNonblocking switches the channel between blocking and non-blocking
	// operation.
	SetNonblocking(bool) error

	// Close releases the underlying transport resource.
	Close() error
}
