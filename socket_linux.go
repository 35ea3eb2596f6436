//go:build linux

package socketcan

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// Error mask values for SetErrorMask.
const (
	// ErrMaskNone reports no error conditions (kernel default).
	ErrMaskNone uint32 = 0
	// ErrMaskAll reports every error condition as an error frame.
	ErrMaskAll uint32 = MaskError
)

// Socket is a Channel over a Linux SocketCAN raw socket. One Socket owns one
// file descriptor and the single kernel filter table attached to it.
//
// A Socket starts out in blocking mode. Its methods are not synchronized;
// when a Socket is shared across goroutines, filter mutation needs external
// locking because the kernel table is replaced wholesale on every update.
type Socket struct {
	fd     int
	group  *FilterGroup
	logger *slog.Logger
}

var (
	_ Channel          = (*Socket)(nil)
	_ FilteredReceiver = (*Socket)(nil)
)

// Dial opens a raw CAN socket bound to the named interface, e.g. "can0".
func Dial(ifname string) (*Socket, error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("socketcan: resolve %q: %w", ifname, err)
	}
	return DialInterface(iface.Index)
}

// DialInterface opens a raw CAN socket bound to the interface with the given
// kernel index.
func DialInterface(ifindex int) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socketcan: socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifindex}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socketcan: bind: %w", err)
	}
	s := &Socket{fd: fd, logger: slog.Default()}
	s.group = newFilterGroup(s)
	return s, nil
}

// SetLogger replaces the logger used for socket option changes.
func (s *Socket) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Close releases the socket file descriptor.
func (s *Socket) Close() error {
	return unix.Close(s.fd)
}

// SetNonblocking switches the socket between blocking and non-blocking
// operation. In non-blocking mode Transmit and Receive return ErrWouldBlock
// instead of suspending.
func (s *Socket) SetNonblocking(nonblocking bool) error {
	return unix.SetNonblock(s.fd, nonblocking)
}

// SetReadTimeout bounds blocking Receive calls. A receive that times out
// returns ErrWouldBlock. The timeout governs every subsequent receive until
// changed.
func (s *Socket) SetReadTimeout(d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

// SetWriteTimeout bounds blocking Transmit calls, symmetric with
// SetReadTimeout.
func (s *Socket) SetWriteTimeout(d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv)
}

func (s *Socket) setRawOption(opt string, option int, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	s.logger.Debug("setting socket option", "fd", s.fd, "option", opt, "enabled", enabled)
	return unix.SetsockoptInt(s.fd, unix.SOL_CAN_RAW, option, v)
}

// SetErrorMask selects which error conditions the kernel delivers as error
// frames. The default ErrMaskNone reports nothing; ErrMaskAll or any
// non-empty mask enables notification of the selected conditions.
func (s *Socket) SetErrorMask(mask uint32) error {
	s.logger.Debug("setting socket option", "fd", s.fd, "option", "CAN_RAW_ERR_FILTER", "mask", mask)
	return unix.SetsockoptInt(s.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_ERR_FILTER, int(mask))
}

// SetLoopback enables or disables loopback of sent frames to other local
// sockets on the same bus. The kernel default is on.
func (s *Socket) SetLoopback(enabled bool) error {
	return s.setRawOption("CAN_RAW_LOOPBACK", unix.CAN_RAW_LOOPBACK, enabled)
}

// SetRecvOwnMsgs controls whether frames sent on this socket are received
// back by it when loopback is enabled. The kernel default is off.
func (s *Socket) SetRecvOwnMsgs(enabled bool) error {
	return s.setRawOption("CAN_RAW_RECV_OWN_MSGS", unix.CAN_RAW_RECV_OWN_MSGS, enabled)
}

// SetJoinFilters makes a frame pass only when it matches all installed
// filters instead of any of them.
func (s *Socket) SetJoinFilters(enabled bool) error {
	return s.setRawOption("CAN_RAW_JOIN_FILTERS", unix.CAN_RAW_JOIN_FILTERS, enabled)
}

// setFilters installs the complete filter table in one setsockopt call. An
// empty table is a zero-length option write, which the kernel reads as
// "deliver nothing"; x/sys passes a nil pointer for that case rather than
// dereferencing a first element that does not exist.
func (s *Socket) setFilters(filters []Filter) error {
	raw := make([]unix.CanFilter, len(filters))
	for i, f := range filters {
		raw[i] = unix.CanFilter{Id: f.ID, Mask: f.Mask}
	}
	s.logger.Debug("setting socket option", "fd", s.fd, "option", "CAN_RAW_FILTER", "filters", len(raw))
	return unix.SetsockoptCanRawFilter(s.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, raw)
}

// AddFilter appends one filter to the socket's filter group and pushes the
// updated table to the kernel.
func (s *Socket) AddFilter(f Filter) error {
	return s.group.Add(f)
}

// ClearFilters installs the empty filter table; the socket receives no
// frames until a new filter is added.
func (s *Socket) ClearFilters() error {
	return s.group.Clear()
}

// FilterGroups returns the socket's single filter group: every filter on a
// raw socket shares the same kernel table and capability.
func (s *Socket) FilterGroups() []*FilterGroup {
	return []*FilterGroup{s.group}
}

// Transmit writes one frame to the socket. On a non-blocking socket a full
// transmit queue surfaces as ErrWouldBlock.
func (s *Socket) Transmit(f Frame) error {
	buf, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	n, err := unix.Write(s.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return ErrWouldBlock
		}
		return fmt.Errorf("socketcan: write: %w", err)
	}
	if n != FrameSize {
		return fmt.Errorf("socketcan: short write of %d bytes", n)
	}
	return nil
}

// Receive reads the next frame off the socket. Error frames admitted by the
// error mask come back as ordinary frames with IsError set; decode them with
// DecodeError. A read shorter than one full frame is a transport error
// unless it was caused by the would-block condition.
func (s *Socket) Receive() (Frame, error) {
	buf := make([]byte, FrameSize)
	n, err := unix.Read(s.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return Frame{}, ErrWouldBlock
		}
		return Frame{}, fmt.Errorf("socketcan: read: %w", err)
	}
	if n != FrameSize {
		return Frame{}, fmt.Errorf("socketcan: short read of %d bytes", n)
	}
	var f Frame
	if err := f.UnmarshalBinary(buf); err != nil {
		return Frame{}, err
	}
	return f, nil
}
