package socketcan

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvWait(t *testing.T, e *LoopbackChannel) Frame {
	t.Helper()
	type result struct {
		f   Frame
		err error
	}
	done := make(chan result, 1)
	go func() {
		f, err := e.Receive()
		done <- result{f, err}
	}()
	select {
	case r := <-done:
		require.NoError(t, r.err)
		return r.f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func TestLoopbackRoundTrip(t *testing.T) {
	bus := NewLoopbackBus()
	defer bus.Close()
	a := bus.Open()
	b := bus.Open()

	f, err := New(0x1, []byte{0xDE, 0xAD, 0xBE, 0xFF}, false, false)
	require.NoError(t, err)
	require.NoError(t, a.Transmit(f))

	got := recvWait(t, b)
	assert.Equal(t, uint32(0x1), got.ID())
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xFF}, got.Data())
}

func TestLoopbackRecvOwn(t *testing.T) {
	bus := NewLoopbackBus()
	defer bus.Close()
	ep := bus.Open()

	f, err := New(0x1, []byte{0xDE, 0xAD}, false, false)
	require.NoError(t, err)

	// by default a sender does not see its own frames
	require.NoError(t, ep.SetNonblocking(true))
	require.NoError(t, ep.Transmit(f))
	_, err = ep.Receive()
	assert.ErrorIs(t, err, ErrWouldBlock)

	require.NoError(t, ep.SetRecvOwnMsgs(true))
	require.NoError(t, ep.Transmit(f))
	got, err := ep.Receive()
	require.NoError(t, err)
	assert.Equal(t, f, got)

	// disabling loopback suppresses self-delivery even with recv-own on
	require.NoError(t, ep.SetLoopback(false))
	require.NoError(t, ep.Transmit(f))
	_, err = ep.Receive()
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestLoopbackNonblocking(t *testing.T) {
	bus := NewLoopbackBus()
	defer bus.Close()
	ep := bus.Open()

	require.NoError(t, ep.SetNonblocking(true))
	_, err := ep.Receive()
	assert.ErrorIs(t, err, ErrWouldBlock)

	require.NoError(t, ep.SetNonblocking(false))
	other := bus.Open()
	f, err := New(0x7F, nil, false, false)
	require.NoError(t, err)
	require.NoError(t, other.Transmit(f))
	assert.Equal(t, f, recvWait(t, ep))
}

func TestLoopbackFilters(t *testing.T) {
	bus := NewLoopbackBus()
	defer bus.Close()
	tx := bus.Open()
	rx := bus.Open()
	require.NoError(t, rx.SetNonblocking(true))

	require.NoError(t, rx.AddFilter(NewStandardFilter(0x100)))

	match, err := New(0x100, []byte{1}, false, false)
	require.NoError(t, err)
	miss, err := New(0x101, []byte{2}, false, false)
	require.NoError(t, err)

	require.NoError(t, tx.Transmit(miss))
	require.NoError(t, tx.Transmit(match))

	got, err := rx.Receive()
	require.NoError(t, err)
	assert.Equal(t, match, got)
	_, err = rx.Receive()
	assert.ErrorIs(t, err, ErrWouldBlock)

	// the default table rejects remote frames with the matching identifier
	rtr, err := New(0x100, nil, true, false)
	require.NoError(t, err)
	require.NoError(t, tx.Transmit(rtr))
	_, err = rx.Receive()
	assert.ErrorIs(t, err, ErrWouldBlock)

	require.NoError(t, rx.FilterGroups()[0].Set([]Filter{NewStandardFilter(0x100).AllowRemote()}))
	require.NoError(t, tx.Transmit(rtr))
	got, err = rx.Receive()
	require.NoError(t, err)
	assert.True(t, got.IsRemote())
}

func TestLoopbackClearFilters(t *testing.T) {
	bus := NewLoopbackBus()
	defer bus.Close()
	tx := bus.Open()
	rx := bus.Open()
	require.NoError(t, rx.SetNonblocking(true))

	require.NoError(t, rx.AddFilter(NewStandardFilter(0x100)))
	require.NoError(t, rx.ClearFilters())

	f, err := New(0x100, nil, false, false)
	require.NoError(t, err)
	require.NoError(t, tx.Transmit(f))
	_, err = rx.Receive()
	assert.ErrorIs(t, err, ErrWouldBlock, "empty table must deliver nothing")
}

func TestLoopbackCloseDuringTransmit(t *testing.T) {
	bus := NewLoopbackBus()
	defer bus.Close()
	tx := bus.Open()

	f, err := New(0x1, []byte{1}, false, false)
	require.NoError(t, err)

	// Endpoints are independently owned: closing one while another is mid
	// transmit must never panic or race on the receive queue.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			assert.NoError(t, tx.Transmit(f))
		}
	}()
	for i := 0; i < 1000; i++ {
		bus.Open().Close()
	}
	wg.Wait()
}

func TestLoopbackClose(t *testing.T) {
	bus := NewLoopbackBus()
	ep := bus.Open()
	require.NoError(t, ep.Close())

	f, err := New(0x1, nil, false, false)
	require.NoError(t, err)
	assert.ErrorIs(t, ep.Transmit(f), ErrClosed)
	_, err = ep.Receive()
	assert.ErrorIs(t, err, ErrClosed)

	// closing twice is fine
	require.NoError(t, ep.Close())

	other := bus.Open()
	require.NoError(t, bus.Close())
	_, err = other.Receive()
	assert.ErrorIs(t, err, ErrClosed)

	// endpoints opened after bus close are born dead
	late := bus.Open()
	assert.ErrorIs(t, late.Transmit(f), ErrClosed)
}
