package socketcan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStandardRange(t *testing.T) {
	for id := uint32(0); id <= MaskStandard; id++ {
		f, err := New(id, nil, false, false)
		require.NoError(t, err)
		assert.False(t, f.IsExtended())
		assert.Equal(t, id, f.ID())
	}
}

func TestNewExtendedPromotion(t *testing.T) {
	for _, id := range []uint32{MaskStandard + 1, 0x1234, 0xABCDE, MaskExtended} {
		f, err := New(id, nil, false, false)
		require.NoError(t, err)
		assert.True(t, f.IsExtended(), "id %#x", id)
		assert.Equal(t, id, f.ID(), "id %#x", id)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(0x1, make([]byte, 9), false, false)
	assert.ErrorIs(t, err, ErrTooMuchData)

	_, err = New(MaskExtended+1, nil, false, false)
	assert.ErrorIs(t, err, ErrIDTooLarge)
}

func TestNewStandardAndExtendedConstructors(t *testing.T) {
	f, err := NewStandard(0x123, []byte{1, 2})
	require.NoError(t, err)
	assert.False(t, f.IsExtended())
	assert.Equal(t, uint32(0x123), f.ID())

	_, err = NewStandard(MaskStandard+1, nil)
	assert.ErrorIs(t, err, ErrIDTooLarge)

	// small identifiers stay extended when asked for explicitly
	f, err = NewExtended(0x123, nil)
	require.NoError(t, err)
	assert.True(t, f.IsExtended())
	assert.Equal(t, uint32(0x123), f.ID())
}

func TestDataAccessorBounds(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xFF}
	f, err := New(0x42, payload, false, false)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), f.Len())
	assert.Equal(t, payload, f.Data())
}

func TestFlags(t *testing.T) {
	rtr, err := New(0x7F, nil, true, false)
	require.NoError(t, err)
	assert.True(t, rtr.IsRemote())
	assert.False(t, rtr.IsError())

	errf, err := New(0x1, nil, false, true)
	require.NoError(t, err)
	assert.True(t, errf.IsError())
	assert.False(t, errf.IsRemote())
}

func TestSetRemote(t *testing.T) {
	f, err := New(0x321, []byte{9, 9}, false, false)
	require.NoError(t, err)

	require.NoError(t, f.SetRemote(4))
	assert.True(t, f.IsRemote())
	assert.Equal(t, uint8(4), f.Len())

	assert.ErrorIs(t, f.SetRemote(9), ErrTooMuchData)
}

func TestMarshalRoundtrip(t *testing.T) {
	cases := []struct {
		name string
		id   uint32
		data []byte
		rtr  bool
		errf bool
	}{
		{name: "standard with data", id: 0x123, data: []byte{0xDE, 0xAD}},
		{name: "extended empty", id: 0x1ABCDEFF},
		{name: "standard rtr", id: 0x100, rtr: true},
		{name: "error frame", id: 0x2, data: []byte{5}, errf: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := New(tc.id, tc.data, tc.rtr, tc.errf)
			require.NoError(t, err)
			b, err := f.MarshalBinary()
			require.NoError(t, err)
			require.Len(t, b, FrameSize)

			var g Frame
			require.NoError(t, g.UnmarshalBinary(b))
			assert.Equal(t, f, g)
			assert.Equal(t, f.Data(), g.Data())
		})
	}
}

func TestUnmarshalShortBuffer(t *testing.T) {
	var f Frame
	assert.Error(t, f.UnmarshalBinary(make([]byte, FrameSize-1)))
}

func TestString(t *testing.T) {
	f, err := New(0x123, []byte{0xDE, 0xAD}, false, false)
	require.NoError(t, err)
	assert.Equal(t, "123 [2] DE AD", f.String())

	ext, err := New(0x1ABCDEFF, nil, true, false)
	require.NoError(t, err)
	assert.Equal(t, "1ABCDEFF [0] RTR", ext.String())
}

func TestControllerErrorData(t *testing.T) {
	full := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	f, err := New(ErrClassController, full, false, true)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6, 7}, f.ControllerErrorData())

	short, err := New(ErrClassController, full[:4], false, true)
	require.NoError(t, err)
	assert.Nil(t, short.ControllerErrorData())

	data, err := New(0x1, full, false, false)
	require.NoError(t, err)
	assert.Nil(t, data.ControllerErrorData())
}
