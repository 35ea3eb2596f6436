package socketcan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "can.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
interface = "vcan0"
read_timeout = "250ms"
write_timeout = "1s"
nonblocking = true
loopback = false
recv_own_msgs = true
join_filters = true
error_mask = 0x1FFFFFFF

[[filter]]
id = 0x123
mask = 0x7FF

[[filter]]
id = 0x200
mask = 0x700
allow_remote = true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "vcan0", cfg.Interface)
	assert.Equal(t, 250*time.Millisecond, cfg.ReadTimeout.Duration)
	assert.Equal(t, time.Second, cfg.WriteTimeout.Duration)
	assert.True(t, cfg.Nonblocking)
	require.NotNil(t, cfg.Loopback)
	assert.False(t, *cfg.Loopback)
	assert.True(t, cfg.RecvOwnMsgs)
	assert.True(t, cfg.JoinFilters)
	assert.Equal(t, MaskError, cfg.ErrorMask)

	require.Len(t, cfg.Filters, 2)
	assert.Equal(t, Filter{ID: 0x123, Mask: 0x7FF}, cfg.Filters[0].Filter())
	assert.Equal(t, Filter{ID: 0x200, Mask: 0x700}, cfg.Filters[1].Filter())
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `interface = "can0"`))
	require.NoError(t, err)
	assert.Equal(t, "can0", cfg.Interface)
	assert.Zero(t, cfg.ReadTimeout.Duration)
	assert.Nil(t, cfg.Loopback)
	assert.Empty(t, cfg.Filters)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `read_timeout = "1s"`))
	assert.ErrorContains(t, err, "interface is required")

	_, err = LoadConfig(writeConfig(t, `
interface = "can0"
read_timeout = "not a duration"
`))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestFilterConfigAllowRemote(t *testing.T) {
	fc := FilterConfig{ID: 0x100, Mask: MaskStandard | FlagRemote, AllowRemote: true}
	f := fc.Filter()
	assert.True(t, f.Matches(0x100|FlagRemote))
	assert.False(t, f.Matches(0x101))
}
