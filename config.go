package socketcan

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// ChannelConfig is the file-backed option set for a raw CAN channel. All
// fields except the interface name are optional; zero values leave the
// kernel defaults in place.
//
// Example:
//
//	interface = "can0"
//	read_timeout = "100ms"
//	recv_own_msgs = true
//	error_mask = 0x1FFFFFFF
//
//	[[filter]]
//	id = 0x123
//	mask = 0x7FF
type ChannelConfig struct {
	Interface    string         `toml:"interface"`
	ReadTimeout  duration       `toml:"read_timeout"`
	WriteTimeout duration       `toml:"write_timeout"`
	Nonblocking  bool           `toml:"nonblocking"`
	Loopback     *bool          `toml:"loopback"`
	RecvOwnMsgs  bool           `toml:"recv_own_msgs"`
	JoinFilters  bool           `toml:"join_filters"`
	ErrorMask    uint32         `toml:"error_mask"`
	Filters      []FilterConfig `toml:"filter"`
}

// FilterConfig is one identifier/mask pair in a channel configuration. A
// zero mask accepts everything, like AcceptAll.
type FilterConfig struct {
	ID          uint32 `toml:"id"`
	Mask        uint32 `toml:"mask"`
	AllowRemote bool   `toml:"allow_remote"`
}

// Filter converts the entry to a Filter, applying AllowRemote when
// requested.
func (fc FilterConfig) Filter() Filter {
	f := Filter{ID: fc.ID, Mask: fc.Mask}
	if fc.AllowRemote {
		f = f.AllowRemote()
	}
	return f
}

// duration wraps time.Duration so TOML values like "100ms" parse.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// LoadConfig reads a channel configuration from a TOML file.
func LoadConfig(path string) (ChannelConfig, error) {
	var cfg ChannelConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return ChannelConfig{}, fmt.Errorf("socketcan: load config %s: %w", path, err)
	}
	if cfg.Interface == "" {
		return ChannelConfig{}, fmt.Errorf("socketcan: config %s: interface is required", path)
	}
	if len(cfg.Filters) > MaxFilters {
		return ChannelConfig{}, fmt.Errorf("socketcan: config %s: %d filters exceed table capacity %d",
			path, len(cfg.Filters), MaxFilters)
	}
	return cfg, nil
}
