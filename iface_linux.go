//go:build linux

package socketcan

import (
	"errors"
	"fmt"
	"os/exec"

	"golang.org/x/sys/unix"
)

// Linux network interface helpers for CAN devices.
//
// Toggling IFF_UP and changing link parameters requires CAP_NET_ADMIN; when
// run without sufficient privileges these functions return EPERM, wrapped
// with guidance.

func interfaceFlags(name string) (uint16, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return 0, err
	}
	defer unix.Close(fd)
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return 0, fmt.Errorf("socketcan: invalid interface name %q: %w", name, err)
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
		return 0, err
	}
	return ifr.Uint16(), nil
}

func setInterfaceFlags(name string, flags uint16) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return fmt.Errorf("socketcan: invalid interface name %q: %w", name, err)
	}
	ifr.SetUint16(flags)
	return unix.IoctlIfreq(fd, unix.SIOCSIFFLAGS, ifr)
}

// IsInterfaceUp returns true if the interface has IFF_UP set.
func IsInterfaceUp(name string) (bool, error) {
	flags, err := interfaceFlags(name)
	if err != nil {
		return false, err
	}
	return flags&unix.IFF_UP != 0, nil
}

// SetInterfaceUp sets IFF_UP on the interface. Requires CAP_NET_ADMIN.
func SetInterfaceUp(name string) error {
	flags, err := interfaceFlags(name)
	if err != nil {
		return wrapNetAdmin(err)
	}
	if flags&unix.IFF_UP != 0 {
		return nil
	}
	return wrapNetAdmin(setInterfaceFlags(name, flags|unix.IFF_UP))
}

// SetInterfaceDown clears IFF_UP on the interface. Requires CAP_NET_ADMIN.
func SetInterfaceDown(name string) error {
	flags, err := interfaceFlags(name)
	if err != nil {
		return wrapNetAdmin(err)
	}
	if flags&unix.IFF_UP == 0 {
		return nil
	}
	return wrapNetAdmin(setInterfaceFlags(name, flags&^unix.IFF_UP))
}

// wrapNetAdmin maps EPERM to a clearer message advising to grant
// CAP_NET_ADMIN to the binary.
func wrapNetAdmin(err error) error {
	if errors.Is(err, unix.EPERM) {
		return fmt.Errorf("socketcan: operation requires CAP_NET_ADMIN (or root): %w", err)
	}
	return err
}

// LinkOptions holds CAN link parameters applied through iproute2.
//
// Changing the bitrate or restart delay typically requires the interface to
// be down; call SetInterfaceDown first and bring it back up afterwards.
type LinkOptions struct {
	// Bitrate is the arbitration bit-rate in bits per second
	// (e.g. 125000, 500000, 1000000). Nil leaves it unchanged.
	Bitrate *uint32

	// RestartMs is the automatic bus-off recovery delay in milliseconds;
	// 0 disables auto-restart. Nil leaves it unchanged.
	RestartMs *uint32
}

// ConfigureLink applies the non-nil LinkOptions fields to a CAN interface by
// invoking the system `ip` command. Requires CAP_NET_ADMIN.
func ConfigureLink(name string, opts LinkOptions) error {
	if opts.Bitrate == nil && opts.RestartMs == nil {
		return nil
	}
	args := []string{"link", "set", "dev", name, "type", "can"}
	if opts.Bitrate != nil {
		args = append(args, "bitrate", fmt.Sprintf("%d", *opts.Bitrate))
	}
	if opts.RestartMs != nil {
		args = append(args, "restart-ms", fmt.Sprintf("%d", *opts.RestartMs))
	}
	if out, err := exec.Command("ip", args...).CombinedOutput(); err != nil {
		return wrapNetAdmin(fmt.Errorf("socketcan: ip link set type can failed: %w; output: %s", err, out))
	}
	return nil
}
