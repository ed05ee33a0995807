package channel

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// Mode is how the participant processes were launched. It decides which
// address the server binds.
type Mode string

const (
	// Subprocess means both participants run on the same host.
	Subprocess Mode = "subprocess"
	// Docker means each participant runs in its own container and the server
	// binds the address of its container.
	Docker Mode = "docker"
)

// ErrUnknownMode is returned for a launch mode other than Subprocess or Docker.
var ErrUnknownMode = errors.New("channel: unknown launch mode")

// ParseMode validates a launch mode name.
func ParseMode(name string) (Mode, error) {
	switch m := Mode(name); m {
	case Subprocess, Docker:
		return m, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownMode, name)
	}
}

// BindAddress returns the address the server listens on in the given mode.
func BindAddress(mode Mode) (string, error) {
	switch mode {
	case Subprocess:
		return "localhost", nil
	case Docker:
		return hostAddress()
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownMode, string(mode))
	}
}

func hostAddress() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("channel: failed to get hostname: %w", err)
	}
	addrs, err := net.LookupHost(hostname)
	if err != nil {
		return "", fmt.Errorf("channel: failed to resolve %s: %w", hostname, err)
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			return a, nil
		}
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("channel: no address for %s", hostname)
	}
	return addrs[0], nil
}
