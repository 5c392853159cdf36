package netutil

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/leaf/xerrors"
)

func TestFirstIPv4_Unit(t *testing.T) {
	ifaces := []net.Interface{
		{Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
		{Name: "down0", Flags: 0},
		{Name: "eth0", Flags: net.FlagUp},
	}
	addrs := map[string][]net.Addr{
		"lo":    {&net.IPNet{IP: net.ParseIP("127.0.0.1")}},
		"down0": {&net.IPNet{IP: net.ParseIP("10.0.0.9")}},
		"eth0": {
			&net.IPNet{IP: net.ParseIP("fe80::1")},
			&net.IPNet{IP: net.ParseIP("192.168.1.20")},
		},
	}
	ip, err := firstIPv4(ifaces, func(i net.Interface) ([]net.Addr, error) { return addrs[i.Name], nil })
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20", ip)

	_, err = firstIPv4(ifaces[:2], func(i net.Interface) ([]net.Addr, error) { return addrs[i.Name], nil })
	assert.True(t, xerrors.Is(err, ErrNoAddress))
}

func TestResolve_Unit(t *testing.T) {
	ip, err := Resolve("10.1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3", ip)

	_, err = Resolve("not-an-ip")
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))
}
