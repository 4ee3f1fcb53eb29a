package network

import (
	"testing"

	gopsnet "github.com/shirou/gopsutil/v4/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUsable(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
		want  bool
	}{
		{name: "up broadcast", flags: []string{"up", "broadcast", "multicast"}, want: true},
		{name: "loopback", flags: []string{"up", "loopback"}, want: false},
		{name: "down", flags: []string{"broadcast"}, want: false},
		{name: "no flags", flags: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUsable(tt.flags))
		})
	}
}

func TestFirstIPv4(t *testing.T) {
	tests := []struct {
		name  string
		addrs []gopsnet.InterfaceAddr
		want  string
	}{
		{
			name:  "cidr form",
			addrs: []gopsnet.InterfaceAddr{{Addr: "192.168.1.50/24"}},
			want:  "192.168.1.50",
		},
		{
			name:  "plain form",
			addrs: []gopsnet.InterfaceAddr{{Addr: "10.0.0.5"}},
			want:  "10.0.0.5",
		},
		{
			name: "ipv6 skipped",
			addrs: []gopsnet.InterfaceAddr{
				{Addr: "fe80::1/64"},
				{Addr: "172.16.0.9/16"},
			},
			want: "172.16.0.9",
		},
		{
			name:  "garbage skipped",
			addrs: []gopsnet.InterfaceAddr{{Addr: "not-an-address"}},
			want:  "",
		},
		{
			name:  "empty",
			addrs: nil,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstIPv4(tt.addrs))
		})
	}
}

func TestMatchByIP(t *testing.T) {
	interfaces := []*InterfaceInfo{
		{Name: "eth0", IP: "192.168.1.50"},
		{Name: "eth1", IP: "10.0.0.5"},
	}

	info := matchByIP(interfaces, "10.0.0.5")
	require.NotNil(t, info)
	assert.Equal(t, "eth1", info.Name)

	assert.Nil(t, matchByIP(interfaces, "203.0.113.9"))
}

func TestListReturnsUsableInterfaces(t *testing.T) {
	infos, err := List()
	require.NoError(t, err)

	// The machine running the test may have no usable interface, but
	// every returned entry must be complete.
	for _, info := range infos {
		assert.NotEmpty(t, info.Name)
		assert.NotEmpty(t, info.IP)
	}
}
