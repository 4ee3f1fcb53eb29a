// Package network probes the local host's interfaces. The deploy
// prompts use the results to seed the external IP and access gateway
// interface defaults.
package network

import (
	"fmt"
	"net"

	gopsnet "github.com/shirou/gopsutil/v4/net"
)

// InterfaceInfo describes one usable network interface.
type InterfaceInfo struct {
	Name string
	MAC  string
	IP   string
}

// DetectPrimary returns the interface that owns the host's outbound
// route, with its first IPv4 address. Hosts without a default route
// return an error; callers fall back to static defaults.
func DetectPrimary() (*InterfaceInfo, error) {
	outbound, err := outboundIP()
	if err != nil {
		return nil, err
	}
	interfaces, err := List()
	if err != nil {
		return nil, err
	}
	info := matchByIP(interfaces, outbound)
	if info == nil {
		return nil, fmt.Errorf("no interface carries outbound address %s", outbound)
	}
	return info, nil
}

// List returns every up, non-loopback interface that has an IPv4
// address.
func List() ([]*InterfaceInfo, error) {
	stats, err := gopsnet.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	var infos []*InterfaceInfo
	for _, stat := range stats {
		if !isUsable(stat.Flags) {
			continue
		}
		ip := firstIPv4(stat.Addrs)
		if ip == "" {
			continue
		}
		infos = append(infos, &InterfaceInfo{
			Name: stat.Name,
			MAC:  stat.HardwareAddr,
			IP:   ip,
		})
	}
	return infos, nil
}

// outboundIP asks the route table which source address would reach an
// external host. The UDP dial only binds; nothing is sent.
func outboundIP() (string, error) {
	conn, err := net.Dial("udp4", "203.0.113.1:9")
	if err != nil {
		return "", fmt.Errorf("failed to determine outbound address: %w", err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil {
		return "", fmt.Errorf("no outbound address on local route")
	}
	return addr.IP.String(), nil
}

// isUsable filters out loopback and down interfaces.
func isUsable(flags []string) bool {
	up := false
	for _, flag := range flags {
		switch flag {
		case "loopback":
			return false
		case "up":
			up = true
		}
	}
	return up
}

// firstIPv4 returns the first IPv4 address in the list, stripped of
// its prefix length. Addresses may arrive in CIDR or plain form.
func firstIPv4(addrs []gopsnet.InterfaceAddr) string {
	for _, addr := range addrs {
		ip, _, err := net.ParseCIDR(addr.Addr)
		if err != nil {
			ip = net.ParseIP(addr.Addr)
		}
		if ip == nil {
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
	}
	return ""
}

func matchByIP(interfaces []*InterfaceInfo, ip string) *InterfaceInfo {
	for _, info := range interfaces {
		if info.IP == ip {
			return info
		}
	}
	return nil
}
