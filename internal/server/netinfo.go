package server

import (
	"fmt"
	"net"
)

// LocalIPv4Addrs returns the IPv4 addresses of every interface that is up
// and not a loopback.
func LocalIPv4Addrs() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	var out []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil || ip4.IsLoopback() {
				continue
			}
			out = append(out, ip4.String())
		}
	}
	return out, nil
}

// ConnectionURIs formats a ws:// URI per address, followed by the
// localhost URI.
func ConnectionURIs(addrs []string, port int) []string {
	uris := make([]string, 0, len(addrs)+1)
	for _, a := range addrs {
		uris = append(uris, fmt.Sprintf("ws://%s/", net.JoinHostPort(a, fmt.Sprint(port))))
	}
	return append(uris, fmt.Sprintf("ws://localhost:%d/", port))
}

func (s *Server) logConnectionURIs(port int) {
	addrs, err := LocalIPv4Addrs()
	if err != nil {
		s.logger.Warn("could not enumerate network interfaces", "err", err)
	}
	for _, uri := range ConnectionURIs(addrs, port) {
		s.logger.Info("available connection address", "uri", uri)
	}
}
