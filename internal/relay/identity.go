package relay

import "net"

// IdentityFromAddr renders a peer address such as "203.0.113.5:54321" or
// "[::1]:54321" as "<address>:<port>". IPv6 hosts are written without
// brackets. Addresses that cannot be split are returned unchanged.
func IdentityFromAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host + ":" + port
}

// Identity is IdentityFromAddr for a net.Addr. A nil address yields
// "unknown".
func Identity(addr net.Addr) string {
	if addr == nil {
		return "unknown"
	}
	return IdentityFromAddr(addr.String())
}
