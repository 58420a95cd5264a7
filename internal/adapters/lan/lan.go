// Package lan finds the address other machines on the local network can
// reach this host at.
package lan

import (
	"net"

	"github.com/rs/zerolog/log"
)

const Fallback = "127.0.0.1"

// LocalIP "connects" a UDP socket towards probeAddr and reports the local
// address the kernel picked. No packet is sent. Any failure yields Fallback.
func LocalIP(probeAddr string) string {
	conn, err := net.Dial("udp", probeAddr)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.lan").Msg("lan probe failed, using loopback")
		return Fallback
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil || addr.IP.IsUnspecified() {
		return Fallback
	}
	return addr.IP.String()
}
