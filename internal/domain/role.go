package domain

import "net"

type Role int

const (
	RoleFollower Role = iota
	RoleLeader
)

func (r Role) String() string {
	if r == RoleLeader {
		return "leader"
	}
	return "follower"
}

// RoleFromIP grants leadership to loopback peers only. An unparsable
// address is a follower.
func RoleFromIP(ip net.IP) Role {
	if ip != nil && ip.IsLoopback() {
		return RoleLeader
	}
	return RoleFollower
}
