package task

import "strings"

// Host says where a task's commands run. The zero value is the local
// machine.
type Host struct {
	address string
}

// LocalHost is the machine the orchestrator runs on
var LocalHost = Host{}

// RemoteHost returns a host reached over SSH at address
func RemoteHost(address string) Host {
	return Host{address: address}
}

// ParseHost maps a definition's host field to a Host. Empty, "local",
// "localhost", "127.0.0.1" and "::1" (any case) are local; any other
// string is taken as a remote destination verbatim.
func ParseHost(s string) Host {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "local", "localhost", "127.0.0.1", "::1":
		return LocalHost
	}
	return RemoteHost(s)
}

// IsLocal reports whether the host is the local machine
func (h Host) IsLocal() bool {
	return h.address == ""
}

// Address returns the remote destination, empty for local
func (h Host) Address() string {
	return h.address
}

func (h Host) String() string {
	if h.IsLocal() {
		return "local"
	}
	return h.address
}
