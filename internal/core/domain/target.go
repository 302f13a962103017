package domain

import (
	"net"
	"strconv"
)

// Target identifies one machine under verification.
type Target struct {
	Name       string
	Host       string
	Port       int
	User       string
	KeyFile    string
	Password   string
	ConsoleURL string
	// TriggerCPU pins the crash trigger to a CPU via taskset; -1 disables pinning.
	TriggerCPU int
	// CrashKernel is the expected crashkernel= value on the booted cmdline.
	CrashKernel string
}

// Endpoint returns the host:port address of the target.
func (t Target) Endpoint() string {
	host := t.Host
	if host == "" {
		host = t.Name
	}
	port := t.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
