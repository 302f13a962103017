package domain

// ConnectionState tracks reachability of a target during a session.
type ConnectionState string

const (
	ConnectionUnknown      ConnectionState = "unknown"
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionConnected    ConnectionState = "connected"
)
