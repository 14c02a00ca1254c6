package domain

import "time"

// ConnectionState represents the state of a blockchain connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)

// ConnectionStatus contains detailed connection information.
type ConnectionStatus struct {
	State      ConnectionState
	ChainID    uint64
	LastUpdate time.Time
}
