// Package link provides the physical transports a printer is reachable over:
// BLE GATT, TCP over infrastructure Wi-Fi, TCP over the printer's own AP, and
// the UDP discovery channel. All connected transports satisfy one byte-pipe
// contract; the connection manager neither knows nor cares which is active.
package link

import (
	"context"
	"errors"
)

var (
	ErrNotConnected = errors.New("link is not connected")
	ErrWriteTimeout = errors.New("link write timed out")
)

// Strategy is a half-duplex byte pipe to one printer.
//
// SendData blocks its caller until the bytes are handed to the wire or the
// write fails; implementations allow one outstanding write at a time.
// Inbound bytes arrive on the receive callback from the strategy's own I/O
// goroutine; the callback must be set before Connect.
type Strategy interface {
	Connect(ctx context.Context) error
	Disconnect() error
	SendData(data []byte) error
	SetOnReceive(fn func(data []byte))
}

// Notifier is implemented by strategies that report unsolicited lifecycle
// transitions (drops, reconnect exhaustion).
type Notifier interface {
	SetOnDisconnect(fn func())
	SetOnFailToReconnect(fn func())
}
