// Package link connects the host application to a power stage: a real board
// over a serial port, or an in-process simulation of one.
package link

import "github.com/itohio/gosone/pkg/wire"

// Device defines the interface for power stage devices (real or mocked).
type Device interface {
	Connect() error
	Close() error
	// Events returns the parsed lines printed by the device. The channel is
	// closed after Close.
	Events() <-chan wire.Event
	// Send writes one operator command line.
	Send(cmd string) error
	IsConnected() bool
}

var (
	_ Device = (*Serial)(nil)
	_ Device = (*Mock)(nil)
)
