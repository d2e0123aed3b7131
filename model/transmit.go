package model

import "io"

// Sender is the bus capability: deliver payload from src to dst.
type Sender interface {
	Send(src, dst byte, payload []byte) error
}

// Bus is a Sender that owns a device or connection.
type Bus interface {
	Sender
	io.Closer
}

// Transmit hands the bank's current payload to s. Whatever s does with it,
// including failing, is the transport's business; the error is passed back as is.
func Transmit(s Sender, b *LampBank) error {
	return s.Send(b.Source(), b.Destination(), b.Payload())
}
