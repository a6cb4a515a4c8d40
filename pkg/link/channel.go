package link

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// ByteChannel is the opaque, point-to-point byte transport the link layer
// is built on. WriteAll is blocking and treated as infallible except for
// genuine device failure. ReadByte is non-blocking: ok is false whenever
// no byte arrived within the device's polling granularity, which is the
// only way the controller's retransmission loop gets a chance to check
// the timer.
type ByteChannel interface {
	WriteAll(data []byte) error
	ReadByte() (b byte, ok bool, err error)
	Close() error
}

// pollInterval is how long ReadByte blocks waiting for a byte before
// reporting none available. It bounds how promptly the controller notices
// a timer expiration.
const pollInterval = 20 * time.Millisecond

// SerialChannel adapts a go.bug.st/serial port to the ByteChannel
// contract. go.bug.st/serial ports block on Read by default; a short
// per-call read timeout is what turns that into the non-blocking
// read_one() -> Option<byte> the link layer expects.
type SerialChannel struct {
	port serial.Port
}

// OpenSerialChannel opens portPath at baud, 8 data bits, no parity, one
// stop bit. A short per-call read timeout stands in for raw-mode
// VMIN=0/VTIME=0 polling.
func OpenSerialChannel(portPath string, baud int) (*SerialChannel, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portPath, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrChannelOpenFailed, portPath, err)
	}

	if err := port.SetReadTimeout(pollInterval); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("%w: set read timeout: %v", ErrChannelOpenFailed, err)
	}

	return &SerialChannel{port: port}, nil
}

// WriteAll writes data to the serial port in full.
func (s *SerialChannel) WriteAll(data []byte) error {
	off := 0
	for off < len(data) {
		n, err := s.port.Write(data[off:])
		if err != nil {
			return err
		}
		off += n
	}
	return nil
}

// ReadByte reads a single byte, returning ok=false if the read timeout
// elapsed with no byte available.
func (s *SerialChannel) ReadByte() (byte, bool, error) {
	buf := [1]byte{}
	n, err := s.port.Read(buf[:])
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	return buf[0], true, nil
}

// Close releases the serial port.
func (s *SerialChannel) Close() error {
	return s.port.Close()
}
