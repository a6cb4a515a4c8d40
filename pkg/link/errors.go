package link

import "errors"

// Error kinds returned by Connection operations. The codec and receiver
// never surface these directly; only Connection.Open/Write/Read/Close do,
// after exhausting the retry budget or hitting a condition the caller
// must act on.
var (
	// ErrChannelOpenFailed indicates the underlying byte channel could not be acquired.
	ErrChannelOpenFailed = errors.New("link: channel open failed")

	// ErrHandshakeTimeout indicates SET/UA did not complete within the retry budget.
	ErrHandshakeTimeout = errors.New("link: handshake timeout")

	// ErrWriteNoAck indicates an I-frame was not acknowledged within the retry budget.
	ErrWriteNoAck = errors.New("link: write not acknowledged")

	// ErrBadFrame indicates a BCC2 mismatch; a REJ was sent and the caller should read again.
	ErrBadFrame = errors.New("link: bad frame (BCC2 mismatch)")

	// ErrDuplicateFrame indicates a frame with the wrong sequence bit arrived; the
	// caller should read again.
	ErrDuplicateFrame = errors.New("link: duplicate frame")

	// ErrCloseTimeout indicates the DISC handshake did not complete within the retry budget.
	ErrCloseTimeout = errors.New("link: close timeout")

	// ErrWrongRole indicates an operation was invoked against its opposite role
	// (e.g. Write called on a Rx connection).
	ErrWrongRole = errors.New("link: operation not valid for this role")

	// ErrNotOpen indicates an operation was attempted before Open succeeded or
	// after Close released the channel.
	ErrNotOpen = errors.New("link: connection not open")

	// ErrBufferTooSmall indicates the caller's read buffer cannot hold the payload.
	ErrBufferTooSmall = errors.New("link: read buffer too small")
)
