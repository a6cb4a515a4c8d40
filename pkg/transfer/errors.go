package transfer

import "errors"

var (
	// ErrUnknownPacketType is returned when a packet's leading control byte
	// is none of START, DATA, END.
	ErrUnknownPacketType = errors.New("transfer: unknown packet type")
	// ErrTruncatedPacket is returned when a packet ends before its declared
	// field lengths are satisfied.
	ErrTruncatedPacket = errors.New("transfer: truncated packet")
	// ErrUnexpectedParam is returned when a control packet's parameter tag
	// is not the size (0) or name (1) tag this implementation understands.
	ErrUnexpectedParam = errors.New("transfer: unexpected control parameter")
	// ErrOutOfOrder is returned by the receiver when a data or END packet
	// arrives before a START packet has established the transfer.
	ErrOutOfOrder = errors.New("transfer: packet out of order")
	// ErrDataTooLarge is returned when a caller asks to send a chunk larger
	// than MaxDataSize.
	ErrDataTooLarge = errors.New("transfer: chunk exceeds MaxDataSize")
)
