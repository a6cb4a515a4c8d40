package transfer

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/manelneto/penguin/pkg/link"
)

// readBufferSize leaves headroom past the largest decoded packet
// (MaxDataSize plus the three-byte data-packet header) so escaping
// overhead in the raw frame never forces a short read.
const readBufferSize = 2*link.MaxDataSize + 16

// Receiver reassembles a Start/Data*/End packet sequence read from an
// Rx-role connection back into a file name and its bytes.
type Receiver struct {
	conn *link.Connection
}

// NewReceiver wraps an already-open Rx connection.
func NewReceiver(conn *link.Connection) *Receiver {
	return &Receiver{conn: conn}
}

// Receive blocks until a full Start..End sequence has been consumed. A
// BadFrame or DuplicateFrame from the link layer is recoverable at this
// layer: it simply re-enters the read.
func (r *Receiver) Receive() (fileName string, data []byte, err error) {
	started := false
	var expectedSize uint64

	for {
		pkt, err := r.readPacket()
		if err != nil {
			return "", nil, err
		}
		if len(pkt) == 0 {
			continue
		}

		switch pkt[0] {
		case ctrlStart:
			_, expectedSize, fileName, err = decodeControl(pkt)
			if err != nil {
				return "", nil, fmt.Errorf("transfer: start packet: %w", err)
			}
			data = make([]byte, 0, expectedSize)
			started = true
			log.Info().Str("file", fileName).Uint64("size", expectedSize).Msg("transfer: start received")

		case ctrlData:
			if !started {
				return "", nil, ErrOutOfOrder
			}
			chunk, err := decodeData(pkt)
			if err != nil {
				return "", nil, fmt.Errorf("transfer: data packet: %w", err)
			}
			data = append(data, chunk...)
			log.Debug().Int("total", len(data)).Msg("transfer: data packet received")

		case ctrlEnd:
			if !started {
				return "", nil, ErrOutOfOrder
			}
			if _, _, _, err := decodeControl(pkt); err != nil {
				return "", nil, fmt.Errorf("transfer: end packet: %w", err)
			}
			log.Info().Str("file", fileName).Int("size", len(data)).Msg("transfer: complete")
			return fileName, data, nil

		default:
			return "", nil, ErrUnknownPacketType
		}
	}
}

// readPacket keeps re-entering Connection.Read across recoverable link
// errors; the link layer has already RR'd or REJ'd the peer by the time
// it reports BadFrame or DuplicateFrame.
func (r *Receiver) readPacket() ([]byte, error) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.conn.Read(buf)
		if err == nil {
			return buf[:n], nil
		}
		if errors.Is(err, link.ErrBadFrame) || errors.Is(err, link.ErrDuplicateFrame) {
			continue
		}
		return nil, err
	}
}
