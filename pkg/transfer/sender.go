package transfer

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/manelneto/penguin/pkg/link"
)

// Sender packetizes an in-memory buffer into a Start packet, a run of Data
// packets, and an End packet, writing each through a Tx-role connection.
type Sender struct {
	conn *link.Connection
}

// NewSender wraps an already-open Tx connection.
func NewSender(conn *link.Connection) *Sender {
	return &Sender{conn: conn}
}

// Send transmits data under fileName. The next unsent offset is tracked
// as an index into data, so the slice's base is never lost partway
// through a multi-chunk send.
func (s *Sender) Send(fileName string, data []byte) error {
	start := encodeControl(ctrlStart, uint64(len(data)), fileName)
	if err := s.writePacket(start); err != nil {
		return fmt.Errorf("transfer: start packet: %w", err)
	}
	log.Info().Str("file", fileName).Int("size", len(data)).Msg("transfer: start")

	for index := 0; index < len(data); {
		end := index + MaxDataSize
		if end > len(data) {
			end = len(data)
		}
		pkt, err := encodeData(data[index:end])
		if err != nil {
			return fmt.Errorf("transfer: data packet at offset %d: %w", index, err)
		}
		if err := s.writePacket(pkt); err != nil {
			return fmt.Errorf("transfer: data packet at offset %d: %w", index, err)
		}
		log.Debug().Int("offset", index).Int("chunk", end-index).Msg("transfer: data packet sent")
		index = end
	}

	end := encodeControl(ctrlEnd, uint64(len(data)), fileName)
	if err := s.writePacket(end); err != nil {
		return fmt.Errorf("transfer: end packet: %w", err)
	}
	log.Info().Str("file", fileName).Msg("transfer: complete")

	return nil
}

func (s *Sender) writePacket(pkt []byte) error {
	_, err := s.conn.Write(pkt)
	return err
}
