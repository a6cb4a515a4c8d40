package transfer

import "fmt"

// Control packet types.
const (
	ctrlData  byte = 1
	ctrlStart byte = 2
	ctrlEnd   byte = 3
)

// Control packet parameter tags.
const (
	paramSize byte = 0
	paramName byte = 1
)

// MaxDataSize bounds a single data packet's payload. A file larger than
// this is split across ⌈size/MaxDataSize⌉ data packets by Sender.
const MaxDataSize = 512

// encodeControl builds a START or END packet per the wire layout:
// [C, T1=size, L1, size_bytes…, T2=name, L2, name_bytes…].
func encodeControl(ctrl byte, fileSize uint64, fileName string) []byte {
	sizeBytes := bigEndianMinimal(fileSize)
	nameBytes := []byte(fileName)

	pkt := make([]byte, 0, 3+len(sizeBytes)+2+len(nameBytes))
	pkt = append(pkt, ctrl, paramSize, byte(len(sizeBytes)))
	pkt = append(pkt, sizeBytes...)
	pkt = append(pkt, paramName, byte(len(nameBytes)))
	pkt = append(pkt, nameBytes...)
	return pkt
}

// decodeControl parses a START or END packet, returning the file size and
// name it carries. The size field is decoded one byte at a time, shifting
// before the OR so the last byte lands in the low bits.
func decodeControl(pkt []byte) (ctrl byte, fileSize uint64, fileName string, err error) {
	if len(pkt) < 1 {
		return 0, 0, "", ErrTruncatedPacket
	}
	ctrl = pkt[0]
	if ctrl != ctrlStart && ctrl != ctrlEnd {
		return 0, 0, "", ErrUnknownPacketType
	}

	idx := 1
	if idx >= len(pkt) || pkt[idx] != paramSize {
		return 0, 0, "", ErrUnexpectedParam
	}
	idx++
	if idx >= len(pkt) {
		return 0, 0, "", ErrTruncatedPacket
	}
	l1 := int(pkt[idx])
	idx++
	if idx+l1 > len(pkt) {
		return 0, 0, "", ErrTruncatedPacket
	}
	for _, b := range pkt[idx : idx+l1] {
		fileSize = fileSize<<8 | uint64(b)
	}
	idx += l1

	if idx >= len(pkt) || pkt[idx] != paramName {
		return 0, 0, "", ErrUnexpectedParam
	}
	idx++
	if idx >= len(pkt) {
		return 0, 0, "", ErrTruncatedPacket
	}
	l2 := int(pkt[idx])
	idx++
	if idx+l2 > len(pkt) {
		return 0, 0, "", ErrTruncatedPacket
	}
	fileName = string(pkt[idx : idx+l2])

	return ctrl, fileSize, fileName, nil
}

// encodeData builds a data packet: [C=1, L2=size/256, L1=size%256, payload…].
func encodeData(payload []byte) ([]byte, error) {
	if len(payload) > MaxDataSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrDataTooLarge, len(payload), MaxDataSize)
	}
	size := len(payload)
	pkt := make([]byte, 0, 3+size)
	pkt = append(pkt, ctrlData, byte(size/256), byte(size%256))
	pkt = append(pkt, payload...)
	return pkt, nil
}

func decodeData(pkt []byte) ([]byte, error) {
	if len(pkt) < 3 {
		return nil, ErrTruncatedPacket
	}
	if pkt[0] != ctrlData {
		return nil, ErrUnknownPacketType
	}
	size := int(pkt[1])*256 + int(pkt[2])
	if len(pkt)-3 != size {
		return nil, ErrTruncatedPacket
	}
	return pkt[3:], nil
}

// bigEndianMinimal encodes v in the fewest big-endian bytes that represent
// it, always at least one byte (so a zero-length file still has a size
// field).
func bigEndianMinimal(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	var buf [8]byte
	n := 0
	for v > 0 {
		buf[n] = byte(v & 0xFF)
		v >>= 8
		n++
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = buf[n-1-i]
	}
	return out
}
