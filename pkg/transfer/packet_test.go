package transfer

import (
	"errors"
	"testing"
)

func TestEncodeDecodeControlRoundTrip(t *testing.T) {
	cases := []struct {
		ctrl byte
		size uint64
		name string
	}{
		{ctrlStart, 0, "empty.bin"},
		{ctrlStart, 1234, "report.pdf"},
		{ctrlEnd, 1 << 40, "huge.bin"},
	}

	for _, c := range cases {
		pkt := encodeControl(c.ctrl, c.size, c.name)
		gotCtrl, gotSize, gotName, err := decodeControl(pkt)
		if err != nil {
			t.Fatalf("decode(%v): %v", c, err)
		}
		if gotCtrl != c.ctrl || gotSize != c.size || gotName != c.name {
			t.Errorf("got (%d,%d,%q), want (%d,%d,%q)", gotCtrl, gotSize, gotName, c.ctrl, c.size, c.name)
		}
	}
}

func TestDecodeControl_NoTrailingShiftBug(t *testing.T) {
	// A single size byte of 0xFF must decode to exactly 255, not 255<<8.
	pkt := []byte{ctrlStart, paramSize, 1, 0xFF, paramName, 1, 'x'}
	_, size, _, err := decodeControl(pkt)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if size != 0xFF {
		t.Errorf("size = %d, want 255", size)
	}
}

func TestEncodeDataRoundTrip(t *testing.T) {
	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = byte(i)
	}
	pkt, err := encodeData(payload)
	if err != nil {
		t.Fatalf("encodeData: %v", err)
	}
	if pkt[0] != ctrlData {
		t.Fatalf("C field = %d, want %d", pkt[0], ctrlData)
	}
	got, err := decodeData(pkt)
	if err != nil {
		t.Fatalf("decodeData: %v", err)
	}
	if len(got) != len(payload) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(payload))
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], payload[i])
		}
	}
}

func TestEncodeData_RejectsOversize(t *testing.T) {
	if _, err := encodeData(make([]byte, MaxDataSize+1)); !errors.Is(err, ErrDataTooLarge) {
		t.Fatalf("err = %v, want ErrDataTooLarge", err)
	}
}

func TestDecodeData_TruncatedSize(t *testing.T) {
	pkt := []byte{ctrlData, 0, 5, 1, 2} // declares 5 bytes, only 2 present
	if _, err := decodeData(pkt); err != ErrTruncatedPacket {
		t.Fatalf("err = %v, want ErrTruncatedPacket", err)
	}
}

func TestDecodeControl_UnknownType(t *testing.T) {
	pkt := []byte{ctrlData, paramSize, 1, 0, paramName, 0}
	if _, _, _, err := decodeControl(pkt); err != ErrUnknownPacketType {
		t.Fatalf("err = %v, want ErrUnknownPacketType", err)
	}
}

func TestBigEndianMinimal_ZeroIsOneByte(t *testing.T) {
	b := bigEndianMinimal(0)
	if len(b) != 1 || b[0] != 0 {
		t.Fatalf("bigEndianMinimal(0) = %v, want [0]", b)
	}
}
