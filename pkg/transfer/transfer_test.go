package transfer

import (
	"bytes"
	"sync"
	"testing"

	"github.com/manelneto/penguin/pkg/link"
)

// memPipe is a minimal in-memory link.ByteChannel used to exercise Sender
// and Receiver end to end without a real serial device.
type memPipe struct {
	mu   sync.Mutex
	buf  []byte
	peer *memPipe
}

func newMemPipePair() (*memPipe, *memPipe) {
	a := &memPipe{}
	b := &memPipe{}
	a.peer, b.peer = b, a
	return a, b
}

func (p *memPipe) WriteAll(data []byte) error {
	p.peer.mu.Lock()
	defer p.peer.mu.Unlock()
	p.peer.buf = append(p.peer.buf, data...)
	return nil
}

func (p *memPipe) ReadByte() (byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buf) == 0 {
		return 0, false, nil
	}
	b := p.buf[0]
	p.buf = p.buf[1:]
	return b, true, nil
}

func (p *memPipe) Close() error { return nil }

func openPair(t *testing.T) (*link.Connection, *link.Connection) {
	t.Helper()
	txCh, rxCh := newMemPipePair()

	params := func(role link.Role) link.Params {
		return link.Params{
			Device:           "mem",
			Role:             role,
			BaudRate:         115200,
			NRetransmissions: 3,
			TimeoutSeconds:   1,
		}
	}

	var tx, rx *link.Connection
	var txErr, rxErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		tx, txErr = link.Open(params(link.Tx), txCh, link.NewCountdownTimer())
	}()
	go func() {
		defer wg.Done()
		rx, rxErr = link.Open(params(link.Rx), rxCh, link.NewCountdownTimer())
	}()
	wg.Wait()

	if txErr != nil {
		t.Fatalf("tx open: %v", txErr)
	}
	if rxErr != nil {
		t.Fatalf("rx open: %v", rxErr)
	}
	return tx, rx
}

func TestSendReceive_SingleChunk(t *testing.T) {
	tx, rx := openPair(t)

	sender := NewSender(tx)
	receiver := NewReceiver(rx)

	payload := []byte("hello, penguin")
	var sendErr error
	var gotName string
	var gotData []byte
	var recvErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); sendErr = sender.Send("greeting.txt", payload) }()
	go func() { defer wg.Done(); gotName, gotData, recvErr = receiver.Receive() }()
	wg.Wait()

	if sendErr != nil {
		t.Fatalf("send: %v", sendErr)
	}
	if recvErr != nil {
		t.Fatalf("receive: %v", recvErr)
	}
	if gotName != "greeting.txt" {
		t.Errorf("name = %q, want %q", gotName, "greeting.txt")
	}
	if !bytes.Equal(gotData, payload) {
		t.Errorf("data = %q, want %q", gotData, payload)
	}
}

func TestSendReceive_MultiChunk(t *testing.T) {
	tx, rx := openPair(t)

	sender := NewSender(tx)
	receiver := NewReceiver(rx)

	payload := bytes.Repeat([]byte{0xAB}, MaxDataSize*2+37) // two full chunks + a short tail
	var sendErr, recvErr error
	var gotData []byte

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); sendErr = sender.Send("blob.bin", payload) }()
	go func() { defer wg.Done(); _, gotData, recvErr = receiver.Receive() }()
	wg.Wait()

	if sendErr != nil {
		t.Fatalf("send: %v", sendErr)
	}
	if recvErr != nil {
		t.Fatalf("receive: %v", recvErr)
	}
	if !bytes.Equal(gotData, payload) {
		t.Fatalf("received %d bytes, want %d; content mismatch=%v", len(gotData), len(payload), !bytes.Equal(gotData, payload))
	}
}

func TestSendReceive_EmptyFile(t *testing.T) {
	tx, rx := openPair(t)

	sender := NewSender(tx)
	receiver := NewReceiver(rx)

	var sendErr, recvErr error
	var gotData []byte

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); sendErr = sender.Send("empty.bin", nil) }()
	go func() { defer wg.Done(); _, gotData, recvErr = receiver.Receive() }()
	wg.Wait()

	if sendErr != nil {
		t.Fatalf("send: %v", sendErr)
	}
	if recvErr != nil {
		t.Fatalf("receive: %v", recvErr)
	}
	if len(gotData) != 0 {
		t.Errorf("got %d bytes, want 0", len(gotData))
	}
}

func TestReceive_DataBeforeStartIsOutOfOrder(t *testing.T) {
	tx, rx := openPair(t)
	receiver := NewReceiver(rx)

	pkt, err := encodeData([]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("encodeData: %v", err)
	}

	var writeErr, recvErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, writeErr = tx.Write(pkt) }()
	go func() { defer wg.Done(); _, _, recvErr = receiver.Receive() }()
	wg.Wait()

	if writeErr != nil {
		t.Fatalf("write: %v", writeErr)
	}
	if recvErr != ErrOutOfOrder {
		t.Fatalf("err = %v, want ErrOutOfOrder", recvErr)
	}
}
