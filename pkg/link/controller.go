package link

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Stats accumulates the per-connection counters. They live on the
// connection value, never as package globals, and are reported by Close
// when the caller asks for them.
type Stats struct {
	Role               Role
	Device             string
	StartedAt          time.Time
	EndedAt            time.Time
	FramesSent         int
	FramesReceived     int
	BytesSent          int
	BytesReceived      int
	Retransmissions    int
	TimerExpirations   int
	RejectsSent        int
	RejectsReceived    int
	DuplicatesReceived int
}

// Connection owns the retransmission loop, the per-role sequence counters
// V(s)/V(r), and the byte channel/timer for one open/write*/read*/close
// lifecycle. It must not be accessed concurrently; the scheduling model
// is single-threaded cooperative.
type Connection struct {
	params  Params
	channel ByteChannel
	timer   Timer

	vs uint8 // V(s), sender sequence, Tx only
	vr uint8 // V(r), receiver sequence, Rx only

	isOpen bool
	stats  Stats
}

// Open performs the SET/UA (Tx) or SET-wait/UA-reply (Rx) handshake over
// an already-acquired channel and timer, and returns a ready connection.
// Use OpenSerial for the common case of a real serial device.
func Open(params Params, channel ByteChannel, timer Timer) (*Connection, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	c := &Connection{
		params:  params,
		channel: channel,
		timer:   timer,
		stats: Stats{
			Role:      params.Role,
			Device:    params.Device,
			StartedAt: time.Now(),
		},
	}

	var err error
	if params.Role == Tx {
		err = c.openTx()
	} else {
		err = c.openRx()
	}
	if err != nil {
		return nil, err
	}

	c.isOpen = true
	log.Info().Str("role", params.Role.String()).Str("device", params.Device).Msg("link: connection open")
	return c, nil
}

// OpenSerial opens a real serial port and performs the handshake.
func OpenSerial(params Params) (*Connection, error) {
	channel, err := OpenSerialChannel(params.Device, params.BaudRate)
	if err != nil {
		return nil, err
	}
	conn, err := Open(params, channel, NewCountdownTimer())
	if err != nil {
		_ = channel.Close()
		return nil, err
	}
	return conn, nil
}

func (c *Connection) timeout() time.Duration {
	return time.Duration(c.params.TimeoutSeconds) * time.Second
}

func (c *Connection) budget() int {
	return c.params.NRetransmissions + 1
}

func (c *Connection) writeFrame(frame []byte) error {
	if err := c.channel.WriteAll(frame); err != nil {
		return fmt.Errorf("link: channel write: %w", err)
	}
	c.stats.FramesSent++
	c.stats.BytesSent += len(frame)
	return nil
}

// readByte polls the channel once; ok is false when nothing arrived.
func (c *Connection) readByte() (byte, bool, error) {
	b, ok, err := c.channel.ReadByte()
	if err != nil {
		return 0, false, fmt.Errorf("link: channel read: %w", err)
	}
	return b, ok, nil
}

// openTx drives the SET/UA handshake, retrying on timer expiration.
func (c *Connection) openTx() error {
	frame := encodeSupervisory(addrCmd, cSET)

	for attempt := 0; attempt < c.budget(); attempt++ {
		if attempt > 0 {
			c.stats.Retransmissions++
			log.Warn().Int("attempt", attempt).Msg("link: SET timed out, retrying")
		}
		if err := c.writeFrame(frame); err != nil {
			return err
		}
		c.timer.Arm(c.timeout())

		parser := NewParser(addrCmd, cUA)
		for !c.timer.Expired() {
			b, ok, err := c.readByte()
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if _, done := parser.Step(b); done {
				c.timer.Disarm()
				c.vs, c.vr = 0, 0
				c.stats.FramesReceived++
				return nil
			}
		}
		c.stats.TimerExpirations++
	}

	return ErrHandshakeTimeout
}

// openRx waits indefinitely for SET, then replies UA.
func (c *Connection) openRx() error {
	parser := NewParser(addrCmd, cSET)
	for {
		b, ok, err := c.readByte()
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if _, done := parser.Step(b); done {
			break
		}
	}
	c.stats.FramesReceived++
	c.vs, c.vr = 0, 0

	return c.writeFrame(encodeSupervisory(addrCmd, cUA))
}

// Write sends buf as a single I-frame and blocks until it is acknowledged
// or the retry budget is exhausted. The link layer does not fragment buf;
// callers larger than MaxDataSize belong in pkg/transfer.
func (c *Connection) Write(buf []byte) (int, error) {
	if !c.isOpen {
		return 0, ErrNotOpen
	}
	if c.params.Role != Tx {
		return 0, ErrWrongRole
	}

	s := c.vs
	next := 1 - s
	frame := encodeInformation(buf, s)

	for attempt := 0; attempt < c.budget(); attempt++ {
		if attempt > 0 {
			log.Warn().Int("attempt", attempt).Uint8("seq", s).Msg("link: I-frame not acknowledged, retrying")
		}
		if err := c.writeFrame(frame); err != nil {
			return 0, err
		}
		c.timer.Arm(c.timeout())

		parser := NewParser(addrCmd, cRR(next), cREJ(s))
		accepted, rejected := false, false

		for !accepted && !rejected && !c.timer.Expired() {
			b, ok, err := c.readByte()
			if err != nil {
				return 0, err
			}
			if !ok {
				continue
			}
			res, done := parser.Step(b)
			if !done {
				continue
			}
			c.stats.FramesReceived++
			switch res.C {
			case cRR(next):
				accepted = true
			case cREJ(s):
				rejected = true
			}
		}

		if accepted {
			c.timer.Disarm()
			c.vs = next
			return len(buf), nil
		}

		c.stats.Retransmissions++
		if rejected {
			c.stats.RejectsReceived++
			// Immediate resend: the peer already told us it's ready.
			continue
		}
		c.stats.TimerExpirations++
	}

	return 0, ErrWriteNoAck
}

// Read blocks until the next I-frame arrives, writing its unescaped
// payload into out. It returns ErrDuplicateFrame or ErrBadFrame for
// recoverable conditions the caller (application layer) should just
// read again for, and the payload length on success.
func (c *Connection) Read(out []byte) (int, error) {
	if !c.isOpen {
		return 0, ErrNotOpen
	}
	if c.params.Role != Rx {
		return 0, ErrWrongRole
	}

	r := c.vr
	parser := NewParser(addrCmd, cInfo(0), cInfo(1))

	for {
		b, ok, err := c.readByte()
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}

		res, done := parser.Step(b)
		if !done {
			continue
		}
		c.stats.FramesReceived++

		if res.C != cInfo(r) {
			c.stats.DuplicatesReceived++
			log.Warn().Uint8("expected", r).Msg("link: duplicate I-frame, resynchronizing")
			if err := c.writeFrame(encodeSupervisory(addrCmd, cRR(r))); err != nil {
				return 0, err
			}
			return 0, ErrDuplicateFrame
		}

		if res.BadFrame {
			c.stats.RejectsSent++
			log.Warn().Uint8("seq", r).Msg("link: BCC2 mismatch, requesting resend")
			if err := c.writeFrame(encodeSupervisory(addrCmd, cREJ(r))); err != nil {
				return 0, err
			}
			return 0, ErrBadFrame
		}

		if len(res.Payload) > len(out) {
			return 0, ErrBufferTooSmall
		}

		n := copy(out, res.Payload)
		c.vr = 1 - r
		c.stats.BytesReceived += n
		if err := c.writeFrame(encodeSupervisory(addrCmd, cRR(c.vr))); err != nil {
			return 0, err
		}
		return n, nil
	}
}

// Close runs the DISC/DISC/UA (Tx) or DISC-wait/DISC-reply (Rx) handshake
// and releases the byte channel. When showStatistics is true the
// accumulated Stats are logged at Info level; they are always returned
// via Stats() regardless, so a caller can persist them to pkg/history.
func (c *Connection) Close(showStatistics bool) error {
	if !c.isOpen {
		return ErrNotOpen
	}

	var err error
	if c.params.Role == Tx {
		err = c.closeTx()
	} else {
		err = c.closeRx()
	}

	c.isOpen = false
	c.stats.EndedAt = time.Now()

	if showStatistics {
		log.Info().
			Str("role", c.stats.Role.String()).
			Int("frames_sent", c.stats.FramesSent).
			Int("frames_received", c.stats.FramesReceived).
			Int("bytes_sent", c.stats.BytesSent).
			Int("bytes_received", c.stats.BytesReceived).
			Int("retransmissions", c.stats.Retransmissions).
			Int("timer_expirations", c.stats.TimerExpirations).
			Dur("duration", c.stats.EndedAt.Sub(c.stats.StartedAt)).
			Msg("link: connection statistics")
	}

	closeErr := c.channel.Close()
	if err != nil {
		return err
	}
	return closeErr
}

func (c *Connection) closeTx() error {
	success := false

	for attempt := 0; attempt < c.budget() && !success; attempt++ {
		if attempt > 0 {
			c.stats.Retransmissions++
		}
		if err := c.writeFrame(encodeSupervisory(addrCmd, cDISC)); err != nil {
			return err
		}
		c.timer.Arm(c.timeout())

		parser := NewParser(addrClose, cDISC)
		for !c.timer.Expired() {
			b, ok, err := c.readByte()
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if _, done := parser.Step(b); done {
				success = true
				break
			}
		}
		if !success {
			c.stats.TimerExpirations++
		}
	}

	if !success {
		return ErrCloseTimeout
	}
	c.timer.Disarm()
	c.stats.FramesReceived++

	return c.writeFrame(encodeSupervisory(addrClose, cUA))
}

// closeRx waits for DISC and replies with its own DISC using A_CLOSE; it
// does not wait for the final UA, so the closing side absorbs any loss of
// that last frame (TIME_WAIT-style asymmetry).
func (c *Connection) closeRx() error {
	parser := NewParser(addrCmd, cDISC)
	for {
		b, ok, err := c.readByte()
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if _, done := parser.Step(b); done {
			break
		}
	}
	c.stats.FramesReceived++

	return c.writeFrame(encodeSupervisory(addrClose, cDISC))
}

// Stats returns a snapshot of the accumulated per-connection counters.
func (c *Connection) Stats() Stats {
	return c.stats
}
