package link

import "github.com/rs/zerolog/log"

// rxState mirrors the automaton in the framing specification: a single
// byte-at-a-time walk through START -> FLAG_RCV -> A_RCV -> C_RCV ->
// BCC1_OK -> [DATA] -> STOP. Any FLAG that is not the trailing one
// restarts the walk at FLAG_RCV.
type rxState int

const (
	rxStart rxState = iota
	rxFlagRcv
	rxARcv
	rxCRcv
	rxBCC1OK
)

// Result is what a completed frame parse yields: the accepted C value and,
// for I-frames, the unescaped payload. BadFrame is set when an I-frame's
// BCC2 failed to validate; Payload is still the best-effort decode in that
// case (the caller discards it).
type Result struct {
	C        byte
	Payload  []byte
	BadFrame bool
}

// isInformationC reports whether c is one of the two I-frame control
// values; everything else accepted by a Parser is supervisory (SET, UA,
// DISC, RR, REJ all have bit 7 or the low bits set, never 0x00/0x40).
func isInformationC(c byte) bool {
	return c == cInfo(0) || c == cInfo(1)
}

// Parser is a pure per-byte automaton parameterized by the expected
// address byte and the set of C values it will accept. It has no
// knowledge of timers or channels; the controller drives it one byte at
// a time and inspects Step's return value.
type Parser struct {
	expectedA byte
	acceptedC []byte

	state  rxState
	aCheck byte
	cCheck byte

	dataBuf       []byte
	escapePending bool
}

// NewParser builds a parser expecting address byte expectedA and
// accepting any of the given C values.
func NewParser(expectedA byte, acceptedC ...byte) *Parser {
	return &Parser{expectedA: expectedA, acceptedC: acceptedC}
}

// Reset returns the parser to START, discarding any partial frame.
func (p *Parser) Reset() {
	p.state = rxStart
	p.dataBuf = p.dataBuf[:0]
	p.escapePending = false
}

func (p *Parser) accepts(c byte) bool {
	for _, v := range p.acceptedC {
		if v == c {
			return true
		}
	}
	return false
}

// dataOverflowLimit bounds the DATA sub-state buffer so a corrupt stream
// that never re-synchronizes on a FLAG cannot grow without bound; on
// overflow the parser resets to START, which harmlessly scans forward
// for the next FLAG exactly as the resynchronization rule requires.
const dataOverflowLimit = 2*MaxDataSize + 16

// Step feeds one byte into the automaton. It returns (Result{}, false)
// while the frame is incomplete, and (Result, true) once a frame has been
// accepted (STOP reached for a supervisory frame, or the closing FLAG of
// an I-frame's DATA sub-state).
func (p *Parser) Step(b byte) (Result, bool) {
	if e := log.Debug(); e.Enabled() {
		e.Int("state", int(p.state)).Uint8("byte", b).Msg("link: rx byte")
	}

	switch p.state {
	case rxStart:
		if b == flagByte {
			p.state = rxFlagRcv
		}

	case rxFlagRcv:
		switch {
		case b == flagByte:
			// stay in FLAG_RCV
		case b == p.expectedA:
			p.aCheck = b
			p.state = rxARcv
		default:
			p.state = rxStart
		}

	case rxARcv:
		switch {
		case b == flagByte:
			p.state = rxFlagRcv
		case p.accepts(b):
			p.cCheck = b
			p.state = rxCRcv
		default:
			p.state = rxStart
		}

	case rxCRcv:
		switch {
		case b == (p.aCheck ^ p.cCheck):
			p.state = rxBCC1OK
			if isInformationC(p.cCheck) {
				p.dataBuf = p.dataBuf[:0]
				p.escapePending = false
			}
		case b == flagByte:
			p.state = rxFlagRcv
		default:
			p.state = rxStart
		}

	case rxBCC1OK:
		if !isInformationC(p.cCheck) {
			// Supervisory frame: FLAG is STOP, anything else restarts.
			p.state = rxStart
			if b == flagByte {
				return Result{C: p.cCheck}, true
			}
			return Result{}, false
		}
		return p.stepData(b)
	}

	return Result{}, false
}

// stepData handles the DATA sub-state entered after BCC1_OK for an
// I-frame: bytes are un-escaped and buffered until an unescaped FLAG
// arrives, at which point the last buffered byte is BCC2.
func (p *Parser) stepData(b byte) (Result, bool) {
	if b == flagByte && !p.escapePending {
		p.state = rxStart
		if len(p.dataBuf) < 1 {
			return Result{C: p.cCheck, BadFrame: true}, true
		}
		payload := p.dataBuf[:len(p.dataBuf)-1]
		bcc2 := p.dataBuf[len(p.dataBuf)-1]
		ok := xorAll(payload) == bcc2
		return Result{C: p.cCheck, Payload: payload, BadFrame: !ok}, true
	}

	switch {
	case p.escapePending:
		switch b {
		case flagEscaped:
			p.dataBuf = append(p.dataBuf, flagByte)
		case escEscaped:
			p.dataBuf = append(p.dataBuf, escByte)
		default:
			p.dataBuf = append(p.dataBuf, b)
		}
		p.escapePending = false
	case b == escByte:
		p.escapePending = true
	default:
		p.dataBuf = append(p.dataBuf, b)
	}

	if len(p.dataBuf) > dataOverflowLimit {
		p.Reset()
	}

	return Result{}, false
}
