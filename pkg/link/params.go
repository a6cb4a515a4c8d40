package link

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Role fixes which half of the handshake a connection plays. It is
// immutable for the connection's lifetime.
type Role int

const (
	// Tx is the sender/initiator: it drives SET, I-frames, and DISC.
	Tx Role = iota
	// Rx is the responder: it waits for SET, acknowledges I-frames, and
	// replies to DISC.
	Rx
)

func (r Role) String() string {
	if r == Tx {
		return "tx"
	}
	return "rx"
}

// Params describes a connection's device and timing configuration. It is
// validated with struct tags the same way the corpus validates inbound
// HTTP payloads, just applied to local configuration instead.
type Params struct {
	Device           string `validate:"required"`
	Role             Role   `validate:"oneof=0 1"`
	BaudRate         int    `validate:"required,gt=0"`
	NRetransmissions int    `validate:"gte=0"`
	TimeoutSeconds   int    `validate:"gte=1"`
}

var paramsValidator = validator.New()

// Validate checks the parameter struct's invariants (a non-negative
// retransmission count, a timeout of at least one second) before a
// connection is opened.
func (p Params) Validate() error {
	if err := paramsValidator.Struct(p); err != nil {
		return fmt.Errorf("link: invalid parameters: %w", err)
	}
	return nil
}
