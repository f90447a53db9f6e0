// Package wire implements the streaming XML property-vector protocol: a
// chunker that frames concatenated top-level elements out of a byte
// stream, and a decoder/encoder pair that translates those elements to
// and from internal/state vectors. Version advertised on the wire is 1.7.
package wire

import (
	"errors"

	"github.com/obsctl/obsctl/internal/state"
)

// ErrParse is the sentinel wrapped by all decode-time parse failures.
// Per spec section 7, parse errors are always contained: the caller logs
// and skips the offending element, never tearing down the connection.
var ErrParse = errors.New("wire: parse error")

// ErrRange is raised by the number-vector encoder when a requested value
// falls outside [min, max].
var ErrRange = errors.New("wire: value out of range")

// ErrSwitchAmbiguous is raised by the switch-vector encoder when a
// single-element write against a OneOfMany vector cannot be resolved
// unambiguously.
var ErrSwitchAmbiguous = errors.New("wire: ambiguous switch write")

const ProtocolVersion = "1.7"

// Kind identifies the decoded element variant, per spec section 9's
// tagged-variant redesign note (replacing string-tag dispatch).
type Kind int

const (
	KindDef Kind = iota
	KindSet
	KindDel
	KindMessage
	KindIgnored // new*Vector echoes and unrecognized tags
)

// Decoded is one fully parsed top-level wire element.
type Decoded struct {
	Kind Kind

	// Populated for KindDef and KindSet. For KindSet, only the fields the
	// wire actually carried are meaningful: State, Message, Stamp, and
	// element values — callers must apply it as an update-in-place against
	// an existing vector, not a wholesale replacement.
	Vector *state.Vector

	// Populated for KindDel.
	DelDevice string
	DelName   string // empty => whole device

	// Populated for KindMessage.
	MsgDevice string
	MsgText   string
	MsgStamp  string
}
