package wire

import (
	"io"

	"github.com/pkg/errors"
)

// EnvelopeHeaderSize is the size in bytes of the fixed portion of an
// operation envelope: op, tag, msg_size (§4.4, §6).
const EnvelopeHeaderSize = 4 + 4 + 4

// MaxMsgSize bounds a single envelope's body to guard against a
// corrupt or hostile msg_size field turning into an unbounded
// allocation.
const MaxMsgSize = 64 << 20

// Envelope is the fixed operation header plus its typed payload body
// (§4.4). Body is the still-encoded bytes; decode it into the typed
// struct selected by Op once Op is known (see payload.go), matching
// the tagged-union decoding the design notes call for.
type Envelope struct {
	Op      Opcode
	Tag     uint32
	MsgSize uint32
	Body    []byte
}

// WriteEnvelope serializes an envelope to w.
func WriteEnvelope(w io.Writer, e Envelope) error {
	var hdr [EnvelopeHeaderSize]byte
	ByteOrder.PutUint32(hdr[0:4], uint32(e.Op))
	ByteOrder.PutUint32(hdr[4:8], e.Tag)
	ByteOrder.PutUint32(hdr[8:12], uint32(len(e.Body)))
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "writing envelope header")
	}
	if len(e.Body) > 0 {
		if _, err := w.Write(e.Body); err != nil {
			return errors.Wrap(err, "writing envelope body")
		}
	}
	return nil
}

// ReadEnvelope deserializes one envelope from r, reading exactly its
// header then its body in arrival order (§4.4 ordering guarantee).
func ReadEnvelope(r io.Reader) (Envelope, error) {
	var hdr [EnvelopeHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Envelope{}, err // EOF/peer-closed propagates to caller untouched
	}
	e := Envelope{
		Op:      Opcode(ByteOrder.Uint32(hdr[0:4])),
		Tag:     ByteOrder.Uint32(hdr[4:8]),
		MsgSize: ByteOrder.Uint32(hdr[8:12]),
	}
	if e.MsgSize > MaxMsgSize {
		return Envelope{}, errors.Errorf("envelope msg_size %d exceeds limit", e.MsgSize)
	}
	if e.MsgSize > 0 {
		e.Body = make([]byte, e.MsgSize)
		if _, err := io.ReadFull(r, e.Body); err != nil {
			return Envelope{}, errors.Wrap(err, "reading envelope body")
		}
	}
	return e, nil
}

// WriteControlCode writes a single control code on the side-channel.
func WriteControlCode(w io.Writer, c ControlCode) error {
	var buf [4]byte
	ByteOrder.PutUint32(buf[:], uint32(c))
	_, err := w.Write(buf[:])
	return err
}

// ReadControlCode reads a single control code from the side-channel.
func ReadControlCode(r io.Reader) (ControlCode, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return ControlCode(ByteOrder.Uint32(buf[:])), nil
}
