package cdr

import (
	"bytes"
	"fmt"

	roboerr "github.com/c360/robolink/errors"
)

// encapsulationLE is the XCDR1 encapsulation header for a little-endian CDR
// body: representation identifier 0x00 0x01 followed by two zero option
// bytes. This is the only header the bridge accepts.
var encapsulationLE = [4]byte{0x00, 0x01, 0x00, 0x00}

// HeaderSize is the length of the encapsulation header in bytes
const HeaderSize = 4

// Encode serializes msg and prepends the little-endian encapsulation header.
// The only failure mode is a message that cannot be marshaled, which is a
// programming error rather than a runtime condition.
func Encode(msg Marshaler) ([]byte, error) {
	e := NewEncoder()
	if err := msg.MarshalCDR(e); err != nil {
		return nil, fmt.Errorf("%w: marshal %s: %w", roboerr.ErrEncodeFailed, msg.TypeName(), err)
	}
	body := e.Bytes()
	payload := make([]byte, 0, HeaderSize+len(body))
	payload = append(payload, encapsulationLE[:]...)
	payload = append(payload, body...)
	return payload, nil
}

// Decode validates the encapsulation header and deserializes the body into
// msg. It is pure: no side effects, and decoding the same bytes twice yields
// structurally equal messages.
//
// Failure taxonomy:
//   - fewer than 4 bytes: errors.ErrPayloadTooShort
//   - first 4 bytes differ from the little-endian header: errors.ErrHeaderMismatch
//   - structurally invalid body: errors.ErrBodyDecode
func Decode(data []byte, msg Unmarshaler) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: got %d bytes", roboerr.ErrPayloadTooShort, len(data))
	}
	if !bytes.Equal(data[:HeaderSize], encapsulationLE[:]) {
		return fmt.Errorf("%w: got % x", roboerr.ErrHeaderMismatch, data[:HeaderSize])
	}
	if err := msg.UnmarshalCDR(NewDecoder(data[HeaderSize:])); err != nil {
		return fmt.Errorf("%w: %s: %w", roboerr.ErrBodyDecode, msg.TypeName(), err)
	}
	return nil
}
