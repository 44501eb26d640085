// Package wiremsg models the opaque wire-protocol message payload that the
// recorder captures and the reader decodes. A message is a raw byte blob
// whose first 16 bytes are its own header: total length, request id,
// response-to id, and opcode, all little-endian int32. The reader needs
// nothing deeper than the header, except for OP_MSG messages where the
// command name is pulled from the first body section.
package wiremsg

import (
	"encoding/binary"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// HeaderLen is the fixed size of the message header in bytes.
const HeaderLen = 16

// OpCode identifies a wire-protocol operation.
type OpCode int32

// Wire protocol opcodes.
const (
	OpReply       OpCode = 1
	OpUpdate      OpCode = 2001
	OpInsert      OpCode = 2002
	OpQuery       OpCode = 2004
	OpGetMore     OpCode = 2005
	OpDelete      OpCode = 2006
	OpKillCursors OpCode = 2007
	OpCompressed  OpCode = 2012
	OpMsg         OpCode = 2013
)

// OP_MSG flag bits.
const (
	flagChecksumPresent = 1 << 0
	flagMoreToCome      = 1 << 1
	flagExhaustAllowed  = 1 << 16
)

var (
	// ErrShortMessage indicates a payload smaller than its fixed header.
	ErrShortMessage = errors.New("message shorter than wire header")
	// ErrLengthMismatch indicates a header length field that disagrees with
	// the actual payload size.
	ErrLengthMismatch = errors.New("message length field does not match payload size")
	// ErrMalformedBody indicates an OP_MSG body that cannot be parsed far
	// enough to extract the command name.
	ErrMalformedBody = errors.New("malformed message body")
)

// Message is a raw wire-protocol message. The slice covers the entire
// message including its 16-byte header.
type Message []byte

// Len returns the message's self-declared total length.
func (m Message) Len() int32 {
	return int32(binary.LittleEndian.Uint32(m[0:4]))
}

// RequestID returns the message's request id.
func (m Message) RequestID() int32 {
	return int32(binary.LittleEndian.Uint32(m[4:8]))
}

// ResponseTo returns the request id this message responds to, or zero for
// requests.
func (m Message) ResponseTo() int32 {
	return int32(binary.LittleEndian.Uint32(m[8:12]))
}

// OpCode returns the message's operation code.
func (m Message) OpCode() OpCode {
	return OpCode(binary.LittleEndian.Uint32(m[12:16]))
}

// Body returns the payload following the header.
func (m Message) Body() []byte {
	return m[HeaderLen:]
}

// Validate checks that the message is at least header-sized and that its
// declared length matches the payload.
func (m Message) Validate() error {
	if len(m) < HeaderLen {
		return ErrShortMessage
	}
	if int(m.Len()) != len(m) {
		return fmt.Errorf("%w: header says %d, have %d", ErrLengthMismatch, m.Len(), len(m))
	}
	return nil
}

// CommandName extracts the command name from an OP_MSG message: the key of
// the first element of the kind-0 body section. It is only meaningful for
// OpMsg messages; callers dispatch on OpCode first.
func (m Message) CommandName() (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	body := m.Body()
	if len(body) < 4 {
		return "", fmt.Errorf("%w: missing flag bits", ErrMalformedBody)
	}
	flags := binary.LittleEndian.Uint32(body[0:4])
	sections := body[4:]
	if flags&flagChecksumPresent != 0 {
		if len(sections) < 4 {
			return "", fmt.Errorf("%w: missing checksum", ErrMalformedBody)
		}
		sections = sections[:len(sections)-4]
	}

	for len(sections) > 0 {
		kind := sections[0]
		sections = sections[1:]
		switch kind {
		case 0:
			doc, err := rawDocument(sections)
			if err != nil {
				return "", err
			}
			elems, err := bson.Raw(doc).Elements()
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrMalformedBody, err)
			}
			if len(elems) == 0 {
				return "", fmt.Errorf("%w: empty command document", ErrMalformedBody)
			}
			return elems[0].Key(), nil
		case 1:
			// Document sequence section: skip past its declared size.
			if len(sections) < 4 {
				return "", fmt.Errorf("%w: truncated document sequence", ErrMalformedBody)
			}
			size := binary.LittleEndian.Uint32(sections[0:4])
			if size < 4 || int(size) > len(sections) {
				return "", fmt.Errorf("%w: document sequence size out of range", ErrMalformedBody)
			}
			sections = sections[size:]
		default:
			return "", fmt.Errorf("%w: unknown section kind %d", ErrMalformedBody, kind)
		}
	}

	return "", fmt.Errorf("%w: no kind-0 body section", ErrMalformedBody)
}

// rawDocument slices one BSON document off the front of buf.
func rawDocument(buf []byte) ([]byte, error) {
	if len(buf) < 5 {
		return nil, fmt.Errorf("%w: truncated document", ErrMalformedBody)
	}
	size := binary.LittleEndian.Uint32(buf[0:4])
	if size < 5 || int(size) > len(buf) {
		return nil, fmt.Errorf("%w: document size out of range", ErrMalformedBody)
	}
	return buf[:size], nil
}
