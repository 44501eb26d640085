// Package wirepacket implements the on-disk frame format shared by the
// recorder and the reader. Each frame is a little-endian, length-prefixed
// record holding one observed message plus its session metadata:
//
//	offset      size  field
//	0           4     frame length (includes this field)
//	4           8     connection id
//	12          L1    local endpoint, NUL-terminated
//	12+L1       L2    remote endpoint, NUL-terminated
//	12+L1+L2    8     milliseconds since the Unix epoch
//	+8          8     order
//	+8          M     raw wire message
//
// The byte layout is the integration contract with the replay tooling and
// must stay stable.
package wirepacket

import (
	"errors"
	"time"

	"github.com/wiretrace/wiretrace/internal/wiremsg"
)

// MaxFrameSize is the largest frame the codec accepts. Frames claiming to
// be larger are treated as corrupt.
const MaxFrameSize = 1 << 26

var (
	// ErrPacketTooLarge indicates a frame length prefix above MaxFrameSize.
	ErrPacketTooLarge = errors.New("frame exceeds maximum size")
	// ErrTruncated indicates EOF in the middle of a frame.
	ErrTruncated = errors.New("unexpected end of data inside frame")
	// ErrMalformedString indicates an endpoint string with no NUL terminator.
	ErrMalformedString = errors.New("endpoint string missing terminator")
)

// Packet is the in-memory representation of one observed wire message.
type Packet struct {
	// ConnectionID identifies the session that produced the message.
	ConnectionID uint64
	// Local is the "address:port" of the server-side socket.
	Local string
	// Remote is the "address:port" of the peer socket.
	Remote string
	// Seen is when the message was observed. Stored on disk with
	// millisecond resolution.
	Seen time.Time
	// Order is the packet's position in its recording, starting at 1.
	Order uint64
	// Message is the raw wire message. After decoding it aliases the
	// decoder's scratch buffer and is only valid until the next frame is
	// read.
	Message wiremsg.Message
}

// FrameSize returns the encoded size of the packet's frame in bytes.
func (p *Packet) FrameSize() int {
	return 4 + 8 + len(p.Local) + 1 + len(p.Remote) + 1 + 8 + 8 + len(p.Message)
}
