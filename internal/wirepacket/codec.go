package wirepacket

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// Encode appends p's frame to dst and returns the extended slice. The
// length prefix is written as zero first and patched once the payload
// length is known.
func Encode(dst []byte, p *Packet) []byte {
	start := len(dst)
	dst = append(dst, 0, 0, 0, 0)
	dst = binary.LittleEndian.AppendUint64(dst, p.ConnectionID)
	dst = append(dst, p.Local...)
	dst = append(dst, 0)
	dst = append(dst, p.Remote...)
	dst = append(dst, 0)
	dst = binary.LittleEndian.AppendUint64(dst, uint64(p.Seen.UnixMilli()))
	dst = binary.LittleEndian.AppendUint64(dst, p.Order)
	dst = append(dst, p.Message...)
	binary.LittleEndian.PutUint32(dst[start:start+4], uint32(len(dst)-start))
	return dst
}

// Decoder streams frames from a reader. A single scratch buffer is reused
// across frames, so a decoded Packet's Message is only valid until the
// next call to Next.
type Decoder struct {
	r   io.Reader
	buf []byte
}

// NewDecoder returns a Decoder reading frames from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, buf: make([]byte, 4, 4096)}
}

// Next decodes the next frame. It returns io.EOF on clean termination at a
// frame boundary, ErrTruncated on EOF mid-frame, ErrPacketTooLarge when
// the length prefix exceeds MaxFrameSize, and ErrMalformedString when an
// endpoint string has no terminator.
func (d *Decoder) Next() (*Packet, error) {
	if _, err := io.ReadFull(d.r, d.buf[:4]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: short length prefix", ErrTruncated)
	}

	frameLen := binary.LittleEndian.Uint32(d.buf[:4])
	if frameLen > MaxFrameSize {
		return nil, fmt.Errorf("%w: frame claims %d bytes", ErrPacketTooLarge, frameLen)
	}
	if frameLen < 4 {
		return nil, fmt.Errorf("%w: frame claims %d bytes", ErrTruncated, frameLen)
	}

	if cap(d.buf) < int(frameLen) {
		grown := make([]byte, frameLen)
		copy(grown, d.buf[:4])
		d.buf = grown
	}
	d.buf = d.buf[:frameLen]
	if _, err := io.ReadFull(d.r, d.buf[4:]); err != nil {
		return nil, fmt.Errorf("%w: frame body", ErrTruncated)
	}

	return parseFrame(d.buf)
}

// parseFrame parses the inner fields of a complete frame buffer.
func parseFrame(frame []byte) (*Packet, error) {
	cur := frame[4:]

	connID, cur, err := readUint64(cur)
	if err != nil {
		return nil, err
	}
	local, cur, err := readCString(cur)
	if err != nil {
		return nil, err
	}
	remote, cur, err := readCString(cur)
	if err != nil {
		return nil, err
	}
	millis, cur, err := readUint64(cur)
	if err != nil {
		return nil, err
	}
	order, cur, err := readUint64(cur)
	if err != nil {
		return nil, err
	}

	return &Packet{
		ConnectionID: connID,
		Local:        local,
		Remote:       remote,
		Seen:         unixMilli(millis),
		Order:        order,
		Message:      cur,
	}, nil
}

func unixMilli(ms uint64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}

func readUint64(buf []byte) (uint64, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, fmt.Errorf("%w: short fixed field", ErrTruncated)
	}
	return binary.LittleEndian.Uint64(buf[:8]), buf[8:], nil
}

func readCString(buf []byte) (string, []byte, error) {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), buf[i+1:], nil
		}
	}
	return "", nil, ErrMalformedString
}
