package reader

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wiretrace/wiretrace/internal/wiremsg"
	"github.com/wiretrace/wiretrace/internal/wirepacket"
)

// unixToInternal converts a Unix-epoch second count into seconds since
// January 1, year 1 00:00:00 UTC (proleptic Gregorian), the representation
// the playback tooling stores in its "seen" timestamps.
const unixToInternal int64 = (1969*365 + 1969/4 - 1969/100 + 1969/400) * 86400

// documentFromPacket builds the playback document for one decoded packet.
// With withOpType set, OP_MSG messages additionally carry their command
// name; every other opcode is tagged "legacy".
func documentFromPacket(p *wirepacket.Packet, withOpType bool) (bson.D, error) {
	msg := p.Message
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("frame %d: %w", p.Order, err)
	}

	body := make([]byte, len(msg))
	copy(body, msg)

	doc := bson.D{
		{Key: "rawop", Value: bson.D{
			{Key: "header", Value: bson.D{
				{Key: "messagelength", Value: msg.Len()},
				{Key: "requestid", Value: msg.RequestID()},
				{Key: "responseto", Value: msg.ResponseTo()},
				{Key: "opcode", Value: int32(msg.OpCode())},
			}},
			{Key: "body", Value: primitive.Binary{Subtype: 0x00, Data: body}},
		}},
		{Key: "seen", Value: bson.D{
			{Key: "sec", Value: p.Seen.UnixMilli()/1000 + unixToInternal},
			{Key: "nsec", Value: int32(p.Order)},
		}},
	}

	if src, dest, ok := endpoints(p); ok {
		doc = append(doc,
			bson.E{Key: "srcendpoint", Value: src},
			bson.E{Key: "destendpoint", Value: dest},
		)
	}

	doc = append(doc,
		bson.E{Key: "order", Value: int64(p.Order)},
		bson.E{Key: "seenconnectionnum", Value: int64(p.ConnectionID)},
		bson.E{Key: "playedconnectionnum", Value: int64(0)},
		bson.E{Key: "generation", Value: int32(0)},
	)

	if withOpType {
		opType := "legacy"
		if msg.OpCode() == wiremsg.OpMsg {
			name, err := msg.CommandName()
			if err != nil {
				return nil, fmt.Errorf("frame %d: %w", p.Order, err)
			}
			opType = name
		}
		doc = append(doc, bson.E{Key: "opType", Value: opType})
	}

	return doc, nil
}

// endpoints extracts the source and destination ports for a packet. The
// port is the substring after the last ':' so that IPv6 literals like
// "[::1]:27017" parse correctly. A nonzero responseTo marks the packet as
// a server-to-client reply, flipping the direction. Addresses without a
// ':' yield no endpoint fields at all.
func endpoints(p *wirepacket.Packet) (src, dest string, ok bool) {
	localInd := strings.LastIndex(p.Local, ":")
	remoteInd := strings.LastIndex(p.Remote, ":")
	if localInd < 0 || remoteInd < 0 {
		return "", "", false
	}

	local := p.Local[localInd+1:]
	remote := p.Remote[remoteInd+1:]
	if p.Message.ResponseTo() != 0 {
		return local, remote, true
	}
	return remote, local, true
}
