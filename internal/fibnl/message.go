package fibnl

import (
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/urantialife/openr/constants"
)

// Message is a fully-built RTM_NEWROUTE/RTM_DELROUTE netlink request:
// nlmsghdr + rtmsg + a flat list of top-level rtattrs (spec §4.1's framing
// diagram). It is the output of the route Encoder and the unit the agent
// client's netlink transport sends on the wire.
type Message struct {
	msgType uint16
	seq     uint32
	create  bool

	family uint8
	dstLen uint8
	table  uint8
	proto  uint8
	scope  uint8
	rtType uint8

	attrs []*Attr
}

func newMessage(msgType uint16, seq uint32, create bool) *Message {
	return &Message{msgType: msgType, seq: seq, create: create, table: rtTableMain}
}

// flags computes nlmsg_flags. NLM_F_REPLACE only makes sense for a route
// the kernel can uniquely key and overwrite; a multicast route's key isn't
// unique the way a unicast/MPLS destination is, so it's left off for
// rtnMulticast (spec §4.1).
func (m *Message) flags() uint16 {
	flags := uint16(unix.NLM_F_REQUEST | unix.NLM_F_ACK)
	if m.create {
		flags |= unix.NLM_F_CREATE
		if m.rtType != rtnMulticast {
			flags |= unix.NLM_F_REPLACE
		}
	}
	return flags
}

// addAttr appends a top-level attribute.
func (m *Message) addAttr(a *Attr) {
	m.attrs = append(m.attrs, a)
}

// Len is the total wire length, including the 16-byte nlmsghdr and 12-byte
// rtmsg, both of which are inherently 4-byte aligned.
func (m *Message) Len() int {
	n := 16 + 12
	for _, a := range m.attrs {
		n += a.alignedLen()
	}
	return n
}

// Serialize renders the message, enforcing the fixed netlink payload budget
// (spec §4.1: exceeding it is ErrMessageBufferExhausted rather than a
// silent truncation).
func (m *Message) Serialize() ([]byte, error) {
	total := m.Len()
	if total > constants.MaxNlPayloadSize {
		return nil, ErrMessageBufferExhausted
	}

	out := make([]byte, 0, total)

	hdr := make([]byte, 16)
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(total))
	binary.LittleEndian.PutUint16(hdr[4:6], m.msgType)
	binary.LittleEndian.PutUint16(hdr[6:8], m.flags())
	binary.LittleEndian.PutUint32(hdr[8:12], m.seq)
	binary.LittleEndian.PutUint32(hdr[12:16], 0) // nlmsg_pid: filled by the kernel socket layer
	out = append(out, hdr...)

	rtm := make([]byte, 12)
	rtm[0] = m.family
	rtm[1] = m.dstLen
	rtm[2] = 0 // rtm_src_len: unused, no source-specific routing
	rtm[3] = 0 // rtm_tos
	rtm[4] = m.table
	rtm[5] = m.proto
	rtm[6] = m.scope
	rtm[7] = m.rtType
	binary.LittleEndian.PutUint32(rtm[8:12], 0) // rtm_flags
	out = append(out, rtm...)

	for _, a := range m.attrs {
		out = append(out, a.Serialize()...)
	}
	return out, nil
}
