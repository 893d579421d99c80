package fibnl

import (
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/vishvananda/netlink/nl"
)

const nlaAlignTo = 4

func nlaAlign(n int) int {
	return (n + nlaAlignTo - 1) &^ (nlaAlignTo - 1)
}

// Attr is one rtattr TLV, built on nl.RtAttr -- the same TLV byte-builder
// the rest of the ecosystem uses for netlink route attributes (see
// vishvananda/netlink/nl.NewRtAttr). It either carries a leaf data payload
// or a list of nested children -- never both. RTA_ALIGN padding and
// rta_len bookkeeping are nl.RtAttr's job, not ours (spec §4.1).
type Attr struct {
	rt *nl.RtAttr
}

// NewAttr returns a leaf attribute carrying data.
func NewAttr(attrType uint16, data []byte) *Attr {
	return &Attr{rt: nl.NewRtAttr(int(attrType), data)}
}

// NewAttrNest returns an attribute that carries nested sub-attributes
// instead of a raw payload.
func NewAttrNest(attrType uint16) *Attr {
	return &Attr{rt: nl.NewRtAttr(int(attrType), nil)}
}

// AddChild appends a nested sub-attribute and returns the receiver, so
// construction can be chained.
func (a *Attr) AddChild(c *Attr) *Attr {
	a.rt.AddChild(c.rt)
	return a
}

// alignedLen is the number of bytes this attribute occupies on the wire,
// RTA_ALIGN padding included.
func (a *Attr) alignedLen() int {
	return nlaAlign(a.rt.Len())
}

// Serialize renders the attribute, including any nested children, padded to
// a 4-byte boundary.
func (a *Attr) Serialize() []byte {
	return a.rt.Serialize()
}

// NextHopEntry is one struct rtnexthop plus the rtattrs hung off it, used to
// build the payload of an RTA_MULTIPATH attribute (spec §4.1's rtnexthop
// layout table), built on nl.RtNexthop.
type NextHopEntry struct {
	nh *nl.RtNexthop
}

// newNextHopEntry returns a NextHopEntry for ifIndex carrying attrs as its
// nested rtattrs.
func newNextHopEntry(ifIndex uint32, attrs []*Attr) *NextHopEntry {
	children := make([]nl.NetlinkRequestData, 0, len(attrs))
	for _, a := range attrs {
		children = append(children, a.rt)
	}
	return &NextHopEntry{nh: &nl.RtNexthop{
		RtNexthop: unix.RtNexthop{Ifindex: int32(ifIndex)},
		Children:  children,
	}}
}

// alignedLen is the rtnh_len field value this entry serializes to, RTA_ALIGN
// padding included.
func (e *NextHopEntry) alignedLen() int {
	return e.nh.Len()
}

// Serialize renders the rtnexthop header followed by its attributes.
func (e *NextHopEntry) Serialize() []byte {
	return e.nh.Serialize()
}

// encodeMPLSLabel packs a 20-bit label (and, for the innermost/only entry,
// the bottom-of-stack bit) into the big-endian 32-bit wire form the kernel
// expects for both RTA_NEWDST label stacks and MPLS_IPTUNNEL_DST (spec
// §4.1's label encoding rule; mirrors encodeLabel in the original netlink
// route encoder). This packing is OpenR's own bit layout, not something
// nl provides.
func encodeMPLSLabel(label uint32, bos bool) []byte {
	entry := label << mplsLabelShift
	if bos {
		entry |= 1 << mplsLabelBosShift
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, entry)
	return buf
}
