package fibnl

import (
	"encoding/binary"
	"net"

	"github.com/urantialife/openr/internal/rtroute"
)

func uint32LE(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func uint16LE(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// parseIP renders addr as the raw byte form the kernel expects for f: 4
// bytes for an IPv4 address, 16 for IPv6.
func parseIP(addr string, f rtroute.Family) ([]byte, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return nil, ErrNoNexthopIP
	}
	switch f {
	case rtroute.IPv4:
		v4 := ip.To4()
		if v4 == nil {
			return nil, ErrInvalidAddressFamily
		}
		return []byte(v4), nil
	case rtroute.IPv6:
		v6 := ip.To16()
		if v6 == nil {
			return nil, ErrInvalidAddressFamily
		}
		return []byte(v6), nil
	default:
		return nil, ErrInvalidAddressFamily
	}
}

// gatewayBytes renders a nexthop's gateway address in the raw form
// RTA_GATEWAY expects, sized to the nexthop's own family.
func gatewayBytes(nh rtroute.NextHop) []byte {
	if v4 := nh.Gateway.To4(); v4 != nil && nh.Family == rtroute.IPv4 {
		return []byte(v4)
	}
	return []byte(nh.Gateway.To16())
}

// viaBytes renders RTA_VIA's payload: a 2-byte address-family header
// (matching struct rtvia) followed by the raw gateway bytes.
func viaBytes(nh rtroute.NextHop) ([]byte, error) {
	af, err := familyAF(nh.Family)
	if err != nil {
		return nil, err
	}
	gw := gatewayBytes(nh)
	out := make([]byte, 2+len(gw))
	binary.LittleEndian.PutUint16(out[0:2], uint16(af))
	copy(out[2:], gw)
	return out, nil
}
