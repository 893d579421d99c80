package fibnl

// Wire-format constants not exported by golang.org/x/sys/unix on every
// platform/version. Values are taken directly from the kernel uAPI headers
// they originate in, the same way github.com/vishvananda/netlink/nl defines
// the handful of rtnetlink constants that x/sys/unix omits.
const (
	// rtattr types, from linux/rtnetlink.h.
	rtaUnspec    = 0
	rtaDst       = 1
	rtaOif       = 4
	rtaGateway   = 5
	rtaMultipath = 9
	rtaVia       = 18
	rtaNewdst    = 19
	rtaEncapType = 21
	rtaEncap     = 22

	// rtm_type values, from linux/rtnetlink.h.
	rtnUnicast   = 1
	rtnLocal     = 2
	rtnBroadcast = 3
	rtnAnycast   = 4
	rtnMulticast = 5

	// rtm_scope values, from linux/rtnetlink.h.
	rtScopeUniverse = 0
	rtScopeSite     = 200
	rtScopeLink     = 253
	rtScopeHost     = 254

	// rtm_table, from linux/rtnetlink.h.
	rtTableMain = 254

	// lwtunnel encap type, from linux/lwtunnel.h.
	lwtunnelEncapMPLS = 1

	// MPLS_IPTUNNEL_DST, from linux/mpls_iptunnel.h.
	mplsIptunnelDst = 1

	// Bit offsets within a packed 32-bit MPLS label stack entry, from
	// linux/mpls.h: label occupies bits 31-12, TC bits 11-9, BOS bit 8,
	// TTL bits 7-0.
	mplsLabelShift    = 12
	mplsLabelBosShift = 8
)
