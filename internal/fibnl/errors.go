package fibnl

import "errors"

// Sentinel errors forming the closed error taxonomy of the netlink encoder
// (spec §4.1/§7). Callers type-switch or errors.Is against these rather
// than parsing message text.
var (
	ErrInvalidAddressFamily = errors.New("fibnl: invalid address family for route")
	ErrNoNexthopIP          = errors.New("fibnl: nexthop has no gateway address")
	ErrNoLabel              = errors.New("fibnl: mpls route or push/swap nexthop missing a label")
	ErrLabelOutOfRange      = errors.New("fibnl: mpls label exceeds 20-bit range")
	ErrNoLoopbackIndex      = errors.New("fibnl: pop-and-lookup nexthop missing an interface index")
	ErrUnknownLabelAction   = errors.New("fibnl: unrecognized label action")
	ErrMessageBufferExhausted = errors.New("fibnl: encoded message exceeds maximum netlink payload size")
)
