package offload

import "context"

// Netdev is the subset of the out-of-scope datapath netdev object the
// core consumes (spec.md §6 "Driver surface (consumed)").
type Netdev interface {
	// DpPort is the datapath port number this netdev represents.
	DpPort() uint32
	// NumRxQueues returns the receive-queue count (physical ports only).
	NumRxQueues() uint16
	// HwPortID returns the NIC's own physical port id (physical only).
	HwPortID() uint16
	// IsUplink reports whether this netdev faces the external fabric.
	IsUplink() bool
	// TypeString returns the netdev kind string ("dpdk", "vxlan", ...).
	TypeString() string
	// PopHeader strips this netdev's encapsulation header from packet,
	// used by the preprocessor on a vxlan miss.
	PopHeader(packet []byte) []byte
}

// RuleHandle is an opaque per-driver handle identifying one installed
// hardware rule, together with the netdev it was installed through.
type RuleHandle struct {
	Handle interface{}
	Netdev Netdev
	Table  TableID
}

// Attr carries the rule-creation attributes the driver needs beyond
// pattern/action content (priority, whether it's a default/catch-all
// rule).
type Attr struct {
	Table    TableID
	Priority uint32
}

// PatternItem is one entry of a pattern list handed to the driver: a
// match-item type tag plus borrowed spec/mask pointers (spec.md §4.G).
type PatternItem struct {
	Type interface{}
	Spec interface{}
	Mask interface{}
	Last bool
}

// ActionItem is one entry of an action list handed to the driver.
type ActionItem struct {
	Type interface{}
	Conf interface{}
}

// Driver is the NIC vendor driver surface the core consumes (spec.md
// §6). Out of scope to implement; pkg/translate only calls it.
type Driver interface {
	RuleCreate(ctx context.Context, netdev Netdev, attr Attr, patterns []PatternItem, actions []ActionItem) (interface{}, error)
	RuleDestroy(ctx context.Context, netdev Netdev, handle interface{}) error
}
