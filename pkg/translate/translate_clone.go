package translate

import (
	"context"
	"fmt"

	"github.com/flowcore/nicoffload/pkg/offload"
	"github.com/flowcore/nicoffload/pkg/porttable"
)

// translateClone implements the clone(tnl_push, output) recipe
// (spec.md §4.J): one "jump to table 1" rule in the root, then in that
// table a raw_encap + count + port_id. The reference's "table 1" names
// the first dynamically-allocated table in its own local numbering —
// this rewrite allocates a real dynamic table from the recirc-id key
// space, keyed by the flow-id itself (a clone encap rule has no
// natural recirc-id of its own to intern on), since a jump target must
// be a concrete, ownable TableID rather than a second fixed constant.
func (t *Translator) translateClone(ctx context.Context, ingress *porttable.Port, matchKind offload.MatchKind, m offload.Match, push, out offload.Action, flowID offload.FlowID) (*offload.Record, error) {
	target, ok := t.ports.Get(out.OutputPort)
	if !ok {
		return nil, fmt.Errorf("translate: output port %d: %w", out.OutputPort, offload.ErrNotFound)
	}

	cloneKey := cloneTableKey(flowID)
	cloneTable := t.tables.Recirc().GetOrAlloc(cloneKey)
	if cloneTable == offload.TableUnknown {
		return nil, fmt.Errorf("translate: clone table ids exhausted: %w", offload.ErrExhausted)
	}

	jumpTable := tableForMatchKind(matchKind, offload.TableRoot)
	patItems := synthesizePattern(m, false)

	jumpHandle, err := t.driver.RuleCreate(ctx, ingress.Netdev, offload.Attr{Table: jumpTable}, patItems, jumpAction(cloneTable))
	if err != nil {
		t.tables.Recirc().Unref(cloneKey)
		return nil, fmt.Errorf("translate: rule_create jump rule: %w", offload.ErrDriverFailure)
	}

	encapHandle, err := t.driver.RuleCreate(ctx, ingress.Netdev, offload.Attr{Table: cloneTable}, nil, rawEncapOutputAction(push, target.HwPortID))
	if err != nil {
		// driver-failure at the second rule of a two-rule local install
		// is still "at the first rule" from the flow's perspective —
		// nothing usable was installed, so roll back fully.
		_ = t.driver.RuleDestroy(ctx, ingress.Netdev, jumpHandle)
		t.tables.Recirc().Unref(cloneKey)
		return nil, fmt.Errorf("translate: rule_create encap rule: %w", offload.ErrDriverFailure)
	}

	rec := offload.NewRecord(flowID, 2)
	rec.AddRule(offload.RuleHandle{Handle: jumpHandle, Netdev: ingress.Netdev, Table: jumpTable})
	rec.AddRule(offload.RuleHandle{Handle: encapHandle, Netdev: ingress.Netdev, Table: cloneTable})
	rec.AddRecircKey(cloneKey)
	return rec, nil
}

func cloneTableKey(flowID offload.FlowID) uint32 {
	var k uint32
	for i := 0; i < 4; i++ {
		k = k<<8 | uint32(flowID[i])
	}
	return k
}
