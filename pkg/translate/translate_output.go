package translate

import (
	"context"
	"fmt"

	"github.com/flowcore/nicoffload/pkg/offload"
	"github.com/flowcore/nicoffload/pkg/porttable"
)

// translateOutput implements the "output" action-synthesis recipe
// (spec.md §4.J): emit count + port_id with the physical port id, in
// the table determined by match_kind.
func (t *Translator) translateOutput(ctx context.Context, ingress *porttable.Port, matchKind offload.MatchKind, m offload.Match, actions offload.ActionList, flowID offload.FlowID) (*offload.Record, error) {
	out, ok := findOutput(actions)
	if !ok {
		return nil, fmt.Errorf("translate: output action missing: %w", offload.ErrInvariantViolated)
	}
	target, ok := t.ports.Get(out.OutputPort)
	if !ok {
		return nil, fmt.Errorf("translate: output port %d: %w", out.OutputPort, offload.ErrNotFound)
	}

	var table offload.TableID
	var recircAllocated bool
	if matchKind == offload.MatchRecirc {
		table = t.tables.Recirc().GetOrAlloc(m.Flow.RecircID)
		if table == offload.TableUnknown {
			return nil, fmt.Errorf("translate: recirc table ids exhausted: %w", offload.ErrExhausted)
		}
		recircAllocated = true
	} else {
		table = tableForMatchKind(matchKind, offload.TableUnknown)
	}

	patItems := synthesizePattern(m, false)
	actItems := outputAction(target.HwPortID)

	h, err := t.driver.RuleCreate(ctx, ingress.Netdev, offload.Attr{Table: table}, patItems, actItems)
	if err != nil {
		if recircAllocated {
			t.tables.Recirc().Unref(m.Flow.RecircID)
		}
		return nil, fmt.Errorf("translate: rule_create: %w", offload.ErrDriverFailure)
	}

	rec := offload.NewRecord(flowID, 1)
	rec.AddRule(offload.RuleHandle{Handle: h, Netdev: ingress.Netdev, Table: table})
	if recircAllocated {
		rec.AddRecircKey(m.Flow.RecircID)
	}
	return rec, nil
}
