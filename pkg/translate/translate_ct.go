package translate

import (
	"context"
	"fmt"

	"github.com/flowcore/nicoffload/pkg/misscontext"
	"github.com/flowcore/nicoffload/pkg/offload"
	"github.com/flowcore/nicoffload/pkg/porttable"
	"github.com/flowcore/nicoffload/pkg/tunnel"
)

// translateCT implements the "ct" action-synthesis recipe (spec.md
// §4.J): decap first if the ingress is a virtual port, emit mark +
// count, allocate/reuse a hw-table-id for the ct action's recirc
// target, jump to CT or CT_NAT. Falls back to mark-and-RSS when
// ctAct carries no recirc target to jump into — the one shape this
// recipe cannot represent.
func (t *Translator) translateCT(ctx context.Context, ingress *porttable.Port, matchKind offload.MatchKind, m offload.Match, ctAct offload.Action, flowID offload.FlowID) (*offload.Record, error) {
	if ctAct.CT.RecircTarget == 0 {
		return t.translateMarkAndRSS(ctx, ingress, m, flowID)
	}

	target := offload.TableCT
	if ctAct.CT.Nat != offload.NatNone {
		target = offload.TableCTNAT
	}

	tableID := t.tables.Recirc().GetOrAlloc(ctAct.CT.RecircTarget)
	if tableID == offload.TableUnknown {
		return nil, fmt.Errorf("translate: recirc table ids exhausted: %w", offload.ErrExhausted)
	}

	mark, ok := t.marks.Alloc()
	if !ok {
		t.tables.Recirc().Unref(ctAct.CT.RecircTarget)
		return nil, fmt.Errorf("translate: mark pool exhausted: %w", offload.ErrExhausted)
	}

	decapFirst := matchKind == offload.MatchVportRoot

	// decapFirst means the ingress is a decapped vxlan port: the match
	// carries the outer 3-tuple the now-stripped header held, and
	// that's exactly what pkg/tunnel interns (spec.md §4.B) so a later
	// miss can resolve the same tuple back out of a single outer-id
	// instead of the preprocessor re-deriving it some other way.
	outerID := tunnel.InvalidOuterID
	var tunnelKey tunnel.Key
	hasTunnelKey := false
	if decapFirst {
		tunnelKey = tunnel.Key{DstIP: m.Flow.TunnelDst, SrcIP: m.Flow.TunnelSrc, TunID: m.Flow.TunnelID}
		outerID = t.tunnels.GetOrAlloc(tunnelKey)
		if outerID == tunnel.InvalidOuterID {
			t.tables.Recirc().Unref(ctAct.CT.RecircTarget)
			t.marks.Free(mark)
			return nil, fmt.Errorf("translate: tunnel ids exhausted: %w", offload.ErrExhausted)
		}
		hasTunnelKey = true
	}

	patItems := synthesizePattern(m, false)
	actItems := ctAction(decapFirst, mark, target)

	installTable := tableForMatchKind(matchKind, tableID)
	h, err := t.driver.RuleCreate(ctx, ingress.Netdev, offload.Attr{Table: installTable}, patItems, actItems)
	if err != nil {
		t.tables.Recirc().Unref(ctAct.CT.RecircTarget)
		t.marks.Free(mark)
		if hasTunnelKey {
			t.tunnels.Unref(tunnelKey)
		}
		return nil, fmt.Errorf("translate: rule_create: %w", offload.ErrDriverFailure)
	}

	handle := offload.RuleHandle{Handle: h, Netdev: ingress.Netdev, Table: installTable}
	t.miss.SaveCT(mark, handle, ctAct.CT.Mark, ctAct.CT.Zone, uint32(offload.CtStateEstablished), outerID, misscontext.DirectionInit)

	rec := offload.NewRecord(flowID, 1)
	rec.AddRule(handle)
	rec.AddRecircKey(ctAct.CT.RecircTarget)
	rec.SetMark(mark)
	if hasTunnelKey {
		rec.AddTunnelKey(tunnelKey)
	}
	return rec, nil
}

// translateMarkAndRSS implements the mark-and-RSS fallback spec.md
// §4.J describes: mark only, RSS across every queue on the ingress
// physical port, with a miss-context registered so software finishes
// the job.
func (t *Translator) translateMarkAndRSS(ctx context.Context, ingress *porttable.Port, m offload.Match, flowID offload.FlowID) (*offload.Record, error) {
	mark, ok := t.marks.Alloc()
	if !ok {
		return nil, fmt.Errorf("translate: mark pool exhausted: %w", offload.ErrExhausted)
	}

	numRxQ := ingress.NumRxQueues
	if numRxQ == 0 {
		numRxQ = 1
	}

	patItems := synthesizePattern(m, false)
	actItems := markAndRSSAction(numRxQ, mark)

	h, err := t.driver.RuleCreate(ctx, ingress.Netdev, offload.Attr{Table: offload.TableRoot}, patItems, actItems)
	if err != nil {
		t.marks.Free(mark)
		return nil, fmt.Errorf("translate: rule_create: %w", offload.ErrDriverFailure)
	}

	t.miss.SaveFlow(mark, uint32(offload.TableUnknown), false, tunnel.InvalidOuterID, m.Flow.InPort, false)

	rec := offload.NewRecord(flowID, 1)
	rec.AddRule(offload.RuleHandle{Handle: h, Netdev: ingress.Netdev, Table: offload.TableRoot})
	rec.SetMark(mark)
	return rec, nil
}
