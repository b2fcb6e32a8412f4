package translate

import (
	"context"
	"fmt"

	"github.com/flowcore/nicoffload/internal/corelog"
	"github.com/flowcore/nicoffload/pkg/offload"
	"github.com/flowcore/nicoffload/pkg/porttable"
)

// translateTunnelPop implements the "tnl-pop" action-synthesis recipe
// (spec.md §4.J): one rule per uplink physical port in ROOT jumping to
// VXLAN, plus the vxlan port's default rule (mark + RSS) installed
// exactly once, at lowest priority, the first time any tunnel-pop rule
// targets it (spec.md's invariant iii).
func (t *Translator) translateTunnelPop(ctx context.Context, vxlanPort *porttable.Port, m offload.Match, flowID offload.FlowID) (*offload.Record, error) {
	uplinks := t.ports.Uplinks()
	if len(uplinks) == 0 {
		return nil, fmt.Errorf("translate: no uplinks registered: %w", offload.ErrNotFound)
	}

	rec := offload.NewRecord(flowID, len(uplinks))
	patItems := synthesizePattern(m, false)
	actItems := jumpAction(offload.TableVxlan)

	var installErr error
	var firstUplinkQueues uint16
	for i, up := range uplinks {
		h, err := t.driver.RuleCreate(ctx, up.Netdev, offload.Attr{Table: offload.TableRoot}, patItems, actItems)
		if err != nil {
			installErr = err
			if i == 0 {
				// driver-failure at the first rule: nothing installed,
				// rollback (there is nothing yet to roll back here —
				// no shared-resource allocation precedes fanout for
				// tnl-pop) and surface ENODEV.
				return nil, fmt.Errorf("translate: rule_create on first uplink: %w", offload.ErrDriverFailure)
			}
			// mid-fanout failure: keep what installed, stop trying
			// further uplinks (spec.md §4.J "best-effort fanout").
			break
		}
		rec.AddRule(offload.RuleHandle{Handle: h, Netdev: up.Netdev, Table: offload.TableRoot})
		if i == 0 {
			firstUplinkQueues = up.NumRxQueues
		}
	}

	if err := t.ensureDefaultRule(ctx, vxlanPort, firstUplinkQueues); err != nil {
		logger.Warnw("tnl-pop-default-rule-failed", corelog.Fields{"dp_port": vxlanPort.DpPort, "error": err.Error()})
	}

	if installErr != nil {
		return rec, fmt.Errorf("translate: rule_create mid-fanout: %w", offload.ErrDriverFailure)
	}
	return rec, nil
}

// ensureDefaultRule installs vxlanPort's default rule if it does not
// already exist (spec.md's invariant iii: a default rule exists for a
// (physical-port, virtual-port-table) pair iff at least one tnl-pop
// rule targets it — modeled here as "exists iff installed once per
// vxlan port", since the default rule is a property of the
// destination virtual table, not of any one uplink).
func (t *Translator) ensureDefaultRule(ctx context.Context, vxlanPort *porttable.Port, numRxQ uint16) error {
	if _, ok := vxlanPort.DefaultRule(offload.TableVxlan); ok {
		return nil
	}
	if numRxQ == 0 {
		numRxQ = 1
	}

	b := defaultPatternWildcard()
	actItems := defaultRuleAction(numRxQ, vxlanPort.ExceptionMark)

	h, err := t.driver.RuleCreate(ctx, vxlanPort.Netdev, offload.Attr{Table: offload.TableVxlan, Priority: 0}, b, actItems)
	if err != nil {
		// spec.md §9 open question: the reference's own cleanup-ordering
		// bug here is not reproduced. If creation fails, no default
		// rule is recorded and none was destroyed — never leave the
		// table with zero default rules after believing one exists.
		return err
	}

	t.miss.SaveVxlan(vxlanPort.ExceptionMark, vxlanPort.DpPort)
	vxlanPort.SetDefaultRule(offload.TableVxlan, offload.RuleHandle{Handle: h, Netdev: vxlanPort.Netdev, Table: offload.TableVxlan})
	return nil
}

func defaultPatternWildcard() []offload.PatternItem {
	return synthesizePattern(offload.Match{}, false)
}
