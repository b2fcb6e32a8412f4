package translate

import (
	"github.com/flowcore/nicoffload/pkg/action"
	"github.com/flowcore/nicoffload/pkg/offload"
)

// jumpAction returns the action list for a pure "jump to target table"
// rule plus a count, as used by tnl-pop and by the clone(tnl_push,
// output) root-level jump (spec.md §4.J).
func jumpAction(target offload.TableID) []offload.ActionItem {
	b := action.NewBuilder()
	b.Add("jump", &jumpConf{Target: target})
	b.Add("count", nil)
	return b.Finish()
}

// outputAction returns the action list for a plain output to hwPortID.
func outputAction(hwPortID uint16) []offload.ActionItem {
	b := action.NewBuilder()
	b.Add("count", nil)
	b.Add("port_id", &portIDConf{HwPortID: hwPortID})
	return b.Finish()
}

// rawEncapOutputAction returns the action list clone(tunnel_push,
// output)'s second rule uses: raw_encap + count + port_id.
func rawEncapOutputAction(push offload.Action, hwPortID uint16) []offload.ActionItem {
	b := action.NewBuilder()
	b.Add("raw_encap", &rawEncapConf{})
	b.Add("count", nil)
	b.Add("port_id", &portIDConf{HwPortID: hwPortID})
	return b.Finish()
}

// defaultRuleAction returns the tnl-pop default rule's action list: an
// exception mark plus RSS fanned out across numRxQ queues, installed
// at lowest priority (spec.md §4.J).
func defaultRuleAction(numRxQ uint16, exceptionMark uint32) []offload.ActionItem {
	b := action.NewBuilder()
	b.Add("rss", &rssConf{NumQueues: numRxQ})
	b.Add("mark", &markConf{Value: exceptionMark})
	return b.Finish()
}

// ctAction returns the action list for a ct rule: an optional decap
// (when the rule sits directly behind a virtual in-port that hasn't
// been decapped by an earlier ROOT rule), a mark, a count, and a jump
// into the CT or CT_NAT table (spec.md §4.J: "decap first if
// match_kind = vport-root; emit a mark + count; ... jump to the CT or
// CT-NAT table").
func ctAction(decapFirst bool, mark uint32, target offload.TableID) []offload.ActionItem {
	b := action.NewBuilder()
	if decapFirst {
		b.Add("decap", nil)
	}
	b.Add("mark", &markConf{Value: mark})
	b.Add("count", nil)
	b.Add("jump", &jumpConf{Target: target})
	return b.Finish()
}

// markAndRSSAction returns the fallback action list spec.md §4.J
// describes when a ct action list isn't representable in hardware:
// mark only, RSS across every queue on the ingress physical port.
func markAndRSSAction(numRxQ uint16, mark uint32) []offload.ActionItem {
	b := action.NewBuilder()
	b.Add("mark", &markConf{Value: mark})
	b.Add("rss", &rssConf{NumQueues: numRxQ})
	return b.Finish()
}

type jumpConf struct{ Target offload.TableID }
type portIDConf struct{ HwPortID uint16 }
type rawEncapConf struct{}
type rssConf struct{ NumQueues uint16 }
type markConf struct{ Value uint32 }
