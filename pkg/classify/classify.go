// Package classify implements the classifier spec.md §4.I describes:
// tag a (match, actions) pair with a match-kind and action-kind, and
// reject action-list shapes the translator cannot represent. Grounded
// on spec.md §4.I directly; pure classification logic with the same
// closed-enum-over-struct shape pkg/validate uses.
package classify

import (
	"fmt"

	"github.com/flowcore/nicoffload/pkg/offload"
)

// MatchKind classifies m per spec.md §4.I: "recirc-id ≠ 0 ⇒ recirc;
// else in-port is virtual ⇒ vport-root; else root." isVirtualInPort is
// supplied by the caller (classify has no port-table access).
func MatchKind(m offload.Match, isVirtualInPort bool) offload.MatchKind {
	if m.Flow.RecircID != 0 {
		return offload.MatchRecirc
	}
	if isVirtualInPort {
		return offload.MatchVportRoot
	}
	return offload.MatchRoot
}

// ActionKind classifies actions per spec.md §4.I: "list containing
// tunnel_pop ⇒ tnl-pop; list containing ct ⇒ ct; list ending in
// output ⇒ output."
func ActionKind(actions offload.ActionList) offload.ActionKind {
	if actions.HasType(offload.ActionTypeTunnelPop) {
		return offload.ActionKindTunnelPop
	}
	if actions.HasType(offload.ActionTypeCT) {
		return offload.ActionKindCT
	}
	return offload.ActionKindOutput
}

// ValidateActionList enforces the action-list shape rules spec.md
// §4.I lists: output, recirc, clone or a lone tunnel_pop must be the
// final action; tunnel_pop
// must not coexist with other actions, a non-zero recirc-id, or a
// virtual in-port; recirc must not appear without a preceding ct.
func ValidateActionList(actions offload.ActionList, m offload.Match, isVirtualInPort bool) error {
	last, ok := actions.Last()
	if !ok {
		return unsupported("empty action list")
	}

	if last.Type != offload.ActionTypeOutput && last.Type != offload.ActionTypeRecirc && last.Type != offload.ActionTypeClone && last.Type != offload.ActionTypeTunnelPop {
		return unsupported("action list must end in output, recirc, tunnel_pop, or clone(tunnel_push, output)")
	}

	if actions.HasType(offload.ActionTypeTunnelPop) {
		if len(actions) != 1 {
			return unsupported("tunnel_pop must not coexist with other actions")
		}
		if m.Flow.RecircID != 0 {
			return unsupported("tunnel_pop must not coexist with a non-zero recirc-id")
		}
		if isVirtualInPort {
			return unsupported("tunnel_pop must not coexist with a virtual in-port")
		}
	}

	if last.Type == offload.ActionTypeRecirc {
		if !actions.HasType(offload.ActionTypeCT) {
			return unsupported("recirc must not appear without a preceding ct")
		}
	}

	return nil
}

func unsupported(reason string) error {
	return fmt.Errorf("classify: %s: %w", reason, offload.ErrUnsupported)
}
