// Package validate implements the validator spec.md §4.H describes:
// given a zero-wildcard-stripped match and a boolean is_tunnel, reject
// flows that reference header fields hardware cannot represent.
// Grounded on spec.md §4.H's exact field list; this is pure rule-
// checking over pkg/offload.Flow with no teacher analogue beyond the
// general closed-enum/validation idiom the teacher applies to incoming
// flow specs elsewhere (rw_core/flow_decomposition rejects
// unsupported OpenFlow match fields before decomposing).
package validate

import (
	"fmt"

	"github.com/flowcore/nicoffload/pkg/offload"
)

// Validate returns nil if m is representable in hardware given
// isTunnel, or a wrapped offload.ErrUnsupported naming the first
// offending field otherwise. m must already have StripZeroWildcards
// applied (spec.md §4.H: "given a zero-wildcard-stripped match").
func Validate(m offload.Match, isTunnel bool) error {
	f := m.Flow

	if !isTunnel {
		if f.TunnelID != 0 || f.TunnelSrc != 0 || f.TunnelDst != 0 {
			return unsupported("tunnel field set on a non-tunnel flow")
		}
	}

	if f.Metadata != 0 {
		return unsupported("metadata")
	}
	if f.SkbPriority != 0 {
		return unsupported("skb_priority")
	}
	if f.PktMark != 0 {
		return unsupported("pkt_mark")
	}
	if f.DpHash != 0 {
		return unsupported("dp_hash")
	}
	if f.ConjID != 0 {
		return unsupported("conj_id")
	}
	if f.ActsetOutput != 0 {
		return unsupported("actset_output")
	}

	if f.CtState != 0 && f.CtState != offload.CtStateEstablished {
		return unsupported("ct_state beyond established")
	}
	if f.CtNwProto != 0 {
		return unsupported("ct_nw_proto")
	}
	if f.CtZone != 0 {
		return unsupported("ct_zone")
	}
	if f.CtMark != 0 {
		return unsupported("ct_mark")
	}
	if f.CtLabel != (offload.Label128{}) {
		return unsupported("ct_label")
	}
	if f.CtTpSrc != 0 {
		return unsupported("ct_tp_src")
	}
	if f.CtTpDst != 0 {
		return unsupported("ct_tp_dst")
	}

	if f.HasMPLS {
		return unsupported("mpls")
	}
	if f.HasIPv6 {
		return unsupported("ipv6")
	}
	if f.HasND {
		return unsupported("nd")
	}
	if f.HasNSH {
		return unsupported("nsh")
	}
	if f.HasARP {
		return unsupported("arp")
	}
	if f.HasIGMP {
		return unsupported("igmp")
	}

	if f.NwFrag != 0 {
		return unsupported("nw_frag")
	}

	return nil
}

func unsupported(field string) error {
	return fmt.Errorf("validate: %s: %w", field, offload.ErrUnsupported)
}
