package translate

import (
	"context"
	"fmt"

	"github.com/flowcore/nicoffload/internal/corelog"
	"github.com/flowcore/nicoffload/internal/pool"
	"github.com/flowcore/nicoffload/pkg/classify"
	"github.com/flowcore/nicoffload/pkg/misscontext"
	"github.com/flowcore/nicoffload/pkg/offload"
	"github.com/flowcore/nicoffload/pkg/porttable"
	"github.com/flowcore/nicoffload/pkg/tableid"
	"github.com/flowcore/nicoffload/pkg/tunnel"
	"github.com/flowcore/nicoffload/pkg/validate"
)

var logger = corelog.AddPackage("translate")

// markPoolBase and markPoolLimit bound the 24-bit marks the
// translator itself allocates for ct-jump and mark-and-RSS fallback
// rules. Per spec.md §6 "other marks are assigned by the datapath" in
// the reference, which runs inside the datapath process; this rewrite
// runs as its own process and must hand out its own marks for the
// rules it installs, reserving the low range below MinReservedMark for
// the datapath's own use and starting well above the vxlan
// exception-mark range pkg/core allocates from
// (internal/config.Flags.MinReservedMark upward) so the two pools can
// never hand out the same 24-bit value.
const (
	markPoolBase  = 1 << 21
	markPoolLimit = 1 << 24
)

// Translator drives the identifier registries (pkg/tunnel,
// pkg/tableid), the port table (pkg/porttable), and the miss-context
// table (pkg/misscontext) to turn a validated, classified flow into
// one or more installed hardware rules (spec.md §4.J).
type Translator struct {
	driver  offload.Driver
	tunnels *tunnel.Registry
	tables  *tableid.Pool
	ports   *porttable.Table
	miss    *misscontext.Table
	marks   *pool.Pool
}

// New returns a Translator. driver may be nil in tests that only
// exercise pattern/action synthesis indirectly through Put's error
// paths; any attempt to actually install a rule against a nil driver
// panics, matching the teacher's own "nil sub-system disables the
// feature, but using a disabled feature is a programming error" stance
// (SPEC_FULL.md §9).
func New(driver offload.Driver, tunnels *tunnel.Registry, tables *tableid.Pool, ports *porttable.Table, miss *misscontext.Table) *Translator {
	return &Translator{
		driver:  driver,
		tunnels: tunnels,
		tables:  tables,
		ports:   ports,
		miss:    miss,
		marks:   pool.New(markPoolBase, markPoolLimit),
	}
}

// Put validates, classifies, and translates (m, actions) for flowID
// arriving on netdev's dp_port, returning the resulting offload
// record. It does not consult or mutate the flow-id registry
// (pkg/flowreg) — the caller (pkg/core) owns atomic replace and
// bookkeeping; Put only produces the rule vector for one flow_put.
func (t *Translator) Put(ctx context.Context, netdev offload.Netdev, m offload.Match, actions offload.ActionList, flowID offload.FlowID) (*offload.Record, error) {
	port, ok := t.ports.Get(netdev.DpPort())
	if !ok {
		return nil, fmt.Errorf("translate: port %d: %w", netdev.DpPort(), offload.ErrNotFound)
	}
	isVirtual := port.Kind == offload.PortKindVxlan

	actionKind := classify.ActionKind(actions)
	isTunnel := actionKind == offload.ActionKindTunnelPop

	stripped := m.StripZeroWildcards()
	if err := validate.Validate(offload.Match{Flow: stripped, Wildcards: m.Wildcards}, isTunnel); err != nil {
		return nil, err
	}
	m.Flow = stripped

	if err := classify.ValidateActionList(actions, m, isVirtual); err != nil {
		return nil, err
	}

	matchKind := classify.MatchKind(m, isVirtual)

	switch actionKind {
	case offload.ActionKindTunnelPop:
		// ValidateActionList leaves tunnel_pop as the only action; its
		// port names the vxlan port whose table receives the default rule.
		vxlanPort, ok := t.ports.Get(actions[0].OutputPort)
		if !ok {
			return nil, fmt.Errorf("translate: tunnel_pop port %d: %w", actions[0].OutputPort, offload.ErrNotFound)
		}
		return t.translateTunnelPop(ctx, vxlanPort, m, flowID)
	case offload.ActionKindCT:
		ctAct, ok := findCT(actions)
		if !ok {
			return nil, fmt.Errorf("translate: ct action missing CT args: %w", offload.ErrInvariantViolated)
		}
		return t.translateCT(ctx, port, matchKind, m, ctAct, flowID)
	default:
		if push, out, ok := actions.CloneTunnelPushOutput(); ok {
			return t.translateClone(ctx, port, matchKind, m, push, out, flowID)
		}
		return t.translateOutput(ctx, port, matchKind, m, actions, flowID)
	}
}

func findCT(actions offload.ActionList) (offload.Action, bool) {
	for _, a := range actions {
		if a.Type == offload.ActionTypeCT && a.CT != nil {
			return a, true
		}
	}
	return offload.Action{}, false
}

func findOutput(actions offload.ActionList) (offload.Action, bool) {
	for _, a := range actions {
		if a.Type == offload.ActionTypeOutput {
			return a, true
		}
	}
	return offload.Action{}, false
}

// Destroy tears down every rule in rec via the driver, then releases
// every side-resource rec.Owned records: recirc/clone table-ids are
// unrefed (pkg/tableid), the translator-owned mark is freed
// (internal/pool) and its miss-context entry deleted (pkg/misscontext),
// and any interned tunnel 3-tuples are unrefed (pkg/tunnel). This is
// the one release path every teardown caller (FlowDel, FlowPut's
// replace branch, PortDel's per-flow loop) goes through, so a resource
// a translate* recipe allocates is freed exactly once, per spec.md §2's
// flow_del data flow ("driver destroy each -> unref B, C -> delete F
// entry").
func (t *Translator) Destroy(ctx context.Context, rec *offload.Record) error {
	var firstErr error
	for _, h := range rec.Rules {
		if err := t.driver.RuleDestroy(ctx, h.Netdev, h.Handle); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	t.release(rec)
	return firstErr
}

// release frees every side-resource rec.Owned records. It is
// unconditional on driver-destroy success: a rule that failed to
// destroy in hardware still had its software-side bookkeeping consumed
// by Put, and leaving these refs held would leak them on every retry.
func (t *Translator) release(rec *offload.Record) {
	for _, key := range rec.Owned.RecircKeys {
		t.tables.Recirc().Unref(key)
	}
	for _, key := range rec.Owned.TunnelKeys {
		t.tunnels.Unref(key)
	}
	if rec.Owned.HasMark {
		t.marks.Free(rec.Owned.Mark)
		t.miss.Delete(rec.Owned.Mark)
	}
}

// DestroyOne tears down a single rule handle, for teardown paths
// (default rules, port_del) that don't have a full Record to destroy.
func (t *Translator) DestroyOne(ctx context.Context, h offload.RuleHandle) error {
	return t.driver.RuleDestroy(ctx, h.Netdev, h.Handle)
}

func tableForMatchKind(k offload.MatchKind, recircTable offload.TableID) offload.TableID {
	switch k {
	case offload.MatchRoot:
		return offload.TableRoot
	case offload.MatchVportRoot:
		return offload.TableVxlan
	default:
		return recircTable
	}
}
