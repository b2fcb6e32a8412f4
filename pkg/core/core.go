// Package core implements the lifecycle component spec.md §4.L
// describes and the "process-wide singleton" surface spec.md §9
// specifies: port add/del, flow put/del, fanout-over-uplinks dispatch,
// and preprocess, all driven through one explicit Core value passed
// to every operation rather than ambient global state. Grounded on
// spec.md §4.L/§9 directly; wiring five previously-standalone
// registries into one facade mirrors the teacher's own
// rw_core/core/device.Agent, which is exactly this shape — one struct
// holding every per-device sub-registry, exposing AddFlow/DeleteFlow/
// etc. as its public surface.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/flowcore/nicoffload/internal/corelog"
	"github.com/flowcore/nicoffload/internal/epoch"
	"github.com/flowcore/nicoffload/internal/events"
	"github.com/flowcore/nicoffload/internal/metrics"
	"github.com/flowcore/nicoffload/internal/pool"
	"github.com/flowcore/nicoffload/internal/snapshot"
	"github.com/flowcore/nicoffload/internal/tracing"
	"github.com/flowcore/nicoffload/pkg/flowreg"
	"github.com/flowcore/nicoffload/pkg/misscontext"
	"github.com/flowcore/nicoffload/pkg/offload"
	"github.com/flowcore/nicoffload/pkg/porttable"
	"github.com/flowcore/nicoffload/pkg/preprocess"
	"github.com/flowcore/nicoffload/pkg/tableid"
	"github.com/flowcore/nicoffload/pkg/translate"
	"github.com/flowcore/nicoffload/pkg/tunnel"
)

var logger = corelog.AddPackage("core")

// quiesceTickInterval drives the epoch reclaimer's background ticker.
// No suspension points exist in preprocess (spec.md §5), so any
// interval comfortably longer than a single flow_put/flow_del driver
// round-trip is a safe quiescence window.
const quiesceTickInterval = 50 * time.Millisecond

// exceptionMarkRangeWidth bounds the pool pkg/core allocates per-vxlan-port
// exception marks from (spec.md §6 "Reserved marks"). It sits entirely
// below pkg/translate's own mark pool so the two can never collide.
const exceptionMarkRangeWidth = 1 << 16

// Core is the process-wide singleton value spec.md §9 calls for: every
// registry the core needs, plus the translator that drives them.
type Core struct {
	ports   *porttable.Table
	tunnels *tunnel.Registry
	tables  *tableid.Pool
	flows   *flowreg.Registry
	miss    *misscontext.Table
	tr      *translate.Translator
	pp      *preprocess.Preprocessor
	recl    *epoch.Reclaimer
	snap    *snapshot.Store
	pub     *events.Publisher
	met     *metrics.Metrics

	exceptionMarks *pool.Pool
}

// New returns a Core wired to driver, ready to accept port_add calls.
// minReservedMark is the base of the exception-mark range spec.md §6
// reserves (internal/config.Flags.MinReservedMark).
func New(driver offload.Driver, minReservedMark uint32) *Core {
	recl := epoch.New()
	recl.Run(quiesceTickInterval)

	ports := porttable.New(recl)
	tunnels := tunnel.New(recl)
	tables := tableid.NewPool(recl)
	miss := misscontext.New(recl)
	flows := flowreg.New(ports, recl)
	tr := translate.New(driver, tunnels, tables, ports, miss)
	pp := preprocess.New(miss, tunnels)

	return &Core{
		ports:          ports,
		tunnels:        tunnels,
		tables:         tables,
		flows:          flows,
		miss:           miss,
		tr:             tr,
		pp:             pp,
		recl:           recl,
		snap:           snapshot.New(nil),
		exceptionMarks: pool.New(minReservedMark, minReservedMark+exceptionMarkRangeWidth),
	}
}

// SetSnapshotStore wires a snapshot store into Core, enabling
// Snapshot/Restore. Passing a store backed by a nil *kvstore.Client
// (the default from New) keeps both calls as no-ops, matching the
// teacher's accept-a-disabled-sub-system test pattern.
func (c *Core) SetSnapshotStore(s *snapshot.Store) {
	c.snap = s
}

// SetEventPublisher wires a best-effort event publisher into Core. A
// nil publisher (the default) makes every publish call a no-op.
func (c *Core) SetEventPublisher(p *events.Publisher) {
	c.pub = p
}

// SetMetrics wires a metrics sink into Core. A nil sink (the default)
// makes every metrics update a no-op — tests and any caller that
// hasn't set up a prometheus registry still work unchanged.
func (c *Core) SetMetrics(m *metrics.Metrics) {
	c.met = m
}

func (c *Core) bumpGauges() {
	if c.met == nil {
		return
	}
	c.met.PortsActive.Set(float64(len(c.ports.All())))
	c.met.FlowsActive.Set(float64(c.flows.Len()))
	c.met.TunnelRefcount.Set(float64(c.tunnels.Len()))
	c.met.TableIDRefcount.Set(float64(c.tables.Recirc().Len() + c.tables.Port().Len()))
}

func (c *Core) bumpRulesInstalled(rec *offload.Record) {
	if c.met == nil || rec == nil {
		return
	}
	for _, h := range rec.Rules {
		c.met.RulesInstalled.WithLabelValues(h.Table.String()).Inc()
	}
}

func (c *Core) bumpRulesDestroyed(rec *offload.Record) {
	if c.met == nil || rec == nil {
		return
	}
	for _, h := range rec.Rules {
		c.met.RulesDestroyed.WithLabelValues(h.Table.String()).Inc()
	}
}

// Snapshot persists the current tunnel/table-id registries and each
// port's flow-id set (SPEC_FULL.md §4.M, §6). Best-effort: failures are
// logged by internal/snapshot and never surfaced here.
func (c *Core) Snapshot(ctx context.Context) {
	c.snap.Save(ctx, c.ports, c.tunnels, c.tables)
}

// Restore loads the most recently saved snapshot, for the admin
// Reconcile call. ok is false if nothing has been saved yet.
func (c *Core) Restore(ctx context.Context) (*snapshot.Snapshot, bool, error) {
	return c.snap.Load(ctx)
}

// Close stops the background reclamation ticker. Safe to call once at
// process shutdown; any frees still pending are dropped along with
// the rest of process state.
func (c *Core) Close() {
	c.recl.Stop()
}

// PortAdd classifies netdev and installs a new port record (spec.md
// §4.D "port_add"). Returns ErrExhausted (→ ENOMEM at the Core-method
// boundary) if a vxlan port's exception mark cannot be allocated.
func (c *Core) PortAdd(netdev offload.Netdev, dpPort uint32) error {
	if _, exists := c.ports.Get(dpPort); exists {
		return fmt.Errorf("core: port %d already exists: %w", dpPort, ENODEV)
	}

	var exceptionMark uint32
	if netdev.TypeString() == "vxlan" {
		id, ok := c.exceptionMarks.Alloc()
		if !ok {
			if c.met != nil {
				c.met.PoolExhausted.WithLabelValues("exception_mark").Inc()
			}
			return toErrno(fmt.Errorf("core: exception-mark pool exhausted: %w", offload.ErrExhausted), ENODEV)
		}
		exceptionMark = id
	}

	c.ports.Add(netdev, dpPort, exceptionMark)
	c.bumpGauges()
	logger.Infow("port-add", corelog.Fields{"dp_port": dpPort, "kind": netdev.TypeString()})
	return nil
}

// PortDel destroys dpPort's offload records, default rules, and
// bookkeeping (spec.md §4.D "port_del"). Returns ErrNotFound (→
// ENODEV) if dpPort is unknown.
func (c *Core) PortDel(ctx context.Context, dpPort uint32) error {
	port, ok := c.ports.Del(dpPort)
	if !ok {
		return toErrno(fmt.Errorf("core: port %d: %w", dpPort, offload.ErrNotFound), ENODEV)
	}

	var flowIDs []offload.FlowID
	port.Flows().Range(func(id offload.FlowID, rec *offload.Record) bool {
		flowIDs = append(flowIDs, id)
		return true
	})
	for _, id := range flowIDs {
		if rec, ok := port.Flows().Delete(id, nil); ok {
			if err := c.tr.Destroy(ctx, rec); err != nil {
				logger.Warnw("port-del-flow-destroy-failed", corelog.Fields{"flow_id": id.String(), "error": err.Error()})
			}
			c.bumpRulesDestroyed(rec)
		}
	}
	c.flows.ForgetPort(dpPort, flowIDs)

	for _, h := range port.DefaultRules() {
		if err := c.tr.DestroyOne(ctx, h); err != nil {
			logger.Warnw("port-del-default-rule-destroy-failed", corelog.Fields{"dp_port": dpPort, "error": err.Error()})
		}
	}

	if port.Kind == offload.PortKindVxlan {
		c.exceptionMarks.Free(port.ExceptionMark)
		c.miss.Delete(port.ExceptionMark)
	}

	c.bumpGauges()
	logger.Infow("port-del", corelog.Fields{"dp_port": dpPort})
	return nil
}

// FlowPut validates, translates, and installs (match, actions) for
// flowID, replacing any existing record for the same flow-id. The new
// record is translated and installed first; only once it is registered
// are the old record's rules destroyed, so a put that is rejected or
// installs nothing leaves the old record in place. A tunnel-pop fanout
// that fails part-way registers the rules that did install (replacing
// the old record) and still returns ENODEV.
func (c *Core) FlowPut(ctx context.Context, netdev offload.Netdev, m offload.Match, actions offload.ActionList, flowID offload.FlowID) error {
	span, ctx := tracing.StartSpan(ctx, "flow_put")
	var retErr error
	defer func() { tracing.FinishWithError(span, retErr) }()

	rec, err := c.tr.Put(ctx, netdev, m, actions, flowID)
	if err != nil && rec == nil {
		retErr = toErrno(err, ENODEV)
		if c.met != nil {
			c.met.FlowPutFailures.WithLabelValues(errnoLabel(retErr)).Inc()
		}
		c.pub.Publish(events.Event{FlowID: flowID.String(), DpPort: netdev.DpPort(), Outcome: events.OutcomeFailed})
		return retErr
	}

	old, putErr := c.flows.Put(netdev.DpPort(), rec)
	if putErr != nil {
		// The port vanished between translate and registry insert
		// (concurrent port_del) — tear down what we just installed
		// rather than leak it.
		_ = c.tr.Destroy(ctx, rec)
		retErr = toErrno(putErr, ENODEV)
		if c.met != nil {
			c.met.FlowPutFailures.WithLabelValues(errnoLabel(retErr)).Inc()
		}
		return retErr
	}
	if old != nil {
		if err := c.tr.Destroy(ctx, old); err != nil {
			logger.Warnw("flow-put-replace-destroy-failed", corelog.Fields{"flow_id": flowID.String(), "error": err.Error()})
		}
		c.bumpRulesDestroyed(old)
	}
	c.bumpRulesInstalled(rec)
	c.bumpGauges()

	outcome := events.OutcomeInstalled
	if rec.Count() < rec.Capacity {
		outcome = events.OutcomePartial
	}
	table := offload.TableUnknown
	if len(rec.Rules) > 0 {
		table = rec.Rules[0].Table
	}
	c.pub.Publish(events.Event{FlowID: flowID.String(), DpPort: netdev.DpPort(), Table: table, Outcome: outcome})
	if err != nil {
		// Mid-fanout driver failure: the rules that did install are
		// registered above and kept, and the failure is still reported.
		retErr = toErrno(err, ENODEV)
		if c.met != nil {
			c.met.FanoutFailures.Inc()
			c.met.FlowPutFailures.WithLabelValues(errnoLabel(retErr)).Inc()
		}
		return retErr
	}
	return nil
}

// FlowDel destroys flowID's rules and removes its bookkeeping. Returns
// ErrNotFound (→ EINVAL) if flowID is unknown.
func (c *Core) FlowDel(ctx context.Context, flowID offload.FlowID) error {
	span, ctx := tracing.StartSpan(ctx, "flow_del")
	var retErr error
	defer func() { tracing.FinishWithError(span, retErr) }()

	dpPort, ok := c.flows.Lookup(flowID)
	if !ok {
		retErr = toErrno(fmt.Errorf("core: flow %s: %w", flowID.String(), offload.ErrNotFound), EINVAL)
		return retErr
	}

	rec, ok := c.flows.Remove(dpPort, flowID)
	if !ok {
		retErr = toErrno(fmt.Errorf("core: flow %s: %w", flowID.String(), offload.ErrNotFound), EINVAL)
		return retErr
	}

	retErr = toErrno(c.tr.Destroy(ctx, rec), ENODEV)
	c.bumpRulesDestroyed(rec)
	c.bumpGauges()
	c.pub.Publish(events.Event{FlowID: flowID.String(), DpPort: dpPort, Outcome: events.OutcomeDeleted})
	return retErr
}

// Preprocess restores packet metadata on a software miss (spec.md
// §4.K). netdev is the ingress netdev, consulted only for vxlan-miss
// header pops.
func (c *Core) Preprocess(pkt *preprocess.Packet, mark uint32, netdev offload.Netdev) {
	c.pp.OnMiss(pkt, mark, netdev)
}

// Ports exposes the port table for the admin/introspection surface
// (SPEC_FULL.md §4.O) and the snapshot store (§4.M). Read-only use
// only — mutating it directly instead of through PortAdd/PortDel would
// bypass the exception-mark pool and miss-context bookkeeping.
func (c *Core) Ports() *porttable.Table { return c.ports }

// Tunnels exposes the tunnel registry for the admin surface and
// snapshot store.
func (c *Core) Tunnels() *tunnel.Registry { return c.tunnels }

// Tables exposes the table-id registry for the admin surface and
// snapshot store.
func (c *Core) Tables() *tableid.Pool { return c.tables }

// Flows exposes the flow-id registry for the admin introspection
// surface.
func (c *Core) Flows() *flowreg.Registry { return c.flows }

// ReconcilePort compares a restored snapshot's view of dpPort against
// its just-installed live record and logs any divergence (the
// admin-gRPC-triggered "Reconcile" call, SPEC_FULL.md §4.O).
func (c *Core) ReconcilePort(snap *snapshot.Snapshot, dpPort uint32) error {
	port, ok := c.ports.Get(dpPort)
	if !ok {
		return fmt.Errorf("core: port %d: %w", dpPort, offload.ErrNotFound)
	}
	snapshot.Reconcile(snap, dpPort, port)
	return nil
}
