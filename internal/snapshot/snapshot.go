// Package snapshot implements the registry persistence spec.md's
// expansion (SPEC_FULL.md §4.M) describes: periodically serialise the
// tunnel registry, table-id registry, and the set of flow-ids each
// port owns to etcd, and load that view back on demand (Core.Restore).
// Nothing loads it automatically at startup. It never reinstalls
// hardware rules — only a reconciliation pass
// (Core.ReconcilePort, internal/adminapi) compares a restored snapshot
// against the live port_add result and logs divergence. Grounded on
// the teacher's db/kvstore + the flow cluster-data-proxy persistence
// pattern in rw_core/core/device (every OfpFlowStats gets written to
// etcd so a restarted core can reload its flow table).
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v3"

	"github.com/flowcore/nicoffload/internal/corelog"
	"github.com/flowcore/nicoffload/internal/kvstore"
	"github.com/flowcore/nicoffload/pkg/offload"
	"github.com/flowcore/nicoffload/pkg/porttable"
	"github.com/flowcore/nicoffload/pkg/tableid"
	"github.com/flowcore/nicoffload/pkg/tunnel"
)

var logger = corelog.AddPackage("snapshot")

const keyPrefix = "/flowcore/snapshot/"

// PortSnapshot is the persisted view of one port record: everything
// needed to detect divergence against a fresh port_add, not to
// reinstall hardware state.
type PortSnapshot struct {
	DpPort        uint32
	Kind          offload.PortKind
	ExceptionMark uint32
	FlowIDs       []string // canonical uuid.String() form
}

// Snapshot is the full persisted view the store round-trips.
type Snapshot struct {
	Ports   []PortSnapshot
	Tunnels []tunnel.Snapshot
	Recirc  []tableid.Snapshot
	Ports_  []tableid.Snapshot `json:"PortTableIDs"`
}

// Store persists and restores Snapshots to an etcd-backed kvstore.
type Store struct {
	kv *kvstore.Client
}

// New wraps kv. A nil kv disables the store entirely — Save/Load
// become no-ops returning nil — matching the teacher's pattern of
// accepting a disabled sub-system in tests (SPEC_FULL.md §9).
func New(kv *kvstore.Client) *Store {
	return &Store{kv: kv}
}

// Save serialises ports/tunnels/tables and writes them under one key.
// Retries transient etcd failures with exponential backoff; a
// persistent failure is logged and swallowed — snapshot failures must
// never become flow_put/flow_del errors (SPEC_FULL.md §7).
func (s *Store) Save(ctx context.Context, ports *porttable.Table, tunnels *tunnel.Registry, tables *tableid.Pool) {
	if s.kv == nil {
		return
	}

	snap := Snapshot{Tunnels: tunnels.Entries(), Recirc: tables.Recirc().Entries(), Ports_: tables.Port().Entries()}
	for _, p := range ports.All() {
		ps := PortSnapshot{DpPort: p.DpPort, Kind: p.Kind, ExceptionMark: p.ExceptionMark}
		p.Flows().Range(func(id offload.FlowID, _ *offload.Record) bool {
			ps.FlowIDs = append(ps.FlowIDs, id.String())
			return true
		})
		snap.Ports = append(snap.Ports, ps)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		logger.Errorw("snapshot-marshal-failed", corelog.Fields{"error": err.Error()})
		return
	}

	op := func() error { return s.kv.Put(ctx, keyPrefix+"registries", data) }
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 5 * time.Second
	if err := backoff.Retry(op, bo); err != nil {
		logger.Warnw("snapshot-save-failed", corelog.Fields{"error": err.Error()})
	}
}

// Load retrieves the most recently saved Snapshot. ok is false if no
// snapshot exists yet (first-ever startup) or the store is disabled.
func (s *Store) Load(ctx context.Context) (*Snapshot, bool, error) {
	if s.kv == nil {
		return nil, false, nil
	}

	kv, ok, err := s.kv.Get(ctx, keyPrefix+"registries")
	if err != nil {
		return nil, false, fmt.Errorf("snapshot: load: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(kv.Value, &snap); err != nil {
		return nil, false, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	return &snap, true, nil
}

// Reconcile compares a restored snapshot's view of dpPort against the
// just-rebuilt live port (from a fresh port_add) and logs any
// divergence. It never mutates state — SPEC_FULL.md §4.M: this only
// shortens the cold-start window, it is never authoritative over the
// driver's actual installed rules.
func Reconcile(snap *Snapshot, dpPort uint32, live *porttable.Port) {
	var want *PortSnapshot
	for i := range snap.Ports {
		if snap.Ports[i].DpPort == dpPort {
			want = &snap.Ports[i]
			break
		}
	}
	if want == nil {
		return
	}

	liveCount := live.Flows().Len()
	if liveCount != len(want.FlowIDs) {
		logger.Warnw("snapshot-reconcile-divergence", corelog.Fields{
			"dp_port":      dpPort,
			"snapshot_flows": len(want.FlowIDs),
			"live_flows":     liveCount,
		})
	}
}
