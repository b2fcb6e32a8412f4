// Command flowcored is the process-wide singleton daemon spec.md §9
// calls for: one Core per NIC, wired to the ambient stack SPEC_FULL.md
// adds (structured logging, snapshot persistence, event publication,
// tracing, the admin gRPC surface, and a Prometheus metrics endpoint),
// started and torn down the way the teacher's rw_core/main.go drives
// its own top-level components (parse flags, configure logging,
// construct sub-systems, register them with a readiness probe, block
// on an OS signal, shut down in reverse order).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowcore/nicoffload/internal/adminapi"
	"github.com/flowcore/nicoffload/internal/config"
	"github.com/flowcore/nicoffload/internal/corelog"
	"github.com/flowcore/nicoffload/internal/events"
	"github.com/flowcore/nicoffload/internal/kvstore"
	"github.com/flowcore/nicoffload/internal/metrics"
	"github.com/flowcore/nicoffload/internal/probe"
	"github.com/flowcore/nicoffload/internal/snapshot"
	"github.com/flowcore/nicoffload/internal/tracing"
	"github.com/flowcore/nicoffload/pkg/core"
	"github.com/flowcore/nicoffload/pkg/offload"
)

var logger = corelog.AddPackage("flowcored")

func main() {
	cfg := config.New()
	if err := cfg.ParseCommandArguments(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := corelog.Configure(logEncoding(cfg.LogEncoding), parseLogLevel(cfg.LogLevel)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	p := probe.New()
	p.Register("core", "snapshot", "events", "adminapi")

	closer, err := tracing.Init("flowcored", "127.0.0.1:6831")
	if err != nil {
		logger.Warnw("tracing-init-failed", corelog.Fields{"error": err.Error()})
	} else {
		defer closer.Close()
	}

	c := core.New(&unimplementedDriver{}, cfg.MinReservedMark)
	p.Update("core", probe.StatusRunning)

	met := metrics.New()
	reg := prometheus.NewRegistry()
	met.Register(reg)
	c.SetMetrics(met)

	if !cfg.DisableSnapshot {
		wireSnapshot(c, cfg, p)
	}
	if !cfg.DisableEvents {
		wireEvents(c, cfg, p)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		addr := fmt.Sprintf("%s:%d", cfg.ProbeHost, cfg.ProbePort+1)
		logger.Infow("metrics-listening", corelog.Fields{"addr": addr})
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Errorw("metrics-server-failed", corelog.Fields{"error": err.Error()})
		}
	}()
	go func() {
		if err := p.ListenAndServe(cfg.ProbeHost, cfg.ProbePort); err != nil {
			logger.Errorw("probe-server-failed", corelog.Fields{"error": err.Error()})
		}
	}()

	var adminSrv *adminapi.Server
	if !cfg.DisableAdminAPI {
		adminSrv = adminapi.NewServer(fmt.Sprintf("%s:%d", cfg.AdminGrpcHost, cfg.AdminGrpcPort), c)
		go func() {
			p.Update("adminapi", probe.StatusRunning)
			if err := adminSrv.Start(ctx); err != nil {
				logger.Errorw("adminapi-server-failed", corelog.Fields{"error": err.Error()})
				p.Update("adminapi", probe.StatusFailed)
			}
		}()
	}

	logger.Infow("flowcored-started", corelog.Fields{"min_reserved_mark": cfg.MinReservedMark})
	<-ctx.Done()
	logger.Infow("flowcored-shutting-down", corelog.Fields{})

	if adminSrv != nil {
		adminSrv.Stop()
	}
	c.Snapshot(context.Background())
	c.Close()
}

// unimplementedDriver is the seam a vendor-specific rte_flow binding
// plugs into; the driver itself is out of scope here (spec.md §6:
// "Driver surface (consumed)"; this repo only defines and calls it). It
// logs every call so the daemon is runnable end-to-end against a
// software-only datapath during integration testing, never installing
// real hardware state.
type unimplementedDriver struct{}

func (d *unimplementedDriver) RuleCreate(ctx context.Context, netdev offload.Netdev, attr offload.Attr, patterns []offload.PatternItem, actions []offload.ActionItem) (interface{}, error) {
	logger.Debugw("rule-create-stub", corelog.Fields{"dp_port": netdev.DpPort(), "table": attr.Table.String()})
	return nil, fmt.Errorf("flowcored: no vendor driver configured: %w", offload.ErrDriverFailure)
}

func (d *unimplementedDriver) RuleDestroy(ctx context.Context, netdev offload.Netdev, handle interface{}) error {
	logger.Debugw("rule-destroy-stub", corelog.Fields{"dp_port": netdev.DpPort()})
	return nil
}

func wireSnapshot(c *core.Core, cfg *config.Flags, p *probe.Probe) {
	endpoint := fmt.Sprintf("%s:%d", cfg.KVStoreHost, cfg.KVStorePort)
	kv, err := kvstore.New([]string{endpoint}, cfg.KVStoreTimeout)
	if err != nil {
		logger.Warnw("kvstore-dial-failed", corelog.Fields{"error": err.Error()})
		p.Update("snapshot", probe.StatusFailed)
		return
	}
	c.SetSnapshotStore(snapshot.New(kv))
	p.Update("snapshot", probe.StatusRunning)

	go func() {
		ticker := time.NewTicker(cfg.SnapshotInterval)
		defer ticker.Stop()
		for range ticker.C {
			c.Snapshot(context.Background())
		}
	}()
}

func wireEvents(c *core.Core, cfg *config.Flags, p *probe.Probe) {
	brokers := strings.Split(cfg.KafkaBrokers, ",")
	pub, err := events.New(brokers, cfg.KafkaEventsTopic, 1024)
	if err != nil {
		logger.Warnw("events-dial-failed", corelog.Fields{"error": err.Error()})
		p.Update("events", probe.StatusFailed)
		return
	}
	c.SetEventPublisher(pub)
	p.Update("events", probe.StatusRunning)
}

func logEncoding(s string) string {
	if s == corelog.JSON {
		return corelog.JSON
	}
	return corelog.CONSOLE
}

func parseLogLevel(s string) corelog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return corelog.DebugLevel
	case "WARN":
		return corelog.WarnLevel
	case "ERROR":
		return corelog.ErrorLevel
	case "FATAL":
		return corelog.FatalLevel
	default:
		return corelog.InfoLevel
	}
}
