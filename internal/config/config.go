// Package config holds the flag-parsed settings for the flowcored
// daemon, adapted from the teacher's rw_core/config package: a flat
// defaults block, a struct of parsed values, and a ParseCommandArguments
// method that registers flag.FlagSet bindings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"flag"
)

// Default values for every flowcored setting.
const (
	defaultAdminGrpcHost    = ""
	defaultAdminGrpcPort    = 50077
	defaultKafkaBrokers     = "127.0.0.1:9092"
	defaultKafkaEventsTopic = "offload-events"
	defaultKVStoreType      = "etcd"
	defaultKVStoreHost      = "127.0.0.1"
	defaultKVStorePort      = 2379
	defaultKVStoreTimeout   = 5 * time.Second
	defaultKVStorePrefix    = "service/flowcore"
	defaultLogLevel         = "INFO"
	defaultLogEncoding      = "console"
	defaultProbeHost        = ""
	defaultProbePort        = 8081
	defaultSnapshotInterval = 30 * time.Second
	defaultOuterIDPoolBase  = 1
	defaultOuterIDPoolLimit = 65536
	defaultTableIDPoolBase  = 64
	defaultTableIDPoolLimit = 65280
	defaultMinReservedMark  = 1 << 20
)

// Flags represents the set of configuration values consumed by the
// flowcored process, bound to the flag package at startup and
// overridable by FLOWCORE_-prefixed environment variables.
type Flags struct {
	AdminGrpcHost    string
	AdminGrpcPort    int
	KafkaBrokers     string
	KafkaEventsTopic string
	KVStoreType      string
	KVStoreHost      string
	KVStorePort      int
	KVStoreTimeout   time.Duration
	KVStorePrefix    string
	LogLevel         string
	LogEncoding      string
	ProbeHost        string
	ProbePort        int
	SnapshotInterval time.Duration
	OuterIDPoolBase  uint32
	OuterIDPoolLimit uint32
	TableIDPoolBase  uint32
	TableIDPoolLimit uint32
	MinReservedMark  uint32
	DisableSnapshot  bool
	DisableEvents    bool
	DisableAdminAPI  bool
}

// New returns a Flags struct populated with defaults, prior to parsing.
func New() *Flags {
	return &Flags{
		AdminGrpcHost:    defaultAdminGrpcHost,
		AdminGrpcPort:    defaultAdminGrpcPort,
		KafkaBrokers:     defaultKafkaBrokers,
		KafkaEventsTopic: defaultKafkaEventsTopic,
		KVStoreType:      defaultKVStoreType,
		KVStoreHost:      defaultKVStoreHost,
		KVStorePort:      defaultKVStorePort,
		KVStoreTimeout:   defaultKVStoreTimeout,
		KVStorePrefix:    defaultKVStorePrefix,
		LogLevel:         defaultLogLevel,
		LogEncoding:      defaultLogEncoding,
		ProbeHost:        defaultProbeHost,
		ProbePort:        defaultProbePort,
		SnapshotInterval: defaultSnapshotInterval,
		OuterIDPoolBase:  defaultOuterIDPoolBase,
		OuterIDPoolLimit: defaultOuterIDPoolLimit,
		TableIDPoolBase:  defaultTableIDPoolBase,
		TableIDPoolLimit: defaultTableIDPoolLimit,
		MinReservedMark:  defaultMinReservedMark,
	}
}

// ParseCommandArguments registers flags for every setting and parses
// os.Args, applying FLOWCORE_-prefixed environment overrides first so
// that explicit flags still win.
func (f *Flags) ParseCommandArguments(args []string) error {
	f.applyEnvOverrides()

	fs := flag.NewFlagSet("flowcored", flag.ContinueOnError)
	fs.StringVar(&f.AdminGrpcHost, "admin-grpc-host", f.AdminGrpcHost, "admin gRPC bind host")
	fs.IntVar(&f.AdminGrpcPort, "admin-grpc-port", f.AdminGrpcPort, "admin gRPC bind port")
	fs.StringVar(&f.KafkaBrokers, "kafka-brokers", f.KafkaBrokers, "comma-separated Kafka broker list")
	fs.StringVar(&f.KafkaEventsTopic, "kafka-events-topic", f.KafkaEventsTopic, "topic for offload events")
	fs.StringVar(&f.KVStoreType, "kv-store-type", f.KVStoreType, "kv store backend (etcd)")
	fs.StringVar(&f.KVStoreHost, "kv-store-host", f.KVStoreHost, "kv store host")
	fs.IntVar(&f.KVStorePort, "kv-store-port", f.KVStorePort, "kv store port")
	fs.DurationVar(&f.KVStoreTimeout, "kv-store-timeout", f.KVStoreTimeout, "kv store request timeout")
	fs.StringVar(&f.KVStorePrefix, "kv-store-prefix", f.KVStorePrefix, "kv store key prefix")
	fs.StringVar(&f.LogLevel, "log-level", f.LogLevel, "DEBUG|INFO|WARN|ERROR")
	fs.StringVar(&f.LogEncoding, "log-encoding", f.LogEncoding, "console|json")
	fs.StringVar(&f.ProbeHost, "probe-host", f.ProbeHost, "health probe bind host")
	fs.IntVar(&f.ProbePort, "probe-port", f.ProbePort, "health probe bind port")
	fs.DurationVar(&f.SnapshotInterval, "snapshot-interval", f.SnapshotInterval, "registry snapshot period")
	fs.BoolVar(&f.DisableSnapshot, "disable-snapshot", f.DisableSnapshot, "disable registry snapshotting")
	fs.BoolVar(&f.DisableEvents, "disable-events", f.DisableEvents, "disable Kafka event publication")
	fs.BoolVar(&f.DisableAdminAPI, "disable-admin-api", f.DisableAdminAPI, "disable the admin gRPC surface")
	return fs.Parse(args)
}

// applyEnvOverrides mutates f in place from FLOWCORE_* environment
// variables before flag parsing, so flags remain the final authority.
func (f *Flags) applyEnvOverrides() {
	if v, ok := os.LookupEnv("FLOWCORE_KAFKA_BROKERS"); ok {
		f.KafkaBrokers = v
	}
	if v, ok := os.LookupEnv("FLOWCORE_KV_STORE_HOST"); ok {
		f.KVStoreHost = v
	}
	if v, ok := os.LookupEnv("FLOWCORE_KV_STORE_PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			f.KVStorePort = p
		}
	}
	if v, ok := os.LookupEnv("FLOWCORE_LOG_LEVEL"); ok {
		f.LogLevel = v
	}
	if v, ok := os.LookupEnv("FLOWCORE_LOG_ENCODING"); ok {
		f.LogEncoding = v
	}
}

// Validate rejects id-pool configurations that cannot be satisfied: a
// pool whose base is not below its limit, or a table-id pool that
// overlaps the fixed pipeline tables (spec.md §4.A). MinReservedMark is
// not checked.
func (f *Flags) Validate() error {
	if f.OuterIDPoolBase >= f.OuterIDPoolLimit {
		return fmt.Errorf("config: outer-id pool base %d >= limit %d", f.OuterIDPoolBase, f.OuterIDPoolLimit)
	}
	if f.TableIDPoolBase >= f.TableIDPoolLimit {
		return fmt.Errorf("config: table-id pool base %d >= limit %d", f.TableIDPoolBase, f.TableIDPoolLimit)
	}
	if f.TableIDPoolBase < 64 {
		return fmt.Errorf("config: table-id pool base %d overlaps the fixed pipeline table range", f.TableIDPoolBase)
	}
	return nil
}
