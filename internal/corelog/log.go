// Package corelog is the structured-logging backbone shared by every
// component of the offload core. It wraps zap's SugaredLogger behind a
// small per-package logger registry, the same shape the teacher's
// common/log package uses.
package corelog

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	zp "go.uber.org/zap"
	zc "go.uber.org/zap/zapcore"
)

// Level mirrors zap's level set without exposing zap types at call sites.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// Fields carries structured key-value pairs alongside a log message.
type Fields map[string]interface{}

const (
	// CONSOLE formats logs for local development.
	CONSOLE = "console"
	// JSON formats logs for ingestion by an automated pipeline.
	JSON = "json"
)

func parseLevel(l Level) zp.AtomicLevel {
	switch l {
	case DebugLevel:
		return zp.NewAtomicLevelAt(zc.DebugLevel)
	case InfoLevel:
		return zp.NewAtomicLevelAt(zc.InfoLevel)
	case WarnLevel:
		return zp.NewAtomicLevelAt(zc.WarnLevel)
	case ErrorLevel:
		return zp.NewAtomicLevelAt(zc.ErrorLevel)
	case FatalLevel:
		return zp.NewAtomicLevelAt(zc.FatalLevel)
	}
	return zp.NewAtomicLevelAt(zc.InfoLevel)
}

func buildConfig(encoding string, level Level) zp.Config {
	return zp.Config{
		Level:            parseLevel(level),
		Encoding:         encoding,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zc.EncoderConfig{
			LevelKey:       "level",
			MessageKey:     "msg",
			TimeKey:        "ts",
			NameKey:        "pkg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zc.DefaultLineEnding,
			EncodeLevel:    zc.LowercaseLevelEncoder,
			EncodeTime:     zc.ISO8601TimeEncoder,
			EncodeDuration: zc.SecondsDurationEncoder,
			EncodeCaller:   zc.ShortCallerEncoder,
		},
	}
}

var (
	mu          sync.RWMutex
	encoding    = CONSOLE
	level       = InfoLevel
	root        *zp.Logger
	byPackage   = map[string]*Logger{}
	initialized bool
)

// Logger is a named, leveled logger for one package of the offload core.
type Logger struct {
	name string
	sug  *zp.SugaredLogger
}

// Configure sets the process-wide encoding/level used by every logger
// obtained through AddPackage. It must be called once during startup,
// before the first offload operation, mirroring the teacher's
// SetDefaultLogger contract.
func Configure(enc string, lvl Level) error {
	mu.Lock()
	defer mu.Unlock()
	encoding = enc
	level = lvl
	cfg := buildConfig(encoding, level)
	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("corelog: build zap logger: %w", err)
	}
	root = l
	initialized = true
	for name, lg := range byPackage {
		lg.sug = root.Named(name).Sugar()
	}
	return nil
}

// AddPackage registers (or returns the existing) logger for the calling
// package, inferred from the caller's file path if name is empty.
func AddPackage(name string) *Logger {
	if name == "" {
		name = callerPackage()
	}
	mu.Lock()
	defer mu.Unlock()
	if lg, ok := byPackage[name]; ok {
		return lg
	}
	if !initialized {
		cfg := buildConfig(encoding, level)
		l, err := cfg.Build()
		if err != nil {
			l = zp.NewNop()
		}
		root = l
		initialized = true
	}
	lg := &Logger{name: name, sug: root.Named(name).Sugar()}
	byPackage[name] = lg
	return lg
}

func callerPackage() string {
	_, file, _, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	dir := path.Dir(file)
	return strings.TrimPrefix(path.Base(dir), "/")
}

func (l *Logger) fields(f Fields) []interface{} {
	kv := make([]interface{}, 0, len(f)*2)
	for k, v := range f {
		kv = append(kv, k, v)
	}
	return kv
}

func (l *Logger) Debug(args ...interface{})                { l.sug.Debug(args...) }
func (l *Logger) Debugf(tmpl string, args ...interface{})   { l.sug.Debugf(tmpl, args...) }
func (l *Logger) Debugw(msg string, f Fields)               { l.sug.Debugw(msg, l.fields(f)...) }
func (l *Logger) Info(args ...interface{})                  { l.sug.Info(args...) }
func (l *Logger) Infof(tmpl string, args ...interface{})    { l.sug.Infof(tmpl, args...) }
func (l *Logger) Infow(msg string, f Fields)                { l.sug.Infow(msg, l.fields(f)...) }
func (l *Logger) Warn(args ...interface{})                  { l.sug.Warn(args...) }
func (l *Logger) Warnf(tmpl string, args ...interface{})    { l.sug.Warnf(tmpl, args...) }
func (l *Logger) Warnw(msg string, f Fields)                { l.sug.Warnw(msg, l.fields(f)...) }
func (l *Logger) Error(args ...interface{})                 { l.sug.Error(args...) }
func (l *Logger) Errorf(tmpl string, args ...interface{})   { l.sug.Errorf(tmpl, args...) }
func (l *Logger) Errorw(msg string, f Fields)                { l.sug.Errorw(msg, l.fields(f)...) }

// Fatalw logs at error level with full context, then exits the process.
// Used exclusively for the invariant-violated error kind (spec §7):
// these represent bugs, not recoverable failures.
func (l *Logger) Fatalw(msg string, f Fields) {
	l.sug.Errorw(msg, l.fields(f)...)
	_ = l.sug.Sync()
	os.Exit(1)
}

// Sync flushes any buffered log entries. Call during graceful shutdown.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if root == nil {
		return nil
	}
	return root.Sync()
}
