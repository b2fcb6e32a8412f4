// Package tracing wraps jaeger-client-go behind opentracing-go's
// global tracer so pkg/core can open a span per flow_put/flow_del
// without depending on jaeger types directly.
// Grounded on the teacher's log/utils.go tracing setup
// (jcfg.Configuration{ServiceName}, const sampler, reporter pointed at
// a local agent address) and its ActiveTracerProxy wrapper around
// opentracing.GlobalTracer(), simplified to the one shape this repo
// needs: start a child span from a context, finish it, tag it on
// error.
package tracing

import (
	"context"
	"io"

	"github.com/opentracing/opentracing-go"
	jaeger "github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"

	"github.com/flowcore/nicoffload/internal/corelog"
)

var logger = corelog.AddPackage("tracing")

// Init configures a jaeger tracer reporting to agentHostPort under
// serviceName and installs it as opentracing's global tracer. Returns
// a closer to flush buffered spans at shutdown. Safe to skip calling —
// StartSpan falls back to opentracing's no-op global tracer, matching
// the teacher's pattern of tracing being off by default.
func Init(serviceName, agentHostPort string) (io.Closer, error) {
	cfg := jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler:     &jaegercfg.SamplerConfig{Type: jaeger.SamplerTypeConst, Param: 1},
		Reporter:    &jaegercfg.ReporterConfig{LocalAgentHostPort: agentHostPort, LogSpans: true},
	}
	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}

// StartSpan opens operation as a child of any span already in ctx (or
// a new root span otherwise), mirroring the teacher's
// log.WithSpanFromContext span-per-call idiom applied at flow_put/
// flow_del boundaries.
func StartSpan(ctx context.Context, operation string) (opentracing.Span, context.Context) {
	return opentracing.StartSpanFromContext(ctx, operation)
}

// FinishWithError finishes span, tagging it as an error span and
// logging the failure if err is non-nil.
func FinishWithError(span opentracing.Span, err error) {
	if err != nil {
		span.SetTag("error", true)
		span.LogKV("error.message", err.Error())
		logger.Debugw("span-finished-with-error", corelog.Fields{"error": err.Error()})
	}
	span.Finish()
}
