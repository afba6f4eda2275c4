package xtrace

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
)

// InjectDetector registers the detector on the global provider when it is an SDK provider.
func InjectDetector(cfg DetectorConfig) bool {
	tp := otel.GetTracerProvider()
	r, ok := tp.(*trace.TracerProvider)
	if !ok {
		return false
	}

	if cfg.AttrMaxBytes == 0 {
		cfg.AttrMaxBytes = 64 * 1024
	}
	if cfg.SpanMaxBytes == 0 {
		cfg.SpanMaxBytes = 4 * 1024 * 1024
	}
	r.RegisterSpanProcessor(NewDetectorProcessor(cfg, nil))
	return true
}
