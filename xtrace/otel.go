package xtrace

import (
	"context"
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace"
)

// DetectorConfig bounds what a span may carry.
type DetectorConfig struct {
	AttrMaxBytes int // single attribute max bytes
	SpanMaxBytes int // single span max bytes
}

// Violation describes one span that broke a detector rule.
type Violation struct {
	Span   string
	Trace  string
	Key    string
	Reason string
	Size   int
}

// NewDetectorProcessor returns a span processor that reports oversized spans and
// attributes that look like envelope bodies, which must never be exported.
func NewDetectorProcessor(cfg DetectorConfig, report func(Violation)) trace.SpanProcessor {
	if report == nil {
		report = logViolation
	}
	return &detectorProcessor{cfg: cfg, report: report}
}

func logViolation(v Violation) {
	logx.Errorf("[OTEL-Detector] %s: span=%s trace=%s key=%s size=%d bytes",
		v.Reason, v.Span, v.Trace, v.Key, v.Size)
}

type detectorProcessor struct {
	cfg    DetectorConfig
	report func(Violation)
}

func (p *detectorProcessor) OnStart(ctx context.Context, s trace.ReadWriteSpan) {}

func (p *detectorProcessor) OnEnd(s trace.ReadOnlySpan) {
	p.checkSpan(s)
}

func (p *detectorProcessor) Shutdown(ctx context.Context) error   { return nil }
func (p *detectorProcessor) ForceFlush(ctx context.Context) error { return nil }

func (p *detectorProcessor) checkSpan(s trace.ReadOnlySpan) {
	base := Violation{Span: s.Name(), Trace: s.SpanContext().TraceID().String()}
	totalSize := 0

	check := func(prefix string, attr attribute.KeyValue) {
		size := attributeSize(attr)
		totalSize += size

		v := base
		v.Key = prefix + string(attr.Key)
		v.Size = size
		if p.cfg.AttrMaxBytes > 0 && size > p.cfg.AttrMaxBytes {
			v.Reason = "big attribute"
			p.report(v)
		}
		if attr.Value.Type() == attribute.STRING && looksLikeEnvelope(attr.Value.AsString()) {
			v.Reason = "envelope in attribute"
			p.report(v)
		}
	}

	for _, attr := range s.Attributes() {
		check("", attr)
	}
	for _, e := range s.Events() {
		for _, attr := range e.Attributes {
			check(e.Name+".", attr)
		}
	}

	if p.cfg.SpanMaxBytes > 0 && totalSize > p.cfg.SpanMaxBytes {
		v := base
		v.Reason = "big span"
		v.Size = totalSize
		p.report(v)
	}
}

// looksLikeEnvelope matches "02" + hex + "ffff" bodies long enough to hold an SM2 payload.
func looksLikeEnvelope(s string) bool {
	const minLen = 2 + 4 + 97*2 + 4
	if len(s) < minLen || !strings.HasPrefix(s, "02") || !strings.HasSuffix(s, "ffff") {
		return false
	}
	hexChars := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			hexChars++
		}
	}
	// an inline key may be any text, the ciphertext dominates
	return hexChars*10 >= len(s)*9
}

// attributeSize calculates the size of an attribute in bytes
func attributeSize(attr attribute.KeyValue) int {
	keySize := len(attr.Key)

	var valueSize int
	switch attr.Value.Type() {
	case attribute.STRING:
		valueSize = len(attr.Value.AsString())
	case attribute.BOOL:
		valueSize = 1
	case attribute.INT64, attribute.FLOAT64:
		valueSize = 8
	case attribute.STRINGSLICE:
		for _, s := range attr.Value.AsStringSlice() {
			valueSize += len(s)
		}
	case attribute.BOOLSLICE:
		valueSize = len(attr.Value.AsBoolSlice())
	case attribute.INT64SLICE:
		valueSize = len(attr.Value.AsInt64Slice()) * 8
	case attribute.FLOAT64SLICE:
		valueSize = len(attr.Value.AsFloat64Slice()) * 8
	default:
		valueSize = len(fmt.Sprintf("%v", attr.Value.AsInterface()))
	}

	return keySize + valueSize
}
