package codec

import (
	"context"
	"errors"
	"strings"

	"github.com/zeromicro/go-zero/core/jsonx"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"gomod.pri/codec/envelope"
)

const (
	HeaderKeyLength = "Access-Control-Key-Length"
	HeaderOriginKey = "Access-Control-Origin-Key"
	HeaderTimestamp = "Access-Control-Timestamp"
)

// Headers carries the out-of-band values that travel next to an envelope.
type Headers struct {
	KeyLength string `json:"keyLength,optional"`
	OriginKey string `json:"originKey,optional"`
	Timestamp string `json:"timestamp,optional"`
}

type Result struct {
	Data    string `json:"data"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ParseAndDecryptResponse unwraps body, parses the envelope and decrypts its payload.
// A body that is not an envelope comes back unchanged in Data with Success false.
func (c *Codec) ParseAndDecryptResponse(ctx context.Context, body string, h Headers) *Result {
	ctx, span := trace.TracerFromContext(ctx).Start(ctx, "codec.ParseAndDecryptResponse",
		oteltrace.WithSpanKind(oteltrace.SpanKindInternal))
	defer span.End()

	data, variant, err := c.decryptResponse(body, h)
	span.SetAttributes(attribute.String("codec.variant", variant))
	if err != nil {
		if errors.Is(err, envelope.ErrNotAnEnvelope) {
			return &Result{Data: body, Error: err.Error()}
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logx.WithContext(ctx).Errorw("decrypt response failed",
			logx.Field("variant", variant),
			logx.Field("length", len(body)),
			logx.Field("error", err.Error()))
		return &Result{Error: err.Error()}
	}

	return &Result{Data: data, Success: true}
}

func (c *Codec) decryptResponse(body string, h Headers) (string, string, error) {
	env, err := envelope.Parse(UnwrapBody(body), h.KeyLength, c.envelopeOptions()...)
	if err != nil {
		return "", "", err
	}

	key := env.Key
	if !env.HasKey() {
		if key, err = c.decryptToken(h.OriginKey, h.Timestamp); err != nil {
			return "", env.Variant.String(), err
		}
	}

	data, err := c.decryptPayload(env.Cipher, key)
	return data, env.Variant.String(), err
}

// DecryptFixedOffsetResponse decrypts a fixed-offset envelope whose key is recovered
// from token and timestamp. Any failure yields "".
func (c *Codec) DecryptFixedOffsetResponse(ctx context.Context, body, token, timestamp string) string {
	ctx, span := trace.TracerFromContext(ctx).Start(ctx, "codec.DecryptFixedOffsetResponse",
		oteltrace.WithSpanKind(oteltrace.SpanKindInternal))
	defer span.End()

	data, _, err := c.decryptResponse(body, Headers{OriginKey: token, Timestamp: timestamp})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logx.WithContext(ctx).Errorf("decrypt fixed offset response: %v", err)
		return ""
	}
	return data
}

// UnwrapBody returns the envelope carried by body, which is either the raw envelope,
// a JSON string literal or a JSON object with a string "data" field.
func UnwrapBody(body string) string {
	trimmed := strings.TrimSpace(body)
	switch {
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := jsonx.UnmarshalFromString(trimmed, &s); err == nil {
			return s
		}
	case strings.HasPrefix(trimmed, "{"):
		var wrapper struct {
			Data any `json:"data"`
		}
		if err := jsonx.UnmarshalFromString(trimmed, &wrapper); err == nil {
			if s, ok := wrapper.Data.(string); ok {
				return s
			}
		}
	}
	return body
}
