package xrequest

import (
	"context"
	"net/http"

	"github.com/zeromicro/go-zero/core/trace"
	"github.com/zeromicro/go-zero/rest/httpx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	"gomod.pri/codec/xerror"
	"gomod.pri/codec/xtrace"
)

const (
	RespCodeOK  = 200
	RespCodeMsg = "success"
)

// Response is the body of every codec API reply. HTTP status is always 200,
// failures are told apart by Code.
type Response[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	ErrMsg  string `json:"err_msg,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
	Data    T      `json:"data,omitempty"`
}

func NewErrRespWithCtx(ctx context.Context, err error) *Response[any] {
	ce := xerror.FromCodec(err)
	resp := &Response[any]{
		Code:    ce.Code(),
		Message: ce.Message(),
		TraceID: xtrace.TraceID(ctx),
	}
	if ce.Cause() != nil {
		resp.ErrMsg = ce.Cause().Error()
	}
	return resp
}

func NewDataRespWithCtx(ctx context.Context, data any) *Response[any] {
	return &Response[any]{
		Code:    RespCodeOK,
		Message: RespCodeMsg,
		TraceID: xtrace.TraceID(ctx),
		Data:    data,
	}
}

// Parse binds r into v and validates it. On failure the error reply is already written.
func Parse(w http.ResponseWriter, r *http.Request, v any) bool {
	err := httpx.Parse(r, v)
	if err != nil {
		err = xerror.New(xerror.CodeInvalidParams, err, true)
	} else {
		err = Validate(v)
	}
	if err != nil {
		Fail(w, r, err)
		return false
	}
	return true
}

func OK(w http.ResponseWriter, r *http.Request, data any) {
	httpx.OkJsonCtx(r.Context(), w, NewDataRespWithCtx(r.Context(), data))
}

func Fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.OkJsonCtx(r.Context(), w, NewErrRespWithCtx(r.Context(), err))
}

// NewContext starts a server span linked to the caller's trace headers.
// withoutCancel detaches it from the request so writes finish after a client hangs up.
// 调用方负责 defer span.End()
func NewContext(request *http.Request, serviceName string, withoutCancel bool) (context.Context, oteltrace.Span) {
	ctx := request.Context()
	if withoutCancel {
		ctx = context.WithoutCancel(ctx)
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(request.Header))

	route := request.URL.Path
	return otel.Tracer(trace.TraceName).Start(ctx, route,
		oteltrace.WithSpanKind(oteltrace.SpanKindServer),
		oteltrace.WithAttributes(semconv.HTTPServerAttributesFromHTTPRequest(serviceName, route, request)...),
	)
}
