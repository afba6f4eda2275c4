package xredis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	tracerName          = "codec/redis"
	defaultMaxStatement = 128
)

// TracingHook opens a client span per command, pipeline and dial.
// Values never reach db.statement: table payloads are large and the command plus key is enough.
type TracingHook struct {
	MaxStatement int
	// DB is recorded as db.redis.database_index.
	DB int
}

var _ redis.Hook = TracingHook{}

func (th TracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		ctx, span := th.start(ctx, "redis.dial", attribute.String("net.peer.name", addr))
		conn, err := next(ctx, network, addr)
		finish(span, err)
		return conn, err
	}
}

func (th TracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := th.start(ctx, "redis."+cmd.Name(), attribute.String("db.statement", th.statement(cmd)))
		err := next(ctx, cmd)
		finish(span, err)
		return err
	}
}

func (th TracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		stmts := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			stmts = append(stmts, th.statement(cmd))
		}

		ctx, span := th.start(ctx, "redis.pipeline",
			attribute.Int("db.statement.count", len(cmds)),
			attribute.String("db.statement", strings.Join(stmts, "; ")),
		)
		err := next(ctx, cmds)
		finish(span, err)
		return err
	}
}

func (th TracingHook) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	attrs = append(attrs, semconv.DBSystemRedis, semconv.DBRedisDBIndex(th.DB))
	return otel.Tracer(tracerName).Start(ctx, name,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(attrs...),
	)
}

// redis.Nil 是正常的未命中，不算错误
func finish(span oteltrace.Span, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// statement renders the command name and its key, truncated to MaxStatement bytes.
func (th TracingHook) statement(cmd redis.Cmder) string {
	limit := th.MaxStatement
	if limit <= 0 {
		limit = defaultMaxStatement
	}

	args := cmd.Args()
	var b strings.Builder
	b.WriteString(cmd.Name())
	if len(args) > 1 {
		fmt.Fprintf(&b, " %v", args[1])
	}
	if len(args) > 2 {
		fmt.Fprintf(&b, " <%d args>", len(args)-2)
	}

	s := b.String()
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}
