package db

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"

	"github.com/XSAM/otelsql"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
)

// maxArgBytes bounds a rendered argument; stored table sets are far larger.
const maxArgBytes = 64

var (
	driverName string
	once       sync.Once
	dbCache    sync.Map // dsn -> sqlx.SqlConn
)

// Initialize OTel driver
func initDriver() {
	once.Do(func() {
		var err error
		driverName, err = otelsql.Register(
			"mysql",
			otelsql.WithAttributes(semconv.DBSystemNameMySQL),
			// the raw query is replaced by the rendered statement below
			otelsql.WithSpanOptions(otelsql.SpanOptions{
				DisableQuery:   true,
				DisableErrSkip: true,
			}),
			otelsql.WithAttributesGetter(func(ctx context.Context, method otelsql.Method, query string, args []driver.NamedValue) []attribute.KeyValue {
				return []attribute.KeyValue{
					attribute.String("db.statement", buildStatement(query, args)),
					attribute.String("db.sql.method", string(method)),
				}
			}),
		)
		if err != nil {
			panic(err)
		}
	})
}

// Open returns a traced sqlx.SqlConn, one per dsn.
func Open(dsn string) sqlx.SqlConn {
	initDriver()

	if val, ok := dbCache.Load(dsn); ok {
		return val.(sqlx.SqlConn)
	}

	conn, _ := dbCache.LoadOrStore(dsn, sqlx.NewSqlConn(driverName, dsn))
	return conn.(sqlx.SqlConn)
}

// buildStatement fills ? placeholders with their arguments. Long strings and byte
// slices are rendered by size only.
func buildStatement(query string, args []driver.NamedValue) string {
	if len(args) == 0 {
		return query
	}
	if strings.Count(query, "?") != len(args) {
		return query
	}

	var b strings.Builder
	b.Grow(len(query))
	i := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		b.WriteString(renderArg(args[i].Value))
		i++
	}
	return b.String()
}

func renderArg(v driver.Value) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		if len(v) > maxArgBytes {
			return fmt.Sprintf("'<%d bytes>'", len(v))
		}
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case []byte:
		return fmt.Sprintf("'<%d bytes>'", len(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}
