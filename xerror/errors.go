package xerror

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/metric"
)

// Error 带响应码的错误，msg 面向调用方，cause 只进日志和 errMsg
type Error struct {
	code  int
	msg   string
	cause error
}

func (e *Error) Code() int {
	return e.code
}

func (e *Error) Message() string {
	return e.msg
}

func (e *Error) Cause() error {
	return e.cause
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("code: %d, msg: %s, cause: %v", e.code, e.msg, e.cause)
	}
	return fmt.Sprintf("code: %d, msg: %s", e.code, e.msg)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Critical 5xx 视为服务自身故障
func (e *Error) Critical() bool {
	return e.code >= CodeInternalError
}

var errorMetric = metric.NewCounterVec(&metric.CounterVecOpts{
	Namespace: "codec",
	Subsystem: "error",
	Name:      "total",
	Help:      "Raised codec errors, partitioned by response code and critical flag.",
	Labels:    []string{"code", "critical"},
})

// New 包装 err。useErrMsg 为 true 时直接用 err 的文本作为 msg，否则优先取 ErrMsgs。
func New(code int, err error, useErrMsg ...bool) *Error {
	if err == nil {
		err = errors.New("error not set")
	}

	ce := &Error{code: code, cause: err}
	if len(useErrMsg) > 0 && useErrMsg[0] {
		ce.msg = err.Error()
		return ce
	}
	if v, ok := ErrMsgs[code]; ok {
		ce.msg = v
	} else {
		ce.msg = err.Error()
	}
	return ce
}

// RaiseCtx 同 New，另外记录日志并计数
func RaiseCtx(ctx context.Context, code int, err error, args ...any) *Error {
	ce := New(code, err)
	errorMetric.Inc(strconv.Itoa(code), strconv.FormatBool(ce.Critical()))

	if err != nil {
		logx.WithContext(ctx).WithCallerSkip(1).Errorf("%s, args: %+v", ce, args)
	}
	return ce
}
