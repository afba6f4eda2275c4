package xhttp

import (
	"context"
	"encoding/json"

	"github.com/zeromicro/go-zero/core/logx"
)

type Logger interface {
	Infof(ctx context.Context, format string, v ...any)
	Errorf(ctx context.Context, format string, v ...any)
}

var DefaultLogger Logger = &defaultLogger{}

type defaultLogger struct{}

func (l *defaultLogger) Infof(ctx context.Context, format string, v ...any) {
	logx.WithContext(ctx).Infof(format, v...)
}

func (l *defaultLogger) Errorf(ctx context.Context, format string, v ...any) {
	logx.WithContext(ctx).Errorf(format, v...)
}

// RequestResponseLog 请求响应日志，body 只记录长度，避免密文和明文进入日志
type RequestResponseLog struct {
	// 基础日志信息（自动获取）
	URL          string            `json:"url"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers"`
	RequestSize  int               `json:"request_size"`
	ResponseSize int               `json:"response_size"`
	Status       int               `json:"status"`
	TimeCost     int64             `json:"time_cost"`
	CTime        int64             `json:"ctime"`

	// 扩展日志信息（需要调用方设置）
	Extend *LogExtend `json:"extend"`
}

// ToJSON 将日志转换为JSON字符串
func (l *RequestResponseLog) ToJSON() ([]byte, error) {
	type jsonLog struct {
		URL          string     `json:"url"`
		Method       string     `json:"method"`
		Headers      string     `json:"headers"`
		RequestSize  int        `json:"request_size"`
		ResponseSize int        `json:"response_size"`
		Status       int        `json:"status"`
		TimeCost     int64      `json:"time_cost"`
		CTime        int64      `json:"ctime"`
		Extend       *LogExtend `json:"extend"`
	}

	headersJSON, _ := json.Marshal(l.Headers)
	log := jsonLog{
		URL:          l.URL,
		Method:       l.Method,
		Headers:      string(headersJSON),
		RequestSize:  l.RequestSize,
		ResponseSize: l.ResponseSize,
		Status:       l.Status,
		TimeCost:     l.TimeCost,
		CTime:        l.CTime,
		Extend:       l.Extend,
	}

	return json.Marshal(log)
}

// LogExtend 扩展日志信息
type LogExtend struct {
	TraceID          string `json:"trace_id"`
	RequestEncrypted bool   `json:"request_encrypted"`
	Enveloped        bool   `json:"enveloped"`
	Decrypted        bool   `json:"decrypted"`
	Error            string `json:"error,omitempty"`
}
