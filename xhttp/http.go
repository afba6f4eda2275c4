package xhttp

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/zeromicro/go-zero/core/trace"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// 信封响应体需要整体读入后才能解密，默认上限 8MB
const defaultMaxBody = 8 << 20

// ErrBodyTooLarge 响应体超过 WithMaxBody 限制
var ErrBodyTooLarge = errors.New("xhttp: response body too large")

// StatusError 上游返回 4xx/5xx，Response 仍然可读
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.Status)
}

var defaultTransport = &http.Transport{
	MaxIdleConns:        200,
	MaxIdleConnsPerHost: 50,
	DialContext: (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 60 * time.Second,
	}).DialContext,
	TLSClientConfig: &tls.Config{
		ClientSessionCache: tls.NewLRUClientSessionCache(64),
	},
	ForceAttemptHTTP2:     true,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: time.Second,
}

// Response 已读完的响应
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

type ClientOption func(*Client)

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.client.Transport = transport
	}
}

// WithHeader 每个请求都带上的头，调用方传入的同名头优先
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// WithMaxBody 限制读取的响应体大小，n <= 0 表示不限制
func WithMaxBody(n int64) ClientOption {
	return func(c *Client) {
		c.maxBody = n
	}
}

// Client 带链路追踪的 HTTP 客户端，响应体一次读完后返回
type Client struct {
	client  *http.Client
	header  http.Header
	maxBody int64
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		client: &http.Client{
			Transport: defaultTransport,
			Timeout:   30 * time.Second,
		},
		header:  make(http.Header),
		maxBody: defaultMaxBody,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Get(ctx context.Context, url string, header map[string]string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, header, nil)
}

func (c *Client) Post(ctx context.Context, url string, header map[string]string, body []byte) (*Response, error) {
	return c.Do(ctx, http.MethodPost, url, header, body)
}

// Do 发送请求并读完响应体。
// 状态码 >= 400 时同时返回 Response 和 *StatusError。
func (c *Client) Do(ctx context.Context, method, url string, header map[string]string, body []byte) (*Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	ctx, span := trace.TracerFromContext(ctx).Start(ctx,
		fmt.Sprintf("%s %s", method, req.URL.Path),
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(semconv.HTTPClientAttributesFromHTTPRequest(req)...),
		oteltrace.WithAttributes(attribute.Int("http.request_content_length", len(body))),
	)
	defer span.End()

	req = req.WithContext(ctx)
	for k, vs := range c.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("execute request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := c.read(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(semconv.HTTPAttributesFromHTTPStatusCode(resp.StatusCode)...)
	span.SetAttributes(attribute.Int("http.response_content_length", len(raw)))
	span.SetStatus(semconv.SpanStatusFromHTTPStatusCodeAndSpanKind(resp.StatusCode, oteltrace.SpanKindClient))

	out := &Response{Status: resp.StatusCode, Header: resp.Header, Body: raw}
	if resp.StatusCode >= http.StatusBadRequest {
		return out, &StatusError{Status: resp.StatusCode}
	}
	return out, nil
}

func (c *Client) read(r io.Reader) ([]byte, error) {
	if c.maxBody <= 0 {
		return io.ReadAll(r)
	}
	raw, err := io.ReadAll(io.LimitReader(r, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	if int64(len(raw)) > c.maxBody {
		return nil, ErrBodyTooLarge
	}
	return raw, nil
}
