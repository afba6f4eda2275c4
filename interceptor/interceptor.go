package interceptor

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"gomod.pri/codec/codec"
	"gomod.pri/codec/envelope"
	"gomod.pri/codec/xhttp"
	"gomod.pri/codec/xtrace"
)

const (
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderSign      = "X-Sign"
)

// Response is a decrypted upstream response.
type Response struct {
	Status  int
	Header  http.Header
	Body    string
	Decoded bool
}

type Option func(*Client)

// WithSecret enables request signing with secret.
func WithSecret(secret string) Option {
	return func(c *Client) {
		c.secret = secret
	}
}

func WithLogger(l xhttp.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// Client encrypts request bodies and opens enveloped responses around an xhttp.Client.
type Client struct {
	http   *xhttp.Client
	codec  *codec.Codec
	secret string
	logger xhttp.Logger
	now    func() time.Time
}

func New(hc *xhttp.Client, c *codec.Codec, opts ...Option) *Client {
	if hc == nil {
		hc = xhttp.NewClient()
	}
	cli := &Client{
		http:   hc,
		codec:  c,
		logger: xhttp.DefaultLogger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

func (c *Client) Get(ctx context.Context, url string, header map[string]string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, header, nil)
}

func (c *Client) Post(ctx context.Context, url string, header map[string]string, body []byte) (*Response, error) {
	return c.Do(ctx, http.MethodPost, url, header, body)
}

// Do sends the request and decrypts the response when it carries an envelope.
// Non-200 responses and plain bodies are returned untouched.
func (c *Client) Do(ctx context.Context, method, url string, header map[string]string, body []byte) (*Response, error) {
	start := c.now()
	extend := &xhttp.LogExtend{TraceID: xtrace.TraceID(ctx)}
	entry := &xhttp.RequestResponseLog{
		URL:         url,
		Method:      method,
		Headers:     header,
		RequestSize: len(body),
		CTime:       start.Unix(),
		Extend:      extend,
	}
	defer func() {
		entry.TimeCost = c.now().Sub(start).Milliseconds()
		if data, err := entry.ToJSON(); err == nil {
			c.logger.Infof(ctx, "codec upstream call: %s", data)
		}
	}()

	payload := body
	if c.codec.ShouldEncrypt(url, body) {
		enc, err := c.codec.EncryptRequest(ctx, url, body)
		if err != nil {
			extend.Error = err.Error()
			return nil, err
		}
		payload = []byte(enc)
		extend.RequestEncrypted = true
	}

	hdr, err := c.signHeaders(header, payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(ctx, method, url, hdr, payload)
	if resp == nil {
		extend.Error = err.Error()
		return nil, err
	}
	entry.Status = resp.Status
	entry.ResponseSize = len(resp.Body)

	out := &Response{Status: resp.Status, Header: resp.Header, Body: string(resp.Body)}
	if resp.Status != http.StatusOK {
		// upstream errors stay readable
		return out, err
	}

	if !envelope.IsEnvelope(codec.UnwrapBody(out.Body)) {
		return out, nil
	}
	extend.Enveloped = true

	res := c.codec.ParseAndDecryptResponse(ctx, out.Body, codec.Headers{
		KeyLength: resp.Header.Get(codec.HeaderKeyLength),
		OriginKey: resp.Header.Get(codec.HeaderOriginKey),
		Timestamp: resp.Header.Get(codec.HeaderTimestamp),
	})
	if !res.Success {
		extend.Error = res.Error
		logx.WithContext(ctx).Errorf("open envelope from %s: %s", url, res.Error)
		return out, nil
	}

	out.Body = res.Data
	out.Decoded = true
	extend.Decrypted = true
	return out, nil
}

func (c *Client) signHeaders(header map[string]string, payload []byte) (map[string]string, error) {
	out := make(map[string]string, len(header)+3)
	for k, v := range header {
		out[k] = v
	}
	if c.secret == "" {
		return out, nil
	}

	nonce, err := c.codec.Nonce()
	if err != nil {
		return nil, err
	}
	ts := c.now().UnixMilli()
	out[HeaderTimestamp] = strconv.FormatInt(ts, 10)
	out[HeaderNonce] = nonce
	out[HeaderSign] = codec.Sign(string(payload), ts, nonce, c.secret)
	return out, nil
}
