package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"gomod.pri/codec/xhttp"
)

// NotificationType 机器人类型
type NotificationType string

const (
	DingTalk NotificationType = "dingtalk"
	Feishu   NotificationType = "feishu"
)

var (
	ErrNoWebhook   = errors.New("notify: webhook is empty")
	ErrNoSecret    = errors.New("notify: feishu robot needs a secret")
	defaultTimeout = 5 * time.Second
)

type Config struct {
	Type    NotificationType
	Webhook string        // 机器人 webhook
	Secret  string        // 加签密钥，飞书必填
	Timeout time.Duration // 0 取 5s
}

// Notification 告警通道
type Notification interface {
	SendText(ctx context.Context, content string) error
	// SendCard 钉钉发 markdown，飞书发交互卡片
	SendCard(ctx context.Context, title, content string) error
}

type Option func(*robot)

// WithClient 替换默认的 xhttp 客户端，Timeout 随之失效
func WithClient(c *xhttp.Client) Option {
	return func(r *robot) {
		r.client = c
	}
}

type robot struct {
	webhook string
	secret  string
	client  *xhttp.Client
	now     func() time.Time
}

func New(cfg Config, opts ...Option) (Notification, error) {
	if cfg.Webhook == "" {
		return nil, ErrNoWebhook
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	r := robot{webhook: cfg.Webhook, secret: cfg.Secret, now: time.Now}
	for _, opt := range opts {
		opt(&r)
	}
	if r.client == nil {
		r.client = xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithMaxBody(64<<10))
	}

	switch cfg.Type {
	case DingTalk:
		return &DingTalkNotification{robot: r}, nil
	case Feishu:
		if cfg.Secret == "" {
			return nil, ErrNoSecret
		}
		return &FeishuNotification{robot: r}, nil
	default:
		return nil, fmt.Errorf("notify: unsupported type %q", cfg.Type)
	}
}

// hmacSign 计算 base64(hmac-sha256(key, msg))
func hmacSign(key, msg string) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
