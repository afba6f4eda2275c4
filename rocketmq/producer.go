package rocketmq

import (
	"context"
	"errors"
	"time"

	rmq "github.com/apache/rocketmq-clients/golang/v5"
	"github.com/apache/rocketmq-clients/golang/v5/credentials"
	"github.com/zeromicro/go-zero/core/logx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type Conf struct {
	Enabled       bool                `json:",optional"`
	Endpoint      string              `json:",optional"`
	App           string              `json:",default=codec"`
	ConsumerGroup string              `json:",optional"`
	Workers       int                 `json:",default=1"`
	Tags          []string            `json:",optional"`
	Credentials   *SessionCredentials `json:",optional"`
}

type SessionCredentials struct {
	AccessKey    string `json:"accessKey"`
	AccessSecret string `json:"accessSecret"`
}

func (c Conf) credentials() *credentials.SessionCredentials {
	if c.Credentials == nil {
		return &credentials.SessionCredentials{}
	}
	return &credentials.SessionCredentials{
		AccessKey:    c.Credentials.AccessKey,
		AccessSecret: c.Credentials.AccessSecret,
	}
}

type Producer struct {
	rmq.Producer
	appId string
}

func NewProducer(conf Conf) (*Producer, error) {
	if conf.Endpoint == "" {
		return nil, errors.New("rocketmq endpoint not set")
	}
	SetLogger()

	producer, err := rmq.NewProducer(&rmq.Config{
		Endpoint:    conf.Endpoint,
		Credentials: conf.credentials(),
	})
	if err != nil {
		return nil, err
	}
	if err = producer.Start(); err != nil {
		return nil, err
	}

	return &Producer{Producer: producer, appId: conf.App}, nil
}

func (p *Producer) Stop() {
	_ = p.GracefulStop()
}

type PublishOption struct {
	delay       time.Duration
	timeout     time.Duration
	ShardingKey string
}

type PublishOptionFunc func(*PublishOption)

func WithDelay(delay time.Duration) PublishOptionFunc {
	return func(opt *PublishOption) {
		opt.delay = delay
	}
}

func WithTimeout(timeout time.Duration) PublishOptionFunc {
	return func(opt *PublishOption) {
		opt.timeout = timeout
	}
}

// use when ensuring order
func WithShardingKey(shardingKey string) PublishOptionFunc {
	return func(opt *PublishOption) {
		opt.ShardingKey = shardingKey
	}
}

func (p *Producer) Publish(ctx context.Context, topic Topic, msg []byte, opts ...PublishOptionFunc) error {
	actualTopic := GetTopicName(p.appId, topic)

	ctx, span := otel.Tracer("rocket-producer").Start(ctx, "rocket.Producer.Publish",
		trace.WithAttributes(
			attribute.String("topic", actualTopic),
			attribute.Int("message.size", len(msg)),
		),
		trace.WithSpanKind(trace.SpanKindProducer),
	)
	defer span.End()

	opt := &PublishOption{
		timeout: 5 * time.Second,
	}
	for _, o := range opts {
		o(opt)
	}

	message := newMessage(ctx, actualTopic, msg, opt)
	if opt.delay > 0 {
		span.SetAttributes(attribute.Int64("delay.ms", opt.delay.Milliseconds()))
	}

	sendCtx, cancel := context.WithTimeout(ctx, opt.timeout)
	defer cancel()

	result, err := p.Send(sendCtx, message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logx.WithContext(ctx).Errorf("send message failed: %v, topic: %s, size: %d", err, actualTopic, len(msg))
		return err
	}
	if len(result) == 0 {
		return errors.New("send message: empty receipt")
	}

	span.SetAttributes(attribute.String("message.id", result[0].MessageID))
	logx.WithContext(ctx).Infof("send message success, messageID: %s", result[0].MessageID)
	return nil
}

// newMessage builds the message and injects the trace context as properties.
func newMessage(ctx context.Context, topic string, body []byte, opt *PublishOption) *rmq.Message {
	message := &rmq.Message{
		Topic: topic,
		Body:  body,
	}
	if opt.ShardingKey != "" {
		message.SetKeys(opt.ShardingKey)
	}
	if opt.delay > 0 {
		message.SetDelayTimestamp(time.Now().Add(opt.delay))
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		message.AddProperty(k, v)
	}
	return message
}
