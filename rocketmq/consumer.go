package rocketmq

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	rmq "github.com/apache/rocketmq-clients/golang/v5"
	v2 "github.com/apache/rocketmq-clients/golang/v5/protocol/v2"
	"github.com/zeromicro/go-zero/core/jsonx"
	"github.com/zeromicro/go-zero/core/logx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var (
	// maximum waiting time for receive func
	awaitDuration = time.Second * 5
	// maximum number of messages received at once time
	maxMessageNum int32 = 16
	// invisibleDuration should > 20s
	invisibleDuration = time.Second * 20
)

type ConsumeHandler[T any] interface {
	Consume(ctx context.Context, message T) error
	ErrorHandler(ctx context.Context, message T, err error)
}

type Consumer[T any] struct {
	consumer rmq.SimpleConsumer
	handler  ConsumeHandler[T]
	workers  int
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewConsumer[T any](conf Conf, topic Topic, handler ConsumeHandler[T]) (*Consumer[T], error) {
	if conf.Endpoint == "" || conf.ConsumerGroup == "" {
		return nil, errors.New("rocketmq consumer needs Endpoint and ConsumerGroup")
	}
	SetLogger()

	tagsExp := rmq.SUB_ALL
	if len(conf.Tags) > 0 {
		tagsExp = rmq.NewFilterExpression(strings.Join(conf.Tags, "||"))
	}

	simpleConsumer, err := rmq.NewSimpleConsumer(&rmq.Config{
		Endpoint:      conf.Endpoint,
		ConsumerGroup: conf.ConsumerGroup,
		Credentials:   conf.credentials(),
	},
		rmq.WithAwaitDuration(awaitDuration),
		rmq.WithSubscriptionExpressions(map[string]*rmq.FilterExpression{
			GetTopicName(conf.App, topic): tagsExp,
		}),
	)
	if err != nil {
		return nil, err
	}
	if simpleConsumer == nil {
		return nil, errors.New("rocketmq simple consumer is nil")
	}

	return newConsumer(simpleConsumer, handler, conf.Workers), nil
}

func newConsumer[T any](c rmq.SimpleConsumer, handler ConsumeHandler[T], workers int) *Consumer[T] {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer[T]{
		consumer: c,
		handler:  handler,
		workers:  workers,
		done:     make(chan struct{}),
	}
}

// Start blocks until Stop is called.
func (c *Consumer[T]) Start() {
	if err := c.consumer.Start(); err != nil {
		logx.Errorf("start consumer failed: %v", err)
		return
	}

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			// 这个 sleep 是必要的，5.x 版本的 proxy 有 bug，导致第一次接收消息失败
			time.Sleep(time.Millisecond * 100)
			c.consume()
		}()
	}

	c.wg.Wait()
}

func (c *Consumer[T]) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		_ = c.consumer.GracefulStop()
	})
}

func (c *Consumer[T]) consume() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		msgs, err := c.consumer.Receive(context.Background(), maxMessageNum, invisibleDuration)
		if err != nil {
			var rpcErr *rmq.ErrRpcStatus
			if errors.As(err, &rpcErr) && v2.Code(rpcErr.Code) == v2.Code_MESSAGE_NOT_FOUND {
				// 消息未找到是正常情况，静默处理并等待
				time.Sleep(awaitDuration)
				continue
			}
			logx.Errorf("receive message failed: %v", err)
			continue
		}

		for _, msg := range msgs {
			ctx, span := c.process(msg.GetProperties(), msg.GetTopic(), msg.GetMessageId(), msg.GetBody())
			// a failed message is acked too, the handler has seen it
			if err = c.consumer.Ack(ctx, msg); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}
	}
}

// process decodes one message and hands it to the handler under a consumer span
// linked to the producer's trace. The caller ends the span.
func (c *Consumer[T]) process(props map[string]string, topic, id string, body []byte) (context.Context, trace.Span) {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.MapCarrier(props))
	ctx, span := otel.Tracer("rocket-consumer").Start(ctx, "rocket.Consumer.ProcessMessage",
		trace.WithAttributes(
			attribute.String("message.topic", topic),
			attribute.String("message.id", id),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)

	var data T
	err := jsonx.Unmarshal(body, &data)
	if err == nil {
		err = c.handler.Consume(ctx, data)
	}
	if err != nil {
		c.handler.ErrorHandler(ctx, data, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ctx, span
	}

	span.SetStatus(codes.Ok, "")
	return ctx, span
}
