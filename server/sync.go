package server

import (
	"context"

	"github.com/zeromicro/go-zero/core/jsonx"
	"github.com/zeromicro/go-zero/core/logx"
	"gomod.pri/codec/bus"
	"gomod.pri/codec/confuse"
	"gomod.pri/codec/rocketmq"
)

type tablesNotice struct {
	ID     string `json:"id"`
	Origin string `json:"origin"`
}

type noticePublisher interface {
	Publish(ctx context.Context, topic rocketmq.Topic, msg []byte, opts ...rocketmq.PublishOptionFunc) error
}

// tablesSync announces local publishes to the other replicas and applies theirs.
type tablesSync struct {
	svc      *ServiceContext
	instance string
	producer noticePublisher
}

func (s *tablesSync) onPublished(ctx context.Context, e bus.Event) error {
	body, err := jsonx.Marshal(tablesNotice{ID: e.Key, Origin: s.instance})
	if err != nil {
		return err
	}
	return s.producer.Publish(ctx, rocketmq.TopicTables, body, rocketmq.WithShardingKey(e.Key))
}

func (s *tablesSync) Consume(ctx context.Context, n tablesNotice) error {
	if n.Origin == s.instance {
		return nil
	}

	t, err := s.svc.Tables.Load(ctx, n.ID)
	if err != nil {
		return err
	}
	engine, err := confuse.NewEngineFromTables(t)
	if err != nil {
		return err
	}

	s.svc.SetEngine(engine)
	logx.WithContext(ctx).Infow("tables applied", logx.Field("id", n.ID), logx.Field("origin", n.Origin))
	return nil
}

func (s *tablesSync) ErrorHandler(ctx context.Context, n tablesNotice, err error) {
	logx.WithContext(ctx).Errorw("apply published tables failed",
		logx.Field("id", n.ID),
		logx.Field("origin", n.Origin),
		logx.Field("error", err.Error()))
}
