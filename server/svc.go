package server

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/spf13/cast"
	"github.com/zeromicro/go-zero/core/logx"
	"gomod.pri/codec/bus"
	"gomod.pri/codec/codec"
	"gomod.pri/codec/config"
	"gomod.pri/codec/confuse"
	"gomod.pri/codec/keyring"
	"gomod.pri/codec/rocketmq"
	"gomod.pri/codec/snowflake"
	"gomod.pri/codec/tablestore"
)

// ServiceContext holds the process-wide dependencies. The codec and the engine are
// swapped whole when a key rotates or another replica publishes tables.
type ServiceContext struct {
	Config config.Config
	Tables tablestore.Store
	Keys   *keyring.Ring
	Events *bus.EventBus

	codec  atomic.Pointer[codec.Codec]
	engine atomic.Pointer[confuse.Engine]

	producer *rocketmq.Producer
	consumer *rocketmq.Consumer[tablesNotice]
}

func NewServiceContext(ctx context.Context, c config.Config) (*ServiceContext, error) {
	keys, err := keyring.New(c.Keyring)
	if err != nil {
		return nil, err
	}

	var opts []codec.Option
	if c.Codec.RequestKey == "" {
		rk, err := keys.RequestKey(ctx)
		if err != nil {
			logx.WithContext(ctx).Infof("no request key in key ring, request encryption needs Codec.RequestKey: %v", err)
		}
		opts = append(opts, codec.WithRequestKey(rk))
	}

	store, err := tablestore.New(c.Tables)
	if err != nil {
		return nil, err
	}

	engine, err := loadEngine(ctx, store, c.Tables.Seed)
	if err != nil {
		return nil, err
	}

	svc := newServiceContext(c, codec.New(c.Codec, opts...), engine, store, keys)
	if c.Sync.Enabled {
		if err = svc.enableSync(); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

func newServiceContext(c config.Config, cd *codec.Codec, engine *confuse.Engine, store tablestore.Store,
	keys *keyring.Ring) *ServiceContext {
	svc := &ServiceContext{
		Config: c,
		Tables: store,
		Keys:   keys,
		Events: bus.New(),
	}
	svc.codec.Store(cd)
	svc.engine.Store(engine)

	keys.Notify(svc.Events)
	svc.Events.Subscribe(bus.TopicKeyChanged, svc.onKeyChanged)
	return svc
}

func (s *ServiceContext) Codec() *codec.Codec {
	return s.codec.Load()
}

func (s *ServiceContext) Engine() *confuse.Engine {
	return s.engine.Load()
}

func (s *ServiceContext) SetEngine(e *confuse.Engine) {
	s.engine.Store(e)
}

// onKeyChanged rebuilds the codec when the request key held by the key ring rotates.
// A request key set in config is never replaced.
func (s *ServiceContext) onKeyChanged(ctx context.Context, e bus.Event) error {
	if e.Key != s.Config.Keyring.RequestKeyName || s.Config.Codec.RequestKey != "" {
		return nil
	}

	rk, err := s.Keys.RequestKey(ctx)
	if err != nil {
		return err
	}
	s.codec.Store(codec.New(s.Config.Codec, codec.WithRequestKey(rk)))
	logx.WithContext(ctx).Infow("request key rotated", logx.Field("name", e.Key))
	return nil
}

func (s *ServiceContext) enableSync() error {
	instance, err := snowflake.New(s.Config.Tables.NodeID)
	if err != nil {
		return err
	}

	producer, err := rocketmq.NewProducer(s.Config.Sync)
	if err != nil {
		return err
	}

	ts := &tablesSync{svc: s, instance: instance.GenerateString(), producer: producer}
	consumer, err := rocketmq.NewConsumer[tablesNotice](s.Config.Sync, rocketmq.TopicTables, ts)
	if err != nil {
		producer.Stop()
		return err
	}

	s.producer = producer
	s.consumer = consumer
	s.Events.Subscribe(bus.TopicTablesPublished, ts.onPublished)
	return nil
}

// Start runs the tables consumer when sync is enabled. It does not block.
func (s *ServiceContext) Start() {
	if s.consumer != nil {
		go s.consumer.Start()
	}
}

func (s *ServiceContext) Stop() {
	if s.consumer != nil {
		s.consumer.Stop()
	}
	if s.producer != nil {
		s.producer.Stop()
	}
}

// loadEngine restores the latest published tables, then falls back to a seeded or
// volatile engine.
func loadEngine(ctx context.Context, store tablestore.Store, seed string) (*confuse.Engine, error) {
	t, err := store.Latest(ctx)
	switch {
	case err == nil:
		logx.WithContext(ctx).Infow("restore substitution tables", logx.Field("id", t.ID))
		return confuse.NewEngineFromTables(t)
	case !errors.Is(err, tablestore.ErrNotFound):
		logx.WithContext(ctx).Errorf("load latest tables: %v", err)
	}

	if seed == "" {
		return confuse.NewEngine(), nil
	}
	s, err := cast.ToUint64E(seed)
	if err != nil {
		return nil, err
	}
	return confuse.NewEngine(confuse.WithSeed(s)), nil
}
