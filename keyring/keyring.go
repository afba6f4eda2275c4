package keyring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/collection"
	"github.com/zeromicro/go-zero/core/logx"
	"gomod.pri/codec/apollo"
	"gomod.pri/codec/bus"
	"gomod.pri/codec/kmscred"
	"gomod.pri/codec/xerror"

	_ "gomod.pri/codec/kmscred/aliyun"
	_ "gomod.pri/codec/kmscred/aws"
)

var ErrKeyNotFound = errors.New("key not found")

func init() {
	xerror.RegisterCode(ErrKeyNotFound, xerror.CodeKeyUnavailable)
}

const (
	SourceStatic = "static"
	SourceApollo = "apollo"
	SourceKMS    = "kms"
)

type Conf struct {
	Source         string            `json:",default=static,options=static|apollo|kms"`
	Static         map[string]string `json:",optional"`
	Apollo         apollo.Config     `json:",optional"`
	KMS            kmscred.Config    `json:",optional"`
	PrivateKeyName string            `json:",default=codec.private_key"`
	RequestKeyName string            `json:",default=codec.request_key"`
	CacheTTL       time.Duration     `json:",default=5m"`
}

// Source resolves a key by name.
type Source interface {
	Name() string
	Get(ctx context.Context, name string) (string, error)
}

// Ring caches key material from one Source.
type Ring struct {
	conf   Conf
	source Source
	cache  *collection.Cache

	mu     sync.RWMutex
	events bus.Publisher
}

func New(conf Conf) (*Ring, error) {
	var (
		src Source
		err error
	)

	switch strings.ToLower(conf.Source) {
	case SourceStatic, "":
		src = StaticSource(conf.Static)
	case SourceApollo:
		var client *apollo.Client
		if client, err = apollo.NewClient(&conf.Apollo); err != nil {
			return nil, xerror.WrapSourceError(SourceApollo, err)
		}
		ring, err := NewWithSource(conf, &ApolloSource{client: client})
		if err != nil {
			return nil, err
		}
		client.Watch(func(_ string, keys []string) { ring.Changed(keys...) })
		return ring, nil
	case SourceKMS:
		var client kmscred.Client
		if client, err = kmscred.New(conf.KMS); err != nil {
			return nil, xerror.WrapSourceError(SourceKMS, err)
		}
		src = &KMSSource{client: client}
	default:
		return nil, fmt.Errorf("unsupported key source: %s", conf.Source)
	}

	return NewWithSource(conf, src)
}

func NewWithSource(conf Conf, src Source) (*Ring, error) {
	ttl := conf.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	cache, err := collection.NewCache(ttl, collection.WithName("keyring"))
	if err != nil {
		return nil, err
	}
	return &Ring{conf: conf, source: src, cache: cache}, nil
}

// Get returns the named key, reading through the cache.
func (r *Ring) Get(ctx context.Context, name string) (string, error) {
	v, err := r.cache.Take(name, func() (any, error) {
		key, err := r.source.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if key == "" {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, name)
		}
		return key, nil
	})
	if err != nil {
		logx.WithContext(ctx).Errorw("load key failed",
			logx.Field("source", r.source.Name()),
			logx.Field("name", name),
			logx.Field("error", err.Error()))
		return "", xerror.WrapSourceError(r.source.Name(), err)
	}
	return v.(string), nil
}

func (r *Ring) PrivateKey(ctx context.Context) (string, error) {
	return r.Get(ctx, r.conf.PrivateKeyName)
}

func (r *Ring) RequestKey(ctx context.Context) (string, error) {
	return r.Get(ctx, r.conf.RequestKeyName)
}

// Invalidate drops a cached key so the next Get reads the source again.
func (r *Ring) Invalidate(name string) {
	r.cache.Del(name)
}

// Notify makes the ring publish bus.TopicKeyChanged for every changed key.
func (r *Ring) Notify(p bus.Publisher) {
	r.mu.Lock()
	r.events = p
	r.mu.Unlock()
}

// Changed drops the named keys and announces each on the bus set by Notify.
func (r *Ring) Changed(keys ...string) {
	// apollo calls this from its own goroutine, possibly before Notify
	r.mu.RLock()
	events := r.events
	r.mu.RUnlock()

	for _, k := range keys {
		r.Invalidate(k)
		if events != nil {
			_ = events.Publish(context.Background(), bus.Event{Topic: bus.TopicKeyChanged, Key: k})
		}
	}
}

// StaticSource serves keys from config, for local runs and tests.
type StaticSource map[string]string

func (StaticSource) Name() string {
	return SourceStatic
}

func (s StaticSource) Get(_ context.Context, name string) (string, error) {
	v, ok := s[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}
	return v, nil
}

type valueReader interface {
	Value(key string) (string, bool)
}

type ApolloSource struct {
	client valueReader
}

func (*ApolloSource) Name() string {
	return SourceApollo
}

func (s *ApolloSource) Get(_ context.Context, name string) (string, error) {
	v, ok := s.client.Value(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}
	return v, nil
}

type KMSSource struct {
	client kmscred.Client
}

func (*KMSSource) Name() string {
	return SourceKMS
}

func (s *KMSSource) Get(ctx context.Context, name string) (string, error) {
	return s.client.GetSecretValue(ctx, name)
}
