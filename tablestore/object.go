package tablestore

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/zeromicro/go-zero/core/jsonx"
	"github.com/zeromicro/go-zero/core/logx"
	"gomod.pri/codec/confuse"
	"gomod.pri/codec/snowflake"
)

// bucket is the part of an object storage client the store needs. get returns
// ErrNotFound for a missing key.
type bucket interface {
	name() string
	put(ctx context.Context, key string, body []byte, contentType string) error
	get(ctx context.Context, key string) ([]byte, error)
}

// ObjectStore keeps one <id>.json object per set and a "latest" object holding the
// newest id.
type ObjectStore struct {
	bucket bucket
	ids    *snowflake.Generator
	prefix string
}

func newObjectStore(b bucket, prefix string, ids *snowflake.Generator) *ObjectStore {
	return &ObjectStore{
		bucket: b,
		ids:    ids,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *ObjectStore) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *ObjectStore) Save(ctx context.Context, t *confuse.Tables) (string, error) {
	out, err := assignID(t, s.ids)
	if err != nil {
		return "", err
	}

	body, err := jsonx.Marshal(out)
	if err != nil {
		return "", err
	}
	if err = s.bucket.put(ctx, s.key(out.ID+".json"), body, "application/json"); err != nil {
		return "", err
	}
	if err = s.bucket.put(ctx, s.key(latestKey), []byte(out.ID), "text/plain"); err != nil {
		return "", err
	}

	logx.WithContext(ctx).Infow("tables saved", logx.Field("id", out.ID), logx.Field("store", s.bucket.name()))
	return out.ID, nil
}

func (s *ObjectStore) Load(ctx context.Context, id string) (*confuse.Tables, error) {
	body, err := s.bucket.get(ctx, s.key(id+".json"))
	if err != nil {
		return nil, err
	}

	var t confuse.Tables
	if err = jsonx.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("decode tables %s: %w", id, err)
	}
	if t.ID == "" {
		t.ID = id
	}
	return &t, nil
}

func (s *ObjectStore) Latest(ctx context.Context) (*confuse.Tables, error) {
	id, err := s.bucket.get(ctx, s.key(latestKey))
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, strings.TrimSpace(string(id)))
}
