package tablestore

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	huaweiObs "github.com/huaweicloud/huaweicloud-sdk-go-obs/obs"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"gomod.pri/codec/confuse"
	"gomod.pri/codec/snowflake"
)

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = value.(string)
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

type fakeOSS struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeOSS) PutObject(ctx context.Context, in *oss.PutObjectRequest, _ ...func(*oss.Options)) (*oss.PutObjectResult, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = body
	return &oss.PutObjectResult{}, nil
}

func (f *fakeOSS) GetObject(ctx context.Context, in *oss.GetObjectRequest, _ ...func(*oss.Options)) (*oss.GetObjectResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &oss.ServiceError{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
	}
	return &oss.GetObjectResult{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

type fakeOBS struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeOBS) PutObject(in *huaweiObs.PutObjectInput) (*huaweiObs.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[in.Bucket+"/"+in.Key] = body
	return &huaweiObs.PutObjectOutput{}, nil
}

func (f *fakeOBS) GetObject(in *huaweiObs.GetObjectInput) (*huaweiObs.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[in.Bucket+"/"+in.Key]
	if !ok {
		oerr := huaweiObs.ObsError{Code: "NoSuchKey"}
		oerr.StatusCode = http.StatusNotFound
		return nil, oerr
	}
	out := &huaweiObs.GetObjectOutput{}
	out.Body = io.NopCloser(bytes.NewReader(body))
	return out, nil
}

type fakeSQL struct {
	mu    sync.Mutex
	rows  map[string]string
	execs []string
}

func (f *fakeSQL) ExecCtx(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, query)
	f.rows[args[0].(string)] = args[1].(string)
	return driver.RowsAffected(1), nil
}

func (f *fakeSQL) QueryRowCtx(ctx context.Context, v any, query string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := args[0].(string)
	body, ok := f.rows[id]
	if !ok {
		return sqlx.ErrNotFound
	}
	*v.(*tablesRow) = tablesRow{ID: id, Body: body}
	return nil
}

func testIDs(t *testing.T) *snowflake.Generator {
	t.Helper()
	ids, err := snowflake.New(1)
	require.NoError(t, err)
	return ids
}

func stores(t *testing.T) map[string]Store {
	ids := testIDs(t)
	return map[string]Store{
		"memory": NewMemoryStore(ids),
		"redis":  newRedisStore(newFakeRedis(), RedisConf{TTL: time.Hour}, ids),
		"s3":     newObjectStore(&s3Bucket{client: &fakeS3{objects: map[string][]byte{}}, bucket: "b"}, "/codec/tables/", ids),
		"oss":    newObjectStore(&ossBucket{client: &fakeOSS{objects: map[string][]byte{}}, bucket: "b"}, "codec/tables", ids),
		"obs":    newObjectStore(&obsBucket{client: &fakeOBS{objects: map[string][]byte{}}, bucket: "b"}, "codec/tables", ids),
		"mysql":  newMySQLStore(&fakeSQL{rows: map[string]string{}}, MySQLConf{}, ids),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Latest(ctx)
			assert.ErrorIs(t, err, ErrNotFound)

			m := confuse.NewSeededMap(42)
			tables := m.Tables()
			id, err := store.Save(ctx, tables)
			require.NoError(t, err)
			assert.NotEmpty(t, id)
			assert.Empty(t, tables.ID, "caller tables must not be mutated")

			loaded, err := store.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, id, loaded.ID)
			restored, err := confuse.FromTables(loaded)
			require.NoError(t, err)
			assert.True(t, m.Equal(restored))

			second := confuse.NewSeededMap(43).Tables()
			second.ID = "fixed-id"
			id2, err := store.Save(ctx, second)
			require.NoError(t, err)
			assert.Equal(t, "fixed-id", id2)

			latest, err := store.Latest(ctx)
			require.NoError(t, err)
			assert.Equal(t, "fixed-id", latest.ID)

			_, err = store.Load(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreRejectsInvalidTables(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Save(ctx, nil)
			assert.ErrorIs(t, err, confuse.ErrInvalidTables)

			bad := confuse.NewSeededMap(1).Tables()
			bad.NumberMap["0"] = "zz"
			_, err = store.Save(ctx, bad)
			assert.ErrorIs(t, err, confuse.ErrInvalidTables)
		})
	}
}

func TestRedisStoreKeys(t *testing.T) {
	ctx := context.Background()
	rds := newFakeRedis()
	store := newRedisStore(rds, RedisConf{Prefix: "app:", TTL: time.Minute}, testIDs(t))

	id, err := store.Save(ctx, confuse.NewSeededMap(7).Tables())
	require.NoError(t, err)
	assert.Contains(t, rds.data, "app:"+id)
	assert.Equal(t, id, rds.data["app:latest"])
	assert.Equal(t, time.Minute, rds.ttl["app:"+id])

	rds.err = errors.New("connection refused")
	_, err = store.Latest(ctx)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestObjectStoreKeys(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{objects: map[string][]byte{}}
	store := newObjectStore(&s3Bucket{client: client, bucket: "codec"}, "tables", testIDs(t))

	id, err := store.Save(ctx, confuse.NewSeededMap(7).Tables())
	require.NoError(t, err)
	assert.Contains(t, client.objects, "codec/tables/"+id+".json")
	assert.Equal(t, id, string(client.objects["codec/tables/latest"]))
}

func TestOBSStoreHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newObjectStore(&obsBucket{client: &fakeOBS{objects: map[string][]byte{}}, bucket: "b"}, "", testIDs(t))
	_, err := store.Save(ctx, confuse.NewSeededMap(7).Tables())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMySQLStoreRows(t *testing.T) {
	ctx := context.Background()
	conn := &fakeSQL{rows: map[string]string{}}
	store := newMySQLStore(conn, MySQLConf{Table: "tables_v2"}, testIDs(t))

	id, err := store.Save(ctx, confuse.NewSeededMap(7).Tables())
	require.NoError(t, err)
	assert.Equal(t, id, conn.rows[latestKey])
	assert.Contains(t, conn.rows[id], `"numberMap"`)
	require.Len(t, conn.execs, 2)
	assert.True(t, strings.HasPrefix(conn.execs[0], "INSERT INTO tables_v2 "))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		conf    Conf
		want    any
		wantErr bool
	}{
		{"default", Conf{NodeID: 1}, &MemoryStore{}, false},
		{"memory", Conf{Store: "Memory", NodeID: 1}, &MemoryStore{}, false},
		{"redis", Conf{Store: "redis", NodeID: 1, Redis: RedisConf{Addr: "127.0.0.1:6379"}}, &RedisStore{}, false},
		{"oss", Conf{Store: "oss", NodeID: 1, OSS: ObjectConf{Region: "cn-hangzhou", Bucket: "b"}}, &ObjectStore{}, false},
		{"unknown", Conf{Store: "etcd", NodeID: 1}, nil, true},
		{"bad node", Conf{NodeID: 1 << 20}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.conf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}
}
