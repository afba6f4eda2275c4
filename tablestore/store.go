package tablestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gomod.pri/codec/confuse"
	"gomod.pri/codec/snowflake"
)

var ErrNotFound = errors.New("tables not found")

type Provider string

const (
	ProviderMemory Provider = "memory"
	ProviderRedis  Provider = "redis"
	ProviderS3     Provider = "s3"
	ProviderOSS    Provider = "oss"
	ProviderOBS    Provider = "obs"
	ProviderMySQL  Provider = "mysql"
)

type RedisConf struct {
	Addr     string
	Password string        `json:",optional"`
	DB       int           `json:",optional"`
	TTL      time.Duration `json:",optional"`
	Prefix   string        `json:",default=codec:tables:"`
}

// ObjectConf configures the s3, oss and obs stores. Region is ignored by obs.
type ObjectConf struct {
	Region    string `json:",optional"`
	Bucket    string
	Prefix    string `json:",default=codec/tables"`
	Endpoint  string `json:",optional"`
	AccessKey string `json:",optional"`
	SecretKey string `json:",optional"`
}

type MySQLConf struct {
	DataSource string
	Table      string `json:",default=codec_tables"`
}

type Conf struct {
	Store  string     `json:",default=memory,options=memory|redis|s3|oss|obs|mysql"`
	Seed   string     `json:",optional"`
	NodeID int64      `json:",default=-1"`
	Redis  RedisConf  `json:",optional"`
	S3     ObjectConf `json:",optional"`
	OSS    ObjectConf `json:",optional"`
	OBS    ObjectConf `json:",optional"`
	MySQL  MySQLConf  `json:",optional"`
}

// Store persists exported substitution tables so that every process decodes with the
// map that encoded the text.
type Store interface {
	// Save stores t as the latest set, assigning an id when t has none.
	Save(ctx context.Context, t *confuse.Tables) (string, error)
	Load(ctx context.Context, id string) (*confuse.Tables, error)
	Latest(ctx context.Context) (*confuse.Tables, error)
}

func New(conf Conf) (Store, error) {
	ids, err := snowflake.New(conf.NodeID)
	if err != nil {
		return nil, err
	}

	switch Provider(strings.ToLower(conf.Store)) {
	case ProviderMemory, "":
		return NewMemoryStore(ids), nil
	case ProviderRedis:
		return NewRedisStore(conf.Redis, ids), nil
	case ProviderS3:
		return NewS3Store(context.Background(), conf.S3, ids)
	case ProviderOSS:
		return NewOSSStore(conf.OSS, ids), nil
	case ProviderOBS:
		return NewOBSStore(conf.OBS, ids)
	case ProviderMySQL:
		return NewMySQLStore(conf.MySQL, ids), nil
	default:
		return nil, fmt.Errorf("unsupported table store: %s", conf.Store)
	}
}

// assignID fills t.ID and returns a copy so the caller's value is not mutated.
func assignID(t *confuse.Tables, ids *snowflake.Generator) (*confuse.Tables, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil tables", confuse.ErrInvalidTables)
	}
	// reject sets that would not restore
	if _, err := confuse.FromTables(t); err != nil {
		return nil, err
	}

	out := *t
	if out.ID == "" {
		out.ID = ids.GenerateString()
	}
	return &out, nil
}
