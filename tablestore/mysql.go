package tablestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zeromicro/go-zero/core/jsonx"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"gomod.pri/codec/confuse"
	"gomod.pri/codec/snowflake"
	"gomod.pri/codec/xutils/db"
)

// Expected schema:
//
//	CREATE TABLE codec_tables (
//	  id         VARCHAR(64) NOT NULL PRIMARY KEY,
//	  body       MEDIUMTEXT  NOT NULL,
//	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3)
//	);
//
// The row with id "latest" holds the newest set id in body.
type sqlAPI interface {
	ExecCtx(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowCtx(ctx context.Context, v any, query string, args ...any) error
}

type tablesRow struct {
	ID   string `db:"id"`
	Body string `db:"body"`
}

type MySQLStore struct {
	conn  sqlAPI
	ids   *snowflake.Generator
	table string
}

func NewMySQLStore(conf MySQLConf, ids *snowflake.Generator) *MySQLStore {
	return newMySQLStore(db.Open(conf.DataSource), conf, ids)
}

func newMySQLStore(conn sqlAPI, conf MySQLConf, ids *snowflake.Generator) *MySQLStore {
	table := conf.Table
	if table == "" {
		table = "codec_tables"
	}
	return &MySQLStore{conn: conn, ids: ids, table: table}
}

func (s *MySQLStore) Save(ctx context.Context, t *confuse.Tables) (string, error) {
	out, err := assignID(t, s.ids)
	if err != nil {
		return "", err
	}

	body, err := jsonx.MarshalToString(out)
	if err != nil {
		return "", err
	}
	if err = s.upsert(ctx, out.ID, body); err != nil {
		return "", err
	}
	if err = s.upsert(ctx, latestKey, out.ID); err != nil {
		return "", err
	}

	logx.WithContext(ctx).Infow("tables saved", logx.Field("id", out.ID), logx.Field("store", string(ProviderMySQL)))
	return out.ID, nil
}

func (s *MySQLStore) Load(ctx context.Context, id string) (*confuse.Tables, error) {
	row, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	var t confuse.Tables
	if err = jsonx.UnmarshalFromString(row.Body, &t); err != nil {
		return nil, fmt.Errorf("decode tables %s: %w", id, err)
	}
	if t.ID == "" {
		t.ID = id
	}
	return &t, nil
}

func (s *MySQLStore) Latest(ctx context.Context) (*confuse.Tables, error) {
	row, err := s.find(ctx, latestKey)
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, row.Body)
}

func (s *MySQLStore) upsert(ctx context.Context, id, body string) error {
	query := fmt.Sprintf("INSERT INTO %s (id, body) VALUES (?, ?) ON DUPLICATE KEY UPDATE body = VALUES(body)", s.table)
	if _, err := s.conn.ExecCtx(ctx, query, id, body); err != nil {
		return fmt.Errorf("save tables %s: %w", id, err)
	}
	return nil
}

func (s *MySQLStore) find(ctx context.Context, id string) (*tablesRow, error) {
	var row tablesRow
	query := fmt.Sprintf("SELECT id, body FROM %s WHERE id = ? LIMIT 1", s.table)
	err := s.conn.QueryRowCtx(ctx, &row, query, id)
	switch {
	case err == nil:
		return &row, nil
	case errors.Is(err, sqlx.ErrNotFound):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("load tables %s: %w", id, err)
	}
}
