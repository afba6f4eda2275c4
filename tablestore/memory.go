package tablestore

import (
	"context"
	"sync"

	"gomod.pri/codec/confuse"
	"gomod.pri/codec/snowflake"
)

type MemoryStore struct {
	mu     sync.RWMutex
	ids    *snowflake.Generator
	sets   map[string]*confuse.Tables
	latest string
}

func NewMemoryStore(ids *snowflake.Generator) *MemoryStore {
	return &MemoryStore{
		ids:  ids,
		sets: make(map[string]*confuse.Tables),
	}
}

func (s *MemoryStore) Save(_ context.Context, t *confuse.Tables) (string, error) {
	out, err := assignID(t, s.ids)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[out.ID] = out
	s.latest = out.ID
	return out.ID, nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*confuse.Tables, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.sets[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *t
	return &out, nil
}

func (s *MemoryStore) Latest(ctx context.Context) (*confuse.Tables, error) {
	s.mu.RLock()
	id := s.latest
	s.mu.RUnlock()

	if id == "" {
		return nil, ErrNotFound
	}
	return s.Load(ctx, id)
}
