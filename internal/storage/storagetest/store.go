// Package storagetest provides an in-memory PoolStore for tests.
package storagetest

import (
	"context"
	"sort"
	"sync"

	"yieldScope/internal/model"
)

// Store keeps pools in a map and counts upserts.
type Store struct {
	mu      sync.Mutex
	pools   map[string]model.PoolInfo
	upserts int
	err     error
}

func NewStore(pools ...model.PoolInfo) *Store {
	s := &Store{pools: make(map[string]model.PoolInfo)}
	for _, p := range pools {
		s.pools[p.Pool] = p
	}
	return s
}

// Fail makes every subsequent call return err; nil clears it.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Store) UpsertPool(_ context.Context, p model.PoolInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.upserts++
	s.pools[p.Pool] = p
	return nil
}

func (s *Store) LoadAllPools(_ context.Context) ([]model.PoolInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]model.PoolInfo, 0, len(s.pools))
	for _, p := range s.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pool < out[j].Pool })
	return out, nil
}

func (s *Store) Close() {}

// Upserts returns the number of successful upserts.
func (s *Store) Upserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

// Pool returns the stored row for addr.
func (s *Store) Pool(addr string) (model.PoolInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[addr]
	return p, ok
}
