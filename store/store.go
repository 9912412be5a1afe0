// Package store holds the latest-per-chain status tables shared by all
// watchers and pollers. Access is guarded by a single RWMutex per table
// with short critical sections; nothing is held across I/O.
package store

import (
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/rollupmon/rollupmon/types"
)

type Store struct {
	log log.Logger

	mu         sync.RWMutex
	rollups    map[string]*types.RollupStatus
	sequencers map[string]*types.SequencerStatus
}

func New(logger log.Logger) *Store {
	return &Store{
		log:        logger,
		rollups:    make(map[string]*types.RollupStatus),
		sequencers: make(map[string]*types.SequencerStatus),
	}
}

// UpdateStatus applies mutate to the rollup's entry, creating a default
// entry on first write. A panicking mutator is recovered and logged; the
// store keeps serving from whatever state the mutator left behind rather
// than taking the process down.
func (s *Store) UpdateStatus(rollup string, mutate func(*types.RollupStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.rollups[rollup]
	if !ok {
		entry = &types.RollupStatus{}
		s.rollups[rollup] = entry
	}
	s.applyMutation(rollup, func() { mutate(entry) })
}

// GetStatus returns a snapshot copy, defaulted if the rollup is unknown.
func (s *Store) GetStatus(rollup string) types.RollupStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.rollups[rollup]; ok {
		return *entry
	}
	return types.RollupStatus{}
}

// GetAllStatuses returns a snapshot copy of the whole table.
func (s *Store) GetAllStatuses() map[string]types.RollupStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]types.RollupStatus, len(s.rollups))
	for rollup, entry := range s.rollups {
		out[rollup] = *entry
	}
	return out
}

// UpdateSequencerStatus applies mutate to the sequencer entry for the
// rollup, creating a default entry on first write. Mutators must replace
// pointer fields with fresh values rather than writing through them, so
// snapshots handed out earlier stay immutable.
func (s *Store) UpdateSequencerStatus(rollup string, mutate func(*types.SequencerStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sequencers[rollup]
	if !ok {
		entry = &types.SequencerStatus{}
		s.sequencers[rollup] = entry
	}
	s.applyMutation(rollup, func() { mutate(entry) })
}

func (s *Store) GetSequencerStatus(rollup string) types.SequencerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.sequencers[rollup]; ok {
		return *entry
	}
	return types.SequencerStatus{}
}

func (s *Store) GetAllSequencerStatuses() map[string]types.SequencerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]types.SequencerStatus, len(s.sequencers))
	for rollup, entry := range s.sequencers {
		out[rollup] = *entry
	}
	return out
}

// applyMutation runs fn, containing any panic to the single mutation.
func (s *Store) applyMutation(rollup string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Status mutator panicked, continuing with salvaged state", "rollup", rollup, "panic", r)
		}
	}()
	fn()
}
