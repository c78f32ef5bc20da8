// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state owns the diamond's single storage space. All facets share
// one versioned database; each facet is handed its own prefixed partition of
// it. Writes made during a call stay pending until Commit, or are discarded
// by Abort.
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
)

var ErrDuplicatePartition = errors.New("duplicate partition")

// State is the aggregate that owns every facet partition.
type State struct {
	mu sync.Mutex

	baseDB database.Database
	db     *versiondb.Database

	partitions map[string]database.Database
}

// New creates the state aggregate over baseDB.
func New(baseDB database.Database) *State {
	return &State{
		baseDB:     baseDB,
		db:         versiondb.New(baseDB),
		partitions: make(map[string]database.Database),
	}
}

// Partition returns the storage partition called name. Each name may be
// claimed once, so no two facets share a partition by accident.
func (s *State) Partition(name string) (database.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.partitions[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicatePartition, name)
	}
	p := prefixdb.New([]byte(name), s.db)
	s.partitions[name] = p
	return p, nil
}

// Partitions returns the names of every claimed partition.
func (s *State) Partitions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.partitions))
	for name := range s.partitions {
		names = append(names, name)
	}
	return names
}

// Commit writes every pending change to the base database.
func (s *State) Commit() error {
	if err := s.db.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}

// Abort discards every pending change.
func (s *State) Abort() {
	s.db.Abort()
}

// Close discards pending changes and closes the versioned layer. The base
// database is owned by the caller and stays open.
func (s *State) Close() error {
	s.db.Abort()
	return s.db.Close()
}
