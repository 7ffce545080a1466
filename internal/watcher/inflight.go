// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package watcher

import "sync"

// inflightSet tracks file names with a conversion currently in flight.
// It is the only guard against double-processing a file; there is no
// cross-process locking, so one watcher per folder is the supported setup.
type inflightSet struct {
	mu    sync.Mutex
	names map[string]struct{}
}

func newInflightSet() *inflightSet {
	return &inflightSet{names: make(map[string]struct{})}
}

// tryAdd claims name, returning false if it is already in flight.
func (s *inflightSet) tryAdd(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.names[name]; exists {
		return false
	}
	s.names[name] = struct{}{}
	return true
}

// release drops the claim on name. Releasing an unclaimed name is a no-op.
func (s *inflightSet) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.names, name)
}
