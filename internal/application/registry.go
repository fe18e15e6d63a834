// Package application contains the scheduling and execution engine.
package application

import (
	"sync"

	"github.com/streakd/streakd/internal/domain/model"
)

// Snapshot is an immutable, versioned view of all account definitions. The
// currently-active snapshot is the only one schedulers and workers ever read;
// in-flight jobs keep a reference to the snapshot they were created against.
type Snapshot struct {
	Version  int64
	Accounts []model.Account

	byName map[string]model.Account
}

// Account looks up an account by name in this snapshot.
func (s *Snapshot) Account(name string) (model.Account, bool) {
	a, ok := s.byName[name]
	return a, ok
}

// Enabled returns the enabled accounts in configuration order.
func (s *Snapshot) Enabled() []model.Account {
	var out []model.Account
	for _, a := range s.Accounts {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out
}

// Registry holds the active snapshot and supports atomic hot-swap. Only the
// config reloader calls Swap; everything else reads through Current.
type Registry struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewRegistry creates a registry seeded with the given accounts as version 1.
func NewRegistry(accounts []model.Account) *Registry {
	r := &Registry{}
	r.snap = newSnapshot(1, accounts)
	return r
}

// Current returns the active snapshot. The returned value is immutable.
func (r *Registry) Current() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Swap atomically replaces the active snapshot with a new one built from
// accounts and returns it. Readers holding the previous snapshot are not
// affected. Accounts must already be validated by the caller.
func (r *Registry) Swap(accounts []model.Account) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = newSnapshot(r.snap.Version+1, accounts)
	return r.snap
}

func newSnapshot(version int64, accounts []model.Account) *Snapshot {
	cp := make([]model.Account, len(accounts))
	copy(cp, accounts)

	byName := make(map[string]model.Account, len(cp))
	for _, a := range cp {
		byName[a.Name] = a
	}

	return &Snapshot{Version: version, Accounts: cp, byName: byName}
}
