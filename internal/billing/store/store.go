// Package store is the sole holder of mutable billing state. Every read and
// write funnels through one readers-writer lock, and each successful write
// rewrites the whole state to the backing JSON file before returning, so a
// returned write is durably on disk.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/quantica-hq/billing/internal/billing/domain"
	"go.uber.org/zap"
)

// Store owns the in-memory BillingState and its backing file. Share one
// instance across any number of goroutines; do not copy it.
type Store struct {
	mu       sync.RWMutex
	state    domain.BillingState
	path     string
	poisoned atomic.Bool
	log      *zap.Logger
}

// Open loads the state file at path, or starts empty when it does not
// exist. Malformed persisted state is a Serialization error.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	store := &Store{path: path, log: log.Named("billing.store")}

	contents, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run: persisted lazily on the first write.
	case err != nil:
		return nil, domain.ErrIO("reading billing state", err)
	default:
		if err := json.Unmarshal(contents, &store.state); err != nil {
			return nil, domain.ErrSerialization("parsing billing state", err)
		}
		store.log.Info("billing state loaded",
			zap.String("path", path),
			zap.Int("payments", len(store.state.Payments)),
			zap.Int("api_keys", len(store.state.APIKeys)),
		)
	}

	return store, nil
}

// Read runs fn against the current state under a shared lock. The state
// must not be retained or mutated by fn.
func (s *Store) Read(fn func(state *domain.BillingState)) error {
	s.mu.RLock()
	defer s.unlockGuarded(s.mu.RUnlock)
	// Checked under the lock so a reader that was blocked while a writer
	// panicked still observes the poisoning.
	if s.poisoned.Load() {
		return errPoisoned()
	}
	fn(&s.state)
	return nil
}

// Write runs fn against the mutable state under the exclusive lock and, on
// success, persists the entire state to the backing file before releasing.
// A failed file write does not roll back the in-memory mutation.
func (s *Store) Write(fn func(state *domain.BillingState) error) error {
	s.mu.Lock()
	defer s.unlockGuarded(s.mu.Unlock)
	if s.poisoned.Load() {
		return errPoisoned()
	}

	if err := fn(&s.state); err != nil {
		return err
	}
	return s.persistLocked()
}

// UpsertPayment inserts or replaces the payment record by id.
func (s *Store) UpsertPayment(record domain.PaymentRecord) (domain.PaymentRecord, error) {
	err := s.Write(func(state *domain.BillingState) error {
		for i := range state.Payments {
			if state.Payments[i].ID == record.ID {
				state.Payments[i] = record.Clone()
				return nil
			}
		}
		state.Payments = append(state.Payments, record.Clone())
		return nil
	})
	return record, err
}

// UpsertAPIKey inserts or replaces the key record by id.
func (s *Store) UpsertAPIKey(record domain.APIKeyRecord) (domain.APIKeyRecord, error) {
	err := s.Write(func(state *domain.BillingState) error {
		for i := range state.APIKeys {
			if state.APIKeys[i].ID == record.ID {
				state.APIKeys[i] = record.Clone()
				return nil
			}
		}
		state.APIKeys = append(state.APIKeys, record.Clone())
		return nil
	})
	return record, err
}

// UpdatePayment applies the mutator to the payment with the given id and
// persists. NotFound when the id is absent; the mutator's error aborts the
// write without persisting.
func (s *Store) UpdatePayment(id string, mutate func(record *domain.PaymentRecord) error) (domain.PaymentRecord, error) {
	var updated domain.PaymentRecord
	err := s.Write(func(state *domain.BillingState) error {
		for i := range state.Payments {
			if state.Payments[i].ID != id {
				continue
			}
			if err := mutate(&state.Payments[i]); err != nil {
				return err
			}
			updated = state.Payments[i].Clone()
			return nil
		}
		return domain.ErrNotFound(fmt.Sprintf("payment %s not found", id))
	})
	return updated, err
}

// UpdateAPIKey applies the mutator to the key with the given id and
// persists. NotFound when the id is absent.
func (s *Store) UpdateAPIKey(id string, mutate func(record *domain.APIKeyRecord) error) (domain.APIKeyRecord, error) {
	var updated domain.APIKeyRecord
	err := s.Write(func(state *domain.BillingState) error {
		for i := range state.APIKeys {
			if state.APIKeys[i].ID != id {
				continue
			}
			if err := mutate(&state.APIKeys[i]); err != nil {
				return err
			}
			updated = state.APIKeys[i].Clone()
			return nil
		}
		return domain.ErrNotFound(fmt.Sprintf("api key %s not found", id))
	})
	return updated, err
}

// FindAPIKey returns a copy of the first key record matching the predicate.
func (s *Store) FindAPIKey(match func(record *domain.APIKeyRecord) bool) (domain.APIKeyRecord, bool, error) {
	var (
		found  domain.APIKeyRecord
		exists bool
	)
	err := s.Read(func(state *domain.BillingState) {
		for i := range state.APIKeys {
			if match(&state.APIKeys[i]) {
				found = state.APIKeys[i].Clone()
				exists = true
				return
			}
		}
	})
	return found, exists, err
}

// Snapshot returns a deep copy of the whole state.
func (s *Store) Snapshot() (domain.BillingState, error) {
	var snapshot domain.BillingState
	err := s.Read(func(state *domain.BillingState) {
		snapshot = state.Clone()
	})
	return snapshot, err
}

// persistLocked serializes the full state to pretty JSON and overwrites the
// backing file, fsyncing before returning. Caller holds the write lock.
func (s *Store) persistLocked() error {
	if parent := filepath.Dir(s.path); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return domain.ErrIO("creating state directory", err)
		}
	}

	serialized, err := json.MarshalIndent(&s.state, "", "  ")
	if err != nil {
		return domain.ErrSerialization("encoding billing state", err)
	}

	file, err := os.Create(s.path)
	if err != nil {
		return domain.ErrIO("opening state file", err)
	}
	if _, err := file.Write(serialized); err != nil {
		file.Close()
		return domain.ErrIO("writing state file", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return domain.ErrIO("syncing state file", err)
	}
	if err := file.Close(); err != nil {
		return domain.ErrIO("closing state file", err)
	}
	return nil
}

// unlockGuarded releases the lock and, when the critical section is
// unwinding from a panic, marks the store permanently unusable before the
// panic continues. Crash-only: no recovery is attempted.
func (s *Store) unlockGuarded(unlock func()) {
	if r := recover(); r != nil {
		s.poisoned.Store(true)
		unlock()
		s.log.Error("billing store poisoned by panic in critical section", zap.Any("panic", r))
		panic(r)
	}
	unlock()
}

func errPoisoned() error {
	return domain.ErrIO("billing store poisoned, all operations fail", nil)
}
