package weights

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// maxHistory bounds the in-memory rollback window.
const maxHistory = 50

// Store publishes immutable weight Sets. Scoring reads the current
// snapshot without locking; only the learning loop (and operator
// rollback) writes, serialized by mu. A half-written set is never
// observable: publication is a single pointer swap.
type Store struct {
	current atomic.Pointer[Set]

	mu      sync.Mutex // serializes publishers
	history []*Set     // newest last, bounded; includes current
	bounds  Bounds

	snapshotPath string // "" disables on-disk snapshots
}

// NewStore creates a store seeded with the given defaults.
func NewStore(defaults *Set, bounds Bounds) (*Store, error) {
	if defaults == nil {
		defaults = DefaultSet()
	}
	if err := validateSet(defaults); err != nil {
		return nil, err
	}
	s := &Store{bounds: bounds}
	s.current.Store(defaults)
	s.history = append(s.history, defaults)
	return s, nil
}

// WithSnapshots enables durable JSON snapshots under dir. The current
// set is written to weights.json and every version to history/.
func (s *Store) WithSnapshots(dir string) *Store {
	s.snapshotPath = dir
	return s
}

// Current returns the latest published set. Never nil, never blocks on
// a write in progress.
func (s *Store) Current() *Set {
	return s.current.Load()
}

// Bounds returns the configured update rails.
func (s *Store) Bounds() Bounds {
	return s.bounds
}

// Publish validates a proposed successor set and atomically installs it.
// On any invariant violation the proposal is rejected whole and the
// prior version remains current. On a snapshot write failure the new
// version is likewise refused: serving weights that would not survive a
// restart is how a store drifts corrupt.
func (s *Store) Publish(proposed *Set, source string) (*Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.current.Load()
	next := proposed.Clone()
	next.Version = current.Version + 1
	next.Source = source
	next.PublishedAt = time.Now().UTC()

	if err := validateUpdate(current, next, s.bounds); err != nil {
		log.Warn().Err(err).Int64("current_version", current.Version).
			Str("source", source).Msg("weight update rejected")
		return nil, err
	}
	if err := s.snapshot(next); err != nil {
		log.Error().Err(err).Int64("version", next.Version).
			Msg("weight snapshot failed, keeping last known-good version")
		return nil, fmt.Errorf("weight store snapshot: %w", err)
	}

	s.current.Store(next)
	s.history = append(s.history, next)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
	log.Info().Int64("version", next.Version).Str("source", source).
		Msg("published weight set")
	return next, nil
}

// Rollback republishes a prior version's weights as a new version.
// Rollback bypasses the per-update delta rail (reverting a bad update
// must not be blocked by the same rail that allowed it) but still
// enforces the structural sum and range invariants.
func (s *Store) Rollback(version int64) (*Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *Set
	for _, h := range s.history {
		if h.Version == version {
			target = h
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("weight version %d not in retained history", version)
	}

	current := s.current.Load()
	next := target.Clone()
	next.Version = current.Version + 1
	next.Source = fmt.Sprintf("rollback:v%d", version)
	next.PublishedAt = time.Now().UTC()

	if err := validateSet(next); err != nil {
		return nil, err
	}
	if err := s.snapshot(next); err != nil {
		return nil, fmt.Errorf("weight store snapshot: %w", err)
	}

	s.current.Store(next)
	s.history = append(s.history, next)
	log.Info().Int64("version", next.Version).Int64("restored", version).
		Msg("rolled back weight set")
	return next, nil
}

// History returns retained versions, oldest first.
func (s *Store) History() []*Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Set, len(s.history))
	copy(out, s.history)
	return out
}

// snapshot durably writes the set. Write-to-temp-then-rename keeps the
// current snapshot readable even if the process dies mid-write.
func (s *Store) snapshot(set *Set) error {
	if s.snapshotPath == "" {
		return nil
	}
	histDir := filepath.Join(s.snapshotPath, "history")
	if err := os.MkdirAll(histDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return err
	}
	histFile := filepath.Join(histDir, fmt.Sprintf("weights-v%d.json", set.Version))
	if err := os.WriteFile(histFile, data, 0o644); err != nil {
		return err
	}
	tmp := filepath.Join(s.snapshotPath, "weights.json.tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(s.snapshotPath, "weights.json"))
}

// OpenStore builds a store from an on-disk snapshot directory, falling
// back to the given defaults when no snapshot exists. Retained history
// files are loaded so rollback works across restarts.
func OpenStore(dir string, defaults *Set, bounds Bounds) (*Store, error) {
	current, err := LoadSnapshot(dir)
	if err != nil {
		return nil, err
	}
	if current == nil {
		current = defaults
	}
	store, err := NewStore(current, bounds)
	if err != nil {
		return nil, err
	}
	store.snapshotPath = dir

	history, err := loadHistory(dir)
	if err != nil {
		return nil, err
	}
	if len(history) > 0 {
		store.history = history
		if history[len(history)-1].Version != current.Version {
			store.history = append(store.history, current)
		}
		if len(store.history) > maxHistory {
			store.history = store.history[len(store.history)-maxHistory:]
		}
	}
	return store, nil
}

// loadHistory reads retained version files, oldest first.
func loadHistory(dir string) ([]*Set, error) {
	entries, err := os.ReadDir(filepath.Join(dir, "history"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var sets []*Set
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, "history", e.Name()))
		if err != nil {
			return nil, err
		}
		var set Set
		if err := json.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("corrupt history file %s: %w", e.Name(), err)
		}
		if validateSet(&set) == nil {
			sets = append(sets, &set)
		}
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].Version < sets[j].Version })
	return sets, nil
}

// LoadSnapshot reads a previously persisted current set from dir.
// A missing file is not an error; a corrupt one is, so the caller can
// refuse startup rather than silently fall back to defaults.
func LoadSnapshot(dir string) (*Set, error) {
	data, err := os.ReadFile(filepath.Join(dir, "weights.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("corrupt weight snapshot: %w", err)
	}
	if err := validateSet(&set); err != nil {
		return nil, fmt.Errorf("corrupt weight snapshot: %w", err)
	}
	return &set, nil
}
