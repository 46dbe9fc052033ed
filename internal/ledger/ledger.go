package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/pick"
)

// Ledger is the append-only pick log. Append is idempotent per
// (pick_id, slate_date): a duplicate is a no-op, never an overwrite.
// Implementations must make writes durable before returning.
type Ledger interface {
	// Append persists a pick. Returns false when the pick_id already
	// existed for its slate date (the idempotent no-op path).
	Append(ctx context.Context, p pick.Pick) (created bool, err error)

	// PicksByDate returns every persisted pick for one slate date.
	PicksByDate(ctx context.Context, slateDate string) ([]pick.Pick, error)

	// Ungraded returns picks whose event started before the cutoff and
	// that have no grading result attached yet.
	Ungraded(ctx context.Context, startedBefore time.Time) ([]pick.Pick, error)

	// PicksSince returns picks whose event started at or after the
	// given time, for performance aggregation windows.
	PicksSince(ctx context.Context, startedAfter time.Time) ([]pick.Pick, error)

	// AttachGrade appends one grading result. Idempotent per pick_id.
	AttachGrade(ctx context.Context, g pick.GradingResult) (created bool, err error)

	// Grades returns grading results recorded at or after since.
	Grades(ctx context.Context, since time.Time) ([]pick.GradingResult, error)

	Close() error
}

// PersistenceError surfaces a failed ledger write to the caller as a
// per-pick failure; the scored result is still returned, since scoring
// and persistence are decoupled concerns.
type PersistenceError struct {
	PickID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist pick %s: %v", e.PickID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Claimer is the atomic insert-if-absent primitive guarding the
// check-then-write race between concurrent writers. Claim returns true
// exactly once per (slateDate, pickID). Release undoes a claim whose
// write never landed, so a retry can claim again.
type Claimer interface {
	Claim(ctx context.Context, slateDate, pickID string) (bool, error)
	Release(ctx context.Context, slateDate, pickID string) error
}

// MemoryClaimer is the in-process claim set: a per-day set of claimed
// pick_ids guarded by a lock. Sufficient for single-process deployments.
type MemoryClaimer struct {
	mu   sync.Mutex
	days map[string]map[string]struct{}
}

// NewMemoryClaimer creates an empty claim set.
func NewMemoryClaimer() *MemoryClaimer {
	return &MemoryClaimer{days: make(map[string]map[string]struct{})}
}

// Claim marks the pick id claimed for the date; false on repeat.
func (m *MemoryClaimer) Claim(_ context.Context, slateDate, pickID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day, ok := m.days[slateDate]
	if !ok {
		day = make(map[string]struct{})
		m.days[slateDate] = day
	}
	if _, exists := day[pickID]; exists {
		return false, nil
	}
	day[pickID] = struct{}{}
	return true, nil
}

// Release drops a claim so the pick id can be claimed again.
func (m *MemoryClaimer) Release(_ context.Context, slateDate, pickID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if day, ok := m.days[slateDate]; ok {
		delete(day, pickID)
	}
	return nil
}

// Seed pre-loads claims, used when reopening an existing ledger.
func (m *MemoryClaimer) Seed(slateDate string, pickIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day, ok := m.days[slateDate]
	if !ok {
		day = make(map[string]struct{})
		m.days[slateDate] = day
	}
	for _, id := range pickIDs {
		day[id] = struct{}{}
	}
}
