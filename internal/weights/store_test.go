package weights

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/engine"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(DefaultSet(), DefaultBounds())
	require.NoError(t, err)
	return store
}

func TestNewStore_RejectsBadSum(t *testing.T) {
	set := DefaultSet()
	set.EngineWeights[engine.AI] = 0.50 // sum now 1.2

	_, err := NewStore(set, DefaultBounds())
	require.Error(t, err)
	var ierr *InvariantError
	assert.ErrorAs(t, err, &ierr)
}

func TestStore_Publish_BoundedDelta(t *testing.T) {
	store := newTestStore(t)

	proposal := store.Current().Clone()
	proposal.EngineWeights[engine.AI] = 0.34      // +0.04, within rail
	proposal.EngineWeights[engine.Research] = 0.26 // -0.04

	published, err := store.Publish(proposal, "learning")
	require.NoError(t, err)
	assert.Equal(t, int64(2), published.Version)
	assert.Equal(t, 0.34, store.Current().EngineWeights[engine.AI])
}

func TestStore_Publish_RejectsExcessiveDelta(t *testing.T) {
	store := newTestStore(t)
	before := store.Current()

	proposal := before.Clone()
	proposal.EngineWeights[engine.AI] = 0.40      // +0.10 > max 0.05
	proposal.EngineWeights[engine.Research] = 0.20

	_, err := store.Publish(proposal, "learning")
	require.Error(t, err)
	assert.Same(t, before, store.Current(), "prior version must remain current after a rejected update")
}

func TestStore_Publish_RejectsFloorCeilingViolation(t *testing.T) {
	store, err := NewStore(&Set{
		Version: 1,
		EngineWeights: map[engine.Name]float64{
			engine.AI: 0.47, engine.Research: 0.25, engine.Esoteric: 0.14, engine.Jarvis: 0.14,
		},
	}, DefaultBounds())
	require.NoError(t, err)

	proposal := store.Current().Clone()
	proposal.EngineWeights[engine.AI] = 0.52 // above 0.50 ceiling
	proposal.EngineWeights[engine.Research] = 0.20

	_, err = store.Publish(proposal, "learning")
	require.Error(t, err)
	assert.Equal(t, int64(1), store.Current().Version)
}

func TestStore_Publish_RejectsBrokenSum(t *testing.T) {
	store := newTestStore(t)

	proposal := store.Current().Clone()
	proposal.EngineWeights[engine.AI] = 0.33 // sum 1.03

	_, err := store.Publish(proposal, "learning")
	require.Error(t, err)
}

func TestStore_Rollback(t *testing.T) {
	store := newTestStore(t)

	proposal := store.Current().Clone()
	proposal.EngineWeights[engine.AI] = 0.34
	proposal.EngineWeights[engine.Research] = 0.26
	_, err := store.Publish(proposal, "learning")
	require.NoError(t, err)

	restored, err := store.Rollback(1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), restored.Version, "rollback publishes a new version")
	assert.Equal(t, 0.30, restored.EngineWeights[engine.AI])

	_, err = store.Rollback(99)
	assert.Error(t, err)
}

func TestStore_ConcurrentReadersSeeCompleteSets(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				set := store.Current()
				sum := 0.0
				for _, name := range engine.All {
					sum += set.EngineWeights[name]
				}
				assert.InDelta(t, 1.0, sum, 1e-9)
			}
		}()
	}

	for i := 0; i < 20; i++ {
		proposal := store.Current().Clone()
		delta := 0.01
		if i%2 == 1 {
			delta = -0.01
		}
		proposal.EngineWeights[engine.AI] += delta
		proposal.EngineWeights[engine.Research] -= delta
		_, err := store.Publish(proposal, "learning")
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(DefaultSet(), DefaultBounds())
	require.NoError(t, err)
	store.WithSnapshots(dir)

	proposal := store.Current().Clone()
	proposal.EngineWeights[engine.AI] = 0.34
	proposal.EngineWeights[engine.Research] = 0.26
	_, err = store.Publish(proposal, "learning")
	require.NoError(t, err)

	reopened, err := OpenStore(dir, DefaultSet(), DefaultBounds())
	require.NoError(t, err)
	assert.Equal(t, int64(2), reopened.Current().Version)
	assert.Equal(t, 0.34, reopened.Current().EngineWeights[engine.AI])

	// History survives too, so rollback works across restarts.
	restored, err := reopened.Rollback(2)
	require.NoError(t, err)
	assert.Equal(t, 0.34, restored.EngineWeights[engine.AI])
}
