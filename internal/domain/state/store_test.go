package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/storage"
	"github.com/GriffinCanCode/AdMonitor/internal/shared/types"
)

type failingBackend struct {
	*storage.Memory
	getErr error
	setErr error
}

func (f *failingBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.Memory.Get(ctx, key)
}

func (f *failingBackend) Set(ctx context.Context, key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Memory.Set(ctx, key, value)
}

func newReadyStore(t *testing.T, backend Backend) *Store {
	t.Helper()
	s := NewStore(backend, nil)
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func TestInitializeDefaults(t *testing.T) {
	s := NewStore(storage.NewMemory(), nil)
	assert.False(t, s.Ready())

	require.NoError(t, s.Initialize(context.Background()))
	assert.True(t, s.Ready())
	assert.False(t, s.DebugMode())
	assert.Equal(t, types.EntityState{}, s.Get(42))
	assert.Empty(t, s.Entities())
}

func TestMutationsRejectedBeforeInitialize(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory(), nil)

	assert.ErrorIs(t, s.SetMuted(ctx, 1, true), ErrNotReady)
	assert.ErrorIs(t, s.SetHidden(ctx, 1, true), ErrNotReady)
	assert.ErrorIs(t, s.SetPlayingAds(ctx, 1, true, time.Now()), ErrNotReady)
	assert.ErrorIs(t, s.SetDebugMode(ctx, true), ErrNotReady)
}

func TestSetPlayingAdsKeepsStartTimeInStep(t *testing.T) {
	ctx := context.Background()
	s := newReadyStore(t, storage.NewMemory())
	at := time.Unix(1700000000, 0)

	require.NoError(t, s.SetPlayingAds(ctx, 7, true, at))
	st := s.Get(7)
	assert.True(t, st.PlayingAds)
	require.NotNil(t, st.AdStartTime)
	assert.Equal(t, at.Unix(), *st.AdStartTime)
	assert.Equal(t, 1, s.PlayingCount())

	require.NoError(t, s.SetPlayingAds(ctx, 7, false, time.Time{}))
	st = s.Get(7)
	assert.False(t, st.PlayingAds)
	assert.Nil(t, st.AdStartTime)
	assert.Equal(t, 0, s.PlayingCount())
}

func TestWriteThroughSurvivesReload(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	s := newReadyStore(t, backend)
	at := time.Unix(1700000100, 0)

	require.NoError(t, s.SetMuted(ctx, 3, true))
	require.NoError(t, s.SetHidden(ctx, 3, true))
	require.NoError(t, s.SetPlayingAds(ctx, 3, true, at))
	require.NoError(t, s.SetHidden(ctx, 9, true))
	require.NoError(t, s.SetDebugMode(ctx, true))

	reloaded := newReadyStore(t, backend)
	assert.True(t, reloaded.DebugMode())
	st := reloaded.Get(3)
	assert.True(t, st.Muted)
	assert.True(t, st.Hidden)
	assert.True(t, st.PlayingAds)
	require.NotNil(t, st.AdStartTime)
	assert.Equal(t, at.Unix(), *st.AdStartTime)
	assert.Equal(t, []types.EntityID{3, 9}, reloaded.Entities())
}

func TestClearingFlagRemovesEntry(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	s := newReadyStore(t, backend)

	require.NoError(t, s.SetMuted(ctx, 5, true))
	require.NoError(t, s.SetMuted(ctx, 5, false))

	raw, found, err := backend.Get(ctx, KeyMutedTabs)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestInitializeDiscardsCorruptValue(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	require.NoError(t, backend.Set(ctx, KeyMutedTabs, []byte(`not json`)))
	require.NoError(t, backend.Set(ctx, KeyHiddenPlayers, []byte(`{"2":true}`)))

	s := newReadyStore(t, backend)
	assert.False(t, s.Get(1).Muted)
	assert.True(t, s.Get(2).Hidden)
}

func TestInitializeBackendFailureLeavesNotReady(t *testing.T) {
	s := NewStore(&failingBackend{Memory: storage.NewMemory(), getErr: errors.New("disk gone")}, nil)

	err := s.Initialize(context.Background())
	assert.Error(t, err)
	assert.False(t, s.Ready())
}

func TestPersistFailureIsReported(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{Memory: storage.NewMemory()}
	s := newReadyStore(t, backend)

	backend.setErr = errors.New("read-only")
	assert.Error(t, s.SetHidden(ctx, 4, true))
	assert.Error(t, s.SetPlayingAds(ctx, 4, true, time.Unix(100, 0)))
	assert.Error(t, s.SetDebugMode(ctx, true))

	// memory only moves once the backend has the value
	assert.Equal(t, types.EntityState{}, s.Get(4))
	assert.False(t, s.DebugMode())
}

// playingFailBackend rejects playingAds writes only
type playingFailBackend struct {
	*storage.Memory
}

func (b *playingFailBackend) Set(ctx context.Context, key string, value []byte) error {
	if key == KeyPlayingAds {
		return errors.New("disk full")
	}
	return b.Memory.Set(ctx, key, value)
}

func TestSetPlayingAdsRollsBackStartTime(t *testing.T) {
	ctx := context.Background()
	backend := &playingFailBackend{Memory: storage.NewMemory()}
	s := newReadyStore(t, backend)

	assert.Error(t, s.SetPlayingAds(ctx, 4, true, time.Unix(100, 0)))
	assert.Equal(t, types.EntityState{}, s.Get(4))

	reloaded := newReadyStore(t, backend.Memory)
	assert.Equal(t, types.EntityState{}, reloaded.Get(4))
}

func TestCanceledWriteLeavesMemoryUnchanged(t *testing.T) {
	backend := storage.NewMemory()
	s := newReadyStore(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.SetMuted(ctx, 6, true), context.Canceled)
	assert.False(t, s.Get(6).Muted)

	reloaded := newReadyStore(t, backend)
	assert.Equal(t, s.Get(6), reloaded.Get(6))
}

// gatedBackend holds the first Set until release is closed
type gatedBackend struct {
	*storage.Memory
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedBackend) Set(ctx context.Context, key string, value []byte) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.Memory.Set(ctx, key, value)
}

func TestParallelTabWritesKeepEveryTab(t *testing.T) {
	backend := &gatedBackend{
		Memory:  storage.NewMemory(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newReadyStore(t, backend)
	ctx := context.Background()

	errs := make(chan error, 2)
	go func() { errs <- s.SetMuted(ctx, 1, true) }()
	<-backend.entered
	go func() { errs <- s.SetMuted(ctx, 2, true) }()

	// give tab 2 time to race tab 1's parked write
	time.Sleep(20 * time.Millisecond)
	close(backend.release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	assert.True(t, s.Get(1).Muted)
	assert.True(t, s.Get(2).Muted)

	reloaded := newReadyStore(t, backend.Memory)
	assert.True(t, reloaded.Get(1).Muted, "tab 1 lost from storage")
	assert.True(t, reloaded.Get(2).Muted, "tab 2 lost from storage")
}
