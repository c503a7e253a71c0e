package state

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AdMonitor/internal/shared/types"
)

// Durable keys
const (
	KeyDebugMode     = "debugMode"
	KeyMutedTabs     = "mutedTabs"
	KeyHiddenPlayers = "hiddenPlayers"
	KeyPlayingAds    = "playingAds"
	KeyStartTime     = "startTime"
)

// ErrNotReady is returned by mutations attempted before Initialize
var ErrNotReady = errors.New("state store not initialized")

// Backend is a named-value store. Get reports found=false for keys never set.
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Store is the in-memory view of persisted entity state
type Store struct {
	backend Backend
	logger  *logging.Logger
	ready   atomic.Bool
	failed  atomic.Bool

	// writeMu serializes mutations from snapshot to backend write. Maps
	// are replaced, never modified in place, once the write has landed.
	writeMu sync.Mutex

	mu        sync.RWMutex
	debugMode bool
	muted     map[types.EntityID]bool
	hidden    map[types.EntityID]bool
	playing   map[types.EntityID]bool
	startTime map[types.EntityID]int64
}

// NewStore creates a store over backend. Call Initialize before use.
func NewStore(backend Backend, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		backend:   backend,
		logger:    logger,
		muted:     map[types.EntityID]bool{},
		hidden:    map[types.EntityID]bool{},
		playing:   map[types.EntityID]bool{},
		startTime: map[types.EntityID]int64{},
	}
}

// Initialize loads every key from the backend. Absent keys take their
// defaults (false / empty). A value that fails to decode is logged and
// replaced by its default. Backend read errors abort initialization and
// leave the store not ready.
func (s *Store) Initialize(ctx context.Context) error {
	debugMode := false
	muted := map[types.EntityID]bool{}
	hidden := map[types.EntityID]bool{}
	playing := map[types.EntityID]bool{}
	startTime := map[types.EntityID]int64{}

	loads := []struct {
		key string
		dst interface{}
	}{
		{KeyDebugMode, &debugMode},
		{KeyMutedTabs, &muted},
		{KeyHiddenPlayers, &hidden},
		{KeyPlayingAds, &playing},
		{KeyStartTime, &startTime},
	}
	for _, l := range loads {
		if err := s.load(ctx, l.key, l.dst); err != nil {
			return err
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	s.debugMode = debugMode
	s.muted = nonNil(muted)
	s.hidden = nonNil(hidden)
	s.playing = nonNil(playing)
	s.startTime = startTime
	if s.startTime == nil {
		s.startTime = map[types.EntityID]int64{}
	}
	s.mu.Unlock()

	s.ready.Store(true)
	s.logger.Debug("State store initialized",
		zap.Bool("debug_mode", debugMode),
		zap.Int("muted", len(muted)),
		zap.Int("hidden", len(hidden)),
		zap.Int("playing_ads", len(playing)),
	)
	return nil
}

func (s *Store) load(ctx context.Context, key string, dst interface{}) error {
	raw, found, err := s.backend.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !found || len(raw) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(raw, dst); err != nil {
		v := reflect.ValueOf(dst).Elem()
		v.Set(reflect.Zero(v.Type()))
		s.logger.Warn("Discarding undecodable stored value",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return nil
}

// Ready reports whether Initialize has completed
func (s *Store) Ready() bool {
	return s.ready.Load()
}

// Get returns the state of id, or defaults for a tab never seen
func (s *Store) Get(id types.EntityID) types.EntityState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.EntityState{
		Muted:      s.muted[id],
		Hidden:     s.hidden[id],
		PlayingAds: s.playing[id],
	}
	if start, ok := s.startTime[id]; ok {
		st.AdStartTime = &start
	}
	return st
}

// DebugMode returns the global debug flag
func (s *Store) DebugMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.debugMode
}

// PlayingCount returns how many tabs are believed to be playing ads
func (s *Store) PlayingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.playing)
}

// Entities returns every tab with any stored state, sorted
func (s *Store) Entities() []types.EntityID {
	s.mu.RLock()
	seen := map[types.EntityID]struct{}{}
	for id := range s.muted {
		seen[id] = struct{}{}
	}
	for id := range s.hidden {
		seen[id] = struct{}{}
	}
	for id := range s.playing {
		seen[id] = struct{}{}
	}
	for id := range s.startTime {
		seen[id] = struct{}{}
	}
	s.mu.RUnlock()

	ids := make([]types.EntityID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SetMuted records whether the monitor holds id muted
func (s *Store) SetMuted(ctx context.Context, id types.EntityID, muted bool) error {
	if !s.Ready() {
		return ErrNotReady
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := withFlag(s.muted, id, muted)
	if err := s.persist(ctx, KeyMutedTabs, next); err != nil {
		return err
	}
	s.mu.Lock()
	s.muted = next
	s.mu.Unlock()
	return nil
}

// SetHidden records whether the monitor holds id's player hidden
func (s *Store) SetHidden(ctx context.Context, id types.EntityID, hidden bool) error {
	if !s.Ready() {
		return ErrNotReady
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := withFlag(s.hidden, id, hidden)
	if err := s.persist(ctx, KeyHiddenPlayers, next); err != nil {
		return err
	}
	s.mu.Lock()
	s.hidden = next
	s.mu.Unlock()
	return nil
}

// SetPlayingAds sets or clears the ad-playing belief for id together with
// its start time. at is ignored when playing is false. Neither value
// changes unless both are stored.
func (s *Store) SetPlayingAds(ctx context.Context, id types.EntityID, playing bool, at time.Time) error {
	if !s.Ready() {
		return ErrNotReady
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	nextStart := maps.Clone(s.startTime)
	if playing {
		nextStart[id] = at.Unix()
	} else {
		delete(nextStart, id)
	}
	nextPlaying := withFlag(s.playing, id, playing)

	if err := s.persist(ctx, KeyStartTime, nextStart); err != nil {
		return err
	}
	if err := s.persist(ctx, KeyPlayingAds, nextPlaying); err != nil {
		if rollback := s.persist(ctx, KeyStartTime, s.startTime); rollback != nil {
			s.logger.Error("Start times on disk are ahead of memory", zap.Error(rollback))
		}
		return err
	}

	s.mu.Lock()
	s.startTime = nextStart
	s.playing = nextPlaying
	s.mu.Unlock()
	return nil
}

// SetDebugMode sets the global debug flag
func (s *Store) SetDebugMode(ctx context.Context, on bool) error {
	if !s.Ready() {
		return ErrNotReady
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.persist(ctx, KeyDebugMode, on); err != nil {
		return err
	}
	s.mu.Lock()
	s.debugMode = on
	s.mu.Unlock()
	return nil
}

// persist encodes and stores one key. Callers hold writeMu, so snapshots
// reach the backend in the order they were taken.
func (s *Store) persist(ctx context.Context, key string, value interface{}) error {
	snapshot, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, key, snapshot); err != nil {
		s.logger.Error("Failed to persist state", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

// Close releases the backend
func (s *Store) Close() error {
	return s.backend.Close()
}

// withFlag returns a copy of m with id set. Maps stay sparse: false
// entries are removed rather than stored.
func withFlag(m map[types.EntityID]bool, id types.EntityID, v bool) map[types.EntityID]bool {
	next := maps.Clone(m)
	if v {
		next[id] = true
	} else {
		delete(next, id)
	}
	return next
}

func nonNil(m map[types.EntityID]bool) map[types.EntityID]bool {
	if m == nil {
		return map[types.EntityID]bool{}
	}
	for id, v := range m {
		if !v {
			delete(m, id)
		}
	}
	return m
}
