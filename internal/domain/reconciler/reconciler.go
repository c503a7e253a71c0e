package reconciler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AdMonitor/internal/domain/classifier"
	"github.com/GriffinCanCode/AdMonitor/internal/domain/state"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AdMonitor/internal/shared/types"
)

// DefaultAdTimeout is how long a tab may be believed to play ads without a
// completion before the belief is dropped.
const DefaultAdTimeout = 60 * time.Second

// debugKey serializes global debug flips through the same lock table
const debugKey = types.NoEntity

// Actions are the side effects the reconciler can apply to a tab. Each
// reports success and never fails any other way.
type Actions interface {
	Mute(ctx context.Context, id types.EntityID) bool
	Unmute(ctx context.Context, id types.EntityID) bool
	HidePlayer(ctx context.Context, id types.EntityID) bool
	ShowPlayer(ctx context.Context, id types.EntityID) bool
	ToggleDebug(ctx context.Context, id types.EntityID) bool
}

// Outcome describes what HandleBatch did
type Outcome int

const (
	// OutcomeNoChange means the batch left the tab as it was
	OutcomeNoChange Outcome = iota
	// OutcomeNotReady means the batch arrived before state was loaded
	OutcomeNotReady
	// OutcomeCanceled means the caller gave up while waiting for the tab
	OutcomeCanceled
	// OutcomeAdStarted means the tab was muted and its player hidden
	OutcomeAdStarted
	// OutcomeAdCompleted means the tab was unmuted and its player shown
	OutcomeAdCompleted
	// OutcomeTimeoutRecovery means a stale ad belief was cleared and the tab restored
	OutcomeTimeoutRecovery
	// OutcomeCorruptRecovery means a playing tab with no start time was restored
	OutcomeCorruptRecovery
)

// String returns the metric label for the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeNoChange:
		return "no_change"
	case OutcomeNotReady:
		return "not_ready"
	case OutcomeCanceled:
		return "canceled"
	case OutcomeAdStarted:
		return "ad_started"
	case OutcomeAdCompleted:
		return "ad_completed"
	case OutcomeTimeoutRecovery:
		return "timeout_recovery"
	case OutcomeCorruptRecovery:
		return "corrupt_recovery"
	default:
		return "unknown"
	}
}

// Transitioned reports whether the outcome changed the tab's state
func (o Outcome) Transitioned() bool {
	return o >= OutcomeAdStarted
}

// Reconciler owns the per-tab state machine
type Reconciler struct {
	store     *state.Store
	actions   Actions
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	now       func() time.Time
	adTimeout time.Duration
	locks     *keyedLock
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithNow overrides the clock
func WithNow(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithAdTimeout overrides DefaultAdTimeout
func WithAdTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.adTimeout = d
		}
	}
}

// WithMetrics attaches a metrics collector
func WithMetrics(m *monitoring.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// New creates a reconciler over store, applying side effects via actions
func New(store *state.Store, actions Actions, logger *logging.Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Reconciler{
		store:     store,
		actions:   actions,
		logger:    logger,
		now:       time.Now,
		adTimeout: DefaultAdTimeout,
		locks:     newKeyedLock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleBatch applies one classified payload to tab id
func (r *Reconciler) HandleBatch(ctx context.Context, id types.EntityID, batch classifier.Batch) Outcome {
	if !r.store.Ready() {
		r.logger.Debug("Store not ready, dropping batch",
			zap.Stringer("tab", id),
			zap.Strings("tags", batch.Strings()))
		return OutcomeNotReady
	}

	unlock, err := r.locks.Lock(ctx, id)
	if err != nil {
		r.logger.Warn("Gave up waiting for tab", zap.Stringer("tab", id), zap.Error(err))
		return OutcomeCanceled
	}
	defer unlock()
	// Once actions start, the caller hanging up must not cut the state
	// writes that record them. Each action has its own timeout.
	ctx = context.WithoutCancel(ctx)

	st := r.store.Get(id)

	var outcome Outcome
	if tag, ok := batch.Decisive(); ok {
		if tag == classifier.TagAdCompleted {
			r.enterNormal(ctx, id, st)
			outcome = OutcomeAdCompleted
		} else {
			r.enterAdPlaying(ctx, id, st)
			outcome = OutcomeAdStarted
		}
	} else {
		outcome = r.checkDesync(ctx, id, st)
	}

	if outcome.Transitioned() {
		r.logger.Info("Ad state transition",
			zap.Stringer("tab", id),
			zap.Stringer("outcome", outcome),
			zap.Strings("tags", batch.Strings()))
		r.metrics.RecordTransition(outcome.String())
		r.metrics.SetPlayingAds(r.store.PlayingCount())
	}
	return outcome
}

// checkDesync drops a stale or impossible ad-playing belief
func (r *Reconciler) checkDesync(ctx context.Context, id types.EntityID, st types.EntityState) Outcome {
	if !st.PlayingAds {
		return OutcomeNoChange
	}

	started, ok := st.StartedAt()
	if !ok {
		r.logger.Warn("Tab playing ads without a start time, resetting", zap.Stringer("tab", id))
		r.enterNormal(ctx, id, st)
		return OutcomeCorruptRecovery
	}

	elapsed := time.Duration(r.now().Unix()-started.Unix()) * time.Second
	if elapsed <= r.adTimeout {
		return OutcomeNoChange
	}

	r.logger.Warn("No ad completion seen, resetting",
		zap.Stringer("tab", id),
		zap.Duration("elapsed", elapsed))
	r.enterNormal(ctx, id, st)
	return OutcomeTimeoutRecovery
}

func (r *Reconciler) enterAdPlaying(ctx context.Context, id types.EntityID, st types.EntityState) {
	if !st.Muted && r.actions.Mute(ctx, id) {
		r.persist(id, "muted", r.store.SetMuted(ctx, id, true))
	}
	if !st.Hidden && r.actions.HidePlayer(ctx, id) {
		r.persist(id, "hidden", r.store.SetHidden(ctx, id, true))
	}
	r.persist(id, "playing_ads", r.store.SetPlayingAds(ctx, id, true, r.now()))
}

func (r *Reconciler) enterNormal(ctx context.Context, id types.EntityID, st types.EntityState) {
	if st.Muted && r.actions.Unmute(ctx, id) {
		r.persist(id, "muted", r.store.SetMuted(ctx, id, false))
	}
	if st.Hidden && r.actions.ShowPlayer(ctx, id) {
		r.persist(id, "hidden", r.store.SetHidden(ctx, id, false))
	}
	r.persist(id, "playing_ads", r.store.SetPlayingAds(ctx, id, false, time.Time{}))
}

// ToggleMute inverts the muted attribution of tab id. It does not touch
// the ad-playing belief.
func (r *Reconciler) ToggleMute(ctx context.Context, id types.EntityID) bool {
	return r.toggle(ctx, id, "mute", func(ctx context.Context, st types.EntityState) bool {
		if st.Muted {
			return r.actions.Unmute(ctx, id) &&
				r.persist(id, "muted", r.store.SetMuted(ctx, id, false))
		}
		return r.actions.Mute(ctx, id) &&
			r.persist(id, "muted", r.store.SetMuted(ctx, id, true))
	})
}

// TogglePlayer inverts the hidden attribution of tab id. It does not touch
// the ad-playing belief.
func (r *Reconciler) TogglePlayer(ctx context.Context, id types.EntityID) bool {
	return r.toggle(ctx, id, "player", func(ctx context.Context, st types.EntityState) bool {
		if st.Hidden {
			return r.actions.ShowPlayer(ctx, id) &&
				r.persist(id, "hidden", r.store.SetHidden(ctx, id, false))
		}
		return r.actions.HidePlayer(ctx, id) &&
			r.persist(id, "hidden", r.store.SetHidden(ctx, id, true))
	})
}

func (r *Reconciler) toggle(ctx context.Context, id types.EntityID, name string, apply func(context.Context, types.EntityState) bool) bool {
	if !r.store.Ready() {
		r.logger.Debug("Store not ready, ignoring toggle", zap.String("toggle", name), zap.Stringer("tab", id))
		return false
	}
	if !id.Valid() {
		r.logger.Error("Toggle without a tab", zap.String("toggle", name))
		return false
	}

	unlock, err := r.locks.Lock(ctx, id)
	if err != nil {
		r.logger.Warn("Gave up waiting for tab", zap.Stringer("tab", id), zap.Error(err))
		return false
	}
	defer unlock()

	return apply(context.WithoutCancel(ctx), r.store.Get(id))
}

// ToggleDebug flips the global debug flag and the logger level with it. When
// tab is given, the tab's handler is asked to flip its own flag first and
// the global flag only moves if it agrees.
func (r *Reconciler) ToggleDebug(ctx context.Context, tab *types.EntityID) bool {
	if !r.store.Ready() {
		r.logger.Debug("Store not ready, ignoring debug toggle")
		return false
	}

	unlock, err := r.locks.Lock(ctx, debugKey)
	if err != nil {
		r.logger.Warn("Gave up waiting for debug toggle", zap.Error(err))
		return false
	}
	defer unlock()
	ctx = context.WithoutCancel(ctx)

	if tab != nil && tab.Valid() && !r.actions.ToggleDebug(ctx, *tab) {
		return false
	}

	next := !r.store.DebugMode()
	if !r.persist(types.NoEntity, "debug_mode", r.store.SetDebugMode(ctx, next)) {
		return false
	}
	r.logger.SetDebug(next)
	r.logger.Warn("Debug mode toggled", zap.Bool("debug", next))
	return true
}

// State returns the stored state of tab id
func (r *Reconciler) State(id types.EntityID) types.EntityState {
	return r.store.Get(id)
}

// Ready reports whether the store has loaded
func (r *Reconciler) Ready() bool {
	return r.store.Ready()
}

// Failed reports whether the store gave up loading
func (r *Reconciler) Failed() bool {
	return r.store.Failed()
}

func (r *Reconciler) persist(id types.EntityID, field string, err error) bool {
	if err != nil {
		r.logger.Error("Failed to record tab state",
			zap.Stringer("tab", id),
			zap.String("field", field),
			zap.Error(err))
		return false
	}
	return true
}
