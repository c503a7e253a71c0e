// Package hosttest provides an in-memory host.Bridge for tests
package hosttest

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/host"
	"github.com/GriffinCanCode/AdMonitor/internal/shared/types"
)

// Fake is a scriptable browser. Tabs must be added before use; unknown
// tabs answer ErrEntityNotFound.
type Fake struct {
	mu       sync.Mutex
	tabs     map[types.EntityID]*host.MutedInfo
	hidden   map[types.EntityID]bool
	debug    map[types.EntityID]bool
	messages []types.Message

	// Hooks let tests inject failures or delays. A nil hook means default behaviour.
	GetTabHook      func(ctx context.Context, id types.EntityID) error
	SetMutedHook    func(ctx context.Context, id types.EntityID, muted bool) error
	SendMessageHook func(ctx context.Context, id types.EntityID, msg types.Message) (*types.Response, error)
}

// New creates a fake with the given tabs, all unmuted
func New(ids ...types.EntityID) *Fake {
	f := &Fake{
		tabs:   map[types.EntityID]*host.MutedInfo{},
		hidden: map[types.EntityID]bool{},
		debug:  map[types.EntityID]bool{},
	}
	for _, id := range ids {
		f.AddTab(id)
	}
	return f
}

// AddTab registers an unmuted tab
func (f *Fake) AddTab(id types.EntityID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tabs[id] = &host.MutedInfo{}
}

// CloseTab forgets a tab, as if the user closed it
func (f *Fake) CloseTab(id types.EntityID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tabs, id)
}

// UserMute mutes a tab as the user would
func (f *Fake) UserMute(id types.EntityID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info, ok := f.tabs[id]; ok {
		*info = host.MutedInfo{Muted: true, Reason: host.ReasonUser}
	}
}

// Muted reports a tab's real audio state
func (f *Fake) Muted(id types.EntityID) host.MutedInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info, ok := f.tabs[id]; ok {
		return *info
	}
	return host.MutedInfo{}
}

// Hidden reports whether the tab's player is hidden
func (f *Fake) Hidden(id types.EntityID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hidden[id]
}

// Debug reports the tab handler's debug flag
func (f *Fake) Debug(id types.EntityID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.debug[id]
}

// Messages returns every message delivered to any tab
func (f *Fake) Messages() []types.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Message(nil), f.messages...)
}

// GetTab implements host.Bridge
func (f *Fake) GetTab(ctx context.Context, id types.EntityID) (*host.Tab, error) {
	if f.GetTabHook != nil {
		if err := f.GetTabHook(ctx, id); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.tabs[id]
	if !ok {
		return nil, host.ErrEntityNotFound
	}
	return &host.Tab{ID: id, MutedInfo: *info}, nil
}

// SetMuted implements host.Bridge
func (f *Fake) SetMuted(ctx context.Context, id types.EntityID, muted bool) error {
	if f.SetMutedHook != nil {
		if err := f.SetMutedHook(ctx, id, muted); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.tabs[id]
	if !ok {
		return host.ErrEntityNotFound
	}
	if muted {
		*info = host.MutedInfo{Muted: true, Reason: host.ReasonExtension}
	} else {
		*info = host.MutedInfo{}
	}
	return nil
}

// SendMessage implements host.Bridge with a handler that understands
// togglePlayer and toggleDebug.
func (f *Fake) SendMessage(ctx context.Context, id types.EntityID, msg types.Message) (*types.Response, error) {
	if f.SendMessageHook != nil {
		return f.SendMessageHook(ctx, id, msg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tabs[id]; !ok {
		return nil, host.ErrEntityNotFound
	}
	f.messages = append(f.messages, msg)

	switch msg.Task {
	case types.TaskTogglePlayer:
		hide := !f.hidden[id]
		if msg.Hide != nil {
			hide = *msg.Hide
		}
		f.hidden[id] = hide
		return &types.Response{Success: true}, nil
	case types.TaskToggleDebug:
		f.debug[id] = !f.debug[id]
		return &types.Response{Success: true}, nil
	default:
		return &types.Response{Success: false, Message: "Unknown task " + msg.Task}, nil
	}
}
