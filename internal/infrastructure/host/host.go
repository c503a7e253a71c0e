// Package host defines how the backend reaches the browser: reading and
// changing a tab's audio state and exchanging task messages with the
// in-page handler of a tab.
//
// The browser side is a small extension shim. It either holds a websocket
// open to the backend (see api/ws) or serves the same commands over HTTP
// (see hostclient). Both speak the Command/Reply shapes defined here.
package host

import (
	"context"
	"errors"

	"github.com/GriffinCanCode/AdMonitor/internal/shared/types"
)

var (
	ErrEntityNotFound = errors.New("entity not found")
	ErrNotConnected   = errors.New("host bridge not connected")
	ErrNoResponse     = errors.New("no response from entity handler")
)

// Mute reasons as reported by the browser
const (
	ReasonUser      = "user"
	ReasonExtension = "extension"
	ReasonCapture   = "capture"
)

// MutedInfo is a tab's real audio state
type MutedInfo struct {
	Muted  bool   `json:"muted"`
	Reason string `json:"reason,omitempty"`
}

// UserMuted reports whether the user, not an extension, muted the tab
func (m MutedInfo) UserMuted() bool {
	return m.Muted && m.Reason == ReasonUser
}

// Tab is what the browser reports about a tab
type Tab struct {
	ID        types.EntityID `json:"id"`
	MutedInfo MutedInfo      `json:"mutedInfo"`
}

// Bridge is the browser surface the action gateway drives
type Bridge interface {
	GetTab(ctx context.Context, id types.EntityID) (*Tab, error)
	SetMuted(ctx context.Context, id types.EntityID, muted bool) error
	SendMessage(ctx context.Context, id types.EntityID, msg types.Message) (*types.Response, error)
}

// Command methods
const (
	MethodGetTab      = "tabs.get"
	MethodUpdate      = "tabs.update"
	MethodSendMessage = "tabs.sendMessage"
)

// Command is one request to the browser shim
type Command struct {
	ID      string         `json:"id"`
	Method  string         `json:"method"`
	TabID   types.EntityID `json:"tabId"`
	Muted   *bool          `json:"muted,omitempty"`
	Message *types.Message `json:"message,omitempty"`
	TraceID string         `json:"traceId,omitempty"`
}

// Reply answers a Command with the same ID
type Reply struct {
	ID       string          `json:"id"`
	Tab      *Tab            `json:"tab,omitempty"`
	Response *types.Response `json:"response,omitempty"`
	NotFound bool            `json:"notFound,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Err converts the reply's failure fields into an error
func (r *Reply) Err() error {
	switch {
	case r.NotFound:
		return ErrEntityNotFound
	case r.Error != "":
		return errors.New(r.Error)
	}
	return nil
}

// Decode interprets a reply for the method that produced it
func Decode(method string, r *Reply) (*Tab, *types.Response, error) {
	if err := r.Err(); err != nil {
		return nil, nil, err
	}
	switch method {
	case MethodGetTab:
		if r.Tab == nil {
			return nil, nil, ErrEntityNotFound
		}
		return r.Tab, nil, nil
	case MethodSendMessage:
		if r.Response == nil {
			return nil, nil, ErrNoResponse
		}
		return nil, r.Response, nil
	}
	return nil, nil, nil
}
