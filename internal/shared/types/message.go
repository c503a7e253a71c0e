package types

// Protocol tasks
const (
	TaskLog          = "log"
	TaskToggleDebug  = "toggleDebug"
	TaskToggleMute   = "toggleMute"
	TaskTogglePlayer = "togglePlayer"
)

// Message is a task-tagged request. The UI sends these to the backend and
// the backend sends toggleDebug/togglePlayer to a tab's in-page handler.
type Message struct {
	Task  string    `json:"task"`
	TabID *EntityID `json:"tabId,omitempty"`
	Hide  *bool     `json:"hide,omitempty"`
}

// Response is the standard acknowledgement for toggle tasks
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Bool returns a pointer to b
func Bool(b bool) *bool {
	return &b
}

// Entity returns a pointer to id
func Entity(id EntityID) *EntityID {
	return &id
}
