// Package types provides shared data structures for the ad monitor backend.
//
// This package defines the core types passed between the classifier, the
// state store, the reconciler and the transport layers, so that none of
// those packages has to import another just to name an entity or a message.
//
// Core Types:
//   - EntityID: Identifier of a monitored tab
//   - EntityState: Per-tab attribution flags and ad-playing belief
//   - Message: Task-tagged request exchanged with the UI and with tabs
//   - Response: Standard {success} acknowledgement
//
// Example Usage:
//
//	msg := types.Message{Task: types.TaskTogglePlayer, Hide: types.Bool(true)}
//	resp, err := bridge.SendMessage(ctx, tabID, msg)
package types
