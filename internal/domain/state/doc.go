// Package state holds the durable per-tab state the reconciler acts on.
//
// A Store keeps four maps keyed by tab id (muted, hidden, playingAds,
// startTime) plus the global debugMode flag. Every mutation writes the
// whole affected map through to a Backend before returning, so a process
// that is suspended and resumed keeps track of which tabs it is holding
// muted or hidden.
//
// A Store is not ready until Initialize has loaded every key from the
// backend. Callers must check Ready before trusting what Get returns.
package state
