// Package ingest turns intercepted request records into classified batches
// for the reconciler. Records that are not POSTs to a watched origin, carry
// no tab, or have no body are dropped before any classification work.
package ingest
