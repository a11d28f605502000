// Package session keeps the snapshots of pipeline runs so callers can poll a
// run started in the background.
//
// Only the in-memory backend exists; runs do not survive a restart.
package session
