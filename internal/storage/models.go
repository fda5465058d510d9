package storage

import (
	"encoding/json"
	"time"
)

// SnapshotRecord is the latest known state of one data source. Payload holds
// the last good snapshot and survives later failures; Error is the message
// of the most recent failed poll, nil once the source recovers.
type SnapshotRecord struct {
	Source    string
	Payload   json.RawMessage
	FetchedAt *time.Time
	Error     *string
	Failures  int
	UpdatedAt time.Time
}

// Healthy reports whether the last poll succeeded.
func (r SnapshotRecord) Healthy() bool {
	return r.Error == nil && r.FetchedAt != nil
}
