package bout

import (
	"time"

	"github.com/google/uuid"
)

type TimerStatus string

const (
	TimerNotStarted TimerStatus = "not_started"
	TimerRunning    TimerStatus = "running"
	TimerPaused     TimerStatus = "paused"
	TimerExtension  TimerStatus = "extension"
	TimerFinished   TimerStatus = "finished"
)

// Extension is one granted block of extra time, kept in grant order.
type Extension struct {
	ID           uuid.UUID  `db:"id"`
	BoutID       uuid.UUID  `db:"bout_id"`
	Seq          int        `db:"seq"`
	DurationSecs int        `db:"duration_secs"`
	Reason       string     `db:"reason"`
	StartTime    *time.Time `db:"start_time"`
	EndTime      *time.Time `db:"end_time"`
}

// ElapsedSecs returns fight time in whole seconds at the given instant.
// Accumulated paused time is excluded, so the value freezes while the
// bout is paused and across pause/resume cycles.
func (b *Bout) ElapsedSecs(now time.Time) int {
	if b.StartTime == nil {
		return 0
	}
	ref := now
	if b.EndTime != nil {
		ref = *b.EndTime
	} else if b.PausedAt != nil {
		ref = *b.PausedAt
	}
	elapsed := int(ref.Sub(*b.StartTime).Seconds()) - b.PausedSecs
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// TimeRemainingSecs derives the clock value on read. It is never ticked
// by a background task and may reach zero without ending the bout; ending
// is always an explicit operation.
func (b *Bout) TimeRemainingSecs(now time.Time, extensionSecs int) int {
	remaining := b.DurationSecs + extensionSecs - b.ElapsedSecs(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
