package bout

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventStart     EventType = "start"
	EventPause     EventType = "pause"
	EventResume    EventType = "resume"
	EventIppon     EventType = "ippon"
	EventWazaAri   EventType = "waza_ari"
	EventPoint     EventType = "point"
	EventWarning   EventType = "warning"
	EventPenalty   EventType = "penalty"
	EventInjury    EventType = "injury"
	EventMedical   EventType = "medical"
	EventEnd       EventType = "end"
	EventExtension EventType = "extension"
)

// CornerRef widens Corner for events that concern neither or both sides.
type CornerRef string

const (
	CornerRefRed  CornerRef = "red"
	CornerRefBlue CornerRef = "blue"
	CornerRefNone CornerRef = "none"
	CornerRefBoth CornerRef = "both"
)

// Event is one entry in a bout's append-only log. Seq carries the log
// order; ElapsedSecs is fight time at the moment the event was issued.
type Event struct {
	ID          uuid.UUID  `db:"id"`
	BoutID      uuid.UUID  `db:"bout_id"`
	Seq         int        `db:"seq"`
	ElapsedSecs int        `db:"elapsed_secs"`
	Type        EventType  `db:"event_type"`
	Corner      CornerRef  `db:"corner"`
	Technique   *string    `db:"technique"`
	Target      *string    `db:"target"`
	Description *string    `db:"description"`
	OfficialID  *uuid.UUID `db:"official_id"`
	CreatedAt   time.Time  `db:"created_at"`
}
