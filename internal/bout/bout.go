package bout

import (
	"time"

	"github.com/anshumansaged/kyokushin--sub000/internal/rules"
	"github.com/google/uuid"
)

type BoutStatus string

const (
	BoutScheduled  BoutStatus = "scheduled"
	BoutReady      BoutStatus = "ready"
	BoutInProgress BoutStatus = "in_progress"
	BoutPaused     BoutStatus = "paused"
	BoutCompleted  BoutStatus = "completed"
	BoutCancelled  BoutStatus = "cancelled"
	BoutPostponed  BoutStatus = "postponed"
)

type Corner string

const (
	CornerRed  Corner = "red"
	CornerBlue Corner = "blue"
)

// Opposite returns the other corner.
func (c Corner) Opposite() Corner {
	if c == CornerRed {
		return CornerBlue
	}
	return CornerRed
}

func (c Corner) Valid() bool {
	return c == CornerRed || c == CornerBlue
}

// Bout is one live, timed, refereed match. It owns its timer, tallies and
// event log; the bracket match it reports into is held only by reference.
type Bout struct {
	ID        uuid.UUID `db:"id"`
	BracketID uuid.UUID `db:"bracket_id"`
	MatchID   uuid.UUID `db:"match_id"`

	// Copied from the bracket at creation
	Category    string `db:"category"`
	RoundNumber int    `db:"round_number"`
	RoundName   string `db:"round_name"`

	// Red corner
	RedParticipantID uuid.UUID `db:"red_participant_id"`
	RedName          string    `db:"red_name"`
	RedDojo          string    `db:"red_dojo"`
	RedBelt          string    `db:"red_belt"`

	// Blue corner
	BlueParticipantID uuid.UUID `db:"blue_participant_id"`
	BlueName          string    `db:"blue_name"`
	BlueDojo          string    `db:"blue_dojo"`
	BlueBelt          string    `db:"blue_belt"`

	// Officials. The referee is required, the rest are optional.
	RefereeID    uuid.UUID  `db:"referee_id"`
	Judge1ID     *uuid.UUID `db:"judge_1_id"`
	Judge2ID     *uuid.UUID `db:"judge_2_id"`
	TimekeeperID *uuid.UUID `db:"timekeeper_id"`
	RecorderID   *uuid.UUID `db:"recorder_id"`

	// Timer sub-record
	DurationSecs int         `db:"duration_secs"`
	StartTime    *time.Time  `db:"start_time"`
	EndTime      *time.Time  `db:"end_time"`
	PausedAt     *time.Time  `db:"paused_at"`
	PausedSecs   int         `db:"paused_secs"`
	TimerStatus  TimerStatus `db:"timer_status"`

	// Scoring tallies per corner
	RedIppon      int `db:"red_ippon"`
	RedWazaAri    int `db:"red_waza_ari"`
	RedPoints     int `db:"red_points"`
	RedWarnings   int `db:"red_warnings"`
	RedPenalties  int `db:"red_penalties"`
	BlueIppon     int `db:"blue_ippon"`
	BlueWazaAri   int `db:"blue_waza_ari"`
	BluePoints    int `db:"blue_points"`
	BlueWarnings  int `db:"blue_warnings"`
	BluePenalties int `db:"blue_penalties"`

	// Fouls recorded against each corner, newline separated
	RedFouls  string `db:"red_fouls"`
	BlueFouls string `db:"blue_fouls"`

	// Result, nil fields until terminal
	WinnerCorner       *Corner    `db:"winner_corner"`
	WinnerID           *uuid.UUID `db:"winner_id"`
	LoserID            *uuid.UUID `db:"loser_id"`
	Method             *string    `db:"method"`
	Notes              *string    `db:"notes"`
	ResultDurationSecs *int       `db:"result_duration_secs"`
	RedScoreLine       *string    `db:"red_score_line"`
	BlueScoreLine      *string    `db:"blue_score_line"`

	Status BoutStatus `db:"status"`

	// Bumped on every committed mutation; lost updates surface as
	// ErrConcurrencyConflict
	Version int `db:"version"`

	CreatedAt time.Time `db:"created_at"`
}

// IsTerminal reports whether the bout rejects all further operations.
func (b *Bout) IsTerminal() bool {
	return b.Status == BoutCompleted || b.Status == BoutCancelled || b.Status == BoutPostponed
}

// Tally returns the scoring tally for one corner.
func (b *Bout) Tally(c Corner) rules.Tally {
	if c == CornerRed {
		return rules.Tally{
			Ippon:     b.RedIppon,
			WazaAri:   b.RedWazaAri,
			Points:    b.RedPoints,
			Warnings:  b.RedWarnings,
			Penalties: b.RedPenalties,
		}
	}
	return rules.Tally{
		Ippon:     b.BlueIppon,
		WazaAri:   b.BlueWazaAri,
		Points:    b.BluePoints,
		Warnings:  b.BlueWarnings,
		Penalties: b.BluePenalties,
	}
}

// SetTally writes a tally back onto the corner's columns.
func (b *Bout) SetTally(c Corner, t rules.Tally) {
	if c == CornerRed {
		b.RedIppon = t.Ippon
		b.RedWazaAri = t.WazaAri
		b.RedPoints = t.Points
		b.RedWarnings = t.Warnings
		b.RedPenalties = t.Penalties
		return
	}
	b.BlueIppon = t.Ippon
	b.BlueWazaAri = t.WazaAri
	b.BluePoints = t.Points
	b.BlueWarnings = t.Warnings
	b.BluePenalties = t.Penalties
}

// ParticipantFor maps a corner to the participant fighting out of it.
func (b *Bout) ParticipantFor(c Corner) uuid.UUID {
	if c == CornerRed {
		return b.RedParticipantID
	}
	return b.BlueParticipantID
}
