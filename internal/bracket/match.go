package bracket

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchWalkover   MatchStatus = "walkover"
	MatchCancelled  MatchStatus = "cancelled"
)

type Match struct {
	ID        uuid.UUID `db:"id"`
	BracketID uuid.UUID `db:"bracket_id"`

	// Position in the bracket for reconstructing the tree
	RoundNumber int    `db:"round_number"`
	RoundName   string `db:"round_name"`
	MatchOrder  int    `db:"match_order"`

	Slot1ID *uuid.UUID `db:"slot_1_id"`
	Slot2ID *uuid.UUID `db:"slot_2_id"`

	WinnerID      *uuid.UUID  `db:"winner_id"`
	LoserID       *uuid.UUID  `db:"loser_id"`
	Status        MatchStatus `db:"status"`
	ResultSummary *string     `db:"result_summary"`
	IsBye         bool        `db:"is_bye"`

	// Fixed routing, computed once at generation time
	WinnerNextMatchID *uuid.UUID `db:"winner_next_match_id"`
	WinnerNextSlot    *int       `db:"winner_next_slot"`

	LoserNextMatchID *uuid.UUID `db:"loser_next_match_id"`
	LoserNextSlot    *int       `db:"loser_next_slot"`

	CreatedAt time.Time `db:"created_at"`
}

// IsTerminal reports whether the match can no longer change outcome.
func (m *Match) IsTerminal() bool {
	return m.Status == MatchCompleted || m.Status == MatchWalkover || m.Status == MatchCancelled
}

// SlotOf returns which slot the participant occupies, or 0 if neither.
func (m *Match) SlotOf(participantID uuid.UUID) int {
	if m.Slot1ID != nil && *m.Slot1ID == participantID {
		return 1
	}
	if m.Slot2ID != nil && *m.Slot2ID == participantID {
		return 2
	}
	return 0
}

// OpponentOf returns the other filled slot's participant, if any.
func (m *Match) OpponentOf(participantID uuid.UUID) *uuid.UUID {
	switch m.SlotOf(participantID) {
	case 1:
		return m.Slot2ID
	case 2:
		return m.Slot1ID
	}
	return nil
}
