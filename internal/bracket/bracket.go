package bracket

import (
	"time"

	"github.com/google/uuid"
)

type BracketStatus string

const (
	BracketDraft      BracketStatus = "draft"
	BracketGenerated  BracketStatus = "generated"
	BracketInProgress BracketStatus = "in_progress"
	BracketCompleted  BracketStatus = "completed"
)

type BracketType string

const (
	SingleElimination BracketType = "single"
)

type Bracket struct {
	ID        uuid.UUID     `db:"id"`
	CreatedBy uuid.UUID     `db:"created_by"`
	Category  string        `db:"category"`
	Type      BracketType   `db:"bracket_type"`
	Status    BracketStatus `db:"status"`

	// Settings, fixed at creation
	MatchDurationSecs int  `db:"match_duration_secs"`
	ExtensionSecs     int  `db:"extension_secs"`
	AllowExtensions   bool `db:"allow_extensions"`
	MaxExtensions     int  `db:"max_extensions"`
	ThirdPlaceMatch   bool `db:"third_place_match"`

	// False when the draw was randomized, so callers know the
	// slot order is not reproducible
	Seeded bool `db:"seeded"`

	// Final results, set once the bracket completes
	FirstPlaceID     *uuid.UUID `db:"first_place_id"`
	SecondPlaceID    *uuid.UUID `db:"second_place_id"`
	ThirdPlaceID     *uuid.UUID `db:"third_place_id"`
	ParticipantCount int        `db:"participant_count"`
	CompletedAt      *time.Time `db:"completed_at"`

	CreatedAt time.Time `db:"created_at"`
}

// MinParticipants is the smallest field a bracket can be generated for.
const MinParticipants = 2
