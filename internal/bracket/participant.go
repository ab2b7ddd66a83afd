package bracket

import "github.com/google/uuid"

// Participant is one fighter registered into a bracket. The display fields
// are a snapshot taken from the registration record at bracket creation;
// they are never refreshed once a match involving the participant starts.
type Participant struct {
	ID        uuid.UUID  `db:"id"`
	BracketID uuid.UUID  `db:"bracket_id"`
	UserID    *uuid.UUID `db:"user_id"`

	Name     string  `db:"name"`
	Dojo     string  `db:"dojo"`
	Belt     string  `db:"belt"`
	WeightKg float64 `db:"weight_kg"`

	// Nil when the participant entered without an assigned seed
	Seed *int `db:"seed"`

	Eliminated bool `db:"eliminated"`
	Position   *int `db:"position"`
}
