package bracket

import (
	"fmt"

	"github.com/google/uuid"
)

type Round struct {
	ID        uuid.UUID `db:"id"`
	BracketID uuid.UUID `db:"bracket_id"`
	Number    int       `db:"round_number"`
	Name      string    `db:"name"`

	// True once every match in the round is completed or cancelled
	Completed bool `db:"completed"`
}

// RoundName returns the display name for a round given the total number
// of rounds in the bracket.
func RoundName(round, totalRounds int) string {
	switch {
	case round == totalRounds:
		return "Final"
	case round == totalRounds-1:
		return "Semi-Final"
	case round == totalRounds-2:
		return "Quarter-Final"
	case round == 1:
		return "First Round"
	default:
		return fmt.Sprintf("Round %d", round)
	}
}

// ThirdPlaceName is the round name carried by the bronze match appended
// to the penultimate round.
const ThirdPlaceName = "Third Place"
