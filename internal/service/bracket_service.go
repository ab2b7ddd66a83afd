package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/anshumansaged/kyokushin--sub000/internal/bracket"
	"github.com/anshumansaged/kyokushin--sub000/internal/middleware"
	"github.com/anshumansaged/kyokushin--sub000/internal/store"
	"github.com/anshumansaged/kyokushin--sub000/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type BracketService struct {
	db    *sqlx.DB
	store *store.BracketStore
}

func NewBracketService(db *sqlx.DB, store *store.BracketStore) *BracketService {
	return &BracketService{db: db, store: store}
}

type ParticipantInput struct {
	UserID   *uuid.UUID
	Name     string
	Dojo     string
	Belt     string
	WeightKg float64
	Seed     *int
}

type CreateBracketInput struct {
	Category          string
	Type              bracket.BracketType
	MatchDurationSecs int
	ExtensionSecs     int
	AllowExtensions   bool
	MaxExtensions     int
	ThirdPlaceMatch   bool
	Participants      []ParticipantInput
}

type BracketData struct {
	Bracket      *bracket.Bracket
	Participants []bracket.Participant
	Rounds       []bracket.Round
	Matches      []bracket.Match
}

const (
	defaultMatchDurationSecs = 180
	defaultExtensionSecs     = 60
)

func (s *BracketService) CreateBracket(ctx context.Context, input CreateBracketInput) (uuid.UUID, error) {
	if input.Category == "" {
		return uuid.Nil, fmt.Errorf("%w: category is required", bracket.ErrValidation)
	}
	if input.Type == "" {
		input.Type = bracket.SingleElimination
	}
	// Only single elimination exists; the other bracket types declared by
	// the old system were never implemented and are rejected outright.
	if input.Type != bracket.SingleElimination {
		return uuid.Nil, fmt.Errorf("%w: unsupported bracket type %q", bracket.ErrValidation, input.Type)
	}
	if input.MatchDurationSecs == 0 {
		input.MatchDurationSecs = defaultMatchDurationSecs
	}
	if input.MatchDurationSecs < 0 {
		return uuid.Nil, fmt.Errorf("%w: match duration must be positive", bracket.ErrValidation)
	}
	if input.ExtensionSecs == 0 {
		input.ExtensionSecs = defaultExtensionSecs
	}
	for _, p := range input.Participants {
		if p.Name == "" {
			return uuid.Nil, fmt.Errorf("%w: participant name is required", bracket.ErrValidation)
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	bracketID := uuid.New()
	createdBy, _ := middleware.GetUserIDFromContext(ctx)
	b := bracket.Bracket{
		ID:                bracketID,
		CreatedBy:         createdBy,
		Category:          input.Category,
		Type:              input.Type,
		Status:            bracket.BracketDraft,
		MatchDurationSecs: input.MatchDurationSecs,
		ExtensionSecs:     input.ExtensionSecs,
		AllowExtensions:   input.AllowExtensions,
		MaxExtensions:     input.MaxExtensions,
		ThirdPlaceMatch:   input.ThirdPlaceMatch,
		ParticipantCount:  len(input.Participants),
	}

	if err := s.store.CreateBracket(ctx, tx, &b); err != nil {
		return uuid.Nil, err
	}

	var participants []bracket.Participant
	for _, in := range input.Participants {
		participants = append(participants, bracket.Participant{
			ID:        uuid.New(),
			BracketID: bracketID,
			UserID:    in.UserID,
			Name:      in.Name,
			Dojo:      in.Dojo,
			Belt:      in.Belt,
			WeightKg:  in.WeightKg,
			Seed:      in.Seed,
		})
	}

	if err := s.store.CreateParticipants(ctx, tx, participants); err != nil {
		return uuid.Nil, err
	}

	return bracketID, tx.Commit()
}

// GetBracketsForCreator lists the brackets the signed-in official
// created, newest first.
func (s *BracketService) GetBracketsForCreator(ctx context.Context) ([]bracket.Bracket, error) {
	createdBy, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: no authenticated user", bracket.ErrValidation)
	}
	return s.store.GetBracketsByCreator(ctx, createdBy.String())
}

func (s *BracketService) GetBracketData(ctx context.Context, id string) (*BracketData, error) {
	b, err := s.store.GetBracket(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bracket.ErrBracketNotFound
		}
		return nil, err
	}

	participants, err := s.store.GetParticipants(ctx, id)
	if err != nil {
		return nil, err
	}

	rounds, err := s.store.GetRounds(ctx, id)
	if err != nil {
		return nil, err
	}

	matches, err := s.store.GetMatches(ctx, id)
	if err != nil {
		return nil, err
	}

	return &BracketData{
		Bracket:      b,
		Participants: participants,
		Rounds:       rounds,
		Matches:      matches,
	}, nil
}

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func calcBracketSize(count int) int {
	if count <= 0 {
		return 0
	}

	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

// generateRound1Pairs lays standard seed order onto the first round:
// for 8 slots the pairs come out {0,7} {3,4} {1,6} {2,5}, so the top two
// seeds can only meet in the final. Indexes at or beyond the participant
// count are byes.
func generateRound1Pairs(bracketSize int) [][2]int {
	if bracketSize == 0 {
		return [][2]int{}
	}

	rounds := []int{0}
	for len(rounds) < bracketSize {
		var nextRound []int
		currentCount := len(rounds) * 2

		for _, seed := range rounds {
			nextRound = append(nextRound, seed)
			nextRound = append(nextRound, (currentCount-1)-seed)
		}
		rounds = nextRound
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(rounds); i += 2 {
		matchup := [2]int{rounds[i], rounds[i+1]}
		pairs = append(pairs, matchup)
	}

	return pairs
}

// buildSingleElimMatches creates the full match tree with fixed winner
// routing. Built from the last round backwards so every match already
// knows the id of the match its winner feeds.
func buildSingleElimMatches(bracketID uuid.UUID, bracketSize int) []bracket.Match {
	var matches []bracket.Match
	totalRounds := int(math.Log2(float64(bracketSize)))

	nextRoundMatchIDs := make(map[int]uuid.UUID)

	for r := totalRounds; r >= 1; r-- {
		matchesInCurrentRound := int(math.Pow(2, float64(totalRounds-r)))
		currentRoundMatchIDs := make(map[int]uuid.UUID)

		for i := 0; i < matchesInCurrentRound; i++ {
			matchID := uuid.New()
			matchOrder := i + 1

			m := bracket.Match{
				ID:          matchID,
				BracketID:   bracketID,
				RoundNumber: r,
				RoundName:   bracket.RoundName(r, totalRounds),
				MatchOrder:  matchOrder,
				Status:      bracket.MatchPending,
			}

			if r < totalRounds {
				parentMatchOrder := (matchOrder + 1) / 2
				parentID := nextRoundMatchIDs[parentMatchOrder]

				m.WinnerNextMatchID = &parentID

				if matchOrder%2 != 0 {
					m.WinnerNextSlot = utils.Ptr(1)
				} else {
					m.WinnerNextSlot = utils.Ptr(2)
				}
			}

			matches = append(matches, m)
			currentRoundMatchIDs[matchOrder] = matchID
		}
		nextRoundMatchIDs = currentRoundMatchIDs
	}

	return matches
}

// orderForDraw returns participants in slot order. When every entry has
// an assigned seed the order is by seed and reproducible; otherwise the
// draw is randomized and deliberately not reproducible across runs, which
// the returned flag reports.
func orderForDraw(participants []bracket.Participant) ([]bracket.Participant, bool) {
	ordered := make([]bracket.Participant, len(participants))
	copy(ordered, participants)

	allSeeded := true
	for _, p := range ordered {
		if p.Seed == nil {
			allSeeded = false
			break
		}
	}

	if allSeeded {
		// GetParticipants already orders by seed, keep it
		return ordered, true
	}

	rand.Shuffle(len(ordered), func(i, j int) {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	})
	return ordered, false
}

// GenerateBracket draws the single-elimination tree for a draft bracket.
// Only drafts can be (re)drawn: generation completes bye matches on the
// spot, so once a structure exists a redraw would destroy recorded
// results and is rejected.
func (s *BracketService) GenerateBracket(ctx context.Context, bracketID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	b, err := s.store.GetBracketTx(ctx, tx, bracketID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bracket.ErrBracketNotFound
		}
		return err
	}

	if b.Status != bracket.BracketDraft {
		return fmt.Errorf("%w: cannot regenerate a bracket that is %s", bracket.ErrInvalidStateTransition, b.Status)
	}

	participants, err := s.store.GetParticipantsTx(ctx, tx, bracketID.String())
	if err != nil {
		return err
	}
	if len(participants) < bracket.MinParticipants {
		return fmt.Errorf("%w: got %d", bracket.ErrInsufficientParticipants, len(participants))
	}

	if err := s.store.DeleteStructureTx(ctx, tx, bracketID.String()); err != nil {
		return err
	}

	ordered, seeded := orderForDraw(participants)

	bracketSize := calcBracketSize(len(ordered))
	totalRounds := int(math.Log2(float64(bracketSize)))

	matches := buildSingleElimMatches(bracketID, bracketSize)

	// Bronze match between the two semifinal losers. Appended to the
	// penultimate round; brackets of 2 have no semifinals to lose.
	if b.ThirdPlaceMatch && bracketSize >= 4 {
		third := bracket.Match{
			ID:          uuid.New(),
			BracketID:   bracketID,
			RoundNumber: totalRounds - 1,
			RoundName:   bracket.ThirdPlaceName,
			MatchOrder:  3,
			Status:      bracket.MatchPending,
		}
		for i := range matches {
			m := &matches[i]
			if m.RoundNumber == totalRounds-1 {
				m.LoserNextMatchID = utils.Ptr(third.ID)
				m.LoserNextSlot = utils.Ptr(m.MatchOrder)
			}
		}
		matches = append(matches, third)
	}

	matchMap := make(map[uuid.UUID]*bracket.Match)
	for i := range matches {
		matchMap[matches[i].ID] = &matches[i]
	}

	round1Matches := make([]*bracket.Match, 0)
	for i := range matches {
		if matches[i].RoundNumber == 1 && matches[i].RoundName != bracket.ThirdPlaceName {
			round1Matches = append(round1Matches, &matches[i])
		}
	}

	pairings := generateRound1Pairs(bracketSize)
	for i, pair := range pairings {
		if i >= len(round1Matches) {
			break
		}
		match := round1Matches[i]
		if pair[0] < len(ordered) {
			match.Slot1ID = &ordered[pair[0]].ID
		}
		if pair[1] < len(ordered) {
			match.Slot2ID = &ordered[pair[1]].ID
		}

		// A half-empty pair is a bye: declare the walkover winner now and
		// push them into the next round without live play
		if match.Slot1ID != nil && match.Slot2ID == nil {
			declareBye(match, matchMap, *match.Slot1ID)
		} else if match.Slot1ID == nil && match.Slot2ID != nil {
			declareBye(match, matchMap, *match.Slot2ID)
		}
	}

	var rounds []bracket.Round
	for r := 1; r <= totalRounds; r++ {
		rounds = append(rounds, bracket.Round{
			ID:        uuid.New(),
			BracketID: bracketID,
			Number:    r,
			Name:      bracket.RoundName(r, totalRounds),
		})
	}

	if err := s.store.CreateMatches(ctx, tx, matches); err != nil {
		return err
	}
	if err := s.store.CreateRounds(ctx, tx, rounds); err != nil {
		return err
	}

	b.Status = bracket.BracketGenerated
	b.Seeded = seeded
	b.ParticipantCount = len(ordered)
	if err := s.store.UpdateBracketTx(ctx, tx, b); err != nil {
		return err
	}

	return tx.Commit()
}

func declareBye(m *bracket.Match, matchMap map[uuid.UUID]*bracket.Match, winnerID uuid.UUID) {
	m.IsBye = true
	m.Status = bracket.MatchCompleted
	m.WinnerID = &winnerID
	m.ResultSummary = utils.Ptr("walkover")

	if m.WinnerNextMatchID == nil || m.WinnerNextSlot == nil {
		return
	}
	nextMatch, ok := matchMap[*m.WinnerNextMatchID]
	if !ok {
		return
	}
	if *m.WinnerNextSlot == 1 {
		nextMatch.Slot1ID = &winnerID
	} else {
		nextMatch.Slot2ID = &winnerID
	}
}
