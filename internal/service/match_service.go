package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anshumansaged/kyokushin--sub000/internal/bracket"
	"github.com/anshumansaged/kyokushin--sub000/internal/store"
	"github.com/anshumansaged/kyokushin--sub000/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchService struct {
	db    *sqlx.DB
	store *store.BracketStore
}

func NewMatchService(db *sqlx.DB, store *store.BracketStore) *MatchService {
	return &MatchService{db: db, store: store}
}

// AdvanceWinner records the outcome of a match and routes the winner
// (and, for semifinals feeding a bronze match, the loser) through the
// fixed routing computed at generation time. Runs in one transaction so
// two matches of the same bracket completing concurrently cannot race on
// a shared next-round match.
func (s *MatchService) AdvanceWinner(ctx context.Context, matchID uuid.UUID, winnerID uuid.UUID) (uuid.UUID, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	m, err := s.advanceWinnerTx(ctx, tx, matchID, winnerID, nil, bracket.MatchCompleted)
	if err != nil {
		return uuid.Nil, err
	}

	return m.BracketID, tx.Commit()
}

// DeclareWalkover resolves a match without live play: the named
// participant advances and the match is marked a walkover. Used when an
// opponent withdraws or fails to appear.
func (s *MatchService) DeclareWalkover(ctx context.Context, matchID uuid.UUID, winnerID uuid.UUID) (uuid.UUID, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	m, err := s.advanceWinnerTx(ctx, tx, matchID, winnerID, utils.Ptr("walkover"), bracket.MatchWalkover)
	if err != nil {
		return uuid.Nil, err
	}

	return m.BracketID, tx.Commit()
}

func (s *MatchService) GetMatch(ctx context.Context, id string) (*bracket.Match, error) {
	m, err := s.store.GetMatch(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bracket.ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

// CheckBracketCompletion re-runs the completion check for a bracket.
// Advancement already runs it after every call; this exists for callers
// that want to force a re-evaluation.
func (s *MatchService) CheckBracketCompletion(ctx context.Context, bracketID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.checkCompletionTx(ctx, tx, bracketID); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *MatchService) advanceWinnerTx(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID, winnerID uuid.UUID, summary *string, status bracket.MatchStatus) (*bracket.Match, error) {
	m, err := s.store.GetMatchTx(ctx, tx, matchID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bracket.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	if m.IsTerminal() {
		return nil, fmt.Errorf("%w: match is already %s", bracket.ErrInvalidStateTransition, m.Status)
	}

	if m.SlotOf(winnerID) == 0 {
		return nil, bracket.ErrInvalidWinner
	}

	m.WinnerID = &winnerID
	m.LoserID = m.OpponentOf(winnerID)
	m.Status = status
	if summary != nil {
		m.ResultSummary = summary
	}

	if err := s.store.UpdateMatchTx(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}

	if m.WinnerNextMatchID != nil && m.WinnerNextSlot != nil {
		if err := s.fillSlotTx(ctx, tx, *m.WinnerNextMatchID, *m.WinnerNextSlot, winnerID); err != nil {
			return nil, err
		}
	}

	if m.LoserID != nil {
		if m.LoserNextMatchID != nil && m.LoserNextSlot != nil {
			if err := s.fillSlotTx(ctx, tx, *m.LoserNextMatchID, *m.LoserNextSlot, *m.LoserID); err != nil {
				return nil, err
			}
		} else {
			if err := s.markEliminatedTx(ctx, tx, *m.LoserID, nil); err != nil {
				return nil, err
			}
		}
	}

	if err := s.refreshRoundsTx(ctx, tx, m.BracketID); err != nil {
		return nil, err
	}

	if err := s.checkCompletionTx(ctx, tx, m.BracketID); err != nil {
		return nil, err
	}

	return m, nil
}

func (s *MatchService) fillSlotTx(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID, slot int, participantID uuid.UUID) error {
	next, err := s.store.GetMatchTx(ctx, tx, matchID.String())
	if err != nil {
		return fmt.Errorf("failed to get next match: %w", err)
	}

	switch slot {
	case 1:
		next.Slot1ID = &participantID
	case 2:
		next.Slot2ID = &participantID
	}

	if err := s.store.UpdateMatchTx(ctx, tx, next); err != nil {
		return fmt.Errorf("failed to update next match: %w", err)
	}
	return nil
}

func (s *MatchService) markEliminatedTx(ctx context.Context, tx *sqlx.Tx, participantID uuid.UUID, position *int) error {
	p, err := s.store.GetParticipantTx(ctx, tx, participantID.String())
	if err != nil {
		return fmt.Errorf("failed to get participant: %w", err)
	}
	p.Eliminated = true
	if position != nil {
		p.Position = position
	}
	return s.store.UpdateParticipantTx(ctx, tx, p)
}

func (s *MatchService) setPositionTx(ctx context.Context, tx *sqlx.Tx, participantID uuid.UUID, position int) error {
	p, err := s.store.GetParticipantTx(ctx, tx, participantID.String())
	if err != nil {
		return fmt.Errorf("failed to get participant: %w", err)
	}
	p.Position = &position
	return s.store.UpdateParticipantTx(ctx, tx, p)
}

// refreshRoundsTx recomputes each round's completed flag from its
// matches. A round is complete once every match in it is terminal.
func (s *MatchService) refreshRoundsTx(ctx context.Context, tx *sqlx.Tx, bracketID uuid.UUID) error {
	matches, err := s.store.GetMatchesTx(ctx, tx, bracketID.String())
	if err != nil {
		return err
	}
	rounds, err := s.store.GetRoundsTx(ctx, tx, bracketID.String())
	if err != nil {
		return err
	}

	terminalByRound := make(map[int]bool)
	for _, r := range rounds {
		terminalByRound[r.Number] = true
	}
	for _, m := range matches {
		if !m.IsTerminal() {
			terminalByRound[m.RoundNumber] = false
		}
	}

	for i := range rounds {
		r := &rounds[i]
		if r.Completed != terminalByRound[r.Number] {
			r.Completed = terminalByRound[r.Number]
			if err := s.store.UpdateRoundTx(ctx, tx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkCompletionTx finishes the bracket once the final, and the third
// place match when one exists, are decided: it records placements and
// the completion time.
func (s *MatchService) checkCompletionTx(ctx context.Context, tx *sqlx.Tx, bracketID uuid.UUID) error {
	b, err := s.store.GetBracketTx(ctx, tx, bracketID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bracket.ErrBracketNotFound
		}
		return err
	}
	if b.Status == bracket.BracketCompleted {
		return nil
	}

	matches, err := s.store.GetMatchesTx(ctx, tx, bracketID.String())
	if err != nil {
		return err
	}

	var final, third *bracket.Match
	semisTerminal := true
	for i := range matches {
		m := &matches[i]
		switch m.RoundName {
		case "Final":
			final = m
		case bracket.ThirdPlaceName:
			third = m
		default:
			if m.LoserNextMatchID != nil && !m.IsTerminal() {
				semisTerminal = false
			}
		}
	}

	if final == nil || !final.IsTerminal() {
		return nil
	}

	// A semifinal bye never produces a loser, which can leave the bronze
	// match short of fighters. Once both semifinals are decided, resolve
	// it as a walkover for whoever is present, or cancel it when empty.
	if third != nil && !third.IsTerminal() && semisTerminal {
		switch {
		case third.Slot1ID != nil && third.Slot2ID != nil:
			// Both fighters present, waiting on the bout
			return nil
		case third.Slot1ID != nil:
			third.WinnerID = third.Slot1ID
			third.Status = bracket.MatchWalkover
			third.ResultSummary = utils.Ptr("walkover")
		case third.Slot2ID != nil:
			third.WinnerID = third.Slot2ID
			third.Status = bracket.MatchWalkover
			third.ResultSummary = utils.Ptr("walkover")
		default:
			third.Status = bracket.MatchCancelled
		}
		if err := s.store.UpdateMatchTx(ctx, tx, third); err != nil {
			return err
		}
	}

	if third != nil && !third.IsTerminal() {
		return nil
	}

	b.Status = bracket.BracketCompleted
	b.FirstPlaceID = final.WinnerID
	b.SecondPlaceID = final.LoserID
	if third != nil {
		b.ThirdPlaceID = third.WinnerID
	}
	b.CompletedAt = utils.Ptr(time.Now().UTC())

	if err := s.store.UpdateBracketTx(ctx, tx, b); err != nil {
		return err
	}

	if b.FirstPlaceID != nil {
		if err := s.setPositionTx(ctx, tx, *b.FirstPlaceID, 1); err != nil {
			return err
		}
	}
	if b.SecondPlaceID != nil {
		if err := s.setPositionTx(ctx, tx, *b.SecondPlaceID, 2); err != nil {
			return err
		}
	}
	if b.ThirdPlaceID != nil {
		if err := s.setPositionTx(ctx, tx, *b.ThirdPlaceID, 3); err != nil {
			return err
		}
	}

	return nil
}
