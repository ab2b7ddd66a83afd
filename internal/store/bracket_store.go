package store

import (
	"context"

	"github.com/anshumansaged/kyokushin--sub000/internal/bracket"
	"github.com/jmoiron/sqlx"
)

type BracketStore struct {
	db *sqlx.DB
}

func NewBracketStore(db *sqlx.DB) *BracketStore {
	return &BracketStore{db: db}
}

func (s *BracketStore) CreateBracket(ctx context.Context, tx *sqlx.Tx, b *bracket.Bracket) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO brackets
		(id, created_by, category, bracket_type, status, match_duration_secs, extension_secs,
		 allow_extensions, max_extensions, third_place_match, seeded, participant_count)
		VALUES (:id, :created_by, :category, :bracket_type, :status, :match_duration_secs, :extension_secs,
		 :allow_extensions, :max_extensions, :third_place_match, :seeded, :participant_count)`, b)
	return err
}

func (s *BracketStore) UpdateBracketTx(ctx context.Context, tx *sqlx.Tx, b *bracket.Bracket) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE brackets SET
		status = :status,
		seeded = :seeded,
		first_place_id = :first_place_id,
		second_place_id = :second_place_id,
		third_place_id = :third_place_id,
		participant_count = :participant_count,
		completed_at = :completed_at
		WHERE id = :id`, b)
	return err
}

func (s *BracketStore) GetBracket(ctx context.Context, id string) (*bracket.Bracket, error) {
	var b bracket.Bracket
	err := s.db.GetContext(ctx, &b, "SELECT * FROM brackets WHERE id = ?", id)
	return &b, err
}

func (s *BracketStore) GetBracketTx(ctx context.Context, tx *sqlx.Tx, id string) (*bracket.Bracket, error) {
	var b bracket.Bracket
	err := tx.GetContext(ctx, &b, "SELECT * FROM brackets WHERE id = ?", id)
	return &b, err
}

func (s *BracketStore) GetBracketsByCreator(ctx context.Context, creatorID string) ([]bracket.Bracket, error) {
	var brackets []bracket.Bracket
	err := s.db.SelectContext(ctx, &brackets, "SELECT * FROM brackets WHERE created_by = ? ORDER BY created_at DESC", creatorID)
	return brackets, err
}

func (s *BracketStore) CreateParticipants(ctx context.Context, tx *sqlx.Tx, participants []bracket.Participant) error {
	if len(participants) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO participants
		(id, bracket_id, user_id, name, dojo, belt, weight_kg, seed, eliminated, position)
		VALUES (:id, :bracket_id, :user_id, :name, :dojo, :belt, :weight_kg, :seed, :eliminated, :position)`, participants)
	return err
}

func (s *BracketStore) GetParticipants(ctx context.Context, bracketID string) ([]bracket.Participant, error) {
	var participants []bracket.Participant
	err := s.db.SelectContext(ctx, &participants,
		"SELECT * FROM participants WHERE bracket_id = ? ORDER BY seed ASC, name ASC", bracketID)
	return participants, err
}

func (s *BracketStore) GetParticipantsTx(ctx context.Context, tx *sqlx.Tx, bracketID string) ([]bracket.Participant, error) {
	var participants []bracket.Participant
	err := tx.SelectContext(ctx, &participants,
		"SELECT * FROM participants WHERE bracket_id = ? ORDER BY seed ASC, name ASC", bracketID)
	return participants, err
}

func (s *BracketStore) GetParticipantTx(ctx context.Context, tx *sqlx.Tx, id string) (*bracket.Participant, error) {
	var p bracket.Participant
	err := tx.GetContext(ctx, &p, "SELECT * FROM participants WHERE id = ?", id)
	return &p, err
}

func (s *BracketStore) UpdateParticipantTx(ctx context.Context, tx *sqlx.Tx, p *bracket.Participant) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE participants SET
		eliminated = :eliminated,
		position = :position
		WHERE id = :id`, p)
	return err
}

func (s *BracketStore) CreateRounds(ctx context.Context, tx *sqlx.Tx, rounds []bracket.Round) error {
	if len(rounds) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO rounds (id, bracket_id, round_number, name, completed)
		VALUES (:id, :bracket_id, :round_number, :name, :completed)`, rounds)
	return err
}

func (s *BracketStore) GetRounds(ctx context.Context, bracketID string) ([]bracket.Round, error) {
	var rounds []bracket.Round
	err := s.db.SelectContext(ctx, &rounds,
		"SELECT * FROM rounds WHERE bracket_id = ? ORDER BY round_number ASC", bracketID)
	return rounds, err
}

func (s *BracketStore) GetRoundsTx(ctx context.Context, tx *sqlx.Tx, bracketID string) ([]bracket.Round, error) {
	var rounds []bracket.Round
	err := tx.SelectContext(ctx, &rounds,
		"SELECT * FROM rounds WHERE bracket_id = ? ORDER BY round_number ASC", bracketID)
	return rounds, err
}

func (s *BracketStore) UpdateRoundTx(ctx context.Context, tx *sqlx.Tx, r *bracket.Round) error {
	_, err := tx.NamedExecContext(ctx, "UPDATE rounds SET completed = :completed WHERE id = :id", r)
	return err
}

func (s *BracketStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO matches
		(id, bracket_id, round_number, round_name, match_order, slot_1_id, slot_2_id,
		 winner_id, loser_id, status, result_summary, is_bye,
		 winner_next_match_id, winner_next_slot, loser_next_match_id, loser_next_slot)
		VALUES (:id, :bracket_id, :round_number, :round_name, :match_order, :slot_1_id, :slot_2_id,
		 :winner_id, :loser_id, :status, :result_summary, :is_bye,
		 :winner_next_match_id, :winner_next_slot, :loser_next_match_id, :loser_next_slot)`, matches)
	return err
}

// DeleteStructureTx clears the match and round collections for a draft
// regeneration. Participants are kept.
func (s *BracketStore) DeleteStructureTx(ctx context.Context, tx *sqlx.Tx, bracketID string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE bracket_id = ?", bracketID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM rounds WHERE bracket_id = ?", bracketID)
	return err
}

func (s *BracketStore) GetMatch(ctx context.Context, id string) (*bracket.Match, error) {
	var m bracket.Match
	err := s.db.GetContext(ctx, &m, "SELECT * FROM matches WHERE id = ?", id)
	return &m, err
}

func (s *BracketStore) GetMatchTx(ctx context.Context, tx *sqlx.Tx, id string) (*bracket.Match, error) {
	var m bracket.Match
	err := tx.GetContext(ctx, &m, "SELECT * FROM matches WHERE id = ?", id)
	return &m, err
}

func (s *BracketStore) GetMatches(ctx context.Context, bracketID string) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := s.db.SelectContext(ctx, &matches,
		"SELECT * FROM matches WHERE bracket_id = ? ORDER BY round_number ASC, match_order ASC", bracketID)
	return matches, err
}

func (s *BracketStore) GetMatchesTx(ctx context.Context, tx *sqlx.Tx, bracketID string) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := tx.SelectContext(ctx, &matches,
		"SELECT * FROM matches WHERE bracket_id = ? ORDER BY round_number ASC, match_order ASC", bracketID)
	return matches, err
}

func (s *BracketStore) UpdateMatchTx(ctx context.Context, tx *sqlx.Tx, m *bracket.Match) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE matches SET
		slot_1_id = :slot_1_id,
		slot_2_id = :slot_2_id,
		winner_id = :winner_id,
		loser_id = :loser_id,
		status = :status,
		result_summary = :result_summary,
		is_bye = :is_bye
		WHERE id = :id`, m)
	return err
}
