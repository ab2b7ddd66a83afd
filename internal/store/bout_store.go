package store

import (
	"context"
	"time"

	"github.com/anshumansaged/kyokushin--sub000/internal/bout"
	"github.com/jmoiron/sqlx"
)

type BoutStore struct {
	db *sqlx.DB
}

func NewBoutStore(db *sqlx.DB) *BoutStore {
	return &BoutStore{db: db}
}

func (s *BoutStore) CreateBout(ctx context.Context, tx *sqlx.Tx, b *bout.Bout) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO bouts
		(id, bracket_id, match_id, category, round_number, round_name,
		 red_participant_id, red_name, red_dojo, red_belt,
		 blue_participant_id, blue_name, blue_dojo, blue_belt,
		 referee_id, judge_1_id, judge_2_id, timekeeper_id, recorder_id,
		 duration_secs, timer_status, status, version)
		VALUES (:id, :bracket_id, :match_id, :category, :round_number, :round_name,
		 :red_participant_id, :red_name, :red_dojo, :red_belt,
		 :blue_participant_id, :blue_name, :blue_dojo, :blue_belt,
		 :referee_id, :judge_1_id, :judge_2_id, :timekeeper_id, :recorder_id,
		 :duration_secs, :timer_status, :status, :version)`, b)
	return err
}

func (s *BoutStore) GetBout(ctx context.Context, id string) (*bout.Bout, error) {
	var b bout.Bout
	err := s.db.GetContext(ctx, &b, "SELECT * FROM bouts WHERE id = ?", id)
	return &b, err
}

func (s *BoutStore) GetBoutTx(ctx context.Context, tx *sqlx.Tx, id string) (*bout.Bout, error) {
	var b bout.Bout
	err := tx.GetContext(ctx, &b, "SELECT * FROM bouts WHERE id = ?", id)
	return &b, err
}

func (s *BoutStore) GetBoutsForBracket(ctx context.Context, bracketID string) ([]bout.Bout, error) {
	var bouts []bout.Bout
	err := s.db.SelectContext(ctx, &bouts,
		"SELECT * FROM bouts WHERE bracket_id = ? ORDER BY created_at ASC", bracketID)
	return bouts, err
}

// UpdateBoutTx writes the bout back guarded by the version it was read
// at. Returns the number of rows updated; zero means a concurrent writer
// got there first.
func (s *BoutStore) UpdateBoutTx(ctx context.Context, tx *sqlx.Tx, b *bout.Bout, readVersion int) (int64, error) {
	b.Version = readVersion + 1
	res, err := tx.NamedExecContext(ctx, `UPDATE bouts SET
		start_time = :start_time,
		end_time = :end_time,
		paused_at = :paused_at,
		paused_secs = :paused_secs,
		timer_status = :timer_status,
		red_ippon = :red_ippon,
		red_waza_ari = :red_waza_ari,
		red_points = :red_points,
		red_warnings = :red_warnings,
		red_penalties = :red_penalties,
		blue_ippon = :blue_ippon,
		blue_waza_ari = :blue_waza_ari,
		blue_points = :blue_points,
		blue_warnings = :blue_warnings,
		blue_penalties = :blue_penalties,
		red_fouls = :red_fouls,
		blue_fouls = :blue_fouls,
		winner_corner = :winner_corner,
		winner_id = :winner_id,
		loser_id = :loser_id,
		method = :method,
		notes = :notes,
		result_duration_secs = :result_duration_secs,
		red_score_line = :red_score_line,
		blue_score_line = :blue_score_line,
		status = :status,
		version = :version
		WHERE id = :id AND version = :version - 1`, b)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *BoutStore) InsertEventTx(ctx context.Context, tx *sqlx.Tx, e *bout.Event) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO bout_events
		(id, bout_id, seq, elapsed_secs, event_type, corner, technique, target, description, official_id)
		VALUES (:id, :bout_id, :seq, :elapsed_secs, :event_type, :corner, :technique, :target, :description, :official_id)`, e)
	return err
}

func (s *BoutStore) NextEventSeqTx(ctx context.Context, tx *sqlx.Tx, boutID string) (int, error) {
	var seq int
	err := tx.GetContext(ctx, &seq,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM bout_events WHERE bout_id = ?", boutID)
	return seq, err
}

func (s *BoutStore) GetEvents(ctx context.Context, boutID string) ([]bout.Event, error) {
	var events []bout.Event
	err := s.db.SelectContext(ctx, &events,
		"SELECT * FROM bout_events WHERE bout_id = ? ORDER BY seq ASC", boutID)
	return events, err
}

func (s *BoutStore) InsertExtensionTx(ctx context.Context, tx *sqlx.Tx, e *bout.Extension) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO bout_extensions
		(id, bout_id, seq, duration_secs, reason, start_time, end_time)
		VALUES (:id, :bout_id, :seq, :duration_secs, :reason, :start_time, :end_time)`, e)
	return err
}

// CloseOpenExtensionsTx stamps end_time on any extension still running,
// used when a newer extension supersedes it or the bout ends.
func (s *BoutStore) CloseOpenExtensionsTx(ctx context.Context, tx *sqlx.Tx, boutID string, endTime time.Time) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE bout_extensions SET end_time = ? WHERE bout_id = ? AND end_time IS NULL", endTime, boutID)
	return err
}

func (s *BoutStore) GetExtensions(ctx context.Context, boutID string) ([]bout.Extension, error) {
	var extensions []bout.Extension
	err := s.db.SelectContext(ctx, &extensions,
		"SELECT * FROM bout_extensions WHERE bout_id = ? ORDER BY seq ASC", boutID)
	return extensions, err
}

func (s *BoutStore) ExtensionStatsTx(ctx context.Context, tx *sqlx.Tx, boutID string) (count int, totalSecs int, err error) {
	row := tx.QueryRowxContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(duration_secs), 0) FROM bout_extensions WHERE bout_id = ?", boutID)
	err = row.Scan(&count, &totalSecs)
	return count, totalSecs, err
}

func (s *BoutStore) ExtensionTotalSecs(ctx context.Context, boutID string) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(duration_secs), 0) FROM bout_extensions WHERE bout_id = ?", boutID)
	return total, err
}
