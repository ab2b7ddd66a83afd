package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anshumansaged/kyokushin--sub000/internal/bout"
	"github.com/anshumansaged/kyokushin--sub000/internal/bracket"
	"github.com/anshumansaged/kyokushin--sub000/internal/middleware"
	"github.com/anshumansaged/kyokushin--sub000/internal/rules"
	"github.com/anshumansaged/kyokushin--sub000/internal/store"
	"github.com/anshumansaged/kyokushin--sub000/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// BoutService owns the live bout state machine. Every mutation runs in
// one transaction and commits behind an optimistic version check, so
// concurrent referee actions on the same bout serialize cleanly: the
// loser of the race gets ErrConcurrencyConflict and retries on fresh
// state.
type BoutService struct {
	db       *sqlx.DB
	bouts    *store.BoutStore
	brackets *store.BracketStore
	matches  *MatchService
}

func NewBoutService(db *sqlx.DB, bouts *store.BoutStore, brackets *store.BracketStore, matches *MatchService) *BoutService {
	return &BoutService{db: db, bouts: bouts, brackets: brackets, matches: matches}
}

type CreateBoutInput struct {
	MatchID      uuid.UUID
	RefereeID    uuid.UUID
	Judge1ID     *uuid.UUID
	Judge2ID     *uuid.UUID
	TimekeeperID *uuid.UUID
	RecorderID   *uuid.UUID
}

type BoutData struct {
	Bout       *bout.Bout
	Events     []bout.Event
	Extensions []bout.Extension

	// Derived clock value at read time, never ticked server-side
	TimeRemainingSecs int
}

// CreateBout instantiates a live bout for a generated match whose two
// slots are filled. Slot 1 fights out of the red corner.
func (s *BoutService) CreateBout(ctx context.Context, input CreateBoutInput) (uuid.UUID, error) {
	if input.RefereeID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: a referee is required", bout.ErrValidation)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	m, err := s.brackets.GetMatchTx(ctx, tx, input.MatchID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, bracket.ErrMatchNotFound
		}
		return uuid.Nil, err
	}

	if m.IsTerminal() || m.Status == bracket.MatchInProgress {
		return uuid.Nil, fmt.Errorf("%w: match is %s", bout.ErrInvalidStateTransition, m.Status)
	}
	if m.Slot1ID == nil || m.Slot2ID == nil {
		return uuid.Nil, fmt.Errorf("%w: both fighters must be assigned before scheduling a bout", bout.ErrInvalidStateTransition)
	}

	b, err := s.brackets.GetBracketTx(ctx, tx, m.BracketID.String())
	if err != nil {
		return uuid.Nil, err
	}

	red, err := s.brackets.GetParticipantTx(ctx, tx, m.Slot1ID.String())
	if err != nil {
		return uuid.Nil, err
	}
	blue, err := s.brackets.GetParticipantTx(ctx, tx, m.Slot2ID.String())
	if err != nil {
		return uuid.Nil, err
	}

	bt := &bout.Bout{
		ID:          uuid.New(),
		BracketID:   b.ID,
		MatchID:     m.ID,
		Category:    b.Category,
		RoundNumber: m.RoundNumber,
		RoundName:   m.RoundName,

		RedParticipantID: red.ID,
		RedName:          red.Name,
		RedDojo:          red.Dojo,
		RedBelt:          red.Belt,

		BlueParticipantID: blue.ID,
		BlueName:          blue.Name,
		BlueDojo:          blue.Dojo,
		BlueBelt:          blue.Belt,

		RefereeID:    input.RefereeID,
		Judge1ID:     input.Judge1ID,
		Judge2ID:     input.Judge2ID,
		TimekeeperID: input.TimekeeperID,
		RecorderID:   input.RecorderID,

		DurationSecs: b.MatchDurationSecs,
		TimerStatus:  bout.TimerNotStarted,
		Status:       bout.BoutScheduled,
		Version:      1,
	}

	if err := s.bouts.CreateBout(ctx, tx, bt); err != nil {
		return uuid.Nil, err
	}

	return bt.ID, tx.Commit()
}

func (s *BoutService) GetBoutData(ctx context.Context, id string) (*BoutData, error) {
	b, err := s.bouts.GetBout(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bout.ErrBoutNotFound
		}
		return nil, err
	}

	events, err := s.bouts.GetEvents(ctx, id)
	if err != nil {
		return nil, err
	}

	extensions, err := s.bouts.GetExtensions(ctx, id)
	if err != nil {
		return nil, err
	}

	extensionSecs := 0
	for _, e := range extensions {
		extensionSecs += e.DurationSecs
	}

	return &BoutData{
		Bout:              b,
		Events:            events,
		Extensions:        extensions,
		TimeRemainingSecs: b.TimeRemainingSecs(time.Now().UTC(), extensionSecs),
	}, nil
}

// GetBoutsForBracket lists a bracket's bouts in creation order, the
// running fight card.
func (s *BoutService) GetBoutsForBracket(ctx context.Context, bracketID string) ([]bout.Bout, error) {
	if _, err := s.brackets.GetBracket(ctx, bracketID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bracket.ErrBracketNotFound
		}
		return nil, err
	}
	return s.bouts.GetBoutsForBracket(ctx, bracketID)
}

// mutate loads the bout, applies fn, and commits behind the version the
// bout was read at. fn gets the open transaction for event appends.
func (s *BoutService) mutate(ctx context.Context, boutID uuid.UUID, fn func(tx *sqlx.Tx, b *bout.Bout, now time.Time) error) (*bout.Bout, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	b, err := s.bouts.GetBoutTx(ctx, tx, boutID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bout.ErrBoutNotFound
		}
		return nil, err
	}
	readVersion := b.Version

	now := time.Now().UTC()
	if err := fn(tx, b, now); err != nil {
		return nil, err
	}

	rows, err := s.bouts.UpdateBoutTx(ctx, tx, b, readVersion)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, bout.ErrConcurrencyConflict
	}

	return b, tx.Commit()
}

func (s *BoutService) appendEvent(ctx context.Context, tx *sqlx.Tx, b *bout.Bout, now time.Time, e bout.Event) error {
	seq, err := s.bouts.NextEventSeqTx(ctx, tx, b.ID.String())
	if err != nil {
		return err
	}
	e.ID = uuid.New()
	e.BoutID = b.ID
	e.Seq = seq
	e.ElapsedSecs = b.ElapsedSecs(now)
	if e.Corner == "" {
		e.Corner = bout.CornerRefNone
	}
	if e.OfficialID == nil {
		if userID, ok := middleware.GetUserIDFromContext(ctx); ok {
			e.OfficialID = &userID
		} else {
			e.OfficialID = utils.Ptr(b.RefereeID)
		}
	}
	return s.bouts.InsertEventTx(ctx, tx, &e)
}

// guard rejects operations on terminal bouts with the dedicated error so
// callers can tell "finished" apart from "wrong state".
func guard(b *bout.Bout) error {
	if b.IsTerminal() {
		return bout.ErrBoutAlreadyFinalized
	}
	return nil
}

// ReadyBout marks a scheduled bout ready once the officials check is
// done and both fighters are at their corners.
func (s *BoutService) ReadyBout(ctx context.Context, boutID uuid.UUID) (*bout.Bout, error) {
	return s.mutate(ctx, boutID, func(tx *sqlx.Tx, b *bout.Bout, now time.Time) error {
		if err := guard(b); err != nil {
			return err
		}
		if b.Status != bout.BoutScheduled {
			return fmt.Errorf("%w: cannot ready a bout that is %s", bout.ErrInvalidStateTransition, b.Status)
		}
		b.Status = bout.BoutReady
		return nil
	})
}

func (s *BoutService) StartBout(ctx context.Context, boutID uuid.UUID) (*bout.Bout, error) {
	return s.mutate(ctx, boutID, func(tx *sqlx.Tx, b *bout.Bout, now time.Time) error {
		if err := guard(b); err != nil {
			return err
		}
		if b.Status != bout.BoutReady {
			return fmt.Errorf("%w: cannot start a bout that is %s", bout.ErrInvalidStateTransition, b.Status)
		}

		b.Status = bout.BoutInProgress
		b.TimerStatus = bout.TimerRunning
		b.StartTime = &now

		// The match goes live and so does the bracket
		m, err := s.brackets.GetMatchTx(ctx, tx, b.MatchID.String())
		if err != nil {
			return err
		}
		if m.Status == bracket.MatchPending {
			m.Status = bracket.MatchInProgress
			if err := s.brackets.UpdateMatchTx(ctx, tx, m); err != nil {
				return err
			}
		}
		br, err := s.brackets.GetBracketTx(ctx, tx, b.BracketID.String())
		if err != nil {
			return err
		}
		if br.Status == bracket.BracketGenerated {
			br.Status = bracket.BracketInProgress
			if err := s.brackets.UpdateBracketTx(ctx, tx, br); err != nil {
				return err
			}
		}

		return s.appendEvent(ctx, tx, b, now, bout.Event{Type: bout.EventStart})
	})
}

func (s *BoutService) PauseBout(ctx context.Context, boutID uuid.UUID, reason string) (*bout.Bout, error) {
	return s.mutate(ctx, boutID, func(tx *sqlx.Tx, b *bout.Bout, now time.Time) error {
		if err := guard(b); err != nil {
			return err
		}
		if b.Status != bout.BoutInProgress {
			return fmt.Errorf("%w: cannot pause a bout that is %s", bout.ErrInvalidStateTransition, b.Status)
		}

		// Event first: elapsed time must be taken before the clock stops
		if err := s.appendEvent(ctx, tx, b, now, bout.Event{
			Type:        bout.EventPause,
			Description: utils.StringOrNil(reason),
		}); err != nil {
			return err
		}

		b.Status = bout.BoutPaused
		b.TimerStatus = bout.TimerPaused
		b.PausedAt = &now
		return nil
	})
}

func (s *BoutService) ResumeBout(ctx context.Context, boutID uuid.UUID) (*bout.Bout, error) {
	return s.mutate(ctx, boutID, func(tx *sqlx.Tx, b *bout.Bout, now time.Time) error {
		if err := guard(b); err != nil {
			return err
		}
		if b.Status != bout.BoutPaused {
			return fmt.Errorf("%w: cannot resume a bout that is %s", bout.ErrInvalidStateTransition, b.Status)
		}

		if b.PausedAt != nil {
			b.PausedSecs += int(now.Sub(*b.PausedAt).Seconds())
			b.PausedAt = nil
		}
		b.Status = bout.BoutInProgress
		b.TimerStatus = bout.TimerRunning

		return s.appendEvent(ctx, tx, b, now, bout.Event{Type: bout.EventResume})
	})
}

// AddExtension grants extra fight time while the bout is live. Rejected
// once the bracket's extension allowance is used up.
func (s *BoutService) AddExtension(ctx context.Context, boutID uuid.UUID, durationSecs int, reason string) (*bout.Bout, error) {
	return s.mutate(ctx, boutID, func(tx *sqlx.Tx, b *bout.Bout, now time.Time) error {
		if err := guard(b); err != nil {
			return err
		}
		if b.Status != bout.BoutInProgress && b.Status != bout.BoutPaused {
			return fmt.Errorf("%w: cannot extend a bout that is %s", bout.ErrInvalidStateTransition, b.Status)
		}

		br, err := s.brackets.GetBracketTx(ctx, tx, b.BracketID.String())
		if err != nil {
			return err
		}
		count, _, err := s.bouts.ExtensionStatsTx(ctx, tx, b.ID.String())
		if err != nil {
			return err
		}
		if !br.AllowExtensions || count >= br.MaxExtensions {
			return bout.ErrExtensionsExhausted
		}

		if durationSecs <= 0 {
			durationSecs = br.ExtensionSecs
		}

		// A new grant supersedes whatever block was still open
		if err := s.bouts.CloseOpenExtensionsTx(ctx, tx, b.ID.String(), now); err != nil {
			return err
		}

		ext := &bout.Extension{
			ID:           uuid.New(),
			BoutID:       b.ID,
			Seq:          count + 1,
			DurationSecs: durationSecs,
			Reason:       reason,
			StartTime:    &now,
		}
		if err := s.bouts.InsertExtensionTx(ctx, tx, ext); err != nil {
			return err
		}

		if b.TimerStatus == bout.TimerRunning {
			b.TimerStatus = bout.TimerExtension
		}

		return s.appendEvent(ctx, tx, b, now, bout.Event{
			Type:        bout.EventExtension,
			Description: utils.StringOrNil(reason),
		})
	})
}

func scoreEventType(score rules.ScoreType) (bout.EventType, error) {
	switch score {
	case rules.ScoreIppon:
		return bout.EventIppon, nil
	case rules.ScoreWazaAri:
		return bout.EventWazaAri, nil
	case rules.ScorePoint:
		return bout.EventPoint, nil
	}
	return "", fmt.Errorf("%w: unknown score type %q", bout.ErrValidation, score)
}

// ScorePoint applies one scoring event through the rules engine. An
// automatic win (ippon, or second waza-ari) ends the bout in the same
// transaction, superseding the timer.
func (s *BoutService) ScorePoint(ctx context.Context, boutID uuid.UUID, corner bout.Corner, score rules.ScoreType, technique, target string) (*bout.Bout, error) {
	return s.mutate(ctx, boutID, func(tx *sqlx.Tx, b *bout.Bout, now time.Time) error {
		if err := guard(b); err != nil {
			return err
		}
		if !corner.Valid() {
			return fmt.Errorf("%w: unknown corner %q", bout.ErrValidation, corner)
		}
		if b.Status != bout.BoutInProgress {
			return bout.ErrBoutNotRunning
		}

		eventType, err := scoreEventType(score)
		if err != nil {
			return err
		}

		tally, outcome, err := rules.ApplyScore(b.Tally(corner), score)
		if err != nil {
			return fmt.Errorf("%w: %v", bout.ErrValidation, err)
		}
		b.SetTally(corner, tally)

		if err := s.appendEvent(ctx, tx, b, now, bout.Event{
			Type:      eventType,
			Corner:    bout.CornerRef(corner),
			Technique: utils.StringOrNil(technique),
			Target:    utils.StringOrNil(target),
		}); err != nil {
			return err
		}

		if outcome == rules.OutcomeWin {
			return s.endBoutTx(ctx, tx, b, now, corner, bout.MethodIppon, "")
		}
		return nil
	})
}

func penaltyEventType(p rules.PenaltyType) (bout.EventType, error) {
	switch p {
	case rules.PenaltyWarning:
		return bout.EventWarning, nil
	case rules.PenaltyFoul:
		return bout.EventPenalty, nil
	}
	return "", fmt.Errorf("%w: unknown penalty type %q", bout.ErrValidation, p)
}

// AddPenalty applies one warning or penalty through the rules engine.
// Legal in any non-terminal state: fighters can be penalized before the
// first whistle. A third occurrence disqualifies the corner and the bout
// ends in favour of the opponent within the same transaction.
func (s *BoutService) AddPenalty(ctx context.Context, boutID uuid.UUID, corner bout.Corner, penalty rules.PenaltyType, reason string) (*bout.Bout, error) {
	return s.mutate(ctx, boutID, func(tx *sqlx.Tx, b *bout.Bout, now time.Time) error {
		if err := guard(b); err != nil {
			return err
		}
		if !corner.Valid() {
			return fmt.Errorf("%w: unknown corner %q", bout.ErrValidation, corner)
		}

		eventType, err := penaltyEventType(penalty)
		if err != nil {
			return err
		}

		tally, outcome, err := rules.ApplyPenalty(b.Tally(corner), penalty)
		if err != nil {
			return fmt.Errorf("%w: %v", bout.ErrValidation, err)
		}
		b.SetTally(corner, tally)

		if reason != "" {
			if corner == bout.CornerRed {
				b.RedFouls = appendFoul(b.RedFouls, reason)
			} else {
				b.BlueFouls = appendFoul(b.BlueFouls, reason)
			}
		}

		if err := s.appendEvent(ctx, tx, b, now, bout.Event{
			Type:        eventType,
			Corner:      bout.CornerRef(corner),
			Description: utils.StringOrNil(reason),
		}); err != nil {
			return err
		}

		if outcome == rules.OutcomeDisqualification {
			return s.endBoutTx(ctx, tx, b, now, corner.Opposite(), bout.MethodDisqualification, reason)
		}
		return nil
	})
}

// RecordIncident appends an injury or medical event to the log without
// touching the tally or the clock.
func (s *BoutService) RecordIncident(ctx context.Context, boutID uuid.UUID, corner bout.CornerRef, kind bout.EventType, description string) (*bout.Bout, error) {
	return s.mutate(ctx, boutID, func(tx *sqlx.Tx, b *bout.Bout, now time.Time) error {
		if err := guard(b); err != nil {
			return err
		}
		if kind != bout.EventInjury && kind != bout.EventMedical {
			return fmt.Errorf("%w: unknown incident type %q", bout.ErrValidation, kind)
		}
		switch corner {
		case bout.CornerRefRed, bout.CornerRefBlue, bout.CornerRefNone, bout.CornerRefBoth:
		default:
			return fmt.Errorf("%w: unknown corner %q", bout.ErrValidation, corner)
		}

		return s.appendEvent(ctx, tx, b, now, bout.Event{
			Type:        kind,
			Corner:      corner,
			Description: utils.StringOrNil(description),
		})
	})
}

// EndBout finalizes the bout with an explicit decision. Time expiry is
// not detected server-side; when the derived clock reaches zero the
// operator calls this with MethodDecision.
func (s *BoutService) EndBout(ctx context.Context, boutID uuid.UUID, winner bout.Corner, method, notes string) (*bout.Bout, error) {
	return s.mutate(ctx, boutID, func(tx *sqlx.Tx, b *bout.Bout, now time.Time) error {
		if err := guard(b); err != nil {
			return err
		}
		if !winner.Valid() {
			return fmt.Errorf("%w: unknown corner %q", bout.ErrValidation, winner)
		}
		if !bout.ValidMethod(method) {
			return fmt.Errorf("%w: unknown method %q", bout.ErrValidation, method)
		}
		return s.endBoutTx(ctx, tx, b, now, winner, method, notes)
	})
}

// endBoutTx is the single terminal path shared by explicit decisions,
// automatic wins and disqualifications. The result is immutable once
// this commits.
func (s *BoutService) endBoutTx(ctx context.Context, tx *sqlx.Tx, b *bout.Bout, now time.Time, winner bout.Corner, method, notes string) error {
	if b.PausedAt != nil {
		b.PausedSecs += int(now.Sub(*b.PausedAt).Seconds())
		b.PausedAt = nil
	}

	b.TimerStatus = bout.TimerFinished
	b.EndTime = &now

	if err := s.bouts.CloseOpenExtensionsTx(ctx, tx, b.ID.String(), now); err != nil {
		return err
	}

	winnerID := b.ParticipantFor(winner)
	loserID := b.ParticipantFor(winner.Opposite())

	b.WinnerCorner = utils.Ptr(winner)
	b.WinnerID = &winnerID
	b.LoserID = &loserID
	b.Method = &method
	b.Notes = utils.StringOrNil(notes)
	// Wall-clock bout length; pauses included by definition
	if b.StartTime != nil {
		b.ResultDurationSecs = utils.Ptr(int(now.Sub(*b.StartTime).Seconds()))
	}
	b.RedScoreLine = utils.Ptr(rules.Breakdown(b.Tally(bout.CornerRed)))
	b.BlueScoreLine = utils.Ptr(rules.Breakdown(b.Tally(bout.CornerBlue)))
	b.Status = bout.BoutCompleted

	if err := s.appendEvent(ctx, tx, b, now, bout.Event{
		Type:        bout.EventEnd,
		Corner:      bout.CornerRef(winner),
		Description: utils.StringOrNil(notes),
	}); err != nil {
		return err
	}

	// Close the loop: the terminal result feeds bracket advancement in
	// the same transaction, so a committed bout is always reflected in
	// the tree.
	summary := fmt.Sprintf("%s def. %s by %s (%d-%d)",
		cornerName(b, winner), cornerName(b, winner.Opposite()), method,
		rules.Total(b.Tally(winner)), rules.Total(b.Tally(winner.Opposite())))
	_, err := s.matches.advanceWinnerTx(ctx, tx, b.MatchID, winnerID, &summary, bracket.MatchCompleted)
	return err
}

func cornerName(b *bout.Bout, c bout.Corner) string {
	if c == bout.CornerRed {
		return b.RedName
	}
	return b.BlueName
}

func appendFoul(existing, foul string) string {
	if existing == "" {
		return foul
	}
	return existing + "\n" + foul
}

// CancelBout scraps a bout that never went live. The underlying match is
// untouched; the operator resolves it with a walkover or a new bout.
func (s *BoutService) CancelBout(ctx context.Context, boutID uuid.UUID) (*bout.Bout, error) {
	return s.terminateWithoutResult(ctx, boutID, bout.BoutCancelled)
}

// PostponeBout takes a bout off the card before it starts.
func (s *BoutService) PostponeBout(ctx context.Context, boutID uuid.UUID) (*bout.Bout, error) {
	return s.terminateWithoutResult(ctx, boutID, bout.BoutPostponed)
}

func (s *BoutService) terminateWithoutResult(ctx context.Context, boutID uuid.UUID, to bout.BoutStatus) (*bout.Bout, error) {
	return s.mutate(ctx, boutID, func(tx *sqlx.Tx, b *bout.Bout, now time.Time) error {
		if err := guard(b); err != nil {
			return err
		}
		if b.Status != bout.BoutScheduled && b.Status != bout.BoutReady {
			return fmt.Errorf("%w: cannot move a %s bout to %s", bout.ErrInvalidStateTransition, b.Status, to)
		}
		b.Status = to
		return nil
	})
}
