package service

import (
	"context"
	"testing"

	"github.com/anshumansaged/kyokushin--sub000/internal/bout"
	"github.com/anshumansaged/kyokushin--sub000/internal/bracket"
	"github.com/anshumansaged/kyokushin--sub000/internal/middleware"
	"github.com/anshumansaged/kyokushin--sub000/internal/rules"
	"github.com/anshumansaged/kyokushin--sub000/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type boutFixture struct {
	db         *sqlx.DB
	ctx        context.Context
	bracketSvc *BracketService
	boutSvc    *BoutService
	bracketID  uuid.UUID
	semi1      *bracket.Match
	boutID     uuid.UUID
}

// newBoutFixture generates a 4-fighter bracket and schedules a bout for
// the first semifinal. Slot 1 (seed 1) fights red, slot 2 (seed 4) blue.
func newBoutFixture(t *testing.T) *boutFixture {
	t.Helper()

	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	bracketStore := store.NewBracketStore(db)
	boutStore := store.NewBoutStore(db)
	bracketSvc := NewBracketService(db, bracketStore)
	matchSvc := NewMatchService(db, bracketStore)
	boutSvc := NewBoutService(db, boutStore, bracketStore, matchSvc)
	ctx := adminCtx()

	bracketID := createTestBracket(t, ctx, bracketSvc, 4, false)
	require.NoError(t, bracketSvc.GenerateBracket(ctx, bracketID))

	data, err := bracketSvc.GetBracketData(ctx, bracketID.String())
	require.NoError(t, err)
	semi1 := findMatch(data.Matches, 1, 1)
	require.NotNil(t, semi1)

	boutID, err := boutSvc.CreateBout(ctx, CreateBoutInput{
		MatchID:   semi1.ID,
		RefereeID: uuid.MustParse(middleware.SuperUserID),
	})
	require.NoError(t, err)

	return &boutFixture{
		db:         db,
		ctx:        ctx,
		bracketSvc: bracketSvc,
		boutSvc:    boutSvc,
		bracketID:  bracketID,
		semi1:      semi1,
		boutID:     boutID,
	}
}

func (f *boutFixture) start(t *testing.T) {
	t.Helper()
	_, err := f.boutSvc.ReadyBout(f.ctx, f.boutID)
	require.NoError(t, err)
	_, err = f.boutSvc.StartBout(f.ctx, f.boutID)
	require.NoError(t, err)
}

func TestBoutLifecycle(t *testing.T) {
	f := newBoutFixture(t)

	data, err := f.boutSvc.GetBoutData(f.ctx, f.boutID.String())
	require.NoError(t, err)
	b := data.Bout
	assert.Equal(t, bout.BoutScheduled, b.Status)
	assert.Equal(t, bout.TimerNotStarted, b.TimerStatus)
	assert.Equal(t, f.semi1.ID, b.MatchID)
	assert.Equal(t, *f.semi1.Slot1ID, b.RedParticipantID)
	assert.Equal(t, *f.semi1.Slot2ID, b.BlueParticipantID)
	assert.Equal(t, "Fighter 1", b.RedName)
	assert.Equal(t, "Fighter 4", b.BlueName)
	assert.Equal(t, 180, b.DurationSecs)
	assert.Equal(t, 1, b.Version)

	b, err = f.boutSvc.ReadyBout(f.ctx, f.boutID)
	require.NoError(t, err)
	assert.Equal(t, bout.BoutReady, b.Status)

	b, err = f.boutSvc.StartBout(f.ctx, f.boutID)
	require.NoError(t, err)
	assert.Equal(t, bout.BoutInProgress, b.Status)
	assert.Equal(t, bout.TimerRunning, b.TimerStatus)
	require.NotNil(t, b.StartTime)

	// Starting the bout puts the match and the bracket in progress
	bracketData, err := f.bracketSvc.GetBracketData(f.ctx, f.bracketID.String())
	require.NoError(t, err)
	assert.Equal(t, bracket.BracketInProgress, bracketData.Bracket.Status)
	assert.Equal(t, bracket.MatchInProgress, findMatch(bracketData.Matches, 1, 1).Status)

	b, err = f.boutSvc.PauseBout(f.ctx, f.boutID, "mouthguard")
	require.NoError(t, err)
	assert.Equal(t, bout.BoutPaused, b.Status)
	assert.Equal(t, bout.TimerPaused, b.TimerStatus)
	require.NotNil(t, b.PausedAt)

	b, err = f.boutSvc.ResumeBout(f.ctx, f.boutID)
	require.NoError(t, err)
	assert.Equal(t, bout.BoutInProgress, b.Status)
	assert.Nil(t, b.PausedAt)

	_, err = f.boutSvc.ScorePoint(f.ctx, f.boutID, bout.CornerRed, rules.ScorePoint, "mawashi geri", "body")
	require.NoError(t, err)

	b, err = f.boutSvc.EndBout(f.ctx, f.boutID, bout.CornerRed, bout.MethodDecision, "judges 3-0")
	require.NoError(t, err)
	assert.Equal(t, bout.BoutCompleted, b.Status)
	assert.Equal(t, bout.TimerFinished, b.TimerStatus)
	require.NotNil(t, b.EndTime)
	require.NotNil(t, b.WinnerCorner)
	assert.Equal(t, bout.CornerRed, *b.WinnerCorner)
	require.NotNil(t, b.WinnerID)
	assert.Equal(t, b.RedParticipantID, *b.WinnerID)
	require.NotNil(t, b.Method)
	assert.Equal(t, bout.MethodDecision, *b.Method)
	require.NotNil(t, b.ResultDurationSecs)
	assert.GreaterOrEqual(t, *b.ResultDurationSecs, 0)

	// Each committed mutation bumped the version
	assert.Equal(t, 7, b.Version)

	// The event log tells the whole story in order
	data, err = f.boutSvc.GetBoutData(f.ctx, f.boutID.String())
	require.NoError(t, err)
	require.Len(t, data.Events, 5)
	expected := []bout.EventType{
		bout.EventStart, bout.EventPause, bout.EventResume, bout.EventPoint, bout.EventEnd,
	}
	for i, e := range data.Events {
		assert.Equal(t, i+1, e.Seq)
		assert.Equal(t, expected[i], e.Type)
		assert.GreaterOrEqual(t, e.ElapsedSecs, 0)
		require.NotNil(t, e.OfficialID)
	}

	// The result flowed into the bracket in the same transaction
	bracketData, err = f.bracketSvc.GetBracketData(f.ctx, f.bracketID.String())
	require.NoError(t, err)
	m := findMatch(bracketData.Matches, 1, 1)
	assert.Equal(t, bracket.MatchCompleted, m.Status)
	require.NotNil(t, m.WinnerID)
	assert.Equal(t, b.RedParticipantID, *m.WinnerID)
	require.NotNil(t, m.ResultSummary)
	assert.Equal(t, "Fighter 1 def. Fighter 4 by decision (1-0)", *m.ResultSummary)

	final := findMatch(bracketData.Matches, 2, 1)
	require.NotNil(t, final.Slot1ID)
	assert.Equal(t, b.RedParticipantID, *final.Slot1ID)
}

func TestStartBout_WrongState(t *testing.T) {
	f := newBoutFixture(t)

	// Scheduled, not yet ready
	_, err := f.boutSvc.StartBout(f.ctx, f.boutID)
	assert.ErrorIs(t, err, bout.ErrInvalidStateTransition)

	f.start(t)

	// Already running
	_, err = f.boutSvc.StartBout(f.ctx, f.boutID)
	assert.ErrorIs(t, err, bout.ErrInvalidStateTransition)

	_, err = f.boutSvc.ResumeBout(f.ctx, f.boutID)
	assert.ErrorIs(t, err, bout.ErrInvalidStateTransition)
}

func TestScorePoint_RequiresRunningBout(t *testing.T) {
	f := newBoutFixture(t)

	_, err := f.boutSvc.ScorePoint(f.ctx, f.boutID, bout.CornerRed, rules.ScorePoint, "", "")
	assert.ErrorIs(t, err, bout.ErrBoutNotRunning)

	f.start(t)
	_, err = f.boutSvc.PauseBout(f.ctx, f.boutID, "")
	require.NoError(t, err)

	_, err = f.boutSvc.ScorePoint(f.ctx, f.boutID, bout.CornerBlue, rules.ScoreWazaAri, "", "")
	assert.ErrorIs(t, err, bout.ErrBoutNotRunning)
}

func TestScorePoint_IpponEndsBout(t *testing.T) {
	f := newBoutFixture(t)
	f.start(t)

	// Two warnings on the board must not stop an ippon from winning
	_, err := f.boutSvc.AddPenalty(f.ctx, f.boutID, bout.CornerRed, rules.PenaltyWarning, "grabbing")
	require.NoError(t, err)
	_, err = f.boutSvc.AddPenalty(f.ctx, f.boutID, bout.CornerRed, rules.PenaltyWarning, "grabbing")
	require.NoError(t, err)

	b, err := f.boutSvc.ScorePoint(f.ctx, f.boutID, bout.CornerRed, rules.ScoreIppon, "ushiro geri", "head")
	require.NoError(t, err)

	assert.Equal(t, bout.BoutCompleted, b.Status)
	require.NotNil(t, b.WinnerCorner)
	assert.Equal(t, bout.CornerRed, *b.WinnerCorner)
	require.NotNil(t, b.Method)
	assert.Equal(t, bout.MethodIppon, *b.Method)
	require.NotNil(t, b.RedScoreLine)
	assert.Equal(t, "1 ippon, 0 waza-ari, 0 pts (10)", *b.RedScoreLine)
}

func TestScorePoint_SecondWazaAriWins(t *testing.T) {
	f := newBoutFixture(t)
	f.start(t)

	b, err := f.boutSvc.ScorePoint(f.ctx, f.boutID, bout.CornerBlue, rules.ScoreWazaAri, "", "")
	require.NoError(t, err)
	assert.Equal(t, bout.BoutInProgress, b.Status, "one waza-ari does not end the bout")

	b, err = f.boutSvc.ScorePoint(f.ctx, f.boutID, bout.CornerBlue, rules.ScoreWazaAri, "", "")
	require.NoError(t, err)

	assert.Equal(t, bout.BoutCompleted, b.Status)
	require.NotNil(t, b.WinnerCorner)
	assert.Equal(t, bout.CornerBlue, *b.WinnerCorner)
	require.NotNil(t, b.Method)
	assert.Equal(t, bout.MethodIppon, *b.Method)
	require.NotNil(t, b.WinnerID)
	assert.Equal(t, b.BlueParticipantID, *b.WinnerID)
}

func TestAddPenalty_ThirdWarningDisqualifies(t *testing.T) {
	f := newBoutFixture(t)
	f.start(t)

	for i := 0; i < 2; i++ {
		b, err := f.boutSvc.AddPenalty(f.ctx, f.boutID, bout.CornerRed, rules.PenaltyWarning, "low blow")
		require.NoError(t, err)
		assert.Equal(t, bout.BoutInProgress, b.Status)
	}

	b, err := f.boutSvc.AddPenalty(f.ctx, f.boutID, bout.CornerRed, rules.PenaltyWarning, "low blow")
	require.NoError(t, err)

	assert.Equal(t, bout.BoutCompleted, b.Status)
	assert.Equal(t, 3, b.RedWarnings)
	require.NotNil(t, b.WinnerCorner)
	assert.Equal(t, bout.CornerBlue, *b.WinnerCorner, "the opponent wins a disqualification")
	require.NotNil(t, b.Method)
	assert.Equal(t, bout.MethodDisqualification, *b.Method)
	assert.Equal(t, "low blow\nlow blow\nlow blow", b.RedFouls)
}

func TestAddPenalty_WarningsAndPenaltiesCountSeparately(t *testing.T) {
	f := newBoutFixture(t)
	f.start(t)

	_, err := f.boutSvc.AddPenalty(f.ctx, f.boutID, bout.CornerBlue, rules.PenaltyWarning, "")
	require.NoError(t, err)
	_, err = f.boutSvc.AddPenalty(f.ctx, f.boutID, bout.CornerBlue, rules.PenaltyWarning, "")
	require.NoError(t, err)
	b, err := f.boutSvc.AddPenalty(f.ctx, f.boutID, bout.CornerBlue, rules.PenaltyFoul, "")
	require.NoError(t, err)

	assert.Equal(t, bout.BoutInProgress, b.Status, "2 warnings and 1 penalty do not disqualify")
	assert.Equal(t, 2, b.BlueWarnings)
	assert.Equal(t, 1, b.BluePenalties)
}

func TestAddPenalty_BeforeStartAllowed(t *testing.T) {
	f := newBoutFixture(t)

	b, err := f.boutSvc.AddPenalty(f.ctx, f.boutID, bout.CornerRed, rules.PenaltyWarning, "late to the mat")
	require.NoError(t, err)
	assert.Equal(t, bout.BoutScheduled, b.Status)
	assert.Equal(t, 1, b.RedWarnings)
}

func TestAddExtension(t *testing.T) {
	f := newBoutFixture(t)
	f.start(t)

	// The bracket allows two extensions
	b, err := f.boutSvc.AddExtension(f.ctx, f.boutID, 0, "draw after regulation")
	require.NoError(t, err)
	assert.Equal(t, bout.TimerExtension, b.TimerStatus)

	_, err = f.boutSvc.AddExtension(f.ctx, f.boutID, 30, "still level")
	require.NoError(t, err)

	_, err = f.boutSvc.AddExtension(f.ctx, f.boutID, 0, "one more")
	assert.ErrorIs(t, err, bout.ErrExtensionsExhausted)

	data, err := f.boutSvc.GetBoutData(f.ctx, f.boutID.String())
	require.NoError(t, err)
	require.Len(t, data.Extensions, 2)
	assert.Equal(t, 1, data.Extensions[0].Seq)
	assert.Equal(t, 60, data.Extensions[0].DurationSecs, "zero duration falls back to the bracket setting")
	assert.Equal(t, 2, data.Extensions[1].Seq)
	assert.Equal(t, 30, data.Extensions[1].DurationSecs)

	// The second grant closed the first block; the second is still open
	assert.NotNil(t, data.Extensions[0].EndTime)
	assert.Nil(t, data.Extensions[1].EndTime)

	// Granted time is reflected in the derived clock
	assert.InDelta(t, 270, data.TimeRemainingSecs, 2)

	// Ending the bout closes the open block too
	_, err = f.boutSvc.EndBout(f.ctx, f.boutID, bout.CornerRed, bout.MethodDecision, "")
	require.NoError(t, err)
	data, err = f.boutSvc.GetBoutData(f.ctx, f.boutID.String())
	require.NoError(t, err)
	for _, ext := range data.Extensions {
		assert.NotNil(t, ext.EndTime, "extension %d left open", ext.Seq)
	}
}

func TestAddExtension_NotAllowed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	bracketStore := store.NewBracketStore(db)
	boutStore := store.NewBoutStore(db)
	bracketSvc := NewBracketService(db, bracketStore)
	matchSvc := NewMatchService(db, bracketStore)
	boutSvc := NewBoutService(db, boutStore, bracketStore, matchSvc)
	ctx := adminCtx()

	input := CreateBracketInput{Category: "Open"}
	for _, name := range []string{"A", "B"} {
		input.Participants = append(input.Participants, ParticipantInput{Name: name})
	}
	bracketID, err := bracketSvc.CreateBracket(ctx, input)
	require.NoError(t, err)
	require.NoError(t, bracketSvc.GenerateBracket(ctx, bracketID))

	data, err := bracketSvc.GetBracketData(ctx, bracketID.String())
	require.NoError(t, err)

	boutID, err := boutSvc.CreateBout(ctx, CreateBoutInput{
		MatchID:   data.Matches[0].ID,
		RefereeID: uuid.MustParse(middleware.SuperUserID),
	})
	require.NoError(t, err)
	_, err = boutSvc.ReadyBout(ctx, boutID)
	require.NoError(t, err)
	_, err = boutSvc.StartBout(ctx, boutID)
	require.NoError(t, err)

	_, err = boutSvc.AddExtension(ctx, boutID, 0, "")
	assert.ErrorIs(t, err, bout.ErrExtensionsExhausted)
}

func TestRecordIncident(t *testing.T) {
	f := newBoutFixture(t)
	f.start(t)

	b, err := f.boutSvc.RecordIncident(f.ctx, f.boutID, bout.CornerRefRed, bout.EventInjury, "cut above the eye")
	require.NoError(t, err)
	assert.Equal(t, bout.BoutInProgress, b.Status, "incidents do not change bout state")
	assert.Equal(t, 0, b.RedWarnings)

	_, err = f.boutSvc.RecordIncident(f.ctx, f.boutID, bout.CornerRefNone, bout.EventPoint, "")
	assert.ErrorIs(t, err, bout.ErrValidation)

	data, err := f.boutSvc.GetBoutData(f.ctx, f.boutID.String())
	require.NoError(t, err)
	last := data.Events[len(data.Events)-1]
	assert.Equal(t, bout.EventInjury, last.Type)
	assert.Equal(t, bout.CornerRefRed, last.Corner)
}

func TestEndBout_ScoreLines(t *testing.T) {
	f := newBoutFixture(t)
	f.start(t)

	_, err := f.boutSvc.ScorePoint(f.ctx, f.boutID, bout.CornerRed, rules.ScoreWazaAri, "", "")
	require.NoError(t, err)
	_, err = f.boutSvc.ScorePoint(f.ctx, f.boutID, bout.CornerRed, rules.ScorePoint, "", "")
	require.NoError(t, err)
	_, err = f.boutSvc.ScorePoint(f.ctx, f.boutID, bout.CornerRed, rules.ScorePoint, "", "")
	require.NoError(t, err)
	_, err = f.boutSvc.ScorePoint(f.ctx, f.boutID, bout.CornerBlue, rules.ScorePoint, "", "")
	require.NoError(t, err)

	b, err := f.boutSvc.EndBout(f.ctx, f.boutID, bout.CornerRed, bout.MethodDecision, "")
	require.NoError(t, err)

	require.NotNil(t, b.RedScoreLine)
	assert.Equal(t, "0 ippon, 1 waza-ari, 2 pts (7)", *b.RedScoreLine)
	require.NotNil(t, b.BlueScoreLine)
	assert.Equal(t, "0 ippon, 0 waza-ari, 1 pts (1)", *b.BlueScoreLine)

	bracketData, err := f.bracketSvc.GetBracketData(f.ctx, f.bracketID.String())
	require.NoError(t, err)
	m := findMatch(bracketData.Matches, 1, 1)
	require.NotNil(t, m.ResultSummary)
	assert.Equal(t, "Fighter 1 def. Fighter 4 by decision (7-1)", *m.ResultSummary)
}

func TestEndBout_InvalidMethod(t *testing.T) {
	f := newBoutFixture(t)
	f.start(t)

	_, err := f.boutSvc.EndBout(f.ctx, f.boutID, bout.CornerRed, "forfeit", "")
	assert.ErrorIs(t, err, bout.ErrValidation)

	_, err = f.boutSvc.EndBout(f.ctx, f.boutID, bout.Corner("green"), bout.MethodDecision, "")
	assert.ErrorIs(t, err, bout.ErrValidation)
}

func TestCompletedBout_RejectsEverything(t *testing.T) {
	f := newBoutFixture(t)
	f.start(t)

	_, err := f.boutSvc.EndBout(f.ctx, f.boutID, bout.CornerBlue, bout.MethodDecision, "")
	require.NoError(t, err)

	_, err = f.boutSvc.ReadyBout(f.ctx, f.boutID)
	assert.ErrorIs(t, err, bout.ErrBoutAlreadyFinalized)
	_, err = f.boutSvc.StartBout(f.ctx, f.boutID)
	assert.ErrorIs(t, err, bout.ErrBoutAlreadyFinalized)
	_, err = f.boutSvc.PauseBout(f.ctx, f.boutID, "")
	assert.ErrorIs(t, err, bout.ErrBoutAlreadyFinalized)
	_, err = f.boutSvc.ResumeBout(f.ctx, f.boutID)
	assert.ErrorIs(t, err, bout.ErrBoutAlreadyFinalized)
	_, err = f.boutSvc.ScorePoint(f.ctx, f.boutID, bout.CornerRed, rules.ScorePoint, "", "")
	assert.ErrorIs(t, err, bout.ErrBoutAlreadyFinalized)
	_, err = f.boutSvc.AddPenalty(f.ctx, f.boutID, bout.CornerRed, rules.PenaltyWarning, "")
	assert.ErrorIs(t, err, bout.ErrBoutAlreadyFinalized)
	_, err = f.boutSvc.AddExtension(f.ctx, f.boutID, 0, "")
	assert.ErrorIs(t, err, bout.ErrBoutAlreadyFinalized)
	_, err = f.boutSvc.RecordIncident(f.ctx, f.boutID, bout.CornerRefNone, bout.EventMedical, "")
	assert.ErrorIs(t, err, bout.ErrBoutAlreadyFinalized)
	_, err = f.boutSvc.EndBout(f.ctx, f.boutID, bout.CornerRed, bout.MethodDecision, "")
	assert.ErrorIs(t, err, bout.ErrBoutAlreadyFinalized)
	_, err = f.boutSvc.CancelBout(f.ctx, f.boutID)
	assert.ErrorIs(t, err, bout.ErrBoutAlreadyFinalized)
	_, err = f.boutSvc.PostponeBout(f.ctx, f.boutID)
	assert.ErrorIs(t, err, bout.ErrBoutAlreadyFinalized)
}

func TestCancelBout(t *testing.T) {
	f := newBoutFixture(t)

	b, err := f.boutSvc.CancelBout(f.ctx, f.boutID)
	require.NoError(t, err)
	assert.Equal(t, bout.BoutCancelled, b.Status)

	// The match is untouched; a fresh bout can be scheduled for it
	replacementID, err := f.boutSvc.CreateBout(f.ctx, CreateBoutInput{
		MatchID:   f.semi1.ID,
		RefereeID: uuid.MustParse(middleware.SuperUserID),
	})
	require.NoError(t, err)
	assert.NotEqual(t, f.boutID, replacementID)
}

func TestPostponeBout_OnlyBeforeStart(t *testing.T) {
	f := newBoutFixture(t)
	f.start(t)

	_, err := f.boutSvc.PostponeBout(f.ctx, f.boutID)
	assert.ErrorIs(t, err, bout.ErrInvalidStateTransition)
	_, err = f.boutSvc.CancelBout(f.ctx, f.boutID)
	assert.ErrorIs(t, err, bout.ErrInvalidStateTransition)
}

func TestCreateBout_Validation(t *testing.T) {
	f := newBoutFixture(t)

	// The final has no fighters yet
	data, err := f.bracketSvc.GetBracketData(f.ctx, f.bracketID.String())
	require.NoError(t, err)
	final := findMatch(data.Matches, 2, 1)

	_, err = f.boutSvc.CreateBout(f.ctx, CreateBoutInput{
		MatchID:   final.ID,
		RefereeID: uuid.MustParse(middleware.SuperUserID),
	})
	assert.ErrorIs(t, err, bout.ErrInvalidStateTransition)

	_, err = f.boutSvc.CreateBout(f.ctx, CreateBoutInput{MatchID: f.semi1.ID})
	assert.ErrorIs(t, err, bout.ErrValidation)

	_, err = f.boutSvc.CreateBout(f.ctx, CreateBoutInput{
		MatchID:   uuid.New(),
		RefereeID: uuid.MustParse(middleware.SuperUserID),
	})
	assert.ErrorIs(t, err, bracket.ErrMatchNotFound)
}

func TestGetBoutsForBracket(t *testing.T) {
	f := newBoutFixture(t)

	bouts, err := f.boutSvc.GetBoutsForBracket(f.ctx, f.bracketID.String())
	require.NoError(t, err)
	require.Len(t, bouts, 1)
	assert.Equal(t, f.boutID, bouts[0].ID)
	assert.Equal(t, f.semi1.ID, bouts[0].MatchID)

	_, err = f.boutSvc.GetBoutsForBracket(f.ctx, uuid.NewString())
	assert.ErrorIs(t, err, bracket.ErrBracketNotFound)
}

func TestBoutNotFound(t *testing.T) {
	f := newBoutFixture(t)

	_, err := f.boutSvc.StartBout(f.ctx, uuid.New())
	assert.ErrorIs(t, err, bout.ErrBoutNotFound)
	_, err = f.boutSvc.GetBoutData(f.ctx, uuid.NewString())
	assert.ErrorIs(t, err, bout.ErrBoutNotFound)
}
