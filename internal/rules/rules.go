// Package rules holds the pure scoring and penalty tables for a bout.
// Everything here is a function of the current tally and one event; the
// state machine in internal/service decides what to do with the outcome.
package rules

import "fmt"

const (
	IpponValue   = 10
	WazaAriValue = 5
	PointValue   = 1

	// Automatic outcome thresholds, checked after applying the event
	IpponWinAt   = 1
	WazaAriWinAt = 2
	WarningDQAt  = 3
	PenaltyDQAt  = 3
)

type Tally struct {
	Ippon     int
	WazaAri   int
	Points    int
	Warnings  int
	Penalties int
}

type Outcome int

const (
	OutcomeNone Outcome = iota
	// OutcomeWin ends the bout in favour of the corner that scored
	OutcomeWin
	// OutcomeDisqualification ends the bout against the corner penalized
	OutcomeDisqualification
)

type ScoreType string

const (
	ScoreIppon   ScoreType = "ippon"
	ScoreWazaAri ScoreType = "waza-ari"
	ScorePoint   ScoreType = "point"
)

type PenaltyType string

const (
	PenaltyWarning PenaltyType = "warning"
	PenaltyFoul    PenaltyType = "penalty"
)

// ApplyScore applies one scoring event to a corner's tally. The automatic
// win check is evaluated strictly after the event is applied, so it
// supersedes the timer and any penalties already on the board.
func ApplyScore(t Tally, s ScoreType) (Tally, Outcome, error) {
	switch s {
	case ScoreIppon:
		t.Ippon++
		if t.Ippon >= IpponWinAt {
			return t, OutcomeWin, nil
		}
	case ScoreWazaAri:
		t.WazaAri++
		if t.WazaAri >= WazaAriWinAt {
			return t, OutcomeWin, nil
		}
	case ScorePoint:
		t.Points++
	default:
		return t, OutcomeNone, fmt.Errorf("unknown score type %q", s)
	}
	return t, OutcomeNone, nil
}

// ApplyPenalty applies one warning or penalty to a corner's tally. A
// third occurrence of either kind disqualifies that corner.
func ApplyPenalty(t Tally, p PenaltyType) (Tally, Outcome, error) {
	switch p {
	case PenaltyWarning:
		t.Warnings++
		if t.Warnings >= WarningDQAt {
			return t, OutcomeDisqualification, nil
		}
	case PenaltyFoul:
		t.Penalties++
		if t.Penalties >= PenaltyDQAt {
			return t, OutcomeDisqualification, nil
		}
	default:
		return t, OutcomeNone, fmt.Errorf("unknown penalty type %q", p)
	}
	return t, OutcomeNone, nil
}

// Total computes the corner's final score.
func Total(t Tally) int {
	return t.Ippon*IpponValue + t.WazaAri*WazaAriValue + t.Points*PointValue
}

// Breakdown renders the human-readable score line used in result
// summaries, e.g. "1 ippon, 1 waza-ari, 2 pts (17)".
func Breakdown(t Tally) string {
	return fmt.Sprintf("%d ippon, %d waza-ari, %d pts (%d)",
		t.Ippon, t.WazaAri, t.Points, Total(t))
}
