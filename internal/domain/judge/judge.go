// Package judge decides round winners and the match champion.
//
// The judge does not order concurrent submissions itself: callers hand it
// one result at a time while holding the session lock, so the order of
// Judge calls is the server receipt order.
package judge

import (
	"github.com/okian/duel/internal/domain/model"
)

// Reason explains an Outcome.
type Reason string

// Outcome reasons.
const (
	ReasonFirstCorrect Reason = "first_correct"
	ReasonPending      Reason = "pending" // result recorded, round still open
	ReasonExpired      Reason = "expired"
	ReasonClosed       Reason = "closed" // round no longer accepts results
)

// Outcome is the judge's decision for one event.
type Outcome struct {
	Resolved bool
	WinnerID string // empty on a draw
	Reason   Reason
}

// Judge decides round and match results.
type Judge interface {
	// Judge records result for playerID and reports whether it decides the round.
	Judge(s *model.Session, playerID string, result model.RunResult) Outcome
	// Expire decides a round whose deadline passed.
	Expire(s *model.Session) Outcome
	// Champion picks the match winner from the round tally.
	Champion(s *model.Session) string
}

// FirstCorrect awards the round to the first correct submission.
type FirstCorrect struct{}

// New returns the default judge.
func New() *FirstCorrect {
	return &FirstCorrect{}
}

// Judge implements Judge.
func (FirstCorrect) Judge(s *model.Session, playerID string, result model.RunResult) Outcome {
	if s.Status != model.StatusActive || s.WinnerID != "" || result.Round != s.Round {
		return Outcome{Reason: ReasonClosed}
	}
	p, ok := s.Player(playerID)
	if !ok {
		return Outcome{Reason: ReasonClosed}
	}
	r := result
	p.LastRun = &r

	if !result.Correct() {
		return Outcome{Reason: ReasonPending}
	}
	return Outcome{Resolved: true, WinnerID: playerID, Reason: ReasonFirstCorrect}
}

// Expire implements Judge. A round only reaches expiry without a correct
// submission, so it is always a draw.
func (FirstCorrect) Expire(s *model.Session) Outcome {
	if s.Status != model.StatusActive {
		return Outcome{Reason: ReasonClosed}
	}
	return Outcome{Resolved: true, Reason: ReasonExpired}
}

// Champion implements Judge. More round wins takes the match. On a tie
// the most recent round winner among the tied players is champion, and
// when no round was decided at all the seeded first player is.
func (FirstCorrect) Champion(s *model.Session) string {
	if len(s.Players) == 0 {
		return ""
	}
	best := 0
	for _, p := range s.Players {
		if p.Wins > best {
			best = p.Wins
		}
	}
	tied := make(map[string]bool, len(s.Players))
	for _, p := range s.Players {
		if p.Wins == best {
			tied[p.ID] = true
		}
	}
	if len(tied) == 1 {
		for id := range tied {
			return id
		}
	}
	for i := len(s.RoundWinners) - 1; i >= 0; i-- {
		if tied[s.RoundWinners[i]] {
			return s.RoundWinners[i]
		}
	}
	return s.Players[0].ID
}
