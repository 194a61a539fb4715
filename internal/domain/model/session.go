// Package model contains domain models passed between layers.
package model

import "time"

// Status is the lifecycle state of a match session.
type Status string

// Session statuses.
const (
	StatusWaiting   Status = "waiting"   // fewer than two players
	StatusActive    Status = "active"    // round in progress
	StatusEnded     Status = "ended"     // round concluded, more rounds to play
	StatusCompleted Status = "completed" // terminal, champion decided
)

// MaxPlayers is the number of seats in a match.
const MaxPlayers = 2

// Problem is the immutable task assigned to a round.
type Problem struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Statement string `json:"statement"`
	Signature string `json:"signature"`
	Starter   string `json:"starter"`
}

// Player occupies one seat of a session. Slot 0 is the creator.
type Player struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Code    string     `json:"code"`
	LastRun *RunResult `json:"last_run,omitempty"`
	Wins    int        `json:"wins"`
}

// Session is the root aggregate of one match. DeadlineAt is zero unless
// the session is active. RoundWinners holds one entry per concluded
// round, with "" marking a draw.
type Session struct {
	ID            string        `json:"id"`
	Players       []Player      `json:"players"`
	Status        Status        `json:"status"`
	Round         int           `json:"round"`
	RoundsTotal   int           `json:"rounds_total"`
	RoundDuration time.Duration `json:"round_duration"`
	Problem       Problem       `json:"problem"`
	DeadlineAt    time.Time     `json:"deadline_at"`
	WinnerID      string        `json:"winner_id,omitempty"`
	ChampionID    string        `json:"champion_id,omitempty"`
	RoundWinners  []string      `json:"round_winners"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without affecting
// the committed state held by a store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		if p.LastRun != nil {
			r := *p.LastRun
			p.LastRun = &r
		}
		c.Players[i] = p
	}
	c.RoundWinners = append([]string(nil), s.RoundWinners...)
	return &c
}

// Player returns the player with the given id.
func (s *Session) Player(id string) (*Player, bool) {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i], true
		}
	}
	return nil, false
}

// Opponent returns the other seated player.
func (s *Session) Opponent(id string) (*Player, bool) {
	if len(s.Players) < MaxPlayers {
		return nil, false
	}
	for i := range s.Players {
		if s.Players[i].ID != id {
			return &s.Players[i], true
		}
	}
	return nil, false
}

// Full reports whether both seats are taken.
func (s *Session) Full() bool {
	return len(s.Players) >= MaxPlayers
}
