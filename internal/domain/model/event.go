package model

import "time"

// EventType names a committed match transition.
type EventType string

// Match event types.
const (
	EventSessionCreated EventType = "session_created"
	EventPlayerJoined   EventType = "player_joined"
	EventRoundStarted   EventType = "round_started"
	EventRoundEnded     EventType = "round_ended"
	EventMatchCompleted EventType = "match_completed"
)

// MatchEvent is published after a transition has been saved.
type MatchEvent struct {
	Type       EventType `json:"type"`
	SessionID  string    `json:"session_id"`
	Round      int       `json:"round"`
	Status     Status    `json:"status"`
	PlayerID   string    `json:"player_id,omitempty"`
	WinnerID   string    `json:"winner_id,omitempty"`
	ChampionID string    `json:"champion_id,omitempty"`
	At         time.Time `json:"at"`
}
