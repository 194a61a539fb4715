// Package types contains the read shapes served to polling clients.
package types

// Snapshot is the read-only view of one session. It never carries the
// raw deadline, only the whole seconds remaining at serialization time.
type Snapshot struct {
	SessionID    string   `json:"sessionId"`
	Players      []Player `json:"players"`
	Status       string   `json:"status"`
	Round        int      `json:"round"`
	RoundsTotal  int      `json:"roundsTotal"`
	WinnerID     string   `json:"winnerId,omitempty"`
	ChampionID   string   `json:"championId,omitempty"`
	Problem      Problem  `json:"problem"`
	Remaining    int      `json:"remaining"`
	RoundWinners []string `json:"roundWinners"`
}

// Player is a seated player as seen by either client.
type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	Wins    int    `json:"wins"`
	LastRun *Run   `json:"lastRun,omitempty"`
}

// Problem is the current round's task.
type Problem struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Statement string `json:"statement"`
	Signature string `json:"signature"`
	Starter   string `json:"starter"`
}

// Run is the most recent execution outcome of a player.
type Run struct {
	Output    string `json:"output"`
	Verdict   string `json:"verdict"`
	AllPass   bool   `json:"allPass"`
	ElapsedMs int64  `json:"elapsedMs"`
	Error     string `json:"error,omitempty"`
}

// PlayerRef identifies a seated player.
type PlayerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Created is returned to the creator of a session.
type Created struct {
	SessionID string      `json:"sessionId"`
	PlayerID  string      `json:"playerId"`
	Players   []PlayerRef `json:"players"`
	Round     int         `json:"round"`
	Status    string      `json:"status"`
}

// Joined is returned to the second player.
type Joined struct {
	SessionID string `json:"sessionId"`
	PlayerID  string `json:"playerId"`
}

// RunResult is the answer to a run request. Late is set when the round
// concluded before the result could be judged; the result was not attached.
type RunResult struct {
	Output    string `json:"output"`
	Verdict   string `json:"verdict"`
	AllPass   bool   `json:"allPass"`
	ElapsedMs int64  `json:"elapsedMs"`
	Error     string `json:"error,omitempty"`
	Status    string `json:"status"`
	Round     int    `json:"round"`
	WinnerID  string `json:"winnerId,omitempty"`
	GameEnded bool   `json:"gameEnded"`
	Late      bool   `json:"late"`
}

// Advanced is returned after the next round starts.
type Advanced struct {
	Round int `json:"round"`
}

// RunRequest is a player's code submission.
type RunRequest struct {
	SessionID string `json:"sessionId"`
	PlayerID  string `json:"playerId"`
	Code      string `json:"code"`
}
