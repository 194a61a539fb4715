// Package match implements the per-session state machine: join rules,
// round transitions, lazy deadline expiry and champion determination.
//
// Machine methods mutate the *model.Session they are given and never
// touch storage or locks. Callers pass a private clone, hold the session
// lock, and save the clone only when the method returns a nil error, so
// every transition is all-or-nothing to observers.
package match

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"

	"github.com/okian/duel/internal/domain/judge"
	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/internal/domain/problems"
	"github.com/okian/duel/internal/domain/timer"
)

// Default match configuration.
const (
	DefaultRoundsTotal   = 5
	DefaultRoundDuration = 300 * time.Second
	MaxNameLength        = 64
)

// Machine drives session transitions.
type Machine struct {
	clock         clockwork.Clock
	problems      problems.Source
	judge         judge.Judge
	roundsTotal   int
	roundDuration time.Duration
}

// Option applies a configuration option to the Machine.
type Option func(*Machine)

// WithClock sets the clock used for deadlines.
func WithClock(c clockwork.Clock) Option {
	return func(m *Machine) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithProblems sets the problem source.
func WithProblems(p problems.Source) Option {
	return func(m *Machine) {
		if p != nil {
			m.problems = p
		}
	}
}

// WithJudge sets the round judge.
func WithJudge(j judge.Judge) Option {
	return func(m *Machine) {
		if j != nil {
			m.judge = j
		}
	}
}

// WithRoundsTotal sets how many rounds new sessions play.
func WithRoundsTotal(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.roundsTotal = n
		}
	}
}

// WithRoundDuration sets the time budget of each round.
func WithRoundDuration(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.roundDuration = d
		}
	}
}

// NewMachine constructs a Machine with defaults.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		clock:         clockwork.NewRealClock(),
		problems:      problems.NewCatalog(),
		judge:         judge.New(),
		roundsTotal:   DefaultRoundsTotal,
		roundDuration: DefaultRoundDuration,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Now returns the machine's current time.
func (m *Machine) Now() time.Time {
	return m.clock.Now()
}

// NormalizeName trims a display name and validates it.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("name must not be empty: %w", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("name longer than %d characters: %w", MaxNameLength, ErrInvalidInput)
	}
	return name, nil
}

// NewSession builds a waiting session seated with its creator. The first
// round's problem is shown while waiting; the clock only starts on join.
func (m *Machine) NewSession(id string, creator model.Player) (*model.Session, []model.MatchEvent, error) {
	problem, err := m.problems.ForRound(1)
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	now := m.clock.Now()
	s := &model.Session{
		ID:            id,
		Players:       []model.Player{creator},
		Status:        model.StatusWaiting,
		Round:         1,
		RoundsTotal:   m.roundsTotal,
		RoundDuration: m.roundDuration,
		Problem:       problem,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return s, []model.MatchEvent{m.event(s, model.EventSessionCreated, creator.ID)}, nil
}

// Join seats the second player and starts round one.
func (m *Machine) Join(s *model.Session, p model.Player) ([]model.MatchEvent, error) {
	if s.Full() {
		return nil, fmt.Errorf("join session %s: %w", s.ID, ErrSessionFull)
	}
	if s.Status != model.StatusWaiting {
		return nil, stateErr("join", s.Status, "session is not waiting for players")
	}
	s.Players = append(s.Players, p)
	events := []model.MatchEvent{m.event(s, model.EventPlayerJoined, p.ID)}
	started, err := m.startRound(s)
	if err != nil {
		return nil, err
	}
	return append(events, started), nil
}

// ResolveExpiry concludes an active round whose deadline has passed.
// It reports whether the session changed.
func (m *Machine) ResolveExpiry(s *model.Session) ([]model.MatchEvent, bool) {
	if s.Status != model.StatusActive || !timer.Expired(s.DeadlineAt, m.clock.Now()) {
		return nil, false
	}
	out := m.judge.Expire(s)
	if !out.Resolved {
		return nil, false
	}
	return m.conclude(s, out.WinnerID), true
}

// NeedsExpiry reports whether ResolveExpiry would change s. It does not mutate.
func (m *Machine) NeedsExpiry(s *model.Session) bool {
	return s.Status == model.StatusActive && timer.Expired(s.DeadlineAt, m.clock.Now())
}

// Accept validates a run request against the current round and returns
// the round the run belongs to. Apart from committing an elapsed
// deadline it leaves s untouched; the code is recorded by Submit.
func (m *Machine) Accept(s *model.Session, playerID, code string) (int, []model.MatchEvent, error) {
	if strings.TrimSpace(code) == "" {
		return 0, nil, fmt.Errorf("no code submitted: %w", ErrInvalidInput)
	}
	events, _ := m.ResolveExpiry(s)
	if _, ok := s.Player(playerID); !ok {
		return 0, events, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	if s.Status != model.StatusActive {
		return 0, events, stateErr("run", s.Status, "round is not active")
	}
	return s.Round, events, nil
}

// Submit judges an execution result and records the code that produced
// it. Results for a round that has since concluded are not attached and
// leave the session unchanged.
func (m *Machine) Submit(s *model.Session, playerID, code string, result model.RunResult) (judge.Outcome, []model.MatchEvent, error) {
	events, _ := m.ResolveExpiry(s)
	p, ok := s.Player(playerID)
	if !ok {
		return judge.Outcome{}, events, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	out := m.judge.Judge(s, playerID, result)
	if out.Reason == judge.ReasonClosed {
		return out, events, nil
	}
	p.Code = code
	s.UpdatedAt = m.clock.Now()
	if out.Resolved {
		events = append(events, m.conclude(s, out.WinnerID)...)
	}
	return out, events, nil
}

// Advance starts the next round. Either player may request it.
func (m *Machine) Advance(s *model.Session, playerID string) ([]model.MatchEvent, error) {
	events, _ := m.ResolveExpiry(s)
	if _, ok := s.Player(playerID); !ok {
		return events, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	switch {
	case s.Status == model.StatusCompleted:
		return events, stateErr("next round", s.Status, "match completed")
	case s.Status != model.StatusEnded:
		return events, stateErr("next round", s.Status, "round is still active")
	case s.Round >= s.RoundsTotal:
		return events, stateErr("next round", s.Status, "no more rounds")
	}
	s.Round++
	started, err := m.startRound(s)
	if err != nil {
		return events, err
	}
	return append(events, started), nil
}

// UpdateCode mirrors a player's editor into the session.
func (m *Machine) UpdateCode(s *model.Session, playerID, code string) ([]model.MatchEvent, error) {
	events, _ := m.ResolveExpiry(s)
	p, ok := s.Player(playerID)
	if !ok {
		return events, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	if s.Status != model.StatusActive {
		return events, stateErr("update code", s.Status, "round is not active")
	}
	p.Code = code
	s.UpdatedAt = m.clock.Now()
	return events, nil
}

// Remaining returns the time left in the active round.
func (m *Machine) Remaining(s *model.Session) time.Duration {
	if s.Status != model.StatusActive {
		return 0
	}
	return timer.Remaining(s.DeadlineAt, m.clock.Now())
}

func (m *Machine) startRound(s *model.Session) (model.MatchEvent, error) {
	problem, err := m.problems.ForRound(s.Round)
	if err != nil {
		return model.MatchEvent{}, fmt.Errorf("start round %d: %w", s.Round, err)
	}
	now := m.clock.Now()
	duration := s.RoundDuration
	if duration <= 0 {
		duration = m.roundDuration
	}
	s.Problem = problem
	s.Status = model.StatusActive
	s.DeadlineAt = timer.Deadline(now, duration)
	s.WinnerID = ""
	for i := range s.Players {
		s.Players[i].Code = ""
		s.Players[i].LastRun = nil
	}
	s.UpdatedAt = now
	return m.event(s, model.EventRoundStarted, ""), nil
}

// conclude moves an active round to ended, or straight to completed when
// it was the last round.
func (m *Machine) conclude(s *model.Session, winnerID string) []model.MatchEvent {
	s.Status = model.StatusEnded
	s.WinnerID = winnerID
	s.DeadlineAt = time.Time{}
	s.RoundWinners = append(s.RoundWinners, winnerID)
	if p, ok := s.Player(winnerID); ok {
		p.Wins++
	}
	s.UpdatedAt = m.clock.Now()
	events := []model.MatchEvent{m.event(s, model.EventRoundEnded, "")}

	if s.Round >= s.RoundsTotal {
		s.Status = model.StatusCompleted
		s.ChampionID = m.judge.Champion(s)
		events = append(events, m.event(s, model.EventMatchCompleted, ""))
	}
	return events
}

func (m *Machine) event(s *model.Session, t model.EventType, playerID string) model.MatchEvent {
	return model.MatchEvent{
		Type:       t,
		SessionID:  s.ID,
		Round:      s.Round,
		Status:     s.Status,
		PlayerID:   playerID,
		WinnerID:   s.WinnerID,
		ChampionID: s.ChampionID,
		At:         m.clock.Now(),
	}
}
