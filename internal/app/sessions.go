package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	eventqueue "github.com/okian/duel/internal/adapters/mq/queue"
	"github.com/okian/duel/internal/domain/judge"
	"github.com/okian/duel/internal/domain/match"
	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/internal/domain/types"
	"github.com/okian/duel/pkg/logger"
	"github.com/okian/duel/pkg/metrics"
)

// RunRequest is a player's code submission.
type RunRequest = types.RunRequest

// CreateSession registers a new session seated with its creator.
func (s *Service) CreateSession(ctx context.Context, creatorName string) (types.Created, error) {
	name, err := match.NormalizeName(creatorName)
	if err != nil {
		return types.Created{}, err
	}

	creator := model.Player{ID: uuid.NewString(), Name: name}
	sess, events, err := s.machine.NewSession(uuid.NewString(), creator)
	if err != nil {
		return types.Created{}, err
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return types.Created{}, fmt.Errorf("create session: %w", err)
	}
	metrics.RecordSessionCreated()
	s.emit(ctx, events)

	s.logger.Info(ctx, "session created",
		logger.String("session_id", sess.ID),
		logger.String("player_id", creator.ID),
	)
	return types.Created{
		SessionID: sess.ID,
		PlayerID:  creator.ID,
		Players:   []types.PlayerRef{{ID: creator.ID, Name: creator.Name}},
		Round:     sess.Round,
		Status:    string(sess.Status),
	}, nil
}

// JoinSession seats the second player and starts the first round.
func (s *Service) JoinSession(ctx context.Context, sessionID, joinerName string) (types.Joined, error) {
	name, err := match.NormalizeName(joinerName)
	if err != nil {
		return types.Joined{}, err
	}

	joiner := model.Player{ID: uuid.NewString(), Name: name}
	sess, err := s.mutate(ctx, sessionID, func(w *model.Session) ([]model.MatchEvent, error) {
		return s.machine.Join(w, joiner)
	})
	if err != nil {
		return types.Joined{}, err
	}

	s.logger.Info(ctx, "player joined",
		logger.String("session_id", sess.ID),
		logger.String("player_id", joiner.ID),
		logger.String("problem", sess.Problem.Slug),
	)
	return types.Joined{SessionID: sess.ID, PlayerID: joiner.ID}, nil
}

// Snapshot returns the read view of a session. An elapsed deadline is
// committed first; otherwise reads never take the session lock.
func (s *Service) Snapshot(ctx context.Context, sessionID string) (types.Snapshot, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return types.Snapshot{}, err
	}
	if s.machine.NeedsExpiry(sess) {
		sess, err = s.mutate(ctx, sessionID, func(*model.Session) ([]model.MatchEvent, error) {
			return nil, nil
		})
		if err != nil {
			return types.Snapshot{}, err
		}
	}
	return buildSnapshot(sess, s.machine.Remaining(sess)), nil
}

// AdvanceRound starts the next round and returns its number.
func (s *Service) AdvanceRound(ctx context.Context, sessionID, playerID string) (types.Advanced, error) {
	sess, err := s.mutate(ctx, sessionID, func(w *model.Session) ([]model.MatchEvent, error) {
		return s.machine.Advance(w, playerID)
	})
	if err != nil {
		return types.Advanced{}, err
	}
	s.logger.Debug(ctx, "round started",
		logger.String("session_id", sess.ID),
		logger.Int("round", sess.Round),
	)
	return types.Advanced{Round: sess.Round}, nil
}

// UpdateCode mirrors a player's editor contents into the session.
func (s *Service) UpdateCode(ctx context.Context, sessionID, playerID, code string) error {
	_, err := s.mutate(ctx, sessionID, func(w *model.Session) ([]model.MatchEvent, error) {
		return s.machine.UpdateCode(w, playerID, code)
	})
	return err
}

// Run executes a player's code off-lock on the worker pool, then judges
// the result against the round it was submitted in. The code is stored on
// the player only once its result is attached; a rejected run leaves the
// session as it was. A result that arrives after that round concluded is
// returned with Late set and is not attached.
func (s *Service) Run(ctx context.Context, req RunRequest) (types.RunResult, error) {
	if !s.isStarted() {
		return types.RunResult{}, ErrNotStarted
	}
	if strings.TrimSpace(req.Code) == "" {
		return types.RunResult{}, fmt.Errorf("no code submitted: %w", match.ErrInvalidInput)
	}

	key := req.SessionID + ":" + req.PlayerID
	if s.inflight.SeenAndRecord(ctx, key) {
		metrics.RecordRunRejected("run_in_flight")
		return types.RunResult{}, ErrRunInFlight
	}
	defer s.inflight.Unrecord(ctx, key)

	var round int
	sess, err := s.mutate(ctx, req.SessionID, func(w *model.Session) ([]model.MatchEvent, error) {
		var (
			events []model.MatchEvent
			err    error
		)
		round, events, err = s.machine.Accept(w, req.PlayerID, req.Code)
		return events, err
	})
	if err != nil {
		return types.RunResult{}, err
	}

	result, err := s.execute(ctx, sess, req)
	if err != nil {
		return types.RunResult{}, err
	}
	result.Round = round
	metrics.RecordRun(string(result.Verdict))

	// The verdict is committed even if the caller has gone away.
	commitCtx := context.WithoutCancel(ctx)
	var outcome judge.Outcome
	after, err := s.mutate(commitCtx, req.SessionID, func(w *model.Session) ([]model.MatchEvent, error) {
		var (
			events []model.MatchEvent
			err    error
		)
		outcome, events, err = s.machine.Submit(w, req.PlayerID, req.Code, result)
		return events, err
	})
	if err != nil {
		return types.RunResult{}, err
	}

	if outcome.Resolved {
		s.logger.Info(ctx, "round won",
			logger.String("session_id", after.ID),
			logger.Int("round", round),
			logger.String("winner_id", outcome.WinnerID),
		)
	}
	return buildRunResult(result, after, outcome.Reason == judge.ReasonClosed), nil
}

func (s *Service) execute(ctx context.Context, sess *model.Session, req RunRequest) (model.RunResult, error) {
	job := model.ExecutionJob{
		ID:          uuid.NewString(),
		SessionID:   sess.ID,
		PlayerID:    req.PlayerID,
		ProblemSlug: sess.Problem.Slug,
		Signature:   sess.Problem.Signature,
		Code:        req.Code,
		Reply:       make(chan model.RunResult, 1),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		if errors.Is(err, eventqueue.ErrFull) || errors.Is(err, eventqueue.ErrClosed) {
			metrics.RecordRunRejected("backpressure")
			return model.RunResult{}, fmt.Errorf("%w: %v", ErrBackpressure, err)
		}
		return model.RunResult{}, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.execTimeout+replyGrace)
	defer cancel()

	select {
	case res := <-job.Reply:
		return res, nil
	case <-waitCtx.Done():
		s.logger.Warn(ctx, "gave up waiting for execution",
			logger.String("session_id", sess.ID),
			logger.String("job_id", job.ID),
		)
		return model.RunResult{
			Verdict: model.VerdictUndetermined,
			Error:   "execution timed out",
		}, nil
	}
}
