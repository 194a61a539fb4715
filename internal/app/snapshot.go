package service

import (
	"time"

	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/internal/domain/timer"
	"github.com/okian/duel/internal/domain/types"
)

func buildSnapshot(s *model.Session, remaining time.Duration) types.Snapshot {
	players := make([]types.Player, len(s.Players))
	for i, p := range s.Players {
		players[i] = types.Player{
			ID:      p.ID,
			Name:    p.Name,
			Code:    p.Code,
			Wins:    p.Wins,
			LastRun: buildRun(p.LastRun),
		}
	}
	winners := append([]string{}, s.RoundWinners...)

	return types.Snapshot{
		SessionID:   s.ID,
		Players:     players,
		Status:      string(s.Status),
		Round:       s.Round,
		RoundsTotal: s.RoundsTotal,
		WinnerID:    s.WinnerID,
		ChampionID:  s.ChampionID,
		Problem: types.Problem{
			Slug:      s.Problem.Slug,
			Title:     s.Problem.Title,
			Statement: s.Problem.Statement,
			Signature: s.Problem.Signature,
			Starter:   s.Problem.Starter,
		},
		Remaining:    timer.Seconds(remaining),
		RoundWinners: winners,
	}
}

func buildRun(r *model.RunResult) *types.Run {
	if r == nil {
		return nil
	}
	return &types.Run{
		Output:    r.Output,
		Verdict:   string(r.Verdict),
		AllPass:   r.Correct(),
		ElapsedMs: r.Elapsed.Milliseconds(),
		Error:     r.Error,
	}
}

func buildRunResult(r model.RunResult, after *model.Session, late bool) types.RunResult { //nolint:gocritic // hugeParam: built once per request
	return types.RunResult{
		Output:    r.Output,
		Verdict:   string(r.Verdict),
		AllPass:   r.Correct(),
		ElapsedMs: r.Elapsed.Milliseconds(),
		Error:     r.Error,
		Status:    string(after.Status),
		Round:     after.Round,
		WinnerID:  after.WinnerID,
		GameEnded: after.Status == model.StatusEnded || after.Status == model.StatusCompleted,
		Late:      late,
	}
}
