package duelsim

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/duel/internal/domain/problems"
	"github.com/okian/duel/internal/domain/types"
	"github.com/okian/duel/pkg/logger"
)

// wrongCode never passes: it defines nothing.
const wrongCode = "pass\n"

// ErrMismatch reports an outcome that contradicts the match rules.
var ErrMismatch = errors.New("unexpected match outcome")

// randomIntn returns a uniform int in [0, n) using crypto/rand.
func randomIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

type seat struct {
	id   string
	name string
}

// player plays one match end to end. In every round one randomly chosen
// player submits the reference solution while the other submits failing
// code at the same time.
type player struct {
	client  *Client
	catalog *problems.Catalog
	stats   *Stats
	verbose bool
	log     logger.Logger
}

func (p *player) playMatch(ctx context.Context) error {
	p.stats.MatchesStarted.Add(1)
	tag := uuid.NewString()[:8]

	created, err := p.client.Create(ctx, "alice-"+tag)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	sessionID := created.SessionID
	joined, err := p.client.Join(ctx, sessionID, "bob-"+tag)
	if err != nil {
		return fmt.Errorf("join %s: %w", sessionID, err)
	}
	seats := [2]seat{{created.PlayerID, "alice"}, {joined.PlayerID, "bob"}}

	var winners []string
	for {
		snap, err := p.client.Snapshot(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", sessionID, err)
		}
		if snap.Status != "active" {
			return fmt.Errorf("%w: round %d is %s, want active", ErrMismatch, snap.Round, snap.Status)
		}

		winner := randomIntn(len(seats))
		res, err := p.playRound(ctx, sessionID, snap.Problem.Slug, seats[winner], seats[1-winner])
		if err != nil {
			return fmt.Errorf("round %d of %s: %w", snap.Round, sessionID, err)
		}
		p.stats.RoundsPlayed.Add(1)
		winners = append(winners, seats[winner].id)
		if p.verbose {
			p.log.Info(ctx, "round played",
				logger.String("session_id", sessionID),
				logger.Int("round", snap.Round),
				logger.String("winner", seats[winner].name))
		}

		if res.GameEnded {
			break
		}
		if _, err := p.client.NextRound(ctx, sessionID, seats[randomIntn(len(seats))].id); err != nil {
			return fmt.Errorf("next round of %s: %w", sessionID, err)
		}
	}

	final, err := p.client.Snapshot(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("final snapshot %s: %w", sessionID, err)
	}
	return verifyFinal(final, seats, winners)
}

// playRound races a correct and a failing submission and checks that the
// correct one took the round.
func (p *player) playRound(ctx context.Context, sessionID, slug string, winner, loser seat) (types.RunResult, error) {
	def, ok := p.catalog.Lookup(slug)
	if !ok {
		return types.RunResult{}, fmt.Errorf("%w: unknown problem %q", ErrMismatch, slug)
	}

	var (
		wg      sync.WaitGroup
		loseErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		res, err := p.client.Run(ctx, sessionID, loser.id, wrongCode)
		p.stats.Runs.Add(1)
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict:
			// The round ended before this run was accepted.
			p.stats.Rejected.Add(1)
		case err != nil:
			loseErr = err
		case res.AllPass:
			loseErr = fmt.Errorf("%w: failing code passed", ErrMismatch)
		case res.Late:
			p.stats.LateRuns.Add(1)
		}
	}()

	res, err := p.client.Run(ctx, sessionID, winner.id, def.Reference)
	p.stats.Runs.Add(1)
	wg.Wait()
	if err != nil {
		return res, err
	}
	if loseErr != nil {
		return res, loseErr
	}
	if !res.AllPass || res.WinnerID != winner.id {
		return res, fmt.Errorf("%w: %s solved the round but winner is %q (verdict %s)",
			ErrMismatch, winner.name, res.WinnerID, res.Verdict)
	}
	return res, nil
}

// verifyFinal checks the completed match against the recorded round winners.
func verifyFinal(snap types.Snapshot, seats [2]seat, winners []string) error {
	if snap.Status != "completed" {
		return fmt.Errorf("%w: final status %s", ErrMismatch, snap.Status)
	}
	if len(winners) != snap.RoundsTotal {
		return fmt.Errorf("%w: played %d of %d rounds", ErrMismatch, len(winners), snap.RoundsTotal)
	}
	if want := expectedChampion(seats, winners); snap.ChampionID != want {
		return fmt.Errorf("%w: champion %q, want %q", ErrMismatch, snap.ChampionID, want)
	}
	return nil
}

// expectedChampion applies the tally: most round wins, then the most
// recent round winner, then the creator.
func expectedChampion(seats [2]seat, winners []string) string {
	wins := map[string]int{}
	for _, w := range winners {
		if w != "" {
			wins[w]++
		}
	}
	a, b := seats[0].id, seats[1].id
	switch {
	case wins[a] > wins[b]:
		return a
	case wins[b] > wins[a]:
		return b
	}
	for i := len(winners) - 1; i >= 0; i-- {
		if winners[i] != "" {
			return winners[i]
		}
	}
	return a
}
