package match_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/duel/internal/domain/match"
	"github.com/okian/duel/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newMachine(clock clockwork.Clock) *match.Machine {
	return match.NewMachine(
		match.WithClock(clock),
		match.WithRoundsTotal(5),
		match.WithRoundDuration(5*time.Minute),
	)
}

func correct(round int) model.RunResult {
	return model.RunResult{Output: "Test 1: PASS", Verdict: model.VerdictCorrect, Round: round}
}

func startedSession(m *match.Machine) *model.Session {
	s, _, err := m.NewSession("s1", model.Player{ID: "alice", Name: "Alice"})
	So(err, ShouldBeNil)
	_, err = m.Join(s, model.Player{ID: "bob", Name: "Bob"})
	So(err, ShouldBeNil)
	return s
}

func TestMachine_CreateAndJoin(t *testing.T) {
	Convey("Given a machine on a fake clock", t, func() {
		clock := clockwork.NewFakeClockAt(epoch)
		m := newMachine(clock)

		Convey("When Alice creates a session", func() {
			s, events, err := m.NewSession("s1", model.Player{ID: "alice", Name: "Alice"})
			So(err, ShouldBeNil)

			Convey("Then it waits with one player and no deadline", func() {
				So(s.Status, ShouldEqual, model.StatusWaiting)
				So(s.Round, ShouldEqual, 1)
				So(s.RoundsTotal, ShouldEqual, 5)
				So(len(s.Players), ShouldEqual, 1)
				So(s.DeadlineAt.IsZero(), ShouldBeTrue)
				So(m.Remaining(s), ShouldEqual, 0)
				So(events[0].Type, ShouldEqual, model.EventSessionCreated)
			})

			Convey("When Bob joins", func() {
				events, err := m.Join(s, model.Player{ID: "bob", Name: "Bob"})
				So(err, ShouldBeNil)

				Convey("Then round one is active with a deadline and a problem", func() {
					So(s.Status, ShouldEqual, model.StatusActive)
					So(s.Round, ShouldEqual, 1)
					So(s.DeadlineAt.Equal(epoch.Add(5*time.Minute)), ShouldBeTrue)
					So(s.Problem.Title, ShouldEqual, "Two Sum")
					So(m.Remaining(s), ShouldEqual, 5*time.Minute)
					So(events[len(events)-1].Type, ShouldEqual, model.EventRoundStarted)
				})

				Convey("And a third player is turned away", func() {
					_, err := m.Join(s, model.Player{ID: "carol", Name: "Carol"})
					So(errors.Is(err, match.ErrSessionFull), ShouldBeTrue)
					So(len(s.Players), ShouldEqual, 2)
				})
			})
		})
	})
}

func TestMachine_Rounds(t *testing.T) {
	Convey("Given an active round", t, func() {
		clock := clockwork.NewFakeClockAt(epoch)
		m := newMachine(clock)
		s := startedSession(m)

		Convey("When Alice submits correct code before Bob submits anything", func() {
			clock.Advance(30 * time.Second)
			round, _, err := m.Accept(s, "alice", "def two_sum(n, t): ...")
			So(err, ShouldBeNil)
			So(s.Players[0].Code, ShouldBeEmpty)
			out, events, err := m.Submit(s, "alice", "def two_sum(n, t): ...", correct(round))
			So(err, ShouldBeNil)

			Convey("Then the round ends with Alice as winner", func() {
				So(out.Resolved, ShouldBeTrue)
				So(s.Status, ShouldEqual, model.StatusEnded)
				So(s.WinnerID, ShouldEqual, "alice")
				So(s.DeadlineAt.IsZero(), ShouldBeTrue)
				So(s.Players[0].Wins, ShouldEqual, 1)
				So(s.RoundWinners, ShouldResemble, []string{"alice"})
				So(s.Players[0].Code, ShouldEqual, "def two_sum(n, t): ...")
				So(events[0].Type, ShouldEqual, model.EventRoundEnded)
			})

			Convey("And Bob's later correct result does not change the winner", func() {
				out, _, err := m.Submit(s, "bob", "late", correct(1))
				So(err, ShouldBeNil)
				So(out.Resolved, ShouldBeFalse)
				So(s.WinnerID, ShouldEqual, "alice")
				So(s.Players[1].Code, ShouldBeEmpty)
			})

			Convey("And advancing starts round two with a fresh deadline", func() {
				clock.Advance(time.Minute)
				_, err := m.Advance(s, "bob")
				So(err, ShouldBeNil)
				So(s.Round, ShouldEqual, 2)
				So(s.Status, ShouldEqual, model.StatusActive)
				So(s.WinnerID, ShouldBeEmpty)
				So(s.Problem.Title, ShouldEqual, "Binary Search")
				So(m.Remaining(s), ShouldEqual, 5*time.Minute)
				So(s.Players[0].Code, ShouldBeEmpty)
				So(s.Players[0].LastRun, ShouldBeNil)
			})
		})

		Convey("When neither player submits before the deadline", func() {
			clock.Advance(5 * time.Minute)
			So(m.NeedsExpiry(s), ShouldBeTrue)
			events, changed := m.ResolveExpiry(s)

			Convey("Then the round ends as a draw", func() {
				So(changed, ShouldBeTrue)
				So(s.Status, ShouldEqual, model.StatusEnded)
				So(s.WinnerID, ShouldBeEmpty)
				So(s.RoundWinners, ShouldResemble, []string{""})
				So(events[0].Type, ShouldEqual, model.EventRoundEnded)
			})

			Convey("And resolving again is a no-op", func() {
				_, changed := m.ResolveExpiry(s)
				So(changed, ShouldBeFalse)
			})
		})

		Convey("When a run is accepted after the deadline", func() {
			clock.Advance(6 * time.Minute)
			_, _, err := m.Accept(s, "bob", "print(1)")

			Convey("Then the round is expired first and the run is rejected", func() {
				var se *match.StateError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Status, ShouldEqual, model.StatusEnded)
				So(errors.Is(err, match.ErrInvalidState), ShouldBeTrue)
			})
		})

		Convey("When a result is judged after the deadline passed during execution", func() {
			round, _, err := m.Accept(s, "alice", "code")
			So(err, ShouldBeNil)
			clock.Advance(5 * time.Minute)
			out, _, err := m.Submit(s, "alice", "code", correct(round))
			So(err, ShouldBeNil)

			Convey("Then the expiry wins and the result is discarded", func() {
				So(out.Resolved, ShouldBeFalse)
				So(s.WinnerID, ShouldBeEmpty)
				So(s.Status, ShouldEqual, model.StatusEnded)
				So(s.Players[0].Code, ShouldBeEmpty)
				So(s.Players[0].LastRun, ShouldBeNil)
			})
		})

		Convey("When an incorrect result is judged", func() {
			_, _, err := m.Submit(s, "bob", "return None", model.RunResult{Verdict: model.VerdictIncorrect, Round: 1})
			So(err, ShouldBeNil)

			Convey("Then the code and the result are attached together", func() {
				So(s.Status, ShouldEqual, model.StatusActive)
				So(s.Players[1].Code, ShouldEqual, "return None")
				So(s.Players[1].LastRun.Verdict, ShouldEqual, model.VerdictIncorrect)
			})
		})

		Convey("When input is invalid", func() {
			_, _, err := m.Accept(s, "alice", "   ")
			So(errors.Is(err, match.ErrInvalidInput), ShouldBeTrue)
			_, _, err = m.Accept(s, "mallory", "code")
			So(errors.Is(err, match.ErrNotFound), ShouldBeTrue)
		})

		Convey("When advancing during an active round", func() {
			_, err := m.Advance(s, "alice")
			So(errors.Is(err, match.ErrInvalidState), ShouldBeTrue)
			So(s.Round, ShouldEqual, 1)
		})

		Convey("When the editor is mirrored", func() {
			_, err := m.UpdateCode(s, "bob", "def two_sum():")
			So(err, ShouldBeNil)
			So(s.Players[1].Code, ShouldEqual, "def two_sum():")
		})
	})
}

func TestMachine_Completion(t *testing.T) {
	Convey("Given a five round match", t, func() {
		clock := clockwork.NewFakeClockAt(epoch)
		m := newMachine(clock)
		s := startedSession(m)

		winners := []string{"alice", "bob", "alice", "", "bob"}
		for i, w := range winners {
			if w == "" {
				clock.Advance(5 * time.Minute)
				m.ResolveExpiry(s)
			} else {
				_, _, err := m.Submit(s, w, "solve", correct(s.Round))
				So(err, ShouldBeNil)
			}
			if i < len(winners)-1 {
				_, err := m.Advance(s, "alice")
				So(err, ShouldBeNil)
			}
		}

		Convey("Then the match completes with a champion after round five", func() {
			So(s.Round, ShouldEqual, 5)
			So(s.Status, ShouldEqual, model.StatusCompleted)
			So(s.RoundWinners, ShouldResemble, winners)
			// 2-2 tie broken by the most recent round winner
			So(s.ChampionID, ShouldEqual, "bob")
			So(s.DeadlineAt.IsZero(), ShouldBeTrue)
		})

		Convey("And advancing past the last round fails with the current status", func() {
			_, err := m.Advance(s, "bob")
			var se *match.StateError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Status, ShouldEqual, model.StatusCompleted)
			So(s.Round, ShouldEqual, 5)
		})

		Convey("And runs are rejected", func() {
			_, _, err := m.Accept(s, "alice", "code")
			So(errors.Is(err, match.ErrInvalidState), ShouldBeTrue)
		})
	})
}

func TestNormalizeName(t *testing.T) {
	Convey("Given display names", t, func() {
		name, err := match.NormalizeName("  Alice  ")
		So(err, ShouldBeNil)
		So(name, ShouldEqual, "Alice")

		_, err = match.NormalizeName("   ")
		So(errors.Is(err, match.ErrInvalidInput), ShouldBeTrue)

		long := make([]rune, match.MaxNameLength+1)
		for i := range long {
			long[i] = 'x'
		}
		_, err = match.NormalizeName(string(long))
		So(errors.Is(err, match.ErrInvalidInput), ShouldBeTrue)
	})
}
