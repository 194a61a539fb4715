package model_test

import (
	"testing"

	"github.com/okian/duel/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSession_Clone(t *testing.T) {
	Convey("Given a session with two players and a run result", t, func() {
		s := &model.Session{
			ID:     "s1",
			Status: model.StatusActive,
			Players: []model.Player{
				{ID: "p1", Name: "Alice", LastRun: &model.RunResult{Output: "ok", Verdict: model.VerdictCorrect}},
				{ID: "p2", Name: "Bob"},
			},
			RoundWinners: []string{"p1"},
		}

		Convey("When the clone is mutated", func() {
			c := s.Clone()
			c.Players[0].Name = "Eve"
			c.Players[0].LastRun.Output = "changed"
			c.RoundWinners[0] = ""
			c.Status = model.StatusEnded

			Convey("Then the original is untouched", func() {
				So(s.Players[0].Name, ShouldEqual, "Alice")
				So(s.Players[0].LastRun.Output, ShouldEqual, "ok")
				So(s.RoundWinners[0], ShouldEqual, "p1")
				So(s.Status, ShouldEqual, model.StatusActive)
			})
		})

		Convey("When cloning nil", func() {
			var n *model.Session
			So(n.Clone(), ShouldBeNil)
		})
	})
}

func TestSession_Lookups(t *testing.T) {
	Convey("Given a full session", t, func() {
		s := &model.Session{Players: []model.Player{{ID: "p1"}, {ID: "p2"}}}

		Convey("Player finds seated players only", func() {
			p, ok := s.Player("p2")
			So(ok, ShouldBeTrue)
			So(p.ID, ShouldEqual, "p2")
			_, ok = s.Player("nobody")
			So(ok, ShouldBeFalse)
		})

		Convey("Opponent returns the other seat", func() {
			o, ok := s.Opponent("p1")
			So(ok, ShouldBeTrue)
			So(o.ID, ShouldEqual, "p2")
		})

		Convey("Full is true with two players", func() {
			So(s.Full(), ShouldBeTrue)
			So((&model.Session{Players: []model.Player{{ID: "p1"}}}).Full(), ShouldBeFalse)
		})
	})

	Convey("Given a run result", t, func() {
		So(model.RunResult{Verdict: model.VerdictCorrect}.Correct(), ShouldBeTrue)
		So(model.RunResult{Verdict: model.VerdictUndetermined}.Correct(), ShouldBeFalse)
	})
}
