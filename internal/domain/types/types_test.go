package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/duel/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSnapshot_JSON(t *testing.T) {
	Convey("Given a snapshot of an active round", t, func() {
		snap := types.Snapshot{
			SessionID:   "s1",
			Players:     []types.Player{{ID: "p1", Name: "Alice"}, {ID: "p2", Name: "Bob", LastRun: &types.Run{Output: "Test 1: FAIL", Verdict: "incorrect"}}},
			Status:      "active",
			Round:       2,
			RoundsTotal: 5,
			Problem:     types.Problem{Title: "Binary Search"},
			Remaining:   120,
		}

		Convey("When encoded", func() {
			raw, err := json.Marshal(snap)
			So(err, ShouldBeNil)
			var m map[string]any
			So(json.Unmarshal(raw, &m), ShouldBeNil)

			Convey("Then it uses the client's field names", func() {
				So(m, ShouldContainKey, "sessionId")
				So(m, ShouldContainKey, "roundsTotal")
				So(m["remaining"], ShouldEqual, 120.0)
			})

			Convey("And it omits an undecided winner and champion", func() {
				So(m, ShouldNotContainKey, "winnerId")
				So(m, ShouldNotContainKey, "championId")
			})

			Convey("And it exposes no deadline", func() {
				So(m, ShouldNotContainKey, "deadlineAt")
				So(m, ShouldNotContainKey, "roundEndsAt")
			})

			Convey("And players without a run omit it", func() {
				players := m["players"].([]any)
				So(players[0].(map[string]any), ShouldNotContainKey, "lastRun")
				So(players[1].(map[string]any), ShouldContainKey, "lastRun")
			})
		})
	})
}
