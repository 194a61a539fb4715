package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/duel/internal/adapters/http/api"
	"github.com/okian/duel/internal/adapters/mq/worker"
	service "github.com/okian/duel/internal/app"
	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/internal/domain/types"
)

func judgeByContent(_ context.Context, job model.ExecutionJob) model.RunResult {
	if strings.Contains(job.Code, "solve") {
		return model.RunResult{Output: "Test 1: PASS", Verdict: model.VerdictCorrect, Elapsed: time.Millisecond}
	}
	return model.RunResult{Output: "Test 1: FAIL", Verdict: model.VerdictIncorrect, Elapsed: time.Millisecond}
}

func newTestServer() (*httptest.Server, func()) {
	svc := service.New(
		service.WithExecutor(worker.ExecutorFunc(judgeByContent)),
		service.WithWorkerCount(2),
		service.WithExecTimeout(time.Second),
		service.WithSweepInterval(time.Hour),
	)
	So(svc.Start(context.Background()), ShouldBeNil)

	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	ts := httptest.NewServer(api.WithCORS(mux, []string{"http://localhost:5173"}))
	return ts, func() {
		ts.Close()
		_ = svc.Stop(context.Background())
	}
}

func post(ts *httptest.Server, path string, body any) *http.Response {
	buf, err := json.Marshal(body)
	So(err, ShouldBeNil)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(buf))
	So(err, ShouldBeNil)
	return resp
}

func decodeInto(resp *http.Response, v any) {
	defer resp.Body.Close()
	So(json.NewDecoder(resp.Body).Decode(v), ShouldBeNil)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func TestMatchFlow(t *testing.T) {
	Convey("Given an API server", t, func() {
		ts, stop := newTestServer()
		defer stop()

		resp := post(ts, "/api/match/create", map[string]string{"player1": "Alice"})
		So(resp.StatusCode, ShouldEqual, http.StatusCreated)
		var created types.Created
		decodeInto(resp, &created)
		So(created.SessionID, ShouldNotBeEmpty)
		So(created.Status, ShouldEqual, "waiting")

		Convey("Running before the opponent joins is an invalid state", func() {
			resp := post(ts, "/api/match/run", types.RunRequest{SessionID: created.SessionID, PlayerID: created.PlayerID, Code: "x"})
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			var e apiError
			decodeInto(resp, &e)
			So(e.Code, ShouldEqual, "invalid_state")
			So(e.Status, ShouldEqual, "waiting")
		})

		Convey("When Bob joins", func() {
			resp := post(ts, "/api/match/join", map[string]string{"sessionId": created.SessionID, "playerName": "Bob"})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var joined types.Joined
			decodeInto(resp, &joined)
			So(joined.PlayerID, ShouldNotBeEmpty)

			Convey("The snapshot shows an active round", func() {
				resp, err := http.Get(ts.URL + "/api/match/" + created.SessionID)
				So(err, ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var snap types.Snapshot
				decodeInto(resp, &snap)
				So(snap.Status, ShouldEqual, "active")
				So(snap.Players, ShouldHaveLength, 2)
				So(snap.Remaining, ShouldBeGreaterThan, 0)
			})

			Convey("A third player gets session_full", func() {
				resp := post(ts, "/api/match/join", map[string]string{"sessionId": created.SessionID, "playerName": "Carol"})
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
				var e apiError
				decodeInto(resp, &e)
				So(e.Code, ShouldEqual, "session_full")
			})

			Convey("Code updates are mirrored to the snapshot", func() {
				resp := post(ts, "/api/match/code", map[string]string{
					"sessionId": created.SessionID, "playerId": joined.PlayerID, "code": "def f(): pass",
				})
				So(resp.StatusCode, ShouldEqual, http.StatusNoContent)
				resp.Body.Close()

				resp, err := http.Get(ts.URL + "/api/match/" + created.SessionID)
				So(err, ShouldBeNil)
				var snap types.Snapshot
				decodeInto(resp, &snap)
				So(snap.Players[1].Code, ShouldEqual, "def f(): pass")
			})

			Convey("A correct run wins the round and advancing moves to round two", func() {
				resp := post(ts, "/api/match/run", types.RunRequest{SessionID: created.SessionID, PlayerID: joined.PlayerID, Code: "wrong"})
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var miss types.RunResult
				decodeInto(resp, &miss)
				So(miss.Verdict, ShouldEqual, "incorrect")
				So(miss.Status, ShouldEqual, "active")

				resp = post(ts, "/api/match/run", types.RunRequest{SessionID: created.SessionID, PlayerID: joined.PlayerID, Code: "solve"})
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var hit types.RunResult
				decodeInto(resp, &hit)
				So(hit.AllPass, ShouldBeTrue)
				So(hit.WinnerID, ShouldEqual, joined.PlayerID)
				So(hit.Status, ShouldEqual, "ended")
				So(hit.GameEnded, ShouldBeFalse)

				resp = post(ts, "/api/match/next-round", map[string]string{"sessionId": created.SessionID, "playerId": created.PlayerID})
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var adv types.Advanced
				decodeInto(resp, &adv)
				So(adv.Round, ShouldEqual, 2)
			})
		})
	})
}

func TestRequestErrors(t *testing.T) {
	Convey("Given an API server", t, func() {
		ts, stop := newTestServer()
		defer stop()

		Convey("A blank creator is invalid input", func() {
			resp := post(ts, "/api/match/create", map[string]string{"player1": "  "})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			var e apiError
			decodeInto(resp, &e)
			So(e.Code, ShouldEqual, "invalid_input")
		})

		Convey("A malformed body is invalid input", func() {
			resp, err := http.Post(ts.URL+"/api/match/create", "application/json", strings.NewReader("{"))
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("An unknown session is not found", func() {
			resp, err := http.Get(ts.URL + "/api/match/missing")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			var e apiError
			decodeInto(resp, &e)
			So(e.Code, ShouldEqual, "not_found")
		})

		Convey("Missing ids are rejected before reaching the service", func() {
			resp := post(ts, "/api/match/next-round", map[string]string{"sessionId": "abc"})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("Wrong methods are refused", func() {
			resp, err := http.Get(ts.URL + "/api/match/create")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
			So(resp.Header.Get("Allow"), ShouldEqual, http.MethodPost)
			resp.Body.Close()
		})

		Convey("CORS preflight from an allowed origin succeeds", func() {
			req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/match/run", http.NoBody)
			So(err, ShouldBeNil)
			req.Header.Set("Origin", "http://localhost:5173")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			So(resp.Header.Get("Access-Control-Allow-Origin"), ShouldEqual, "http://localhost:5173")
			resp.Body.Close()
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given an API server", t, func() {
		ts, stop := newTestServer()
		defer stop()

		Convey("Stats report the executor pool", func() {
			resp, err := http.Get(ts.URL + "/stats")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var stats map[string]any
			decodeInto(resp, &stats)
			So(stats["workerCount"], ShouldEqual, float64(2))
			So(stats["started"], ShouldEqual, true)
		})

		Convey("Healthz serves Prometheus metrics", func() {
			_ = post(ts, "/api/match/create", map[string]string{"player1": "Alice"}).Body.Close()
			resp, err := http.Get(ts.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var buf bytes.Buffer
			_, _ = buf.ReadFrom(resp.Body)
			So(buf.String(), ShouldContainSubstring, "duel_match_sessions_created_total")
		})
	})
}
