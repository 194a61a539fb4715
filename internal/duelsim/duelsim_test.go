package duelsim_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/duel/internal/adapters/http/api"
	"github.com/okian/duel/internal/adapters/mq/worker"
	service "github.com/okian/duel/internal/app"
	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/internal/domain/problems"
	"github.com/okian/duel/internal/duelsim"
)

// referenceJudge accepts exactly the catalog's reference solutions.
func referenceJudge(catalog *problems.Catalog) worker.ExecutorFunc {
	return func(_ context.Context, job model.ExecutionJob) model.RunResult {
		def, ok := catalog.Lookup(job.ProblemSlug)
		if ok && job.Code == def.Reference {
			return model.RunResult{Output: "Test 1: PASS", Verdict: model.VerdictCorrect, Elapsed: time.Millisecond}
		}
		return model.RunResult{Output: "Test 1: FAIL", Verdict: model.VerdictIncorrect, Elapsed: time.Millisecond}
	}
}

func TestSimulation(t *testing.T) {
	Convey("Given a duel server with a reference judge", t, func() {
		svc := service.New(
			service.WithExecutor(referenceJudge(problems.NewCatalog())),
			service.WithWorkerCount(4),
			service.WithRoundsTotal(3),
		)
		So(svc.Start(context.Background()), ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)
		ts := httptest.NewServer(mux)
		defer ts.Close()

		Convey("When several matches are played concurrently", func() {
			stats, err := duelsim.Run(context.Background(), &duelsim.Config{
				BaseURL: ts.URL,
				Matches: 6,
				Workers: 3,
				Timeout: 5 * time.Second,
			})

			Convey("Then every match completes with the expected champion", func() {
				So(err, ShouldBeNil)
				So(stats.MatchesCompleted.Load(), ShouldEqual, int64(6))
				So(stats.MatchesFailed.Load(), ShouldEqual, int64(0))
				So(stats.RoundsPlayed.Load(), ShouldEqual, int64(18))
				So(stats.Runs.Load(), ShouldEqual, int64(36))
			})
		})
	})

	Convey("Given no server", t, func() {
		_, err := duelsim.Run(context.Background(), &duelsim.Config{
			BaseURL: "http://127.0.0.1:1",
			Matches: 1,
			Workers: 1,
			Timeout: time.Second,
		})
		So(err, ShouldNotBeNil)
	})
}

func TestClientErrors(t *testing.T) {
	Convey("Given a client against an empty server", t, func() {
		svc := service.New(service.WithExecutor(referenceJudge(problems.NewCatalog())))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)
		ts := httptest.NewServer(mux)
		defer ts.Close()

		client := duelsim.NewClient(ts.URL, time.Second)

		Convey("Unknown sessions surface as API errors", func() {
			_, err := client.Snapshot(context.Background(), "missing")
			apiErr, ok := err.(*duelsim.APIError)
			So(ok, ShouldBeTrue)
			So(apiErr.StatusCode, ShouldEqual, http.StatusNotFound)
			So(apiErr.Code, ShouldEqual, "not_found")
		})
	})
}
