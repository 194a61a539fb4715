package worker_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/duel/internal/adapters/mq/queue"
	"github.com/okian/duel/internal/adapters/mq/worker"
	"github.com/okian/duel/internal/domain/model"
)

type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 16)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job {
	return mq.jobs
}

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

type mockExecutor struct {
	calls   atomic.Int32
	verdict model.Verdict
	delay   time.Duration
}

func (me *mockExecutor) Execute(ctx context.Context, job model.ExecutionJob) model.RunResult { //nolint:gocritic // hugeParam: test double
	me.calls.Add(1)
	if me.delay > 0 {
		select {
		case <-time.After(me.delay):
		case <-ctx.Done():
			return model.RunResult{Verdict: model.VerdictUndetermined, Error: ctx.Err().Error()}
		}
	}
	return model.RunResult{Output: "Test 1: PASS\n" + job.Code, Verdict: me.verdict, Elapsed: time.Millisecond}
}

func newJob(id string) model.ExecutionJob {
	return model.ExecutionJob{ID: id, SessionID: "s1", PlayerID: "p1", Code: "pass", Reply: make(chan model.RunResult, 1)}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker with a mock queue and executor", t, func() {
		q := newMockQueue()
		exec := &mockExecutor{verdict: model.VerdictCorrect}
		w := worker.NewInMemoryWorker(q, exec, worker.WithName("test-worker"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a job is queued", func() {
			job := newJob("j1")
			q.jobs <- job

			convey.Convey("Then the result arrives on the reply channel", func() {
				select {
				case res := <-job.Reply:
					convey.So(res.Verdict, convey.ShouldEqual, model.VerdictCorrect)
					convey.So(res.Output, convey.ShouldContainSubstring, "PASS")
				case <-time.After(time.Second):
					convey.So("timed out waiting for reply", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When a job has no reply channel", func() {
			q.jobs <- model.ExecutionJob{ID: "j2"}
			q.jobs <- newJob("j3")

			convey.Convey("Then the worker keeps going", func() {
				time.Sleep(50 * time.Millisecond)
				convey.So(exec.calls.Load(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the queue is closed", func() {
			_ = q.Close()

			convey.Convey("Then Run returns and Shutdown succeeds", func() {
				sctx, scancel := context.WithTimeout(context.Background(), time.Second)
				defer scancel()
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestInMemoryWorkerJobTimeout(t *testing.T) {
	convey.Convey("Given a worker whose executor outlives the job timeout", t, func() {
		q := newMockQueue()
		exec := &mockExecutor{verdict: model.VerdictCorrect, delay: time.Second}
		w := worker.NewInMemoryWorker(q, exec, worker.WithJobTimeout(20*time.Millisecond))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		job := newJob("slow")
		q.jobs <- job

		convey.Convey("Then the result is undetermined", func() {
			res := <-job.Reply
			convey.So(res.Verdict, convey.ShouldEqual, model.VerdictUndetermined)
			convey.So(res.Error, convey.ShouldNotBeEmpty)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of four workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		exec := &mockExecutor{verdict: model.VerdictIncorrect, delay: 5 * time.Millisecond}
		pool := worker.NewPool(4, q, exec)
		convey.So(pool.Size(), convey.ShouldEqual, 4)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When many jobs are queued", func() {
			jobs := make([]model.ExecutionJob, 32)
			for i := range jobs {
				jobs[i] = newJob("job")
				convey.So(q.Enqueue(ctx, jobs[i]), convey.ShouldBeNil)
			}

			convey.Convey("Then every job gets exactly one reply", func() {
				for _, job := range jobs {
					res := <-job.Reply
					convey.So(res.Verdict, convey.ShouldEqual, model.VerdictIncorrect)
				}
				convey.So(pool.Processed(), convey.ShouldEqual, 32)
			})

			convey.Convey("Then Shutdown drains the queue", func() {
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
				convey.So(pool.Processed(), convey.ShouldEqual, 32)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}
