package publisher_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/duel/internal/adapters/mq/publisher"
	"github.com/okian/duel/internal/domain/model"
)

func TestSubject(t *testing.T) {
	Convey("Subjects are scoped by session and event type", t, func() {
		evt := model.MatchEvent{Type: model.EventRoundEnded, SessionID: "abc"}
		So(publisher.Subject(evt), ShouldEqual, "duel.session.abc.round_ended")
	})
}

func TestRecorder(t *testing.T) {
	Convey("Given a recorder", t, func() {
		rec := &publisher.Recorder{}
		ctx := context.Background()

		So(rec.Publish(ctx, model.MatchEvent{Type: model.EventSessionCreated}), ShouldBeNil)
		So(rec.Publish(ctx, model.MatchEvent{Type: model.EventPlayerJoined}), ShouldBeNil)

		Convey("Events come back in publish order", func() {
			So(rec.Types(), ShouldResemble, []model.EventType{model.EventSessionCreated, model.EventPlayerJoined})
			So(rec.Events(), ShouldHaveLength, 2)
		})
	})

	Convey("Nop accepts everything", t, func() {
		var p publisher.Publisher = publisher.Nop{}
		So(p.Publish(context.Background(), model.MatchEvent{}), ShouldBeNil)
		So(p.Close(), ShouldBeNil)
	})
}

// Runs only when DUEL_TEST_NATS_URL points at a reachable server.
func TestNATSPublisher(t *testing.T) {
	url := os.Getenv("DUEL_TEST_NATS_URL")
	if url == "" {
		t.Skip("DUEL_TEST_NATS_URL not set")
	}

	Convey("Given a publisher and a subscriber on the session subjects", t, func() {
		pub, err := publisher.NewNATSPublisher(url)
		So(err, ShouldBeNil)
		defer pub.Close()

		nc, err := nats.Connect(url)
		So(err, ShouldBeNil)
		defer nc.Close()

		sub, err := nc.SubscribeSync("duel.session.s1.>")
		So(err, ShouldBeNil)
		So(nc.Flush(), ShouldBeNil)

		evt := model.MatchEvent{Type: model.EventRoundStarted, SessionID: "s1", Round: 2}
		So(pub.Publish(context.Background(), evt), ShouldBeNil)

		msg, err := sub.NextMsg(2 * time.Second)
		So(err, ShouldBeNil)
		So(msg.Subject, ShouldEqual, "duel.session.s1.round_started")

		var got model.MatchEvent
		So(json.Unmarshal(msg.Data, &got), ShouldBeNil)
		So(got.Round, ShouldEqual, 2)
	})
}
