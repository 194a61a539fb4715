package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/duel/internal/adapters/mq/publisher"
	"github.com/okian/duel/internal/adapters/repository"
	service "github.com/okian/duel/internal/app"
	"github.com/okian/duel/internal/config"
)

func TestWiring(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("Then the memory store is selected", func() {
			store, closeStore, err := newStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer closeStore()
			_, ok := store.(*repository.MemoryStore)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("Then events are discarded without a NATS url", func() {
			pub, err := newPublisher(cfg)
			convey.So(err, convey.ShouldBeNil)
			_, ok := pub.(publisher.Nop)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("Then the root handler serves the API, docs and CORS", func() {
			svc := service.New(serviceOptions(cfg, repository.NewMemoryStore(), publisher.Nop{})...)
			h := newHandler(ctx, svc, cfg.AllowedOrigins)

			req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", http.NoBody)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

			req = httptest.NewRequest(http.MethodGet, "/stats", http.NoBody)
			req.Header.Set("Origin", cfg.AllowedOrigins[0])
			w = httptest.NewRecorder()
			h.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("Access-Control-Allow-Origin"), convey.ShouldEqual, cfg.AllowedOrigins[0])
		})

		convey.Convey("Then metrics updaters do not panic", func() {
			svc := service.New()
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}
