package server_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/okian/inferd/internal/adapters/http/server"
	"github.com/okian/inferd/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	goleak.VerifyTestMain(m)
}

func TestServe(t *testing.T) {
	Convey("Given a server on an ephemeral port", t, func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)

		h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("pong"))
		})
		srv := server.New(ln.Addr().String(), h, server.WithShutdownTimeout(time.Second))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- srv.Serve(ctx, ln) }()

		Convey("When a request is made and the context is cancelled", func() {
			client := &http.Client{Timeout: 2 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
			resp, err := client.Get("http://" + ln.Addr().String() + "/")
			So(err, ShouldBeNil)
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			cancel()

			Convey("Then the request was served and shutdown is clean", func() {
				So(string(body), ShouldEqual, "pong")
				So(<-done, ShouldBeNil)
			})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given an address already in use", t, func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		defer ln.Close()

		Convey("When running a second server on it", func() {
			err := server.New(ln.Addr().String(), http.NotFoundHandler()).Run(context.Background())

			Convey("Then listening fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("Then the updater samples once and returns", func() {
			So(func() { server.RunSystemMetrics(ctx) }, ShouldNotPanic)
		})
	})
}
