package probe_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/okian/inferd/internal/adapters/http/api"
	service "github.com/okian/inferd/internal/app"
	"github.com/okian/inferd/internal/domain/catalog"
	"github.com/okian/inferd/internal/probe"
	"github.com/okian/inferd/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

type stubScorer map[int64]float64

func (s stubScorer) Score(_ context.Context, _, item int64) (float64, error) { return s[item], nil }

func (stubScorer) IsKnownUser(user int64) bool { return user == 1 || user == 2 }

func newRecommenderServer() *httptest.Server {
	cat, err := catalog.New([]int64{1, 2, 3}, []string{"A title", "B title", "C title"})
	So(err, ShouldBeNil)
	rec := service.New(
		service.WithArtifacts(&service.Artifacts{Scorer: stubScorer{1: 0.9, 2: 0.95, 3: 0.1}, Catalog: cat}),
		service.WithTopN(2),
	)
	So(rec.Start(context.Background()), ShouldBeNil)
	mux := http.NewServeMux()
	api.NewServer(rec, rec).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

// flakyHandler answers a different list on every call.
func flakyHandler() http.Handler {
	var n atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("GET /recommendations/{id}", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `["title %d"]`, n.Add(1))
	})
	return mux
}

func TestRun(t *testing.T) {
	Convey("Given a running recommender", t, func() {
		srv := newRecommenderServer()
		defer srv.Close()
		ctx := context.Background()

		Convey("When probing known and unknown users", func() {
			out := filepath.Join(t.TempDir(), "reports", "probe.json")
			report, err := probe.Run(ctx, probe.Config{
				BaseURL:    srv.URL,
				Users:      []int64{1, 42, 2},
				TopN:       2,
				Workers:    2,
				OutputFile: out,
			})

			Convey("Then every known user passes and results keep input order", func() {
				So(err, ShouldBeNil)
				So(report.Passed(), ShouldBeTrue)
				So(report.OK, ShouldEqual, 2)
				So(report.NotFound, ShouldEqual, 1)
				So(report.Results[0].User, ShouldEqual, 1)
				So(report.Results[0].Titles, ShouldResemble, []string{"B title", "A title"})
				So(report.Results[1].Status, ShouldEqual, probe.StatusNotFound)
				So(report.RunID, ShouldHaveLength, 36)
			})

			Convey("And the report is saved and printable", func() {
				_, statErr := os.Stat(out)
				So(statErr, ShouldBeNil)

				var buf bytes.Buffer
				So(report.Print(&buf), ShouldBeNil)
				So(buf.String(), ShouldContainSubstring, "USER")
				So(buf.String(), ShouldContainSubstring, "PASS")
			})
		})

		Convey("When the expected length is smaller than the answers", func() {
			report, err := probe.Run(ctx, probe.Config{BaseURL: srv.URL, Users: []int64{1}, TopN: 1})

			Convey("Then the length violation fails the run", func() {
				So(err, ShouldBeNil)
				So(report.Passed(), ShouldBeFalse)
				So(report.Violation, ShouldEqual, 1)
				So(report.Results[0].WithinN, ShouldBeFalse)
			})
		})
	})

	Convey("Given a service whose answers change between calls", t, func() {
		srv := httptest.NewServer(flakyHandler())
		defer srv.Close()

		Convey("When probing a user", func() {
			report, err := probe.Run(context.Background(), probe.Config{BaseURL: srv.URL, Users: []int64{7}})

			Convey("Then the idempotence violation is reported", func() {
				So(err, ShouldBeNil)
				So(report.Passed(), ShouldBeFalse)
				So(report.Results[0].Identical, ShouldBeFalse)

				var buf bytes.Buffer
				So(report.Print(&buf), ShouldBeNil)
				So(buf.String(), ShouldContainSubstring, "FAIL")
			})
		})
	})

	Convey("Given a service that is down", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		Convey("Then the run stops at the health check", func() {
			_, err := probe.Run(context.Background(), probe.Config{BaseURL: srv.URL, Users: []int64{1}})
			So(errors.Is(err, probe.ErrUnhealthy), ShouldBeTrue)
		})
	})

	Convey("Given no users", t, func() {
		Convey("Then the run is refused", func() {
			_, err := probe.Run(context.Background(), probe.Config{BaseURL: "http://127.0.0.1:1"})
			So(errors.Is(err, probe.ErrNoUsers), ShouldBeTrue)
		})
	})
}
