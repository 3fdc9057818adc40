package api_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/okian/inferd/internal/adapters/http/api"
	service "github.com/okian/inferd/internal/app"
	"github.com/okian/inferd/internal/domain/catalog"
	"github.com/okian/inferd/internal/domain/ranking"
	"github.com/okian/inferd/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

// stubScorer knows user 1 and scores items from a fixed table.
type stubScorer map[int64]float64

func (s stubScorer) Score(_ context.Context, _, item int64) (float64, error) {
	return s[item], nil
}

func (stubScorer) IsKnownUser(user int64) bool { return user == 1 }

// mockDependencies returns a canned answer.
type mockDependencies struct {
	ready  bool
	titles []string
	err    error
}

func (m *mockDependencies) Recommend(context.Context, int64) ([]string, error) {
	return m.titles, m.err
}

func (m *mockDependencies) Ready() bool { return m.ready }

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}})
	server.Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, path, http.NoBody))
	return w
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeError(w *httptest.ResponseRecorder) errorBody {
	var body errorBody
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestRecommendationsEndToEnd(t *testing.T) {
	Convey("Given a recommender over a stub model A=0.9, B=0.95, C=0.1 with N=2", t, func() {
		cat, err := catalog.New([]int64{1, 2, 3}, []string{"A title", "B title", "C title"})
		So(err, ShouldBeNil)
		rec := service.New(
			service.WithArtifacts(&service.Artifacts{
				Scorer:  stubScorer{1: 0.9, 2: 0.95, 3: 0.1},
				Catalog: cat,
			}),
			service.WithTopN(2),
			service.WithCacheSize(0),
		)
		So(rec.Start(context.Background()), ShouldBeNil)
		defer rec.Stop()
		mux := newMux(rec)

		Convey("When user 1 asks for recommendations", func() {
			w := do(mux, http.MethodGet, "/recommendations/1")

			Convey("Then the two best titles come back in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				var titles []string
				So(json.Unmarshal(w.Body.Bytes(), &titles), ShouldBeNil)
				So(titles, ShouldResemble, []string{"B title", "A title"})
			})

			Convey("And asking again gives the same answer", func() {
				again := do(mux, http.MethodGet, "/recommendations/1")
				So(again.Body.String(), ShouldEqual, w.Body.String())
			})
		})

		Convey("When an unknown user asks", func() {
			w := do(mux, http.MethodGet, "/recommendations/42")

			Convey("Then it is a 404 with the user id in the message", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				body := decodeError(w)
				So(body.Code, ShouldEqual, api.CodeUserNotFound)
				So(body.Message, ShouldEqual, "User ID 42 not found or inactive in the training data.")
			})
		})

		Convey("When the user id is not an integer", func() {
			w := do(mux, http.MethodGet, "/recommendations/abc")

			Convey("Then it is rejected as unprocessable", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decodeError(w).Code, ShouldEqual, api.CodeInvalidUserID)
			})
		})

		Convey("When the method is not GET", func() {
			w := do(mux, http.MethodPost, "/recommendations/1")

			Convey("Then it is not allowed", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})

	Convey("Given a catalog that cannot name a top-ranked item", t, func() {
		cat, err := catalog.Decode(strings.NewReader(`{"1": "A title", "002": "B title", "3": "C title"}`))
		So(err, ShouldBeNil)
		rec := service.New(
			service.WithArtifacts(&service.Artifacts{Scorer: stubScorer{1: 0.9, 2: 0.95, 3: 0.1}, Catalog: cat}),
			service.WithTopN(2),
		)
		So(rec.Start(context.Background()), ShouldBeNil)
		defer rec.Stop()

		Convey("When user 1 asks", func() {
			w := do(newMux(rec), http.MethodGet, "/recommendations/1")

			Convey("Then it is a generic 500 without a partial list", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := decodeError(w)
				So(body.Code, ShouldEqual, api.CodeInternal)
				So(body.Message, ShouldEqual, "Internal server error during recommendation generation.")
			})
		})
	})
}

func TestRecommendationsFailures(t *testing.T) {
	cases := []struct {
		name   string
		deps   *mockDependencies
		status int
		code   string
	}{
		{"not ready", &mockDependencies{}, http.StatusInternalServerError, api.CodeNotReady},
		{"stopped mid-flight", &mockDependencies{ready: true, err: service.ErrNotReady}, http.StatusInternalServerError, api.CodeNotReady},
		{"deadline", &mockDependencies{ready: true, err: fmt.Errorf("%w: %w", ranking.ErrScoring, context.DeadlineExceeded)}, http.StatusGatewayTimeout, api.CodeTimeout},
		{"backend", &mockDependencies{ready: true, err: errors.New("disk on fire")}, http.StatusInternalServerError, api.CodeInternal},
	}

	Convey("Given failing dependencies", t, func() {
		for _, tc := range cases {
			Convey("When the failure is "+tc.name, func() {
				w := do(newMux(tc.deps), http.MethodGet, "/recommendations/1")

				Convey("Then the status and code match and internals stay hidden", func() {
					So(w.Code, ShouldEqual, tc.status)
					body := decodeError(w)
					So(body.Code, ShouldEqual, tc.code)
					So(body.Message, ShouldNotContainSubstring, "disk on fire")
					So(body.Message, ShouldNotContainSubstring, "deadline")
				})
			})
		}
	})
}

func TestServerRoutes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&mockDependencies{ready: true, titles: []string{}})

		Convey("When probing the root", func() {
			w := do(mux, http.MethodGet, "/")

			Convey("Then the health message names the service", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]string
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body, ShouldResemble, map[string]string{
					"status":  "ok",
					"message": "GoodReads Recommender API is running.",
				})
			})
		})

		Convey("When a user has no recommendations", func() {
			w := do(mux, http.MethodGet, "/recommendations/5")

			Convey("Then an empty array is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldEqual, "[]\n")
			})
		})

		Convey("When reading stats", func() {
			w := do(mux, http.MethodGet, "/stats")

			Convey("Then the provider's stats are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"started":true`)
			})
		})

		Convey("When scraping metrics after a request", func() {
			do(mux, http.MethodGet, "/")
			w := do(mux, http.MethodGet, "/metrics")

			Convey("Then request counters are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "inferd_http_requests_total")
			})
		})

		Convey("When requesting an unknown path", func() {
			w := do(mux, http.MethodGet, "/books")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})

	Convey("Given a custom service name", t, func() {
		mux := http.NewServeMux()
		api.NewServer(&mockDependencies{}, &mockStatsProvider{}, api.WithServiceName("Shelf")).Register(context.Background(), mux)

		Convey("Then the root reports it", func() {
			So(do(mux, http.MethodGet, "/").Body.String(), ShouldContainSubstring, "Shelf is running.")
		})
	})
}
