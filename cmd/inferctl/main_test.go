package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/inferd/internal/adapters/http/api"
	service "github.com/okian/inferd/internal/app"
	"github.com/okian/inferd/internal/domain/ranking"
)

const svdJSON = `{
  "algorithm": "svd",
  "version": "cli",
  "global_mean": 3,
  "rating_scale": [1, 5],
  "users": {
    "1": {"bias": 0, "factors": [1, 0], "rated": [40]}
  },
  "items": {
    "10": {"bias": 0.1, "factors": [0, 0]},
    "20": {"bias": 0.5, "factors": [0, 0]},
    "30": {"bias": -0.5, "factors": [0, 0]},
    "40": {"bias": 0.2, "factors": [1, 0]}
  }
}`

const linearJSON = `{
  "kind": "linear",
  "features": ["budget", "runtime", "genre_Action", "genre_Drama"],
  "intercept": 1000,
  "coefficients": {"budget": 2, "runtime": 10, "genre_Action": 500}
}`

// artifactDir writes a full artifact set using the default file names.
func artifactDir(t *testing.T, catalog string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"svd_goodreads_model.json": svdJSON,
		"book_id_to_title.json":    catalog,
		"movie_revenue_model.json": linearJSON,
		"model_features.json":      `["budget","runtime","genre_Action","genre_Drama"]`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func execute(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config="}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRecommendCommand(t *testing.T) {
	Convey("Given a consistent artifact set", t, func() {
		dir := artifactDir(t, `{"10":"Ten","20":"Twenty","30":"Thirty","40":"Forty"}`)

		Convey("When ranking a known user as a table", func() {
			out, err := execute("recommend", "--artifact-dir", dir, "--user", "1", "--top", "2")

			Convey("Then the best titles are listed with scores", func() {
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(out), "\n")
				So(lines, ShouldHaveLength, 3)
				So(lines[0], ShouldStartWith, "RANK")
				So(lines[1], ShouldContainSubstring, "Forty")
				So(lines[1], ShouldContainSubstring, "4.2000")
				So(lines[2], ShouldContainSubstring, "Twenty")
			})
		})

		Convey("When excluding rated items as JSON", func() {
			out, err := execute("recommend", "--artifact-dir", dir, "--user", "1", "--top", "2", "--exclude-interacted", "--json")
			So(err, ShouldBeNil)

			var recs []recommendation
			So(json.Unmarshal([]byte(out), &recs), ShouldBeNil)

			Convey("Then the rated item is skipped", func() {
				So(recs, ShouldHaveLength, 2)
				So(recs[0].Title, ShouldEqual, "Twenty")
				So(recs[1].Title, ShouldEqual, "Ten")
				So(recs[1].Rank, ShouldEqual, 2)
			})
		})

		Convey("When the user is unknown", func() {
			_, err := execute("recommend", "--artifact-dir", dir, "--user", "99")

			Convey("Then the not-found error surfaces", func() {
				So(errors.Is(err, ranking.ErrUserNotFound), ShouldBeTrue)
			})
		})

		Convey("When --user is omitted", func() {
			_, err := execute("recommend", "--artifact-dir", dir)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestEstimateCommand(t *testing.T) {
	Convey("Given revenue artifacts", t, func() {
		dir := artifactDir(t, `{"10":"Ten"}`)

		Convey("When estimating with defaults and one genre", func() {
			out, err := execute("estimate", "--artifact-dir", dir, "--genre", "Action")

			Convey("Then the formatted revenue is printed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "Predicted Revenue: $100,002,700.00\n")
			})
		})

		Convey("When asking for JSON", func() {
			out, err := execute("estimate", "--artifact-dir", dir, "--budget", "1000000", "--runtime", "90", "--genre", "Action", "--json")
			So(err, ShouldBeNil)

			var got service.Estimate
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got.Formatted, ShouldEqual, "$2,002,400.00")
		})

		Convey("When the budget is out of bounds", func() {
			_, err := execute("estimate", "--artifact-dir", dir, "--budget", "5")

			Convey("Then validation rejects it before loading", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "budget")
			})
		})
	})
}

func TestValidateCommand(t *testing.T) {
	Convey("Given a consistent artifact set", t, func() {
		dir := artifactDir(t, `{"10":"Ten","20":"Twenty","50":"Fifty"}`)

		Convey("When validating", func() {
			out, err := execute("validate", "--artifact-dir", dir)

			Convey("Then every check passes and coverage is reported", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "catalog coverage")
				So(out, ShouldContainSubstring, "1 of 3 catalog items have no learned factors")
				So(out, ShouldContainSubstring, "2 genres")
				So(out, ShouldNotContainSubstring, "FAIL")
			})
		})
	})

	Convey("Given a catalog with non-canonical keys", t, func() {
		dir := artifactDir(t, `{"10":"Ten","040":"Forty"}`)

		Convey("When validating the recommender only", func() {
			out, err := execute("validate", "--artifact-dir", dir, "--only", "recommender")

			Convey("Then the keys check fails", func() {
				So(errors.Is(err, ErrValidationFailed), ShouldBeTrue)
				So(out, ShouldContainSubstring, "catalog keys")
				So(out, ShouldContainSubstring, "FAIL")
				So(out, ShouldNotContainSubstring, "estimator")
			})
		})
	})

	Convey("Given a missing revenue model", t, func() {
		dir := artifactDir(t, `{"10":"Ten"}`)
		So(os.Remove(filepath.Join(dir, "movie_revenue_model.json")), ShouldBeNil)

		Convey("Then validation fails on the estimator", func() {
			out, err := execute("validate", "--artifact-dir", dir)
			So(errors.Is(err, ErrValidationFailed), ShouldBeTrue)
			So(out, ShouldContainSubstring, "estimator")
		})
	})
}

func TestProbeCommand(t *testing.T) {
	Convey("Given a running recommendation service", t, func() {
		dir := artifactDir(t, `{"10":"Ten","20":"Twenty","30":"Thirty","40":"Forty"}`)
		rec := service.New(service.WithArtifactPaths(
			filepath.Join(dir, "svd_goodreads_model.json"),
			filepath.Join(dir, "book_id_to_title.json"),
		))
		So(rec.Start(context.Background()), ShouldBeNil)
		defer rec.Stop()

		mux := http.NewServeMux()
		api.NewServer(rec, rec).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When probing a known and an unknown user", func() {
			report := filepath.Join(t.TempDir(), "probe.json")
			out, err := execute("probe", "--url", srv.URL, "--users", "1,99", "--output", report)

			Convey("Then the run passes and the report is saved", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "PASS")
				So(out, ShouldContainSubstring, "not_found=1")
				_, statErr := os.Stat(report)
				So(statErr, ShouldBeNil)
			})
		})

		Convey("When the expected length is smaller than the service's", func() {
			out, err := execute("probe", "--url", srv.URL, "--users", "1", "--top", "2")

			Convey("Then the run fails", func() {
				So(err, ShouldNotBeNil)
				So(out, ShouldContainSubstring, "FAIL")
			})
		})
	})
}
