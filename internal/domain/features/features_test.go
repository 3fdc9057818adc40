package features_test

import (
	"errors"
	"testing"

	"github.com/okian/inferd/internal/domain/features"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSchema(t *testing.T) {
	Convey("Given training-time columns", t, func() {
		Convey("When the columns are valid", func() {
			s, err := features.NewSchema([]string{"budget", "runtime", "genre_Action", "genre_Drama", "cast_mean_popularity"})

			Convey("Then the schema keeps order and exposes genres", func() {
				So(err, ShouldBeNil)
				So(s.Len(), ShouldEqual, 5)
				So(s.Columns(), ShouldResemble, []string{"budget", "runtime", "genre_Action", "genre_Drama", "cast_mean_popularity"})
				So(s.Genres(), ShouldResemble, []string{"Action", "Drama"})
			})

			Convey("And set equality ignores order", func() {
				So(s.Equal([]string{"genre_Drama", "budget", "cast_mean_popularity", "runtime", "genre_Action"}), ShouldBeTrue)
				So(s.Equal([]string{"budget", "runtime", "genre_Action", "genre_Drama"}), ShouldBeFalse)
				So(s.Equal([]string{"budget", "budget", "genre_Action", "genre_Drama", "runtime"}), ShouldBeFalse)
			})
		})

		Convey("When a genre column has no label", func() {
			s, err := features.NewSchema([]string{"budget", "genre_", "genre_Comedy"})

			Convey("Then it is not offered as a genre", func() {
				So(err, ShouldBeNil)
				So(s.Genres(), ShouldResemble, []string{"Comedy"})
				So(s.Has("genre_"), ShouldBeTrue)
			})
		})

		Convey("When the columns contain a duplicate", func() {
			_, err := features.NewSchema([]string{"budget", "budget"})

			Convey("Then the schema is rejected", func() {
				So(errors.Is(err, features.ErrInvalidSchema), ShouldBeTrue)
			})
		})

		Convey("When there are no columns", func() {
			_, err := features.NewSchema(nil)

			Convey("Then the schema is rejected", func() {
				So(errors.Is(err, features.ErrInvalidSchema), ShouldBeTrue)
			})
		})
	})
}

func TestAssemble(t *testing.T) {
	Convey("Given the schema {budget, runtime, genre_Action, genre_Drama}", t, func() {
		s, err := features.NewSchema([]string{"budget", "runtime", "genre_Action", "genre_Drama"})
		So(err, ShouldBeNil)

		Convey("When assembling budget=1000000, runtime=90, genres=[Action]", func() {
			row := features.Assemble(s, features.Input{Budget: 1_000_000, Runtime: 90, Genres: []string{"Action"}})

			Convey("Then the row is exactly {1000000, 90, 1, 0}", func() {
				So(row, ShouldResemble, features.Row{
					"budget":       1_000_000,
					"runtime":      90,
					"genre_Action": 1,
					"genre_Drama":  0,
				})
			})

			Convey("And release fields without columns are dropped", func() {
				So(row, ShouldNotContainKey, "release_year")
			})
		})

		Convey("When a selected genre has no column", func() {
			row := features.Assemble(s, features.Input{Genres: []string{"Western", "Drama"}})

			Convey("Then it is ignored and known genres still apply", func() {
				So(row, ShouldNotContainKey, "genre_Western")
				So(row["genre_Drama"], ShouldEqual, 1)
				So(row["genre_Action"], ShouldEqual, 0)
			})
		})
	})

	Convey("Given a schema with release and engineered columns", t, func() {
		s, err := features.NewSchema([]string{
			"budget", "runtime", "release_year", "release_month", "release_dayofweek",
			"genre_Comedy", "director_mean_revenue",
		})
		So(err, ShouldBeNil)

		Convey("When assembling a full input", func() {
			row := features.Assemble(s, features.Input{
				Budget: 5e7, Runtime: 120, Year: 2023, Month: 6, DayOfWeek: 4, Genres: []string{"Comedy"},
			})

			Convey("Then release fields are set and engineered columns stay zero", func() {
				So(row["release_year"], ShouldEqual, 2023)
				So(row["release_month"], ShouldEqual, 6)
				So(row["release_dayofweek"], ShouldEqual, 4)
				So(row["genre_Comedy"], ShouldEqual, 1)
				So(row["director_mean_revenue"], ShouldEqual, 0)
				So(len(row), ShouldEqual, s.Len())
			})

			Convey("And the vector follows the requested order", func() {
				v, err := row.Vector([]string{"runtime", "budget"})
				So(err, ShouldBeNil)
				So(v, ShouldResemble, []float64{120, 5e7})

				_, err = row.Vector([]string{"popularity"})
				So(errors.Is(err, features.ErrColumnMismatch), ShouldBeTrue)
			})
		})
	})
}

func TestFormatUSD(t *testing.T) {
	Convey("Given predicted revenues", t, func() {
		Convey("Then they render as grouped dollars with two decimals", func() {
			So(features.FormatUSD(1234.5), ShouldEqual, "$1,234.50")
			So(features.FormatUSD(123456789.126), ShouldEqual, "$123,456,789.13")
			So(features.FormatUSD(0), ShouldEqual, "$0.00")
		})
	})
}
