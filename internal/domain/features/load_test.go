package features_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/inferd/internal/domain/features"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadSchema(t *testing.T) {
	Convey("Given a feature list artifact", t, func() {
		Convey("When it is a JSON array of names", func() {
			path := filepath.Join(t.TempDir(), "model_features.json")
			So(os.WriteFile(path, []byte(`["budget","runtime","genre_Action"]`), 0o600), ShouldBeNil)
			s, err := features.LoadSchema(path)

			Convey("Then the schema keeps the listed order", func() {
				So(err, ShouldBeNil)
				So(s.Columns(), ShouldResemble, []string{"budget", "runtime", "genre_Action"})
			})
		})

		Convey("When the file does not exist", func() {
			_, err := features.LoadSchema(filepath.Join(t.TempDir(), "missing.json"))

			Convey("Then it reports a missing artifact", func() {
				So(errors.Is(err, features.ErrArtifactMissing), ShouldBeTrue)
			})
		})

		Convey("When the document is not an array", func() {
			_, err := features.DecodeSchema(strings.NewReader(`{"budget":1}`))

			Convey("Then it reports an invalid schema", func() {
				So(errors.Is(err, features.ErrInvalidSchema), ShouldBeTrue)
			})
		})
	})
}
