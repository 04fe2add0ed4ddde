package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/diva-metrics/diva/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	Convey("Given no file and no environment overrides", t, func() {
		cfg, err := config.Load(ctx)

		So(err, ShouldBeNil)
		So(cfg.Addr, ShouldEqual, ":9080")
	})

	Convey("Given environment overrides", t, func() {
		t.Setenv("DIVA_ADDR", ":7070")
		t.Setenv("DIVA_RANK_INDEX", "gini")

		cfg, err := config.Load(ctx)

		So(err, ShouldBeNil)
		So(cfg.Addr, ShouldEqual, ":7070")
		So(cfg.RankIndex, ShouldEqual, "gini")
	})

	Convey("Given a YAML config file", t, func() {
		path := filepath.Join(t.TempDir(), "diva.yaml")
		yaml := `
addr: ":6060"
indices: ["shannon", "gini"]
rank_index: "gini"
shannon_base: 2
category_weights:
  exercise: 2.0
  reading: 0.5
`
		So(os.WriteFile(path, []byte(yaml), 0o600), ShouldBeNil)
		t.Setenv("DIVA_CONFIG", path)

		cfg, err := config.Load(ctx)

		So(err, ShouldBeNil)
		So(cfg.Addr, ShouldEqual, ":6060")
		So(cfg.Indices, ShouldResemble, []string{"shannon", "gini"})
		So(cfg.ShannonBase, ShouldEqual, 2.0)
		So(cfg.CategoryWeights["exercise"], ShouldEqual, 2.0)

		Convey("And environment still wins over the file", func() {
			t.Setenv("DIVA_ADDR", ":5050")

			cfg, err := config.Load(ctx)
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":5050")
		})
	})

	Convey("Given a missing config file", t, func() {
		t.Setenv("DIVA_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

		_, err := config.Load(ctx)
		So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
	})

	Convey("Given an override that fails validation", t, func() {
		t.Setenv("DIVA_RANK_INDEX", "berger")

		_, err := config.Load(ctx)
		So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
	})
}
