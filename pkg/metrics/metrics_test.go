package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("recommender"),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the collectors should be registered on that registry", func() {
				So(manager, ShouldNotBeNil)
				manager.itemsScored.Add(3)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_recommender_items_scored_total")
			})
		})

		Convey("When two managers share one registry", func() {
			registry := prometheus.NewRegistry()
			_ = NewManager(WithPrometheusRegistry(registry))

			Convey("Then the duplicate registration should panic", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsInit(t *testing.T) {
	Convey("Given a binary that scopes its metrics", t, func() {
		previous := GetRegistry()
		Init(WithSubsystem("estimator"))
		Reset(func() { Init() })

		Convey("When recording a request", func() {
			RecordHTTPRequest("predict", "POST", "200")

			Convey("Then the fresh registry exposes the subsystem name", func() {
				So(GetRegistry(), ShouldNotEqual, previous)
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "inferd_estimator_http_requests_total")
				So(names, ShouldNotContain, "inferd_http_requests_total")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording recommendation metrics", func() {
			before := testutil.ToFloat64(globalManager.itemsScored)
			AddItemsScored(25)
			RecordRecommendation("ok")
			RecordRecommendation("not_found")
			RecordRecommendationLatency(12.5)

			Convey("Then the counters should move", func() {
				So(testutil.ToFloat64(globalManager.itemsScored), ShouldEqual, before+25)
				So(testutil.ToFloat64(globalManager.recommendations.WithLabelValues("not_found")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording cache metrics", func() {
			hits := testutil.ToFloat64(globalManager.cacheHits)
			misses := testutil.ToFloat64(globalManager.cacheMisses)
			RecordCacheHit()
			RecordCacheMiss()
			RecordCacheMiss()

			Convey("Then hits and misses should be tracked separately", func() {
				So(testutil.ToFloat64(globalManager.cacheHits), ShouldEqual, hits+1)
				So(testutil.ToFloat64(globalManager.cacheMisses), ShouldEqual, misses+2)
			})
		})

		Convey("When recording artifact loads", func() {
			RecordArtifactLoad("catalog", 3.2, 1200)

			Convey("Then the entry gauge should hold the latest size", func() {
				So(testutil.ToFloat64(globalManager.artifactEntries.WithLabelValues("catalog")), ShouldEqual, 1200)
			})
		})

		Convey("When recording HTTP, prediction, error and system metrics", func() {
			Convey("Then nothing should panic", func() {
				So(func() {
					RecordHTTPRequest("recommendations", "GET", "200")
					RecordHTTPRequestDuration("recommendations", "GET", "200", 4)
					RecordPrediction("ok")
					RecordPredictionLatency(0.4)
					RecordErrorByComponent("ranking", "inconsistent")
					RecordErrorByEndpoint("recommendations", "GET", "not_found")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.2)
				}, ShouldNotPanic)
			})
		})

		Convey("When reading the registry", func() {
			Convey("Then it should be the custom registry", func() {
				So(GetRegistry(), ShouldEqual, customRegistry)
			})
		})
	})
}
