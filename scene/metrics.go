package scene

import (
	"fmt"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	sceneKey = tag.MustNewKey("scene")

	samplesTraced = stats.Int64("skylight/samples_traced", "Camera rays traced to completion", stats.UnitDimensionless)
	chunksDone    = stats.Int64("skylight/chunks_done", "Row chunks finished by render workers", stats.UnitDimensionless)
	chunkLatency  = stats.Float64("skylight/chunk_latency", "Wall time spent rendering one row chunk", stats.UnitMilliseconds)

	samplesTracedView = &view.View{
		Name:        "skylight/samples_traced",
		Description: "Total camera rays traced",
		TagKeys:     []tag.Key{sceneKey},
		Measure:     samplesTraced,
		Aggregation: view.Sum(),
	}
	chunksDoneView = &view.View{
		Name:        "skylight/chunks_done",
		Description: "Counter of finished row chunks",
		TagKeys:     []tag.Key{sceneKey},
		Measure:     chunksDone,
		Aggregation: view.Count(),
	}
	chunkLatencyView = &view.View{
		Name:        "skylight/chunk_latency",
		Description: "Distribution of row chunk render times",
		TagKeys:     []tag.Key{sceneKey},
		Measure:     chunkLatency,
		Aggregation: view.Distribution(10, 50, 100, 500, 1000, 5000, 10000, 60000),
	}
)

// RegisterViews makes the render measures visible to opencensus exporters.
func RegisterViews() error {
	if err := view.Register(samplesTracedView, chunksDoneView, chunkLatencyView); err != nil {
		return fmt.Errorf("while registering render views: %w", err)
	}
	return nil
}
