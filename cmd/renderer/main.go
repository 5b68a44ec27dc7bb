// renderer path traces a scene into a sample DB, and optionally writes the
// averaged image.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"row-major/skylight/checkpoint"
	"row-major/skylight/imagefile"
	"row-major/skylight/output"
	"row-major/skylight/progress"
	"row-major/skylight/sampledb"
	"row-major/skylight/scene"
	"row-major/skylight/scenefile"
	"row-major/skylight/scenelib"

	"cloud.google.com/go/profiler"
	"contrib.go.opencensus.io/exporter/stackdriver"
	cloudtrace "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"github.com/golang/glog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	outputFile  = flag.String("output-file", "output.skydb", "Output sample DB.  May be a gs://bucket/object name.")
	outputImage = flag.String("output-image", "", "If set, also write the averaged image here.  The extension picks the format (.png or .ppm).")
	outputRows  = flag.Int("output-rows", 400, "Output image rows")
	outputCols  = flag.Int("output-cols", 800, "Output image columns")

	renderTargetSubsamples = flag.Int("render-target-subsamples", 24, "Number of subsamples to collect from each pixel")
	renderMaxDepth         = flag.Int("render-max-depth", 50, "Maximum number of bounces to consider")
	renderSeed             = flag.Int64("render-seed", 0, "Seed for the random sequence used while tracing")
	renderParallelism      = flag.Int("render-parallelism", 0, "Number of chunks to render at once.  Zero means one per CPU.")
	renderRowsPerChunk     = flag.Int("render-rows-per-chunk", scene.DefaultRowsPerChunk, "Number of image rows in each unit of work")

	sceneName = flag.String("scene", "original", "Built-in scene to render")
	sceneFile = flag.String("scene-file", "", "If set, render the YAML scene description in this file instead of a built-in scene.  May be a gs://bucket/object name.")
	sceneSeed = flag.Int64("scene-seed", 1, "Seed for procedurally generated built-in scenes")

	resume        = flag.Bool("resume", false, "Should we re-open the output file to add more samples?")
	checkpointDir = flag.String("checkpoint-dir", "", "If set, record finished chunks in a database in this directory, so that an interrupted render can be resumed.")

	progressInterval = flag.Duration("progress-interval", 2*time.Second, "Minimum time between progress reports")

	cpuprofile = flag.String("cpu-profile", "", "write cpu profile to `file`")
	memprofile = flag.String("mem-profile", "", "write memory profile to `file`")

	monitoring           = flag.Bool("monitoring", false, "Export traces to Cloud Trace?")
	monitoringProject    = flag.String("monitoring-project", "", "Override project used for monitoring integration.  If not specified, the project associated with Application Default Credentials is used.")
	monitoringTraceRatio = flag.Float64("monitoring-trace-ratio", 1.0, "What ratio of traces should be exported?")
	enableMetrics        = flag.Bool("enable-metrics", false, "Export render metrics to Cloud Monitoring?")
	enableProfiling      = flag.Bool("enable-profiling", false, "Run the Cloud Profiler agent?")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	glog.Infof("flags:")
	glog.Infof("output-file: %v", *outputFile)
	glog.Infof("output-image: %v", *outputImage)
	glog.Infof("output-rows: %v", *outputRows)
	glog.Infof("output-cols: %v", *outputCols)

	glog.Infof("render-target-subsamples: %v", *renderTargetSubsamples)
	glog.Infof("render-max-depth: %v", *renderMaxDepth)
	glog.Infof("render-seed: %v", *renderSeed)
	glog.Infof("render-parallelism: %v", *renderParallelism)
	glog.Infof("render-rows-per-chunk: %v", *renderRowsPerChunk)

	glog.Infof("scene: %v", *sceneName)
	glog.Infof("scene-file: %v", *sceneFile)
	glog.Infof("scene-seed: %v", *sceneSeed)

	glog.Infof("resume: %v", *resume)
	glog.Infof("checkpoint-dir: %v", *checkpointDir)
	glog.Infof("progress-interval: %v", *progressInterval)

	glog.Infof("cpu-profile: %v", *cpuprofile)
	glog.Infof("mem-profile: %v", *memprofile)

	glog.Infof("monitoring: %v", *monitoring)
	glog.Infof("monitoring-project: %v", *monitoringProject)
	glog.Infof("monitoring-trace-ratio: %v", *monitoringTraceRatio)
	glog.Infof("enable-metrics: %v", *enableMetrics)
	glog.Infof("enable-profiling: %v", *enableProfiling)

	if err := do(); err != nil {
		glog.Exitf("Error: %v", err)
	}
}

func do() error {
	if *outputRows <= 0 || *outputCols <= 0 {
		return fmt.Errorf("output image must have positive dimensions (got %dx%d)", *outputCols, *outputRows)
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return fmt.Errorf("while creating CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("while starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	if *enableProfiling {
		if err := profiler.Start(profiler.Config{
			Service:        "skylight-renderer",
			ServiceVersion: "0.0.1",
			ProjectID:      *monitoringProject,
		}); err != nil {
			return fmt.Errorf("while starting profiler: %w", err)
		}
	}

	if *monitoring {
		traceOpts := []cloudtrace.Option{}
		if *monitoringProject != "" {
			traceOpts = append(traceOpts, cloudtrace.WithProjectID(*monitoringProject))
		}

		_, traceShutdown, err := cloudtrace.InstallNewPipeline(traceOpts, sdktrace.WithSampler(sdktrace.TraceIDRatioBased(*monitoringTraceRatio)))
		if err != nil {
			return fmt.Errorf("while installing Cloud Trace pipeline: %w", err)
		}
		defer traceShutdown()
	}

	if *enableMetrics {
		if err := scene.RegisterViews(); err != nil {
			return fmt.Errorf("while registering metric views: %w", err)
		}

		exporter, err := stackdriver.NewExporter(stackdriver.Options{
			ProjectID:         *monitoringProject,
			MetricPrefix:      "skylight",
			ReportingInterval: 60 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("while creating metrics exporter: %w", err)
		}
		if err := exporter.StartMetricsExporter(); err != nil {
			return fmt.Errorf("while starting metrics exporter: %w", err)
		}
		defer exporter.Flush()
		defer exporter.StopMetricsExporter()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := output.NewStore()
	defer store.Close()

	desc, id, err := loadScene(ctx, store)
	if err != nil {
		return err
	}
	fingerprint := id.fingerprint()
	glog.Infof("Rendering scene %q, fingerprint %016x", desc.Name, fingerprint)

	cam, err := desc.NewCamera(float64(*outputCols) / float64(*outputRows))
	if err != nil {
		return err
	}

	sampleDB, err := openSampleDB(ctx, store, fingerprint)
	if err != nil {
		return err
	}
	sampleDB.Name = desc.Name
	sampleDB.Fingerprint = fingerprint

	options := &scene.RenderOptions{
		MaxDepth:         *renderMaxDepth,
		TargetSubsamples: *renderTargetSubsamples,
		Seed:             *renderSeed,
		Parallelism:      *renderParallelism,
		RowsPerChunk:     *renderRowsPerChunk,
		Name:             desc.Name,
	}

	var ckpt *checkpoint.Store
	if *checkpointDir != "" {
		ckpt, err = checkpoint.Open(*checkpointDir)
		if err != nil {
			return fmt.Errorf("while opening checkpoint: %w", err)
		}
		defer ckpt.Close()

		if *resume {
			if _, err := ckpt.Restore(fingerprint, sampleDB); err != nil {
				return fmt.Errorf("while restoring checkpoint: %w", err)
			}
		} else if err := ckpt.Clear(fingerprint); err != nil {
			return fmt.Errorf("while clearing stale checkpoint: %w", err)
		}

		options.OnChunkDone = func(ctx context.Context, rowSrc int, chunk *sampledb.SampleDB) error {
			return ckpt.PutChunk(fingerprint, rowSrc, chunk)
		}
	}

	reporter := progress.ForFile(os.Stderr, *progressInterval)
	renderErr := scene.RenderScene(ctx, desc.Scene, cam, options, sampleDB, reporter.Update)
	reporter.Done()

	// Save whatever finished, even if the render was interrupted.  A second
	// signal kills the process outright.
	stop()
	saveCtx := context.WithoutCancel(ctx)

	if err := store.Write(saveCtx, *outputFile, func(w io.Writer) error {
		return sampledb.Write(sampleDB, w)
	}); err != nil {
		return fmt.Errorf("while writing sample DB: %w", err)
	}
	glog.Infof("Wrote %d samples to %s", sampleDB.TotalSamples(), *outputFile)

	if renderErr != nil {
		return fmt.Errorf("while rendering: %w", renderErr)
	}

	if *outputImage != "" {
		format, err := imagefile.FormatFromName(*outputImage)
		if err != nil {
			return err
		}
		if err := store.Write(saveCtx, *outputImage, func(w io.Writer) error {
			return imagefile.Write(w, format, sampleDB.Resolve())
		}); err != nil {
			return fmt.Errorf("while writing image: %w", err)
		}
		glog.Infof("Wrote %v image to %s", format, *outputImage)
	}

	if ckpt != nil {
		if err := ckpt.Clear(fingerprint); err != nil {
			return fmt.Errorf("while clearing finished checkpoint: %w", err)
		}
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			return fmt.Errorf("while creating memory profile: %w", err)
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("while writing memory profile: %w", err)
		}
	}

	return nil
}

func loadScene(ctx context.Context, store *output.Store) (*scenefile.Description, *renderIdentity, error) {
	id := &renderIdentity{
		Rows:       *outputRows,
		Cols:       *outputCols,
		RenderSeed: *renderSeed,
		MaxDepth:   *renderMaxDepth,
	}

	if *sceneFile != "" {
		var source []byte
		if err := store.Read(ctx, *sceneFile, func(r io.Reader) error {
			var err error
			source, err = io.ReadAll(r)
			return err
		}); err != nil {
			return nil, nil, fmt.Errorf("while reading scene file: %w", err)
		}

		desc, err := scenefile.ParseBytes(source)
		if err != nil {
			return nil, nil, fmt.Errorf("while parsing scene file %s: %w", *sceneFile, err)
		}

		id.Scene = desc.Name
		id.SceneSource = source
		return desc, id, nil
	}

	desc, err := scenelib.Lookup(*sceneName, *sceneSeed)
	if err != nil {
		return nil, nil, err
	}

	id.Scene = *sceneName
	id.SceneSeed = *sceneSeed
	return desc, id, nil
}

func openSampleDB(ctx context.Context, store *output.Store, fingerprint uint64) (*sampledb.SampleDB, error) {
	exists, err := store.Exists(ctx, *outputFile)
	if err != nil {
		return nil, fmt.Errorf("while checking for existing output file: %w", err)
	}

	if !*resume {
		// Don't blow away hours of render time.
		if exists {
			return nil, fmt.Errorf("resumption not requested, but output file exists")
		}
		return sampledb.New(*outputRows, *outputCols), nil
	}

	if !exists {
		glog.Infof("Resumption requested, but %s doesn't exist yet; starting from an empty sample DB", *outputFile)
		return sampledb.New(*outputRows, *outputCols), nil
	}

	var sampleDB *sampledb.SampleDB
	if err := store.Read(ctx, *outputFile, func(r io.Reader) error {
		var err error
		sampleDB, err = sampledb.Read(r)
		return err
	}); err != nil {
		return nil, fmt.Errorf("resumption requested, but encountered error loading existing file: %w", err)
	}

	if err := checkResumable(sampleDB, *outputRows, *outputCols, fingerprint); err != nil {
		return nil, err
	}

	glog.Infof("Resuming from %d existing samples", sampleDB.TotalSamples())
	return sampleDB, nil
}

func checkResumable(sampleDB *sampledb.SampleDB, rows, cols int, fingerprint uint64) error {
	if sampleDB.RowSize != rows {
		return fmt.Errorf("resumption requested, but the existing sample DB doesn't have the right number of rows (got %d, want %d)", sampleDB.RowSize, rows)
	}

	if sampleDB.ColSize != cols {
		return fmt.Errorf("resumption requested, but the existing sample DB doesn't have the right number of columns (got %d, want %d)", sampleDB.ColSize, cols)
	}

	if sampleDB.Fingerprint != fingerprint {
		return fmt.Errorf("resumption requested, but the existing sample DB was rendered with different settings (got fingerprint %016x, want %016x)", sampleDB.Fingerprint, fingerprint)
	}

	return nil
}
