package scene

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"row-major/skylight/camera"
	"row-major/skylight/color"
	"row-major/skylight/sampledb"

	"github.com/cespare/xxhash"
	"github.com/golang/glog"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const DefaultRowsPerChunk = 8

type RenderOptions struct {
	MaxDepth         int
	TargetSubsamples int

	// Seed selects the random sequence.  Equal seeds and equal starting
	// sample DBs give identical samples no matter how the work is divided.
	Seed int64

	// Parallelism bounds the number of chunks in flight.  Zero means one per
	// CPU.
	Parallelism int

	// RowsPerChunk is the unit of work handed to a worker.  Zero means
	// DefaultRowsPerChunk.
	RowsPerChunk int

	// Name tags the render's metrics.
	Name string

	// OnChunkDone, if set, receives every chunk that recorded new samples,
	// after it has been pasted into the sample DB.  Calls are serialized.  An
	// error aborts the render.
	OnChunkDone func(ctx context.Context, rowSrc int, chunk *sampledb.SampleDB) error
}

// ProgressFunction is called with the number of samples recorded so far and
// the number the render needs in total.
type ProgressFunction func(cur, total int)

type ChunkWorker struct {
	sampleDB         *sampledb.SampleDB
	rng              *rand.Rand
	seed             int64
	progressFunction func(int)

	maxDepth      int
	targetSamples int

	// These are the dimensions of the overall image, not just the chunk.
	imgRows int
	imgCols int

	rowSrc int
	rowLim int

	scene  *Scene
	camera camera.Camera
}

// Render tops up every pixel of the chunk to the target sample count,
// returning the number of samples it took.
func (w *ChunkWorker) Render(ctx context.Context) (int, error) {
	traced := 0
	if w.imgCols == 0 {
		return traced, nil
	}

	for cr := w.rowSrc; cr < w.rowLim; cr++ {
		if err := ctx.Err(); err != nil {
			return traced, err
		}

		r := cr - w.rowSrc

		// Image rows run top to bottom, but v runs bottom to top.
		y := w.imgRows - 1 - cr

		// Reseeding per row keeps a row's samples independent of which chunk
		// it landed in.  Folding in the existing count gives a resumed render
		// fresh samples instead of repeats.
		w.rng.Seed(rowSeed(w.seed, cr, w.sampleDB.ReadSample(r, 0).Count))

		samplesCollected := 0
		for cc := 0; cc < w.imgCols; cc++ {
			samp := w.sampleDB.ReadSample(r, cc)
			for cs := int(samp.Count); cs < w.targetSamples; cs++ {
				u := (float64(cc) + w.rng.Float64()) / float64(w.imgCols)
				v := (float64(y) + w.rng.Float64()) / float64(w.imgRows)
				query := w.camera.ImageToRay(u, v, w.rng)
				w.sampleDB.RecordSample(r, cc, w.scene.Trace(query, w.maxDepth, w.rng))
				samplesCollected++
			}
		}

		w.progressFunction(samplesCollected)
		traced += samplesCollected
	}

	return traced, nil
}

func rowSeed(seed int64, row int, existing uint32) int64 {
	var b [20]byte
	binary.LittleEndian.PutUint64(b[0:8], uint64(seed))
	binary.LittleEndian.PutUint64(b[8:16], uint64(row))
	binary.LittleEndian.PutUint32(b[16:20], existing)
	return int64(xxhash.Sum64(b[:]))
}

// RenderScene adds samples to sampleDB until every pixel holds
// options.TargetSubsamples of them.  Pixel row 0 is the top of the image.
//
// Cancelling ctx stops the render between rows.  Chunks that finished before
// then are already in sampleDB.
func RenderScene(ctx context.Context, s *Scene, cam camera.Camera, options *RenderOptions, sampleDB *sampledb.SampleDB, progressFunction ProgressFunction) (err error) {
	tracer := otel.Tracer("row-major/skylight/scene")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "RenderScene")
	defer span.End()

	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.SetStatus(codes.Ok, "")
	}()

	parallelism := options.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	rowsPerChunk := options.RowsPerChunk
	if rowsPerChunk <= 0 {
		rowsPerChunk = DefaultRowsPerChunk
	}

	span.SetAttributes(
		attribute.Int64("rows", int64(sampleDB.RowSize)),
		attribute.Int64("cols", int64(sampleDB.ColSize)),
		attribute.Int64("target-subsamples", int64(options.TargetSubsamples)),
		attribute.Int64("max-depth", int64(options.MaxDepth)),
		attribute.Int64("parallelism", int64(parallelism)),
		attribute.Int64("rows-per-chunk", int64(rowsPerChunk)),
	)

	// Count the samples still missing, for reporting progress.
	totalSamples := 0
	for _, count := range sampleDB.Counts {
		if int(count) < options.TargetSubsamples {
			totalSamples += options.TargetSubsamples - int(count)
		}
	}

	glog.Infof("Rendering %dx%d: %d samples to take, %d rows per chunk, %d in parallel", sampleDB.ColSize, sampleDB.RowSize, totalSamples, rowsPerChunk, parallelism)
	started := time.Now()

	curProgress := 0

	// progressMutex locks both curProgress and sampleDB.
	progressMutex := sync.Mutex{}

	eg, egCtx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(parallelism))

	var acquireErr error
	for rowSrc := 0; rowSrc < sampleDB.RowSize; rowSrc += rowsPerChunk {
		rowLim := rowSrc + rowsPerChunk
		if rowLim > sampleDB.RowSize {
			rowLim = sampleDB.RowSize
		}

		if err := sem.Acquire(egCtx, 1); err != nil {
			acquireErr = err
			break
		}

		worker := &ChunkWorker{
			rng:  rand.New(rand.NewSource(options.Seed)),
			seed: options.Seed,
			progressFunction: func(subProgress int) {
				progressMutex.Lock()
				defer progressMutex.Unlock()
				curProgress += subProgress
				if progressFunction != nil {
					progressFunction(curProgress, totalSamples)
				}
			},
			maxDepth:      options.MaxDepth,
			targetSamples: options.TargetSubsamples,
			imgRows:       sampleDB.RowSize,
			imgCols:       sampleDB.ColSize,
			rowSrc:        rowSrc,
			rowLim:        rowLim,
			scene:         s,
			camera:        cam,
		}

		progressMutex.Lock()
		worker.sampleDB = sampleDB.Cut(worker.rowSrc, worker.rowLim, 0, sampleDB.ColSize)
		progressMutex.Unlock()

		eg.Go(func() error {
			defer sem.Release(1)
			return renderChunk(egCtx, tracer, worker, options, sampleDB, &progressMutex)
		})
	}

	if err := eg.Wait(); err != nil {
		return fmt.Errorf("while waiting for render workers: %w", err)
	}
	if acquireErr != nil {
		return fmt.Errorf("while acquiring concurrency limiter semaphore: %w", acquireErr)
	}

	glog.Infof("Rendered %d samples in %v", curProgress, time.Since(started))
	return nil
}

func renderChunk(ctx context.Context, tracer trace.Tracer, worker *ChunkWorker, options *RenderOptions, sampleDB *sampledb.SampleDB, mu *sync.Mutex) error {
	var span trace.Span
	ctx, span = tracer.Start(ctx, "ChunkWorker.Render")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("row-src", int64(worker.rowSrc)),
		attribute.Int64("row-lim", int64(worker.rowLim)),
	)

	started := time.Now()
	traced, err := worker.Render(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("while rendering rows [%d, %d): %w", worker.rowSrc, worker.rowLim, err)
	}

	stats.RecordWithOptions(
		ctx,
		stats.WithTags(tag.Insert(sceneKey, options.Name)),
		stats.WithMeasurements(
			samplesTraced.M(int64(traced)),
			chunksDone.M(1),
			chunkLatency.M(float64(time.Since(started))/float64(time.Millisecond)),
		))

	mu.Lock()
	defer mu.Unlock()

	sampleDB.Paste(worker.sampleDB, worker.rowSrc, 0)

	if traced > 0 && options.OnChunkDone != nil {
		if err := options.OnChunkDone(ctx, worker.rowSrc, worker.sampleDB); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("while finishing rows [%d, %d): %w", worker.rowSrc, worker.rowLim, err)
		}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Render draws a width x height image with the given number of samples per
// pixel and returns the averaged linear colors, rows top first.
func Render(ctx context.Context, s *Scene, cam camera.Camera, width, height, samples, maxDepth int) ([][]color.RGB, error) {
	sampleDB := sampledb.New(height, width)
	options := &RenderOptions{
		MaxDepth:         maxDepth,
		TargetSubsamples: samples,
	}

	if err := RenderScene(ctx, s, cam, options, sampleDB, nil); err != nil {
		return nil, err
	}

	return sampleDB.Resolve(), nil
}
