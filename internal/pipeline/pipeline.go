// Package pipeline drives a frame plan through rendering and encoding,
// reporting progress and honouring cancellation between frames.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/linuxmatters/beatreel/internal/config"
	"github.com/linuxmatters/beatreel/internal/imagesrc"
	"github.com/linuxmatters/beatreel/internal/plan"
	"github.com/linuxmatters/beatreel/internal/renderer"
	"go.uber.org/zap"
)

// FrameSink consumes rendered frames in order and produces the container
// bytes. WriteFrame must not retain the frame after returning.
type FrameSink interface {
	Open(ctx context.Context) error
	WriteFrame(frame *image.RGBA) error
	Finalize() ([]byte, error)
	Abort() error
}

// SinkFactory creates a fresh sink for one encode run
type SinkFactory func(runID string) (FrameSink, error)

// FrameSource yields frame descriptors in order; *plan.Plan satisfies it
type FrameSource interface {
	Len() int
	All() iter.Seq2[int, plan.FrameDescriptor]
}

// Progress is a single progress report
type Progress struct {
	Percent float64
	Status  string
	State   State
	Frame   int // Frames written so far
	Total   int
	Elapsed time.Duration

	// Preview is a copy of the latest frame, set every PreviewEvery frames
	Preview *image.RGBA
}

// ProgressFunc receives progress reports on a goroutine owned by Encode
type ProgressFunc func(Progress)

// Artifact is a finished video
type Artifact struct {
	Data           []byte
	MediaType      string
	Frames         int
	Duration       time.Duration
	DecodeFailures []imagesrc.DecodeError
	CodecName      string
}

// Options configures a Pipeline
type Options struct {
	NewSink    SinkFactory
	Images     imagesrc.Source
	Background color.RGBA

	// PreviewEvery attaches a frame copy to every Nth progress report, 0 for never
	PreviewEvery int

	Logger *zap.SugaredLogger
}

// Pipeline encodes frame plans. It may be reused once a run ends but
// runs at most one Encode at a time.
type Pipeline struct {
	opts    Options
	logger  *zap.SugaredLogger
	running atomic.Bool

	mu     sync.Mutex
	status Status
}

// New validates opts and returns an idle pipeline
func New(opts Options) (*Pipeline, error) {
	if opts.NewSink == nil {
		return nil, errors.New("pipeline: sink factory is required")
	}
	if opts.Images == nil {
		return nil, errors.New("pipeline: image source is required")
	}
	if opts.PreviewEvery < 0 {
		return nil, fmt.Errorf("pipeline: invalid preview interval %d", opts.PreviewEvery)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Pipeline{
		opts:   opts,
		logger: logger,
	}, nil
}

// State returns the current lifecycle state
func (p *Pipeline) State() State {
	return p.Status().State
}

// Status returns the current lifecycle snapshot
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Pipeline) setStatus(s Status) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

func (p *Pipeline) setFrame(frame int) {
	p.mu.Lock()
	p.status.Frame = frame
	p.mu.Unlock()
}

// codecNamer is implemented by sinks that can report the encoder in use
type codecNamer interface {
	CodecName() string
}

// run holds everything owned by a single Encode call
type run struct {
	*Pipeline
	id      string
	log     *zap.SugaredLogger
	sink    FrameSink
	relay   *relay
	started time.Time
	total   int
}

// Encode renders every descriptor from frames into a fresh sink and returns
// the finished artifact. Image decode failures leave slots empty and are
// reported in the artifact. Sink failures return *EncoderError; cancellation
// returns an error matching ErrCancelled and leaves nothing behind.
func (p *Pipeline) Encode(ctx context.Context, frames FrameSource, onProgress ProgressFunc) (*Artifact, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer p.running.Store(false)

	r := &run{
		Pipeline: p,
		id:       uuid.NewString(),
		started:  time.Now(),
		total:    frames.Len(),
	}
	r.log = p.logger.With("run_id", r.id)
	r.relay = startRelay(onProgress)
	defer r.relay.stop()

	return r.encode(ctx, frames)
}

func (r *run) encode(ctx context.Context, frames FrameSource) (*Artifact, error) {
	r.transition(StateInitializing, 0)
	r.log.Infow("encode started", "frames", r.total)

	if err := ctx.Err(); err != nil {
		return nil, r.cancelled(ctx, 0)
	}

	sink, err := r.opts.NewSink(r.id)
	if err != nil {
		return nil, r.fail(&EncoderError{Frame: -1, Op: "create", Err: err})
	}
	if err := sink.Open(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, r.cancelled(ctx, 0)
		}
		return nil, r.fail(&EncoderError{Frame: -1, Op: "open", Err: err})
	}
	r.sink = sink

	rend := renderer.New(r.opts.Background)
	defer rend.Release()
	resolver := imagesrc.NewResolver(r.opts.Images, r.log)
	defer resolver.Release()

	r.transition(StateRendering, 0)

	for i, desc := range frames.All() {
		if ctx.Err() != nil {
			return nil, r.cancelled(ctx, i)
		}
		r.setFrame(i)

		imgs, err := resolver.Resolve(ctx, desc.Images)
		if err != nil {
			if ctx.Err() != nil {
				return nil, r.cancelled(ctx, i)
			}
			return nil, r.fail(&EncoderError{Frame: i, Op: "resolve images", Err: err})
		}

		frame := rend.Render(desc, imgs)
		if err := r.sink.WriteFrame(frame); err != nil {
			if ctx.Err() != nil {
				return nil, r.cancelled(ctx, i)
			}
			return nil, r.fail(&EncoderError{Frame: i, Op: "write frame", Err: err})
		}

		progress := Progress{
			Percent: float64(i) / float64(r.total) * 100,
			Status:  fmt.Sprintf("Rendering frame %d/%d", i+1, r.total),
			State:   StateRendering,
			Frame:   i + 1,
			Total:   r.total,
			Elapsed: time.Since(r.started),
		}
		if n := r.opts.PreviewEvery; n > 0 && i%n == 0 {
			progress.Preview = cloneFrame(frame)
		}
		r.relay.post(progress)
	}

	if ctx.Err() != nil {
		return nil, r.cancelled(ctx, r.total)
	}

	r.transition(StateFinalizing, r.total)
	r.report(StateFinalizing, "Finalizing video")

	data, err := r.sink.Finalize()
	if err != nil {
		r.sink = nil
		return nil, r.fail(&EncoderError{Frame: r.total, Op: "finalize", Err: err})
	}

	artifact := &Artifact{
		Data:           data,
		MediaType:      config.MediaType,
		Frames:         r.total,
		Duration:       time.Duration(r.total) * time.Second / config.FPS,
		DecodeFailures: resolver.Failures(),
	}
	if cn, ok := r.sink.(codecNamer); ok {
		artifact.CodecName = cn.CodecName()
	}
	r.sink = nil

	r.transition(StateCompleted, r.total)
	r.report(StateCompleted, "Completed")
	r.log.Infow("encode completed",
		"frames", artifact.Frames,
		"bytes", len(artifact.Data),
		"decode_failures", len(artifact.DecodeFailures),
		"elapsed", time.Since(r.started))

	return artifact, nil
}

func (r *run) transition(s State, frame int) {
	r.setStatus(Status{State: s, Frame: frame})
	r.log.Infow("state changed", "state", s.String(), "frame", frame)
}

func (r *run) report(s State, status string) {
	r.relay.post(Progress{
		Percent: 100,
		Status:  status,
		State:   s,
		Frame:   r.total,
		Total:   r.total,
		Elapsed: time.Since(r.started),
	})
}

func (r *run) abortSink() {
	if r.sink == nil {
		return
	}
	if err := r.sink.Abort(); err != nil {
		r.log.Warnw("sink abort failed", "error", err)
	}
	r.sink = nil
}

func (r *run) fail(err *EncoderError) error {
	r.abortSink()
	r.setStatus(Status{State: StateFailed, Frame: max(err.Frame, 0), Err: err})
	r.log.Errorw("encode failed", "frame", err.Frame, "op", err.Op, "error", err.Err)
	return err
}

func (r *run) cancelled(ctx context.Context, frame int) error {
	r.abortSink()
	r.setStatus(Status{State: StateCancelled, Frame: frame})
	r.log.Infow("encode cancelled", "frame", frame)
	return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
}

func cloneFrame(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}
