package imagesrc

import (
	"context"
	"errors"
	"image"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type entry struct {
	img image.Image
	err error
}

// Resolver decodes references through a Source, remembering each result for
// its own lifetime. A Resolver belongs to a single encode run.
type Resolver struct {
	src    Source
	logger *zap.SugaredLogger

	mu       sync.Mutex
	cache    map[string]entry
	failures []*DecodeError
}

// NewResolver returns an empty resolver over src
func NewResolver(src Source, logger *zap.SugaredLogger) *Resolver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Resolver{
		src:    src,
		logger: logger,
		cache:  make(map[string]entry),
	}
}

// Resolve returns one image per ref, in ref order. Uncached refs are decoded
// concurrently. A ref that fails to decode yields a nil image and is
// recorded once; only context cancellation is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, refs []string) ([]image.Image, error) {
	out := make([]image.Image, len(refs))

	var missing []int
	r.mu.Lock()
	for i, ref := range refs {
		if e, ok := r.cache[ref]; ok {
			out[i] = e.img
		} else {
			missing = append(missing, i)
		}
	}
	r.mu.Unlock()

	if len(missing) == 0 {
		return out, nil
	}

	results := make([]entry, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(missing))
	for _, i := range missing {
		g.Go(func() error {
			img, err := r.src.Decode(gctx, refs[i])
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = entry{img: img, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range missing {
		ref := refs[i]
		if _, seen := r.cache[ref]; seen {
			out[i] = r.cache[ref].img
			continue
		}

		e := results[i]
		r.cache[ref] = e
		out[i] = e.img
		if e.err != nil {
			de := asDecodeError(ref, e.err)
			r.failures = append(r.failures, de)
			r.logger.Warnw("image decode failed, slot left empty", "ref", shortRef(ref), "error", e.err)
		}
	}

	return out, nil
}

// Failures returns the refs that failed to decode so far
func (r *Resolver) Failures() []DecodeError {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]DecodeError, len(r.failures))
	for i, f := range r.failures {
		out[i] = *f
	}
	return out
}

// Release drops every cached image
func (r *Resolver) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.cache)
}

func asDecodeError(ref string, err error) *DecodeError {
	var de *DecodeError
	if errors.As(err, &de) {
		return de
	}
	return &DecodeError{Ref: ref, Err: err}
}
