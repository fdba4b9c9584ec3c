package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/face-tracker/internal/tracker"
)

// Pipeline reads frames, extracts faces and resolves identities in order.
type Pipeline struct {
	tracker     *tracker.Tracker
	source      Source
	extractor   Extractor
	sinks       []Sink
	concurrency int
	strict      bool
	sessionID   string
	logger      *zap.Logger
	progress    func(frame *Frame, labels []int)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithExtractor sets the extractor used for frames without precomputed faces.
func WithExtractor(e Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// WithSinks appends sinks that receive every resolved frame.
func WithSinks(sinks ...Sink) Option {
	return func(p *Pipeline) { p.sinks = append(p.sinks, sinks...) }
}

// WithConcurrency sets the number of frames extracted in parallel.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) { p.concurrency = max(n, 1) }
}

// WithStrict aborts the run on the first embedding the tracker rejects.
func WithStrict(strict bool) Option {
	return func(p *Pipeline) { p.strict = strict }
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) Option {
	return func(p *Pipeline) { p.sessionID = id }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithProgress registers a callback invoked after each frame is written to the sinks.
func WithProgress(fn func(frame *Frame, labels []int)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// New creates a pipeline feeding t from src.
func New(t *tracker.Tracker, src Source, opts ...Option) *Pipeline {
	p := &Pipeline{
		tracker:     t,
		source:      src,
		concurrency: 1,
		sessionID:   uuid.NewString(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type extracted struct {
	frame *Frame
	err   error
}

// Run processes the source until it is exhausted, a sink fails or ctx ends.
// The returned summary is valid even when an error is returned and covers the
// frames resolved so far.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{SessionID: p.sessionID}

	p.logger.Info("tracking session started",
		zap.String("session_id", p.sessionID),
		zap.Int("concurrency", p.concurrency),
		zap.Int("sinks", len(p.sinks)))

	g, gctx := errgroup.WithContext(ctx)
	results := make(chan extracted, p.concurrency)
	// Bounds how far extraction may run ahead of resolution.
	window := make(chan struct{}, 2*p.concurrency)

	g.Go(func() error {
		defer close(results)
		return p.produce(gctx, results, window)
	})
	g.Go(func() error {
		return p.consume(gctx, results, window, summary)
	})

	err := g.Wait()
	summary.Identities = p.tracker.Count()
	summary.Elapsed = time.Since(start)

	fields := []zap.Field{
		zap.String("session_id", p.sessionID),
		zap.Int("frames", summary.FramesProcessed),
		zap.Int("faces", summary.FacesResolved),
		zap.Int("identities", summary.Identities),
		zap.Duration("elapsed", summary.Elapsed),
	}
	if err != nil {
		p.logger.Warn("tracking session stopped", append(fields, zap.Error(err))...)
		return summary, err
	}
	p.logger.Info("tracking session finished", fields...)
	return summary, nil
}

// produce reads frames in order and extracts faces on a bounded worker pool.
func (p *Pipeline) produce(ctx context.Context, results chan<- extracted, window chan<- struct{}) error {
	var workers errgroup.Group
	workers.SetLimit(p.concurrency)

	for seq := 0; ; seq++ {
		select {
		case window <- struct{}{}:
		case <-ctx.Done():
			_ = workers.Wait()
			return ctx.Err()
		}

		frame, err := p.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return workers.Wait()
		}
		if err != nil {
			_ = workers.Wait()
			return fmt.Errorf("failed to read frame %d: %w", seq, err)
		}
		frame.Index = seq

		workers.Go(func() error {
			r := extracted{frame: frame, err: p.extract(ctx, frame)}
			select {
			case results <- r:
			case <-ctx.Done():
			}
			return nil
		})
	}
}

func (p *Pipeline) extract(ctx context.Context, frame *Frame) error {
	if frame.Extracted || p.extractor == nil {
		return nil
	}
	faces, err := p.extractor.ExtractFaces(ctx, frame)
	if err != nil {
		return err
	}
	frame.Faces = faces
	frame.Extracted = true
	return nil
}

// consume re-orders extracted frames and resolves them one at a time.
func (p *Pipeline) consume(ctx context.Context, results <-chan extracted, window <-chan struct{}, summary *Summary) error {
	pending := make(map[int]extracted)
	next := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-results:
			if !ok {
				return nil
			}
			pending[r.frame.Index] = r

			for {
				ready, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				if err := p.resolveFrame(ctx, ready, summary); err != nil {
					return err
				}
				<-window
				next++
			}
		}
	}
}

func (p *Pipeline) resolveFrame(ctx context.Context, r extracted, summary *Summary) error {
	frame := r.frame
	if r.err != nil {
		summary.FramesFailed++
		p.logger.Warn("face extraction failed",
			zap.Int("frame", frame.Index),
			zap.String("name", frame.Name),
			zap.Error(r.err))
		frame.Faces = nil
	}

	labels := make([]int, len(frame.Faces))
	for i, face := range frame.Faces {
		res, err := p.tracker.ResolveDetailed(face.Embedding)
		if err != nil {
			if p.strict {
				return fmt.Errorf("frame %d (%s) face %d: %w", frame.Index, frame.Name, i, err)
			}
			labels[i] = Unlabeled
			summary.FacesRejected++
			p.logger.Warn("embedding rejected",
				zap.Int("frame", frame.Index),
				zap.Int("face", i),
				zap.Error(err))
			continue
		}

		labels[i] = res.Label
		summary.FacesResolved++
		record(summary, res.Label, frame)

		if res.New {
			p.logger.Debug("new identity",
				zap.Int("label", res.Label),
				zap.Int("frame", frame.Index),
				zap.Float64("nearest_distance", res.Distance))
		}
	}

	for _, sink := range p.sinks {
		if err := sink.WriteFrame(ctx, frame, labels); err != nil {
			return fmt.Errorf("failed to write frame %d: %w", frame.Index, err)
		}
	}

	summary.FramesProcessed++
	if p.progress != nil {
		p.progress(frame, labels)
	}
	return nil
}

// record updates occurrence statistics. Labels are dense, so a label at or past
// the number of known occurrences is a newly minted identity.
func record(summary *Summary, label int, frame *Frame) {
	for len(summary.Occurrences) <= label {
		summary.Occurrences = append(summary.Occurrences, Occurrence{
			Label:      len(summary.Occurrences),
			FirstFrame: frame.Index,
			FirstName:  frame.Name,
		})
	}
	occ := &summary.Occurrences[label]
	occ.LastFrame = frame.Index
	occ.Appearances++
}
