package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-tracker/internal/config"
	"github.com/kozaktomas/face-tracker/internal/fingerprint"
	"github.com/kozaktomas/face-tracker/internal/frames"
	"github.com/kozaktomas/face-tracker/internal/logging"
	"github.com/kozaktomas/face-tracker/internal/pipeline"
	"github.com/kozaktomas/face-tracker/internal/report"
	"github.com/kozaktomas/face-tracker/internal/stream"
	"github.com/kozaktomas/face-tracker/internal/tracker"
)

var trackCmd = &cobra.Command{
	Use:   "track [frames-dir]",
	Short: "Assign identity labels to faces across video frames",
	Long: `Detect faces in every frame, match each face against the identities seen so
far and write the frames annotated with their identity labels.

Frames are image files (JPEG, PNG or WebP) in a directory, processed in file
name order. Extract them from a video first, e.g.:
  ffmpeg -i video.mp4 frames/frame_%06d.png

Faces are detected and embedded by the embedding server (EMBEDDING_URL).
Alternatively, --embeddings reads precomputed faces from a JSON Lines file with
one {"frame": "...", "faces": [{"bbox": [...], "embedding": [...]}]} per line.

Examples:
  # Annotate frames into ./results
  face-tracker track frames/

  # Write labels and a session report, 8 concurrent requests
  face-tracker track frames/ --labels labels.jsonl --report report.yaml --concurrency 8

  # Keep tracking frames as they are written into the directory
  face-tracker track frames/ --follow --idle-timeout 30s

  # Use precomputed embeddings
  face-tracker track --embeddings faces.jsonl --labels labels.jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)

	trackCmd.Flags().String("embeddings", "", "Read precomputed faces from a JSON Lines file instead of a frame directory")
	trackCmd.Flags().String("output", "results", "Directory to save annotated frames")
	trackCmd.Flags().String("labels", "", "Write per-frame labels as JSON Lines to this file")
	trackCmd.Flags().String("report", "", "Write a YAML session report to this file")
	trackCmd.Flags().Int("concurrency", 0, "Number of frames sent to the embedding server in parallel (0 = TRACK_CONCURRENCY)")
	trackCmd.Flags().Bool("follow", false, "Keep watching the frame directory for new frames")
	trackCmd.Flags().Duration("idle-timeout", 0, "With --follow, stop after no new frame arrived for this long (0 = until interrupted)")
	trackCmd.Flags().Bool("strict", false, "Abort on the first invalid embedding instead of leaving the face unlabelled")
	trackCmd.Flags().Bool("no-annotate", false, "Do not write annotated frames")
	trackCmd.Flags().Bool("debug", false, "Enable debug logging")
}

func runTrack(cmd *cobra.Command, args []string) error {
	embeddingsPath := mustGetString(cmd, "embeddings")
	outputDir := mustGetString(cmd, "output")
	labelsPath := mustGetString(cmd, "labels")
	reportPath := mustGetString(cmd, "report")
	concurrency := mustGetInt(cmd, "concurrency")
	follow := mustGetBool(cmd, "follow")
	idleTimeout := mustGetDuration(cmd, "idle-timeout")
	strict := mustGetBool(cmd, "strict")
	noAnnotate := mustGetBool(cmd, "no-annotate")
	debug := mustGetBool(cmd, "debug")

	if (len(args) == 0) == (embeddingsPath == "") {
		return errors.New("provide either a frame directory or --embeddings")
	}

	cfg := config.Load()
	if concurrency <= 0 {
		concurrency = cfg.Track.Concurrency
	}

	logger, err := logging.New(cfg.Debug || debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := tracker.New()
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithConcurrency(concurrency),
		pipeline.WithStrict(strict),
	}

	total := -1
	var src pipeline.Source
	if embeddingsPath != "" {
		f, err := os.Open(embeddingsPath) //nolint:gosec // path is from CLI input
		if err != nil {
			return fmt.Errorf("failed to open embeddings: %w", err)
		}
		defer f.Close()
		src = stream.NewJSONLSource(f)
		fmt.Printf("Reading precomputed faces from %s\n", embeddingsPath)
	} else {
		dir := args[0]
		if follow {
			ws, err := frames.NewWatchSource(dir, frames.WithIdleTimeout(idleTimeout), frames.WithLogger(logger))
			if err != nil {
				return err
			}
			defer ws.Close()
			src = ws
			fmt.Printf("Watching %s for frames (Ctrl+C to stop)\n", dir)
		} else {
			ds, err := frames.NewDirSource(dir)
			if err != nil {
				return err
			}
			if ds.Len() == 0 {
				return fmt.Errorf("no frames found in %s", dir)
			}
			total = ds.Len()
			src = ds
			fmt.Printf("Frames to process: %d\n", total)
		}

		client := fingerprint.NewEmbeddingClient(cfg.Embedding.URL)
		fmt.Printf("Using embedding server at %s\n", client.BaseURL())
		opts = append(opts, pipeline.WithExtractor(pipeline.NewServerExtractor(client)))

		if !noAnnotate {
			sink, err := frames.NewJPEGSink(outputDir, cfg.Track.JPEGQuality, true)
			if err != nil {
				return err
			}
			opts = append(opts, pipeline.WithSinks(sink))
		}
	}

	var labels *stream.JSONLWriter
	var labelsFile *os.File
	if labelsPath != "" {
		labelsFile, err = os.Create(labelsPath) //nolint:gosec // path is from CLI input
		if err != nil {
			return fmt.Errorf("failed to create labels file: %w", err)
		}
		defer labelsFile.Close()
		labels = stream.NewJSONLWriter(labelsFile)
		opts = append(opts, pipeline.WithSinks(labels))
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Tracking faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(total > 0),
		progressbar.OptionFullWidth(),
	)
	opts = append(opts, pipeline.WithProgress(func(*pipeline.Frame, []int) {
		_ = bar.Add(1)
	}))

	summary, runErr := pipeline.New(t, src, opts...).Run(ctx)
	_ = bar.Finish()
	fmt.Println()

	interrupted := errors.Is(runErr, context.Canceled)
	if runErr != nil && !interrupted {
		return fmt.Errorf("tracking failed: %w", runErr)
	}
	if interrupted {
		fmt.Println("Interrupted, results cover the frames processed so far")
	}

	if labels != nil {
		if err := labels.Flush(); err != nil {
			return fmt.Errorf("failed to write labels: %w", err)
		}
		if err := labelsFile.Close(); err != nil {
			return fmt.Errorf("failed to close labels file: %w", err)
		}
	}

	if reportPath != "" {
		r := report.Build(summary, t)
		if err := r.WriteFile(reportPath); err != nil {
			return err
		}
		if len(r.NearPairs) > 0 {
			logger.Info("identities close to the match threshold",
				zap.Int("pairs", len(r.NearPairs)),
				zap.String("report", reportPath))
		}
		fmt.Printf("Report written to %s\n", reportPath)
	}

	fmt.Printf("Frames processed: %d (failed: %d)\n", summary.FramesProcessed, summary.FramesFailed)
	fmt.Printf("Faces labelled: %d (rejected: %d)\n", summary.FacesResolved, summary.FacesRejected)
	fmt.Printf("Total unique faces detected: %d\n", t.Count())
	return nil
}
