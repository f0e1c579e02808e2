// Command transcribe runs the long-audio pipeline offline against a WAV
// file, without the HTTP server. Useful for batch processing and for
// checking engine connectivity.
//
// Usage:
//
//	transcribe -input meeting.wav -output meeting.json -format json \
//	    -asr-url http://localhost:8090 -diarize-url http://localhost:8091
//
// When -asr-url is empty the mock transcriber is used and all segments
// come back with empty text; that still exercises chunking, diarization
// fallback and speaker tracking.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/houzhh15/meetscribe/cmd/internal/asr"
	"github.com/houzhh15/meetscribe/cmd/internal/audio"
	"github.com/houzhh15/meetscribe/cmd/internal/config"
	"github.com/houzhh15/meetscribe/cmd/internal/diarize"
	"github.com/houzhh15/meetscribe/cmd/internal/orchestrator"
	"github.com/houzhh15/meetscribe/cmd/internal/transcript"
	"github.com/houzhh15/meetscribe/pkg/logger"
)

func main() {
	var (
		inputPath       = flag.String("input", "", "input WAV file (required)")
		outputPath      = flag.String("output", "", "output file (default: stdout)")
		format          = flag.String("format", transcript.FormatJSON, "output format: json, text, srt, vtt")
		chunkDuration   = flag.Float64("chunk", 600, "chunk duration in seconds")
		overlapDuration = flag.Float64("overlap", 5, "overlap duration in seconds")
		asrURL          = flag.String("asr-url", "", "ASR service base URL (empty: mock transcriber)")
		diarizeURL      = flag.String("diarize-url", "", "diarization service base URL (empty: fixed-span fallback)")
		language        = flag.String("language", "", "language hint forwarded to ASR (empty: auto-detect)")
		minSpeakers     = flag.Int("min-speakers", 0, "minimum speaker count hint for diarization (0: unconstrained)")
		maxSpeakers     = flag.Int("max-speakers", 0, "maximum speaker count hint for diarization (0: unconstrained)")
		spanConcurrency = flag.Int("span-concurrency", 4, "max concurrent ASR calls per chunk")
		quiet           = flag.Bool("quiet", false, "suppress progress output")
	)
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "error: -input is required")
		flag.Usage()
		os.Exit(2)
	}
	if !transcript.ValidFormat(*format) {
		fmt.Fprintf(os.Stderr, "error: unknown format %q\n", *format)
		os.Exit(2)
	}
	if *minSpeakers > 0 && *maxSpeakers > 0 && *minSpeakers > *maxSpeakers {
		fmt.Fprintf(os.Stderr, "error: -min-speakers (%d) must not exceed -max-speakers (%d)\n", *minSpeakers, *maxSpeakers)
		os.Exit(2)
	}

	log, err := logger.Init(logger.Config{Level: "warn", Environment: "cli"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}

	cfg := config.DefaultPipelineConfig()
	cfg.ChunkDuration = *chunkDuration
	cfg.OverlapDuration = *overlapDuration

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: read input: %v\n", err)
		os.Exit(1)
	}
	buf, err := audio.DecodeWAV(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: decode WAV: %v\n", err)
		os.Exit(1)
	}

	var transcriber asr.Transcriber
	if *asrURL != "" {
		transcriber = asr.NewHTTPTranscriber(*asrURL, 10*time.Minute)
	} else {
		transcriber = asr.NewMockTranscriber()
	}
	diarizer := diarize.Select(log.With("component", "diarize"), *diarizeURL, 30*time.Second, cfg.FallbackSpanSeconds)

	processor := orchestrator.NewChunkProcessor(
		orchestrator.StaticTranscriber{T: transcriber},
		diarizer,
		orchestrator.ProcessorOptions{
			Language: *language,
			Constraints: diarize.Constraints{
				MinSpeakers: *minSpeakers,
				MaxSpeakers: *maxSpeakers,
			},
			SpanConcurrency:     *spanConcurrency,
			FallbackSpanSeconds: cfg.FallbackSpanSeconds,
		},
		log.With("component", "processor"),
	)

	var progress orchestrator.ProgressFunc
	if !*quiet {
		progress = func(p orchestrator.Progress) {
			fmt.Fprintf(os.Stderr, "[%5.1f%%] %s\n", p.Percentage, p.StatusText)
		}
	}
	pipeline := orchestrator.NewPipeline(cfg, processor, log.With("component", "pipeline"), progress)

	// Ctrl-C aborts between chunks and discards partial results
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	final, err := pipeline.Run(ctx, buf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	out := os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: create output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	if err := final.Write(out, *format); err != nil {
		fmt.Fprintf(os.Stderr, "error: write output: %v\n", err)
		os.Exit(1)
	}

	if !*quiet {
		fmt.Fprintf(os.Stderr, "done: %d segments, %d speakers, %.1fs audio in %s\n",
			len(final.Segments),
			final.Metadata.NumSpeakersDetected,
			buf.Duration(),
			time.Since(started).Round(time.Millisecond),
		)
	}
}
