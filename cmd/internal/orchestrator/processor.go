// Package orchestrator drives the long-audio pipeline: chunk, diarize,
// transcribe, track speakers across chunks, rebase and merge into the
// final transcript.
package orchestrator

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/houzhh15/meetscribe/cmd/internal/asr"
	"github.com/houzhh15/meetscribe/cmd/internal/audio"
	"github.com/houzhh15/meetscribe/cmd/internal/diarize"
	"github.com/houzhh15/meetscribe/cmd/internal/metrics"
	"github.com/houzhh15/meetscribe/cmd/internal/transcript"
	"github.com/houzhh15/meetscribe/pkg/logger"
)

// DegradedConfidence marks spans whose ASR call failed or timed out.
const DegradedConfidence = 0.1

// TranscriberSource yields the transcriber to use for the next call.
// Satisfied by the degradation controller; StaticTranscriber wraps a
// fixed implementation for offline use.
type TranscriberSource interface {
	GetTranscriber() asr.Transcriber
}

// StaticTranscriber is a TranscriberSource that always returns the same
// transcriber.
type StaticTranscriber struct {
	T asr.Transcriber
}

func (s StaticTranscriber) GetTranscriber() asr.Transcriber { return s.T }

// ProcessorOptions tune per-chunk processing.
type ProcessorOptions struct {
	// Language hint forwarded to the ASR service; empty auto-detects.
	Language string

	// Constraints forwarded to the diarization engine.
	Constraints diarize.Constraints

	// SpanConcurrency caps concurrent ASR calls within one chunk.
	SpanConcurrency int

	// SpanTimeout bounds one span's ASR call; a timeout degrades the
	// span exactly like a failure.
	SpanTimeout time.Duration

	// FallbackSpanSeconds sizes the fixed segmentation used when the
	// diarization engine errors mid-job.
	FallbackSpanSeconds float64
}

// ChunkProcessor turns one AudioChunk into a ChunkTranscription by
// calling the external engines. Span failures degrade locally; the only
// error Process ever returns is context cancellation.
type ChunkProcessor struct {
	asrSource TranscriberSource
	diarizer  diarize.Engine
	fallback  *diarize.FallbackEngine
	extractor *audio.FeatureExtractor
	opts      ProcessorOptions
	log       *slog.Logger
}

// NewChunkProcessor 创建切片处理器
func NewChunkProcessor(asrSource TranscriberSource, diarizer diarize.Engine, opts ProcessorOptions, log *slog.Logger) *ChunkProcessor {
	if opts.SpanConcurrency < 1 {
		opts.SpanConcurrency = 1
	}
	return &ChunkProcessor{
		asrSource: asrSource,
		diarizer:  diarizer,
		fallback:  diarize.NewFallbackEngine(opts.FallbackSpanSeconds),
		extractor: audio.NewFeatureExtractor(),
		opts:      opts,
		log:       log,
	}
}

// spanResult collects one diarized turn's transcription, indexed by turn
// position so concurrent completion order cannot reorder output.
type spanResult struct {
	segments []transcript.SpeakerSegment
}

// Process diarizes the chunk, transcribes every speaker span (possibly
// concurrently), aligns ASR timing onto the spans and computes one
// embedding per chunk-local speaker.
func (p *ChunkProcessor) Process(ctx context.Context, chunk audio.AudioChunk) (*transcript.ChunkTranscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	turns := p.diarizeChunk(ctx, chunk)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]spanResult, len(turns))
	sem := semaphore.NewWeighted(int64(p.opts.SpanConcurrency))
	g, gctx := errgroup.WithContext(ctx)
	for i, turn := range turns {
		i, turn := i, turn
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			res, err := p.transcribeSpan(gctx, chunk, turn)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// only cancellation aborts a chunk; span failures degrade in place
		return nil, err
	}
	// a chunk with spans missing due to cancellation must never be
	// committed, even if every launched span happened to finish
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	segments := make([]transcript.SpeakerSegment, 0, len(turns))
	for _, r := range results {
		segments = append(segments, r.segments...)
	}

	embeddings := p.speakerEmbeddings(chunk, turns)

	return &transcript.ChunkTranscription{
		ChunkID:    chunk.ChunkID,
		ChunkStart: chunk.StartTime,
		ChunkEnd:   chunk.EndTime,
		Segments:   segments,
		Embeddings: embeddings,
	}, nil
}

// diarizeChunk runs the configured engine and falls back to fixed-span
// segmentation when it errors. Turns come back sorted by start time so
// span ordering is deterministic.
func (p *ChunkProcessor) diarizeChunk(ctx context.Context, chunk audio.AudioChunk) []diarize.Turn {
	start := time.Now()
	turns, err := p.diarizer.Diarize(ctx, chunk.Samples, chunk.SampleRate, p.opts.Constraints)
	if err != nil && ctx.Err() == nil {
		logger.LogChunkProcessing(p.log, "diarize", "degraded", chunk.ChunkID, time.Since(start).Milliseconds(), string(DIARIZATION_UNAVAILABLE))
		metrics.RecordError("diarize", string(DIARIZATION_UNAVAILABLE))
		turns, _ = p.fallback.Diarize(ctx, chunk.Samples, chunk.SampleRate, p.opts.Constraints)
	} else {
		metrics.RecordDuration("diarize", time.Since(start).Seconds())
	}
	sort.SliceStable(turns, func(i, j int) bool { return turns[i].Start < turns[j].Start })
	return turns
}

// transcribeSpan runs ASR for one diarized turn. Failures and timeouts
// degrade the span to empty text at reduced confidence; whole-job
// cancellation is returned as an error so the chunk is abandoned.
func (p *ChunkProcessor) transcribeSpan(ctx context.Context, chunk audio.AudioChunk, turn diarize.Turn) (spanResult, error) {
	span := extractSpan(chunk, turn)

	callCtx := ctx
	if p.opts.SpanTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.opts.SpanTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := p.asrSource.GetTranscriber().Transcribe(callCtx, span, chunk.SampleRate, &asr.Options{
		Language: p.opts.Language,
	})
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// whole-job cancellation, not a span failure
			return spanResult{}, ctxErr
		}
		logger.LogChunkProcessing(p.log, "asr", "degraded", chunk.ChunkID, elapsed.Milliseconds(), string(ASR_SPAN_FAILED))
		metrics.RecordError("asr", string(ASR_SPAN_FAILED))
		return spanResult{segments: []transcript.SpeakerSegment{degradedSegment(turn)}}, nil
	}

	metrics.RecordDuration("asr", elapsed.Seconds())
	return spanResult{segments: alignSegments(result, turn)}, nil
}

// alignSegments maps ASR sub-segments (timed relative to the span) onto
// chunk-relative time, clipping to the span boundary. An ASR result with
// no usable output keeps the span present as a degraded segment.
func alignSegments(result *asr.Result, turn diarize.Turn) []transcript.SpeakerSegment {
	spanDur := turn.End - turn.Start

	var out []transcript.SpeakerSegment
	for _, s := range result.Segments {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		start, end := s.Start, s.End
		if start < 0 {
			start = 0
		}
		if end > spanDur {
			end = spanDur
		}
		if end <= start {
			continue
		}
		out = append(out, transcript.SpeakerSegment{
			Speaker:    turn.SpeakerLabel,
			Start:      turn.Start + start,
			End:        turn.Start + end,
			Text:       strings.TrimSpace(s.Text),
			Confidence: turn.Confidence,
		})
	}

	if len(out) == 0 {
		if text := strings.TrimSpace(result.Text); text != "" {
			// service returned flat text without timing
			return []transcript.SpeakerSegment{{
				Speaker:    turn.SpeakerLabel,
				Start:      turn.Start,
				End:        turn.End,
				Text:       text,
				Confidence: turn.Confidence,
			}}
		}
		return []transcript.SpeakerSegment{degradedSegment(turn)}
	}
	return out
}

// degradedSegment keeps a failed span present in the result so speaker
// presence accounting survives.
func degradedSegment(turn diarize.Turn) transcript.SpeakerSegment {
	return transcript.SpeakerSegment{
		Speaker:    turn.SpeakerLabel,
		Start:      turn.Start,
		End:        turn.End,
		Text:       "",
		Confidence: DegradedConfidence,
	}
}

// speakerEmbeddings computes one embedding per chunk-local speaker from
// the concatenation of all of that speaker's spans.
func (p *ChunkProcessor) speakerEmbeddings(chunk audio.AudioChunk, turns []diarize.Turn) map[string][]float64 {
	start := time.Now()
	byLabel := make(map[string][]float64)
	for _, turn := range turns {
		byLabel[turn.SpeakerLabel] = append(byLabel[turn.SpeakerLabel], extractSpan(chunk, turn)...)
	}

	embeddings := make(map[string][]float64, len(byLabel))
	for label, samples := range byLabel {
		embeddings[label] = p.extractor.Extract(samples, chunk.SampleRate)
	}
	metrics.RecordDuration("features", time.Since(start).Seconds())
	return embeddings
}

// extractSpan slices the chunk samples for one turn, clamping to bounds.
func extractSpan(chunk audio.AudioChunk, turn diarize.Turn) []float64 {
	startIdx := int(turn.Start * float64(chunk.SampleRate))
	endIdx := int(turn.End * float64(chunk.SampleRate))
	if startIdx < 0 {
		startIdx = 0
	}
	if endIdx > len(chunk.Samples) {
		endIdx = len(chunk.Samples)
	}
	if startIdx >= endIdx {
		return nil
	}
	return chunk.Samples[startIdx:endIdx]
}

// LocalSpeakerOrder returns chunk-local labels in first-appearance order
// of the chunk's segments, the stable ordering the tracker's tie-break
// depends on.
func LocalSpeakerOrder(ct *transcript.ChunkTranscription) []string {
	seen := make(map[string]bool)
	var order []string
	for _, s := range ct.Segments {
		if !seen[s.Speaker] {
			seen[s.Speaker] = true
			order = append(order, s.Speaker)
		}
	}
	return order
}
