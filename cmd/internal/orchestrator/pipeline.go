package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/houzhh15/meetscribe/cmd/internal/audio"
	"github.com/houzhh15/meetscribe/cmd/internal/config"
	"github.com/houzhh15/meetscribe/cmd/internal/metrics"
	"github.com/houzhh15/meetscribe/cmd/internal/speaker"
	"github.com/houzhh15/meetscribe/cmd/internal/transcript"
	"github.com/houzhh15/meetscribe/pkg/logger"
)

// Progress 当前处理进度快照
type Progress struct {
	CurrentChunk int     `json:"current_chunk"`
	TotalChunks  int     `json:"total_chunks"`
	Percentage   float64 `json:"percentage"`
	StatusText   string  `json:"status_text"`
}

// ProgressFunc receives progress snapshots as chunks complete. Called
// synchronously from the pipeline goroutine; keep it cheap.
type ProgressFunc func(Progress)

// Pipeline runs the full long-audio flow over one recording: chunking,
// per-chunk processing, cross-chunk speaker tracking, rebasing and the
// final merge. Chunks are processed strictly in order so the tracker
// sees embeddings in chunk order.
type Pipeline struct {
	cfg       config.PipelineConfig
	processor *ChunkProcessor
	log       *slog.Logger
	progress  ProgressFunc
}

// NewPipeline 创建音频处理流水线
func NewPipeline(cfg config.PipelineConfig, processor *ChunkProcessor, log *slog.Logger, progress ProgressFunc) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		processor: processor,
		log:       log,
		progress:  progress,
	}
}

// Run processes the whole recording and returns the final transcript.
// Cancellation is honored between chunks: the transcript of fully
// committed chunks is returned together with a JOB_CANCELLED error, and
// the in-flight chunk is abandoned. Speaker state is scoped to one Run;
// identities never leak across recordings.
func (p *Pipeline) Run(ctx context.Context, buf *audio.Buffer) (*transcript.FinalTranscript, error) {
	chunks, err := audio.Chunk(buf, p.cfg.ChunkDuration, p.cfg.OverlapDuration)
	if err != nil {
		metrics.RecordError("chunker", string(INVALID_CHUNKING))
		return nil, NewChunkingError(err)
	}

	registry := speaker.NewGlobalSpeakerRegistry(p.cfg.MaxSpeakerProfiles)
	tracker := speaker.NewConsistencyTracker(registry, p.cfg.SimilarityThreshold, audio.EmbeddingDim)

	var all []transcript.SpeakerSegment
	for i, chunk := range chunks {
		// cancellation returns only fully committed chunks, never a
		// half-merged one
		if err := ctx.Err(); err != nil {
			return p.finalize(all, len(chunks), registry.Count()), NewCancelledError(err)
		}
		p.report(i, len(chunks), fmt.Sprintf("processing chunk %d/%d", i+1, len(chunks)))

		start := time.Now()
		ct, err := p.processor.Process(ctx, chunk)
		if err != nil {
			return p.finalize(all, len(chunks), registry.Count()), NewCancelledError(err)
		}

		relabeled, err := p.attachGlobalIdentities(tracker, ct)
		if err != nil {
			metrics.RecordError("tracker", string(TRACKING_FAILED))
			return nil, NewTrackingError(err)
		}
		all = append(all, transcript.Rebase(relabeled)...)

		elapsed := time.Since(start)
		metrics.RecordChunkProcessed("pipeline", true)
		metrics.RecordDuration("pipeline", elapsed.Seconds())
		logger.LogChunkProcessing(p.log, "pipeline", "success", chunk.ChunkID, elapsed.Milliseconds(), "")
	}

	final := p.finalize(all, len(chunks), registry.Count())
	metrics.SetSpeakersDetected(registry.Count())

	p.report(len(chunks), len(chunks), "completed")
	return final, nil
}

// finalize merges committed segments into a transcript and runs the
// overlap-residual diagnostic.
func (p *Pipeline) finalize(all []transcript.SpeakerSegment, totalChunks, numSpeakers int) *transcript.FinalTranscript {
	merger := transcript.NewMerger(p.cfg.MergeMaxGap)
	merged := merger.Merge(all)

	if residuals := transcript.FindOverlapResiduals(merged); len(residuals) > 0 {
		transcript.LogOverlapResiduals(p.log, merged, residuals)
		for range residuals {
			metrics.RecordOverlapResidual()
		}
	}

	final := &transcript.FinalTranscript{
		Segments: merged,
		Metadata: transcript.Metadata{
			NumSpeakersDetected: numSpeakers,
			TotalChunks:         totalChunks,
			ChunkDuration:       p.cfg.ChunkDuration,
			OverlapDuration:     p.cfg.OverlapDuration,
		},
	}
	final.ComputeSpeakerSummary()
	return final
}

// attachGlobalIdentities matches the chunk's local speakers against the
// registry and returns the chunk with segments carrying global IDs.
// Locals are presented in first-appearance order so tie-breaking stays
// deterministic.
func (p *Pipeline) attachGlobalIdentities(tracker *speaker.ConsistencyTracker, ct *transcript.ChunkTranscription) (transcript.ChunkTranscription, error) {
	order := LocalSpeakerOrder(ct)
	locals := make([]speaker.LocalSpeaker, 0, len(order))
	for _, label := range order {
		emb, ok := ct.Embeddings[label]
		if !ok {
			emb = make([]float64, audio.EmbeddingDim)
		}
		locals = append(locals, speaker.LocalSpeaker{Label: label, Embedding: emb})
	}

	mapping, err := tracker.Match(locals)
	if err != nil {
		return transcript.ChunkTranscription{}, err
	}

	out := *ct
	out.Segments = make([]transcript.SpeakerSegment, len(ct.Segments))
	for i, s := range ct.Segments {
		out.Segments[i] = s.Relabeled(mapping[s.Speaker])
	}
	return out, nil
}

// report emits a progress snapshot when a callback is registered.
func (p *Pipeline) report(done, total int, status string) {
	if p.progress == nil {
		return
	}
	pct := 100.0
	if total > 0 {
		pct = float64(done) / float64(total) * 100.0
	}
	p.progress(Progress{
		CurrentChunk: done,
		TotalChunks:  total,
		Percentage:   pct,
		StatusText:   status,
	})
}
