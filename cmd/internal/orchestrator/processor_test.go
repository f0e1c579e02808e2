package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/houzhh15/meetscribe/cmd/internal/asr"
	"github.com/houzhh15/meetscribe/cmd/internal/audio"
	"github.com/houzhh15/meetscribe/cmd/internal/diarize"
	"github.com/houzhh15/meetscribe/cmd/internal/transcript"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func silentChunk(id int, start, seconds float64, rate int) audio.AudioChunk {
	return audio.AudioChunk{
		ChunkID:    id,
		StartTime:  start,
		EndTime:    start + seconds,
		SampleRate: rate,
		Samples:    make([]float64, int(seconds*float64(rate))),
	}
}

// scriptedASR returns fixed flat text, failing any span whose duration
// matches failSpanSeconds.
type scriptedASR struct {
	text            string
	failSpanSeconds float64
}

func (s *scriptedASR) Transcribe(ctx context.Context, samples []float64, sampleRate int, options *asr.Options) (*asr.Result, error) {
	dur := float64(len(samples)) / float64(sampleRate)
	if s.failSpanSeconds > 0 && math.Abs(dur-s.failSpanSeconds) < 0.01 {
		return nil, errors.New("scripted span failure")
	}
	return &asr.Result{Text: s.text}, nil
}

func (s *scriptedASR) HealthCheck(ctx context.Context) (bool, error) { return true, nil }
func (s *scriptedASR) Name() string                                  { return "scripted" }

// segmentedASR returns the same structured segments for every span.
type segmentedASR struct {
	segments []asr.Segment
}

func (s *segmentedASR) Transcribe(ctx context.Context, samples []float64, sampleRate int, options *asr.Options) (*asr.Result, error) {
	return &asr.Result{Segments: s.segments}, nil
}

func (s *segmentedASR) HealthCheck(ctx context.Context) (bool, error) { return true, nil }
func (s *segmentedASR) Name() string                                  { return "segmented" }

// scriptedDiarizer returns fixed turns or a fixed error, recording the
// constraints it was handed.
type scriptedDiarizer struct {
	turns []diarize.Turn
	err   error
	got   diarize.Constraints
}

func (d *scriptedDiarizer) Diarize(ctx context.Context, samples []float64, sampleRate int, constraints diarize.Constraints) ([]diarize.Turn, error) {
	d.got = constraints
	return d.turns, d.err
}

func (d *scriptedDiarizer) HealthCheck(ctx context.Context) (bool, error) { return d.err == nil, d.err }
func (d *scriptedDiarizer) Name() string                                  { return "scripted-diarizer" }

func TestProcessSpanFailureDegradesLocally(t *testing.T) {
	diarizer := &scriptedDiarizer{turns: []diarize.Turn{
		{SpeakerLabel: "S0", Start: 0, End: 10, Confidence: 0.9},
		{SpeakerLabel: "S1", Start: 10, End: 22, Confidence: 0.8},
		{SpeakerLabel: "S0", Start: 22, End: 30, Confidence: 0.9},
	}}
	// the 12-second middle span fails, neighbors must be untouched
	transcriber := &scriptedASR{text: "ok", failSpanSeconds: 12}

	p := NewChunkProcessor(StaticTranscriber{T: transcriber}, diarizer, ProcessorOptions{
		SpanConcurrency:     2,
		FallbackSpanSeconds: 30,
	}, testLogger())

	ct, err := p.Process(context.Background(), silentChunk(0, 0, 30, 1000))
	require.NoError(t, err)
	require.Len(t, ct.Segments, 3)

	assert.Equal(t, "ok", ct.Segments[0].Text)
	assert.Equal(t, 0.9, ct.Segments[0].Confidence)

	assert.Equal(t, "", ct.Segments[1].Text, "failed span degrades to empty text")
	assert.Equal(t, DegradedConfidence, ct.Segments[1].Confidence)
	assert.Equal(t, 10.0, ct.Segments[1].Start)
	assert.Equal(t, 22.0, ct.Segments[1].End)

	assert.Equal(t, "ok", ct.Segments[2].Text, "span after the failure still transcribed")
}

func TestProcessAlignsAndClipsSubSegments(t *testing.T) {
	diarizer := &scriptedDiarizer{turns: []diarize.Turn{
		{SpeakerLabel: "S0", Start: 5, End: 15, Confidence: 0.7},
	}}
	transcriber := &segmentedASR{segments: []asr.Segment{
		{Start: -1, End: 3, Text: "a"},
		{Start: 3, End: 50, Text: "b"},
		{Start: 9, End: 9, Text: "degenerate"},
		{Start: 4, End: 6, Text: "   "},
	}}

	p := NewChunkProcessor(StaticTranscriber{T: transcriber}, diarizer, ProcessorOptions{
		SpanConcurrency:     1,
		FallbackSpanSeconds: 30,
	}, testLogger())

	ct, err := p.Process(context.Background(), silentChunk(0, 0, 30, 1000))
	require.NoError(t, err)
	require.Len(t, ct.Segments, 2, "degenerate and whitespace sub-segments dropped")

	assert.Equal(t, 5.0, ct.Segments[0].Start, "negative start clipped to span start")
	assert.Equal(t, 8.0, ct.Segments[0].End)
	assert.Equal(t, "a", ct.Segments[0].Text)

	assert.Equal(t, 8.0, ct.Segments[1].Start)
	assert.Equal(t, 15.0, ct.Segments[1].End, "overrunning end clipped to span end")
	assert.Equal(t, 0.7, ct.Segments[1].Confidence, "sub-segments inherit turn confidence")
}

func TestProcessFallsBackWhenDiarizerErrors(t *testing.T) {
	diarizer := &scriptedDiarizer{err: errors.New("service down")}
	transcriber := &scriptedASR{text: "x"}

	p := NewChunkProcessor(StaticTranscriber{T: transcriber}, diarizer, ProcessorOptions{
		SpanConcurrency:     2,
		FallbackSpanSeconds: 10,
	}, testLogger())

	ct, err := p.Process(context.Background(), silentChunk(0, 0, 25, 1000))
	require.NoError(t, err, "diarizer failure must not fail the chunk")
	require.Len(t, ct.Segments, 3, "25s at 10s fallback spans")

	for _, s := range ct.Segments {
		assert.Equal(t, diarize.FallbackLabel, s.Speaker)
		assert.Equal(t, diarize.FallbackConfidence, s.Confidence)
		assert.Equal(t, "x", s.Text)
	}
	assert.Equal(t, 25.0, ct.Segments[2].End, "last fallback span truncated to chunk end")
}

func TestProcessForwardsSpeakerConstraints(t *testing.T) {
	diarizer := &scriptedDiarizer{turns: []diarize.Turn{
		{SpeakerLabel: "S0", Start: 0, End: 10, Confidence: 0.9},
	}}
	want := diarize.Constraints{MinSpeakers: 2, MaxSpeakers: 4}

	p := NewChunkProcessor(StaticTranscriber{T: &scriptedASR{text: "t"}}, diarizer, ProcessorOptions{
		Constraints:         want,
		SpanConcurrency:     1,
		FallbackSpanSeconds: 30,
	}, testLogger())

	_, err := p.Process(context.Background(), silentChunk(0, 0, 10, 1000))
	require.NoError(t, err)
	assert.Equal(t, want, diarizer.got, "diarizer must receive the configured constraints")
}

func TestProcessEmbeddingsPerLocalSpeaker(t *testing.T) {
	diarizer := &scriptedDiarizer{turns: []diarize.Turn{
		{SpeakerLabel: "S0", Start: 0, End: 10, Confidence: 0.9},
		{SpeakerLabel: "S1", Start: 10, End: 20, Confidence: 0.9},
		{SpeakerLabel: "S0", Start: 20, End: 30, Confidence: 0.9},
	}}

	p := NewChunkProcessor(StaticTranscriber{T: &scriptedASR{text: "t"}}, diarizer, ProcessorOptions{
		SpanConcurrency:     1,
		FallbackSpanSeconds: 30,
	}, testLogger())

	ct, err := p.Process(context.Background(), silentChunk(0, 0, 30, 1000))
	require.NoError(t, err)

	require.Len(t, ct.Embeddings, 2)
	assert.Len(t, ct.Embeddings["S0"], audio.EmbeddingDim)
	assert.Len(t, ct.Embeddings["S1"], audio.EmbeddingDim)
}

// cancellingASR cancels the shared context after its first successful
// span and refuses every call after that.
type cancellingASR struct {
	cancel context.CancelFunc
	calls  int32
}

func (c *cancellingASR) Transcribe(ctx context.Context, samples []float64, sampleRate int, options *asr.Options) (*asr.Result, error) {
	if atomic.AddInt32(&c.calls, 1) > 1 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	c.cancel()
	return &asr.Result{Text: "first"}, nil
}

func (c *cancellingASR) HealthCheck(ctx context.Context) (bool, error) { return true, nil }
func (c *cancellingASR) Name() string                                  { return "cancelling" }

func TestProcessCancelledMidChunkAbandonsChunk(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	diarizer := &scriptedDiarizer{turns: []diarize.Turn{
		{SpeakerLabel: "S0", Start: 0, End: 10, Confidence: 0.9},
		{SpeakerLabel: "S1", Start: 10, End: 20, Confidence: 0.9},
	}}

	p := NewChunkProcessor(StaticTranscriber{T: &cancellingASR{cancel: cancel}}, diarizer, ProcessorOptions{
		SpanConcurrency:     1,
		FallbackSpanSeconds: 30,
	}, testLogger())

	ct, err := p.Process(ctx, silentChunk(0, 0, 20, 1000))
	require.Error(t, err, "cancellation between spans must abort the chunk")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, ct, "a partially transcribed chunk must never be committed")
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewChunkProcessor(StaticTranscriber{T: &scriptedASR{text: "t"}}, &scriptedDiarizer{}, ProcessorOptions{
		SpanConcurrency:     1,
		FallbackSpanSeconds: 30,
	}, testLogger())

	_, err := p.Process(ctx, silentChunk(0, 0, 10, 1000))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalSpeakerOrder(t *testing.T) {
	ct := &transcript.ChunkTranscription{Segments: []transcript.SpeakerSegment{
		{Speaker: "B"}, {Speaker: "A"}, {Speaker: "B"},
	}}
	assert.Equal(t, []string{"B", "A"}, LocalSpeakerOrder(ct))
}
