package transcript

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTranscript() *FinalTranscript {
	return &FinalTranscript{
		Segments: []SpeakerSegment{
			{Speaker: "SPK_000", Start: 0, End: 4.5, Text: "good morning", Confidence: 0.92},
			{Speaker: "SPK_001", Start: 5, End: 9.25, Text: "morning, shall we start", Confidence: 0.85},
		},
		Metadata: Metadata{
			NumSpeakersDetected: 2,
			TotalChunks:         1,
			ChunkDuration:       600,
			OverlapDuration:     5,
		},
	}
}

func TestJSONRoundTrip(t *testing.T) {
	original := sampleTranscript()
	original.ComputeSpeakerSummary()

	var buf bytes.Buffer
	require.NoError(t, original.WriteJSON(&buf))

	parsed, err := ParseJSON(&buf)
	require.NoError(t, err)

	assert.Equal(t, original.Segments, parsed.Segments)
	assert.Equal(t, original.Metadata, parsed.Metadata)
}

func TestParseJSONInvalid(t *testing.T) {
	_, err := ParseJSON(strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTranscript().WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, "[00:00:00.000 --> 00:00:04.500] [SPK_000] good morning")
	assert.Contains(t, out, "[00:00:05.000 --> 00:00:09.250] [SPK_001] morning, shall we start")
}

func TestWriteSRT(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTranscript().WriteSRT(&buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "1\n"))
	assert.Contains(t, out, "00:00:00,000 --> 00:00:04,500")
	assert.Contains(t, out, "[SPK_000] good morning")
	assert.Contains(t, out, "2\n00:00:05,000 --> 00:00:09,250")
}

func TestWriteVTT(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTranscript().WriteVTT(&buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "WEBVTT\n\n"))
	assert.Contains(t, out, "00:00:05.000 --> 00:00:09.250")
	assert.Contains(t, out, "[SPK_001] morning, shall we start")
}

func TestWriteDispatch(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatText, FormatSRT, FormatVTT} {
		var buf bytes.Buffer
		require.NoError(t, sampleTranscript().Write(&buf, format), format)
		assert.NotEmpty(t, buf.String(), format)
	}

	var buf bytes.Buffer
	assert.Error(t, sampleTranscript().Write(&buf, "pdf"))
	assert.False(t, ValidFormat("pdf"))
	assert.True(t, ValidFormat("srt"))
}

func TestComputeSpeakerSummary(t *testing.T) {
	tr := &FinalTranscript{
		Segments: []SpeakerSegment{
			{Speaker: "SPK_000", Start: 0, End: 10, Text: "ten seconds"},
			{Speaker: "SPK_000", Start: 20, End: 25, Text: "five more"},
			{Speaker: "SPK_001", Start: 12, End: 14, Text: "brief"},
		},
	}

	tr.ComputeSpeakerSummary()

	require.Len(t, tr.Metadata.SpeakerSummary, 2)
	s0 := tr.Metadata.SpeakerSummary["SPK_000"]
	assert.Equal(t, 2, s0.Segments)
	assert.InDelta(t, 15.0, s0.SpeakingTime, 1e-9)
	assert.Equal(t, len("ten seconds")+len("five more"), s0.Characters)

	s1 := tr.Metadata.SpeakerSummary["SPK_001"]
	assert.Equal(t, 1, s1.Segments)
	assert.InDelta(t, 2.0, s1.SpeakingTime, 1e-9)
}
