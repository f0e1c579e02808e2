// Package transcript holds the segment data model, the cross-chunk merger
// and the output writers for final transcripts.
package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// SpeakerSegment is one speaker-attributed utterance. Labels are
// chunk-local until the tracker relabels them; timestamps are
// chunk-relative until rebased. Treated as a value: relabeling and
// rebasing return new segments instead of mutating in place.
type SpeakerSegment struct {
	Speaker    string  `json:"speaker"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Rebased returns a copy shifted onto the original audio's timeline.
func (s SpeakerSegment) Rebased(offset float64) SpeakerSegment {
	s.Start += offset
	s.End += offset
	return s
}

// Relabeled returns a copy carrying a global speaker ID.
func (s SpeakerSegment) Relabeled(globalID string) SpeakerSegment {
	s.Speaker = globalID
	return s
}

// ChunkTranscription is the full per-chunk result: ordered segments with
// chunk-local labels plus one embedding per local speaker. Produced by the
// chunk processor, consumed once by the tracker and merger.
type ChunkTranscription struct {
	ChunkID    int
	ChunkStart float64
	ChunkEnd   float64
	Segments   []SpeakerSegment
	Embeddings map[string][]float64
}

// SpeakerStats 单个说话人的统计信息
type SpeakerStats struct {
	Segments     int     `json:"segments"`
	SpeakingTime float64 `json:"speaking_time"`
	Characters   int     `json:"characters"`
}

// Metadata describes how a transcript was produced.
type Metadata struct {
	NumSpeakersDetected int                     `json:"num_speakers_detected"`
	TotalChunks         int                     `json:"total_chunks"`
	ChunkDuration       float64                 `json:"chunk_duration"`
	OverlapDuration     float64                 `json:"overlap_duration"`
	SpeakerSummary      map[string]SpeakerStats `json:"speaker_summary,omitempty"`
}

// FinalTranscript is the merged, ordered result with global speaker IDs
// and absolute timestamps.
type FinalTranscript struct {
	Segments []SpeakerSegment `json:"segments"`
	Metadata Metadata         `json:"metadata"`
}

// ComputeSpeakerSummary fills Metadata.SpeakerSummary from the segments.
func (t *FinalTranscript) ComputeSpeakerSummary() {
	summary := make(map[string]SpeakerStats)
	for _, s := range t.Segments {
		stats := summary[s.Speaker]
		stats.Segments++
		stats.SpeakingTime += s.End - s.Start
		stats.Characters += len(strings.TrimSpace(s.Text))
		summary[s.Speaker] = stats
	}
	t.Metadata.SpeakerSummary = summary
}

// WriteJSON serializes the transcript as a flat JSON document.
func (t *FinalTranscript) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// ParseJSON reads a transcript previously written by WriteJSON.
func ParseJSON(r io.Reader) (*FinalTranscript, error) {
	var t FinalTranscript
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	if t.Segments == nil {
		t.Segments = []SpeakerSegment{}
	}
	return &t, nil
}
