package transcript

import (
	"sort"
	"strings"
)

// Merger combines relabeled, rebased segments from all chunks into the
// final ordered transcript. The same-speaker/small-gap merge rule is also
// what collapses duplicate fragments produced by the deliberate tail
// overlap between neighboring chunks; no timestamp-range overlap detection
// happens anywhere.
type Merger struct {
	MaxGap float64 // seconds; consecutive same-speaker segments closer than this are joined
}

// NewMerger 创建分段合并器，maxGap 为同说话人相邻分段的最大可合并间隔（秒）
func NewMerger(maxGap float64) *Merger {
	return &Merger{MaxGap: maxGap}
}

// Rebase shifts every segment of a chunk onto the original audio timeline.
func Rebase(ct ChunkTranscription) []SpeakerSegment {
	out := make([]SpeakerSegment, 0, len(ct.Segments))
	for _, s := range ct.Segments {
		out = append(out, s.Rebased(ct.ChunkStart))
	}
	return out
}

// Merge sorts segments by start time and joins consecutive segments that
// share a speaker and sit within MaxGap of each other. Joining
// concatenates text with a single space and averages confidence. The
// operation is idempotent: merging already-merged output changes nothing.
func (m *Merger) Merge(segments []SpeakerSegment) []SpeakerSegment {
	if len(segments) == 0 {
		return []SpeakerSegment{}
	}

	sorted := make([]SpeakerSegment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	merged := []SpeakerSegment{sorted[0]}
	for _, seg := range sorted[1:] {
		last := &merged[len(merged)-1]
		if seg.Speaker == last.Speaker && seg.Start-last.End <= m.MaxGap {
			// a strictly overlapping fragment carrying the same text is
			// the tail-overlap of the previous chunk describing the same
			// moment; absorb it instead of repeating the text
			if seg.Start < last.End && strings.TrimSpace(seg.Text) == strings.TrimSpace(last.Text) {
				last.Confidence = (last.Confidence + seg.Confidence) / 2
				if seg.End > last.End {
					last.End = seg.End
				}
				continue
			}
			last.Text = joinText(last.Text, seg.Text)
			last.Confidence = (last.Confidence + seg.Confidence) / 2
			if seg.End > last.End {
				last.End = seg.End
			}
			continue
		}
		merged = append(merged, seg)
	}

	return merged
}

// DropEmpty filters segments whose text is empty after trimming. Callers
// that need speaker-presence accounting should skip this.
func DropEmpty(segments []SpeakerSegment) []SpeakerSegment {
	out := make([]SpeakerSegment, 0, len(segments))
	for _, s := range segments {
		if strings.TrimSpace(s.Text) != "" {
			out = append(out, s)
		}
	}
	return out
}

func joinText(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
