package transcript

import (
	"log/slog"
	"strings"

	"github.com/go-dedup/simhash"
)

// residualThreshold 定义相似度阈值：汉明距离<=10视为近重复
const residualThreshold = 10

// minResidualChars 过短的文本指纹噪声太大，不参与诊断
const minResidualChars = 12

// segmentFeatureSet 实现 simhash.FeatureSet 接口，用于转写文本的特征提取
// 使用字符级bigram特征，对中英文混合的会议文本都适用
type segmentFeatureSet struct {
	text string
}

func (s segmentFeatureSet) GetFeatures() []simhash.Feature {
	text := strings.TrimSpace(s.text)
	if text == "" {
		return []simhash.Feature{}
	}

	features := make([]simhash.Feature, 0)
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		bigram := string(runes[i : i+2])
		features = append(features, simhash.NewFeature([]byte(bigram)))
	}
	if len(runes) < 4 {
		for _, r := range runes {
			features = append(features, simhash.NewFeature([]byte(string(r))))
		}
	}
	return features
}

func fingerprint(text string) uint64 {
	sh := simhash.NewSimhash()
	return sh.GetSimhash(segmentFeatureSet{text: text})
}

func hammingDistance(a, b uint64) int {
	x := a ^ b
	count := 0
	for x != 0 {
		count++
		x &= x - 1
	}
	return count
}

// OverlapResidual is an adjacent pair of near-duplicate segments that
// survived the merge under different speakers, usually because the tracker
// assigned the chunk overlap region to two different global IDs.
type OverlapResidual struct {
	Index    int // position of the first segment of the pair
	Distance int
}

// FindOverlapResiduals scans merged output for adjacent near-duplicate
// text under different speakers. Diagnostic only: the transcript is never
// modified, callers just log and count the findings.
func FindOverlapResiduals(segments []SpeakerSegment) []OverlapResidual {
	var residuals []OverlapResidual
	for i := 0; i+1 < len(segments); i++ {
		a, b := segments[i], segments[i+1]
		if a.Speaker == b.Speaker {
			continue
		}
		ta, tb := strings.TrimSpace(a.Text), strings.TrimSpace(b.Text)
		if len(ta) < minResidualChars || len(tb) < minResidualChars {
			continue
		}
		d := hammingDistance(fingerprint(ta), fingerprint(tb))
		if d <= residualThreshold {
			residuals = append(residuals, OverlapResidual{Index: i, Distance: d})
		}
	}
	return residuals
}

// LogOverlapResiduals reports residuals found in a merged transcript.
func LogOverlapResiduals(logger *slog.Logger, segments []SpeakerSegment, residuals []OverlapResidual) {
	for _, r := range residuals {
		logger.Warn("near-duplicate segments across speakers after merge",
			slog.Int("index", r.Index),
			slog.Int("hamming_distance", r.Distance),
			slog.String("speaker_a", segments[r.Index].Speaker),
			slog.String("speaker_b", segments[r.Index+1].Speaker),
		)
	}
}
