package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AudioChunksTotal 音频切片处理总数计数器
	// Labels: component (chunker/features/diarize/asr/tracker/merge/pipeline), status (success/error/degraded)
	AudioChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetscribe_audio_chunks_total",
			Help: "Total number of audio chunks processed by component",
		},
		[]string{"component", "status"},
	)

	// AudioErrorsTotal 音频处理错误总数计数器
	// Labels: component, error_code (ASR_UNAVAILABLE/ASR_TIMEOUT/DIARIZATION_UNAVAILABLE/...)
	AudioErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetscribe_audio_errors_total",
			Help: "Total number of audio processing errors by component and error code",
		},
		[]string{"component", "error_code"},
	)

	// ASRDegraded ASR 降级状态量规（0=正常，1=降级到 mock）
	ASRDegraded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "meetscribe_asr_degraded",
			Help: "ASR degradation status (0=primary, 1=fallback)",
		},
	)

	// SpeakersDetected 最近一次任务检测到的全局说话人数量
	SpeakersDetected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "meetscribe_speakers_detected",
			Help: "Number of distinct speakers detected in the most recent job",
		},
	)

	// AudioProcessingDuration 音频处理耗时直方图（秒）
	// Labels: component (chunker/features/diarize/asr/tracker/merge)
	AudioProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meetscribe_audio_processing_duration_seconds",
			Help:    "Audio processing duration in seconds by component",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"component"},
	)

	// OverlapResiduals 合并后仍跨说话人近重复的相邻段计数（诊断用）
	OverlapResiduals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meetscribe_overlap_residual_segments_total",
			Help: "Adjacent near-duplicate segments across different speakers surviving the merge",
		},
	)
)

// RecordChunkProcessed 记录音频切片处理完成
func RecordChunkProcessed(component string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	AudioChunksTotal.WithLabelValues(component, status).Inc()
}

// RecordError 记录音频处理错误
func RecordError(component, errorCode string) {
	AudioErrorsTotal.WithLabelValues(component, errorCode).Inc()
}

// SetASRDegraded 设置 ASR 降级状态
func SetASRDegraded(degraded bool) {
	if degraded {
		ASRDegraded.Set(1)
	} else {
		ASRDegraded.Set(0)
	}
}

// SetSpeakersDetected 记录检测到的说话人数量
func SetSpeakersDetected(n int) {
	SpeakersDetected.Set(float64(n))
}

// RecordDuration 记录音频处理耗时（秒）
func RecordDuration(component string, durationSeconds float64) {
	AudioProcessingDuration.WithLabelValues(component).Observe(durationSeconds)
}

// RecordOverlapResidual 记录一次合并后残留的近重复相邻段
func RecordOverlapResidual() {
	OverlapResiduals.Inc()
}
