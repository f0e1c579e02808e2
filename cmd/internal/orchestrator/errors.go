package orchestrator

import (
	"fmt"
	"time"
)

// ErrorCode 表示音频处理错误类型代码
type ErrorCode string

const (
	// AUDIO_DECODE_FAILED 音频文件解码失败（格式不支持、文件损坏）
	AUDIO_DECODE_FAILED ErrorCode = "AUDIO_DECODE_FAILED"

	// INVALID_CHUNKING 切片参数非法（重叠大于等于切片时长等）
	INVALID_CHUNKING ErrorCode = "INVALID_CHUNKING"

	// ASR_SPAN_FAILED 单个语音区间转写失败（降级为空文本，不中断任务）
	ASR_SPAN_FAILED ErrorCode = "ASR_SPAN_FAILED"

	// DIARIZATION_UNAVAILABLE 说话人分离服务不可用（降级为固定区间）
	DIARIZATION_UNAVAILABLE ErrorCode = "DIARIZATION_UNAVAILABLE"

	// TRACKING_FAILED 跨切片说话人匹配失败（嵌入维度不一致）
	TRACKING_FAILED ErrorCode = "TRACKING_FAILED"

	// JOB_CANCELLED 任务被取消
	JOB_CANCELLED ErrorCode = "JOB_CANCELLED"
)

// PipelineError 表示流水线处理错误
type PipelineError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Error 实现 error 接口
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 实现错误链支持
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewPipelineError 创建新的流水线错误
func NewPipelineError(code ErrorCode, message string, cause error) *PipelineError {
	return &PipelineError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// NewDecodeError 创建音频解码失败错误
func NewDecodeError(cause error) *PipelineError {
	return NewPipelineError(AUDIO_DECODE_FAILED, "音频文件解码失败", cause)
}

// NewChunkingError 创建切片参数非法错误
func NewChunkingError(cause error) *PipelineError {
	return NewPipelineError(INVALID_CHUNKING, "切片参数非法", cause)
}

// NewTrackingError 创建说话人匹配失败错误
func NewTrackingError(cause error) *PipelineError {
	return NewPipelineError(TRACKING_FAILED, "说话人匹配失败", cause)
}

// NewCancelledError 创建任务取消错误
func NewCancelledError(cause error) *PipelineError {
	return NewPipelineError(JOB_CANCELLED, "任务被取消", cause)
}
