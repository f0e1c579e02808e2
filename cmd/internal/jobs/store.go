// Package jobs tracks transcription jobs: lifecycle state, progress
// snapshots and cancellation, plus an audit trail of job events.
package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/houzhh15/meetscribe/cmd/internal/orchestrator"
)

// State 任务状态机：created → running → completed | failed | cancelled
type State string

const (
	StateCreated   State = "created"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

var (
	// ErrJobNotFound 任务不存在
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotCancellable 任务已结束，无法取消
	ErrJobNotCancellable = errors.New("job is not in a cancellable state")
)

// Options 单个任务对引擎参数的覆盖，随上传请求提交
type Options struct {
	// Language ASR 语言提示，空值沿用服务级配置
	Language string `json:"language,omitempty"`

	// MinSpeakers / MaxSpeakers 说话人数量约束，0 表示不限制
	MinSpeakers int `json:"min_speakers,omitempty"`
	MaxSpeakers int `json:"max_speakers,omitempty"`
}

// Job 一次转写任务的完整状态
type Job struct {
	ID         string                `json:"id"`
	FileName   string                `json:"file_name"`
	AudioPath  string                `json:"-"`
	Options    Options               `json:"options"`
	State      State                 `json:"state"`
	Progress   orchestrator.Progress `json:"progress"`
	Error      string                `json:"error,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	StartedAt  *time.Time            `json:"started_at,omitempty"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`

	// TranscriptPath 最终转写结果 JSON 文件路径，完成后可用
	TranscriptPath string `json:"-"`
}

// Store is an in-memory job registry. All methods return copies; callers
// never observe a job mid-update.
//
// Thread-safety: all public methods are safe via sync.RWMutex.
type Store struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	cancels map[string]context.CancelFunc
}

// NewStore 创建任务注册表
func NewStore() *Store {
	return &Store{
		jobs:    make(map[string]*Job),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Create registers a new job in the created state and returns its
// snapshot. IDs are random UUIDs.
func (s *Store) Create(fileName, audioPath string, opts Options) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &Job{
		ID:        uuid.NewString(),
		FileName:  fileName,
		AudioPath: audioPath,
		Options:   opts,
		State:     StateCreated,
		CreatedAt: time.Now(),
	}
	s.jobs[job.ID] = job
	return *job
}

// Get returns a snapshot of the job.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return *job, nil
}

// List returns snapshots of all jobs, newest first.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// SetRunning transitions the job to running and registers the cancel
// function that aborts its pipeline context.
func (s *Store) SetRunning(id string, cancel context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	now := time.Now()
	job.State = StateRunning
	job.StartedAt = &now
	s.cancels[id] = cancel
	return nil
}

// SetProgress stores the latest progress snapshot.
func (s *Store) SetProgress(id string, p orchestrator.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[id]; ok {
		job.Progress = p
	}
}

// SetCompleted marks the job completed and records where the transcript
// was written.
func (s *Store) SetCompleted(id, transcriptPath string) error {
	return s.finish(id, StateCompleted, "", transcriptPath)
}

// SetFailed marks the job failed with the terminal error.
func (s *Store) SetFailed(id string, jobErr error) error {
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}
	return s.finish(id, StateFailed, msg, "")
}

// Cancel aborts a created or running job. The registered cancel function
// is invoked outside the terminal transition so the pipeline observes
// the cancelled context.
func (s *Store) Cancel(id string) error {
	s.mu.Lock()

	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return ErrJobNotFound
	}
	if job.State != StateCreated && job.State != StateRunning {
		s.mu.Unlock()
		return ErrJobNotCancellable
	}

	now := time.Now()
	job.State = StateCancelled
	job.FinishedAt = &now
	cancel := s.cancels[id]
	delete(s.cancels, id)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// finish applies a terminal transition unless the job was already
// cancelled; cancellation wins races with pipeline completion.
func (s *Store) finish(id string, state State, errMsg, transcriptPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.State == StateCancelled {
		return nil
	}

	now := time.Now()
	job.State = state
	job.Error = errMsg
	job.FinishedAt = &now
	if transcriptPath != "" {
		job.TranscriptPath = transcriptPath
	}
	delete(s.cancels, id)
	return nil
}
