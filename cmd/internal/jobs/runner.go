package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/houzhh15/meetscribe/cmd/internal/audio"
	"github.com/houzhh15/meetscribe/cmd/internal/orchestrator"
	"github.com/houzhh15/meetscribe/cmd/internal/transcript"
)

// PipelineFactory builds a pipeline honoring the job's engine option
// overrides, with a per-job progress callback. Each job gets its own
// pipeline so speaker state never crosses jobs.
type PipelineFactory func(opts Options, progress orchestrator.ProgressFunc) *orchestrator.Pipeline

// Runner executes transcription jobs asynchronously and drives their
// state transitions in the store.
type Runner struct {
	store          *Store
	audit          *AuditLogger
	newPipeline    PipelineFactory
	transcriptsDir string
	log            *slog.Logger
}

// NewRunner 创建任务执行器
func NewRunner(store *Store, audit *AuditLogger, factory PipelineFactory, transcriptsDir string, log *slog.Logger) *Runner {
	return &Runner{
		store:          store,
		audit:          audit,
		newPipeline:    factory,
		transcriptsDir: transcriptsDir,
		log:            log,
	}
}

// Start launches the job in its own goroutine. The returned error only
// covers the synchronous transition to running; processing failures land
// in the job state.
func (r *Runner) Start(jobID string) error {
	ctx, cancel := context.WithCancel(context.Background())
	if err := r.store.SetRunning(jobID, cancel); err != nil {
		cancel()
		return err
	}

	job, err := r.store.Get(jobID)
	if err != nil {
		cancel()
		return err
	}
	r.audit.LogEvent(job, "job_started")

	go r.run(ctx, job)
	return nil
}

// run executes the pipeline and records the terminal state.
func (r *Runner) run(ctx context.Context, job Job) {
	final, err := r.process(ctx, job)
	if err != nil {
		r.store.SetFailed(job.ID, err)
		r.finishAudit(job.ID, "job_failed")
		r.log.Error("job failed", "job_id", job.ID, "error", err.Error())
		return
	}

	path := filepath.Join(r.transcriptsDir, job.ID+".json")
	if err := r.writeTranscript(path, final); err != nil {
		r.store.SetFailed(job.ID, err)
		r.finishAudit(job.ID, "job_failed")
		r.log.Error("transcript write failed", "job_id", job.ID, "error", err.Error())
		return
	}

	r.store.SetCompleted(job.ID, path)
	r.finishAudit(job.ID, "job_completed")
	r.log.Info("job completed", "job_id", job.ID, "transcript", path)
}

func (r *Runner) process(ctx context.Context, job Job) (*transcript.FinalTranscript, error) {
	data, err := os.ReadFile(job.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}
	buf, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, orchestrator.NewDecodeError(err)
	}

	pipeline := r.newPipeline(job.Options, func(p orchestrator.Progress) {
		r.store.SetProgress(job.ID, p)
	})
	return pipeline.Run(ctx, buf)
}

func (r *Runner) writeTranscript(path string, final *transcript.FinalTranscript) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create transcripts directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create transcript file: %w", err)
	}
	defer f.Close()
	return final.WriteJSON(f)
}

// finishAudit re-reads the job so the audit record carries the terminal
// state; cancellation may have superseded our transition.
func (r *Runner) finishAudit(jobID, event string) {
	job, err := r.store.Get(jobID)
	if err != nil {
		return
	}
	if job.State == StateCancelled {
		event = "job_cancelled"
	}
	r.audit.LogEvent(job, event)
}
