package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/houzhh15/meetscribe/cmd/internal/jobs"
	"github.com/houzhh15/meetscribe/cmd/internal/transcript"
)

const (
	// MaxUploadSize 上传音频文件大小上限
	MaxUploadSize = 500 * 1024 * 1024 // 500MB
)

// HandleCreateJob 处理音频上传并创建转写任务，可选表单字段
// language / min_speakers / max_speakers 覆盖该任务的引擎参数
// POST /api/v1/jobs
func HandleCreateJob(store *jobs.Store, audit *jobs.AuditLogger, runner *jobs.Runner, uploadsDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("audio")
		if err != nil {
			badRequestResponse(c, fmt.Sprintf("missing audio file: %v", err))
			return
		}
		if file.Size > MaxUploadSize {
			errorResponse(c, http.StatusRequestEntityTooLarge, "audio file exceeds 500MB limit")
			return
		}
		if !strings.HasSuffix(strings.ToLower(file.Filename), ".wav") {
			badRequestResponse(c, "only WAV uploads are supported")
			return
		}

		opts, err := parseJobOptions(c)
		if err != nil {
			badRequestResponse(c, err.Error())
			return
		}

		if err := os.MkdirAll(uploadsDir, 0755); err != nil {
			internalErrorResponse(c, fmt.Errorf("create uploads directory: %w", err))
			return
		}

		// 以随机前缀保存，避免文件名冲突
		savePath := filepath.Join(uploadsDir, uuid.NewString()+"_"+filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, savePath); err != nil {
			internalErrorResponse(c, fmt.Errorf("save uploaded file: %w", err))
			return
		}

		job := store.Create(file.Filename, savePath, opts)
		audit.LogEvent(job, "job_created")

		if err := runner.Start(job.ID); err != nil {
			internalErrorResponse(c, fmt.Errorf("start job: %w", err))
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"job_id": job.ID,
		})
	}
}

// parseJobOptions 解析任务级引擎参数覆盖
func parseJobOptions(c *gin.Context) (jobs.Options, error) {
	opts := jobs.Options{
		Language: strings.TrimSpace(c.PostForm("language")),
	}

	var err error
	if opts.MinSpeakers, err = formPositiveInt(c, "min_speakers"); err != nil {
		return jobs.Options{}, err
	}
	if opts.MaxSpeakers, err = formPositiveInt(c, "max_speakers"); err != nil {
		return jobs.Options{}, err
	}
	if opts.MinSpeakers > 0 && opts.MaxSpeakers > 0 && opts.MinSpeakers > opts.MaxSpeakers {
		return jobs.Options{}, fmt.Errorf("min_speakers (%d) must not exceed max_speakers (%d)", opts.MinSpeakers, opts.MaxSpeakers)
	}
	return opts, nil
}

func formPositiveInt(c *gin.Context, field string) (int, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", field, raw)
	}
	return n, nil
}

// HandleListJobs 列出全部任务
// GET /api/v1/jobs
func HandleListJobs(store *jobs.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		successResponse(c, gin.H{
			"jobs": store.List(),
		})
	}
}

// HandleGetJob 查询单个任务
// GET /api/v1/jobs/:id
func HandleGetJob(store *jobs.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := store.Get(c.Param("id"))
		if err != nil {
			notFoundResponse(c, "job")
			return
		}
		successResponse(c, job)
	}
}

// HandleGetJobProgress 查询任务进度
// GET /api/v1/jobs/:id/progress
func HandleGetJobProgress(store *jobs.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := store.Get(c.Param("id"))
		if err != nil {
			notFoundResponse(c, "job")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"job_id":   job.ID,
			"state":    job.State,
			"progress": job.Progress,
		})
	}
}

// HandleGetTranscript 下载转写结果，支持 json/text/srt/vtt 四种格式
// GET /api/v1/jobs/:id/transcript?format=json
func HandleGetTranscript(store *jobs.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := store.Get(c.Param("id"))
		if err != nil {
			notFoundResponse(c, "job")
			return
		}
		if job.State != jobs.StateCompleted {
			errorResponse(c, http.StatusConflict, fmt.Sprintf("job is %s, transcript not available", job.State))
			return
		}

		format := c.DefaultQuery("format", transcript.FormatJSON)
		if !transcript.ValidFormat(format) {
			badRequestResponse(c, fmt.Sprintf("unknown format %q", format))
			return
		}

		f, err := os.Open(job.TranscriptPath)
		if err != nil {
			internalErrorResponse(c, fmt.Errorf("open transcript: %w", err))
			return
		}
		defer f.Close()

		final, err := transcript.ParseJSON(f)
		if err != nil {
			internalErrorResponse(c, fmt.Errorf("parse transcript: %w", err))
			return
		}

		c.Header("Content-Type", contentTypeFor(format))
		c.Status(http.StatusOK)
		if err := final.Write(c.Writer, format); err != nil {
			internalErrorResponse(c, fmt.Errorf("write transcript: %w", err))
		}
	}
}

// HandleCancelJob 取消任务
// POST /api/v1/jobs/:id/cancel
func HandleCancelJob(store *jobs.Store, audit *jobs.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		err := store.Cancel(id)
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			notFoundResponse(c, "job")
			return
		case errors.Is(err, jobs.ErrJobNotCancellable):
			errorResponse(c, http.StatusConflict, "job already finished")
			return
		case err != nil:
			internalErrorResponse(c, err)
			return
		}

		job, _ := store.Get(id)
		audit.LogEvent(job, "job_cancelled")
		successResponse(c, gin.H{
			"job_id": id,
			"state":  job.State,
		})
	}
}

func contentTypeFor(format string) string {
	switch format {
	case transcript.FormatJSON:
		return "application/json; charset=utf-8"
	case transcript.FormatSRT:
		return "application/x-subrip; charset=utf-8"
	case transcript.FormatVTT:
		return "text/vtt; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}
