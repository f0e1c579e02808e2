package jobs

import (
	"encoding/json"
	"log"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditLogger records job lifecycle events as JSON lines for later
// inspection, one event per line.
type AuditLogger struct {
	logger *log.Logger
}

// NewAuditLogger creates an audit logger writing to jobs.log inside
// baseDir, with automatic size- and age-based rotation.
func NewAuditLogger(baseDir string) *AuditLogger {
	writer := &lumberjack.Logger{
		Filename:   filepath.Join(baseDir, "jobs.log"),
		MaxSize:    100, // MB
		MaxBackups: 10,  // Keep 10 old files
		MaxAge:     30,  // Keep for 30 days
		Compress:   true,
	}

	return &AuditLogger{
		logger: log.New(writer, "", 0), // No prefix, no timestamp (we add our own)
	}
}

// LogEvent records one job lifecycle transition.
func (a *AuditLogger) LogEvent(job Job, event string) {
	record := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"event":     event,
		"job_id":    job.ID,
		"file_name": job.FileName,
		"state":     string(job.State),
	}

	if job.Error != "" {
		record["error_message"] = job.Error
	}
	if job.StartedAt != nil && job.FinishedAt != nil {
		record["duration_ms"] = job.FinishedAt.Sub(*job.StartedAt).Milliseconds()
	}

	data, _ := json.Marshal(record)
	a.logger.Println(string(data))
}
