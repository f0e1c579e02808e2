package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 统一配置结构
type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Log      LogConfig
	Engines  EnginesConfig
	Pipeline PipelineConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Env  string // dev, staging, production
	Port string
}

// DataConfig 数据目录配置
type DataConfig struct {
	UploadsDir     string
	TranscriptsDir string
	AuditLogsDir   string
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // console, json
}

// EnginesConfig 外部引擎配置（ASR / 说话人分离服务）
type EnginesConfig struct {
	ASRBaseURL      string
	ASRTimeout      time.Duration
	ASRLanguage     string // 语言提示，空值表示自动检测
	DiarizeBaseURL  string
	DiarizeTimeout  time.Duration
	SpanConcurrency int // 单个切片内并发 ASR 请求上限
}

// PipelineConfig 音频流水线调优参数，可由 YAML 文件覆盖
type PipelineConfig struct {
	ChunkDuration       float64 `yaml:"chunk_duration"`        // 秒
	OverlapDuration     float64 `yaml:"overlap_duration"`      // 秒
	SimilarityThreshold float64 `yaml:"similarity_threshold"`  // [0,1]
	MaxSpeakerProfiles  int     `yaml:"max_speaker_profiles"`  // 滚动窗口 K
	MergeMaxGap         float64 `yaml:"merge_max_gap"`         // 秒
	FallbackSpanSeconds float64 `yaml:"fallback_span_seconds"` // 分离降级时的固定分段长度
}

// LoadConfig 从环境变量加载配置，并按需叠加 PIPELINE_CONFIG_PATH 指向的 YAML 文件
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Env:  getEnv("ENV", "dev"),
			Port: getEnv("PORT", "8000"),
		},
		Data: DataConfig{
			UploadsDir:     getEnv("UPLOADS_DIR", "./uploads"),
			TranscriptsDir: getEnv("TRANSCRIPTS_DIR", "./transcripts"),
			AuditLogsDir:   getEnv("AUDIT_LOGS_DIR", "./audit_logs"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Engines: EnginesConfig{
			ASRBaseURL:      getEnv("ASR_BASE_URL", "http://localhost:8082"),
			ASRTimeout:      getEnvDuration("ASR_TIMEOUT", 120*time.Second),
			ASRLanguage:     getEnv("ASR_LANGUAGE", ""),
			DiarizeBaseURL:  getEnv("DIARIZE_BASE_URL", ""),
			DiarizeTimeout:  getEnvDuration("DIARIZE_TIMEOUT", 300*time.Second),
			SpanConcurrency: getEnvInt("SPAN_CONCURRENCY", 4),
		},
		Pipeline: DefaultPipelineConfig(),
	}

	if path := os.Getenv("PIPELINE_CONFIG_PATH"); path != "" {
		if err := loadPipelineFile(path, &cfg.Pipeline); err != nil {
			return nil, fmt.Errorf("load pipeline config %s: %w", path, err)
		}
	}

	return cfg, nil
}

// DefaultPipelineConfig 返回流水线默认调优参数
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ChunkDuration:       600,
		OverlapDuration:     5,
		SimilarityThreshold: 0.75,
		MaxSpeakerProfiles:  8,
		MergeMaxGap:         1.0,
		FallbackSpanSeconds: 30,
	}
}

// loadPipelineFile 读取 YAML 调优文件，未出现的字段保留默认值
func loadPipelineFile(path string, p *PipelineConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, p)
}

// ValidateConfig 验证配置的有效性，收集全部错误后一次返回
func ValidateConfig(cfg *Config) error {
	var errors []string

	// 1. 端口验证
	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid PORT value: %s (must be 1-65535)", cfg.Server.Port))
	}

	// 2. 环境验证
	validEnvs := map[string]bool{"dev": true, "development": true, "staging": true, "production": true}
	if !validEnvs[cfg.Server.Env] {
		errors = append(errors, fmt.Sprintf("invalid ENV: %s (must be: dev, development, staging, production)", cfg.Server.Env))
	}

	// 3. 日志级别验证
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Log.Level] {
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL: %s (must be: debug, info, warn, error)", cfg.Log.Level))
	}

	// 4. 日志格式验证
	validLogFormats := map[string]bool{"console": true, "json": true}
	if !validLogFormats[cfg.Log.Format] {
		errors = append(errors, fmt.Sprintf("invalid LOG_FORMAT: %s (must be: console, json)", cfg.Log.Format))
	}

	// 5. 引擎配置验证
	if cfg.Engines.ASRBaseURL == "" {
		errors = append(errors, "ASR_BASE_URL is required")
	}
	if cfg.Engines.SpanConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("SPAN_CONCURRENCY must be >= 1, got %d", cfg.Engines.SpanConcurrency))
	}

	// 6. 流水线参数验证：切片参数错误必须在处理任何音频前失败
	errors = append(errors, validatePipeline(cfg.Pipeline)...)

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func validatePipeline(p PipelineConfig) []string {
	var errors []string

	if p.ChunkDuration <= 0 {
		errors = append(errors, fmt.Sprintf("chunk_duration must be positive, got %g", p.ChunkDuration))
	}
	if p.OverlapDuration < 0 {
		errors = append(errors, fmt.Sprintf("overlap_duration must be non-negative, got %g", p.OverlapDuration))
	}
	if p.ChunkDuration > 0 && p.OverlapDuration >= p.ChunkDuration {
		errors = append(errors, fmt.Sprintf("overlap_duration (%g) must be smaller than chunk_duration (%g)", p.OverlapDuration, p.ChunkDuration))
	}
	if p.SimilarityThreshold < 0 || p.SimilarityThreshold > 1 {
		errors = append(errors, fmt.Sprintf("similarity_threshold must be in [0,1], got %g", p.SimilarityThreshold))
	}
	if p.MaxSpeakerProfiles < 1 {
		errors = append(errors, fmt.Sprintf("max_speaker_profiles must be >= 1, got %d", p.MaxSpeakerProfiles))
	}
	if p.MergeMaxGap < 0 {
		errors = append(errors, fmt.Sprintf("merge_max_gap must be non-negative, got %g", p.MergeMaxGap))
	}
	if p.FallbackSpanSeconds <= 0 {
		errors = append(errors, fmt.Sprintf("fallback_span_seconds must be positive, got %g", p.FallbackSpanSeconds))
	}

	return errors
}

// IsProduction 判断是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// IsDevelopment 判断是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "dev" || c.Server.Env == "development"
}

// GetServerAddr 获取服务器监听地址
func (c *Config) GetServerAddr() string {
	return ":" + c.Server.Port
}

// PrintConfig 打印配置
func (c *Config) PrintConfig() string {
	return fmt.Sprintf(`Configuration Loaded:
  Environment: %s
  Server Port: %s
  Data Directories:
    - Uploads: %s
    - Transcripts: %s
    - Audit Logs: %s
  Logging:
    - Level: %s
    - Format: %s
  Engines:
    - ASR: %s (timeout %s)
    - Diarize: %s (timeout %s)
    - Span Concurrency: %d
  Pipeline:
    - Chunk: %gs, Overlap: %gs
    - Similarity Threshold: %g, Max Profiles: %d
    - Merge Max Gap: %gs, Fallback Span: %gs`,
		c.Server.Env,
		c.Server.Port,
		c.Data.UploadsDir,
		c.Data.TranscriptsDir,
		c.Data.AuditLogsDir,
		c.Log.Level,
		c.Log.Format,
		c.Engines.ASRBaseURL,
		c.Engines.ASRTimeout,
		diarizeURLOrFallback(c.Engines.DiarizeBaseURL),
		c.Engines.DiarizeTimeout,
		c.Engines.SpanConcurrency,
		c.Pipeline.ChunkDuration,
		c.Pipeline.OverlapDuration,
		c.Pipeline.SimilarityThreshold,
		c.Pipeline.MaxSpeakerProfiles,
		c.Pipeline.MergeMaxGap,
		c.Pipeline.FallbackSpanSeconds,
	)
}

func diarizeURLOrFallback(url string) string {
	if url == "" {
		return "<not set, fallback segmentation>"
	}
	return url
}

// 辅助函数

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 获取整型环境变量，解析失败时返回默认值
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDuration 获取时长环境变量（如 "30s"、"2m"），解析失败时返回默认值
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
