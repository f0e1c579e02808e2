package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "8000" {
		t.Errorf("Port = %q, want %q", cfg.Server.Port, "8000")
	}
	if cfg.Pipeline.ChunkDuration != 600 {
		t.Errorf("ChunkDuration = %g, want 600", cfg.Pipeline.ChunkDuration)
	}
	if cfg.Pipeline.OverlapDuration != 5 {
		t.Errorf("OverlapDuration = %g, want 5", cfg.Pipeline.OverlapDuration)
	}
	if cfg.Engines.SpanConcurrency != 4 {
		t.Errorf("SpanConcurrency = %d, want 4", cfg.Engines.SpanConcurrency)
	}
}

func TestLoadConfigPipelineFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	content := "chunk_duration: 300\noverlap_duration: 10\nsimilarity_threshold: 0.8\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write pipeline file: %v", err)
	}

	t.Setenv("PIPELINE_CONFIG_PATH", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Pipeline.ChunkDuration != 300 {
		t.Errorf("ChunkDuration = %g, want 300", cfg.Pipeline.ChunkDuration)
	}
	if cfg.Pipeline.OverlapDuration != 10 {
		t.Errorf("OverlapDuration = %g, want 10", cfg.Pipeline.OverlapDuration)
	}
	if cfg.Pipeline.SimilarityThreshold != 0.8 {
		t.Errorf("SimilarityThreshold = %g, want 0.8", cfg.Pipeline.SimilarityThreshold)
	}
	// fields absent from the file keep defaults
	if cfg.Pipeline.MergeMaxGap != 1.0 {
		t.Errorf("MergeMaxGap = %g, want 1.0", cfg.Pipeline.MergeMaxGap)
	}
}

func TestLoadConfigPipelineFileMissing(t *testing.T) {
	t.Setenv("PIPELINE_CONFIG_PATH", "/nonexistent/pipeline.yaml")

	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for missing pipeline file, got nil")
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Env: "dev", Port: "8000"},
			Log:      LogConfig{Level: "info", Format: "console"},
			Engines:  EnginesConfig{ASRBaseURL: "http://localhost:8082", SpanConcurrency: 4},
			Pipeline: DefaultPipelineConfig(),
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		if err := ValidateConfig(valid()); err != nil {
			t.Errorf("ValidateConfig() error = %v", err)
		}
	})

	t.Run("negative chunk duration rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Pipeline.ChunkDuration = -1
		err := ValidateConfig(cfg)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "chunk_duration") {
			t.Errorf("error should mention chunk_duration: %v", err)
		}
	})

	t.Run("overlap must be smaller than chunk", func(t *testing.T) {
		cfg := valid()
		cfg.Pipeline.ChunkDuration = 10
		cfg.Pipeline.OverlapDuration = 10
		if err := ValidateConfig(cfg); err == nil {
			t.Error("expected error for overlap >= chunk, got nil")
		}
	})

	t.Run("collects all errors", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = "notaport"
		cfg.Log.Level = "loud"
		cfg.Pipeline.SimilarityThreshold = 1.5
		err := ValidateConfig(cfg)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		for _, want := range []string{"PORT", "LOG_LEVEL", "similarity_threshold"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error should mention %s: %v", want, err)
			}
		}
	})

	t.Run("zero fallback span rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Pipeline.FallbackSpanSeconds = 0
		if err := ValidateConfig(cfg); err == nil {
			t.Error("expected error for zero fallback span, got nil")
		}
	})
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("MEETSCRIBE_TEST_INT", "12")
	if got := getEnvInt("MEETSCRIBE_TEST_INT", 4); got != 12 {
		t.Errorf("getEnvInt = %d, want 12", got)
	}
	if got := getEnvInt("MEETSCRIBE_TEST_INT_MISSING", 4); got != 4 {
		t.Errorf("getEnvInt default = %d, want 4", got)
	}

	t.Setenv("MEETSCRIBE_TEST_DUR", "bogus")
	if got := getEnvDuration("MEETSCRIBE_TEST_DUR", 0); got != 0 {
		t.Errorf("getEnvDuration with bad value = %v, want 0", got)
	}
}
