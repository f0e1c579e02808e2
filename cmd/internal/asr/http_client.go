package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/houzhh15/meetscribe/cmd/internal/audio"
)

// HTTPTranscriber implements Transcriber against a whisper-compatible HTTP
// service (e.g. the go-whisper container). Spans are encoded as 16-bit PCM
// WAV in memory and sent as multipart/form-data.
type HTTPTranscriber struct {
	apiURL     string
	httpClient *http.Client
}

// NewHTTPTranscriber creates a client for the service at apiURL. The
// default timeout accommodates spans up to several minutes long; per-call
// deadlines via Options.Timeout or the context override it.
func NewHTTPTranscriber(apiURL string, timeout time.Duration) *HTTPTranscriber {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &HTTPTranscriber{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Transcribe sends the span to POST {apiURL}/api/whisper/transcribe and
// parses the JSON response.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, samples []float64, sampleRate int, options *Options) (*Result, error) {
	if options != nil && options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio", "span.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio.EncodeWAV(samples, sampleRate)); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	model := "ggml-base"
	if options != nil && options.Model != "" {
		model = options.Model
	}
	if err := writer.WriteField("model", model); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return nil, fmt.Errorf("failed to write response_format field: %w", err)
	}
	if options != nil && options.Language != "" {
		if err := writer.WriteField("language", options.Language); err != nil {
			return nil, fmt.Errorf("failed to write language field: %w", err)
		}
	}
	if options != nil && options.Prompt != "" {
		if err := writer.WriteField("prompt", options.Prompt); err != nil {
			return nil, fmt.Errorf("failed to write prompt field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/whisper/transcribe", t.apiURL)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return &result, nil
}

// HealthCheck probes GET {apiURL}/api/whisper/model.
func (t *HTTPTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	endpoint := fmt.Sprintf("%s/api/whisper/model", t.apiURL)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return true, nil
	}
	return false, fmt.Errorf("health check failed: status %d", resp.StatusCode)
}

// Name returns the implementation identifier.
func (t *HTTPTranscriber) Name() string {
	return "go-whisper"
}
