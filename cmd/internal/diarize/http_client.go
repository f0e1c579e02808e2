package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/houzhh15/meetscribe/cmd/internal/audio"
)

// HTTPEngine implements Engine against a pyannote-style diarization HTTP
// service. Audio goes out as multipart WAV, turns come back as JSON.
type HTTPEngine struct {
	apiURL     string
	httpClient *http.Client
}

// NewHTTPEngine creates a client for the service at apiURL.
func NewHTTPEngine(apiURL string, timeout time.Duration) *HTTPEngine {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &HTTPEngine{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type diarizeResponse struct {
	Turns []Turn `json:"turns"`
}

// Diarize posts the span to POST {apiURL}/api/diarize and returns the
// reported turns sorted by start time.
func (e *HTTPEngine) Diarize(ctx context.Context, samples []float64, sampleRate int, constraints Constraints) ([]Turn, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio", "chunk.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio.EncodeWAV(samples, sampleRate)); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	if constraints.NumSpeakers > 0 {
		writer.WriteField("num_speakers", strconv.Itoa(constraints.NumSpeakers))
	}
	if constraints.MinSpeakers > 0 {
		writer.WriteField("min_speakers", strconv.Itoa(constraints.MinSpeakers))
	}
	if constraints.MaxSpeakers > 0 {
		writer.WriteField("max_speakers", strconv.Itoa(constraints.MaxSpeakers))
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/diarize", e.apiURL)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed diarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	turns := parsed.Turns
	sort.SliceStable(turns, func(i, j int) bool { return turns[i].Start < turns[j].Start })
	for i := range turns {
		if turns[i].Confidence == 0 {
			turns[i].Confidence = 1.0
		}
	}
	return turns, nil
}

// HealthCheck probes GET {apiURL}/health.
func (e *HTTPEngine) HealthCheck(ctx context.Context) (bool, error) {
	endpoint := fmt.Sprintf("%s/health", e.apiURL)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
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
func (e *HTTPEngine) Name() string {
	return "pyannote-http"
}
