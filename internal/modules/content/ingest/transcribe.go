package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/tracepaper/core/internal/config"
)

// transcribeAudio sends an audio stream to a whisper-style
// /v1/audio/transcriptions endpoint and returns the transcript.
func transcribeAudio(ctx context.Context, cfg config.TranscriptionConfig, audio io.Reader, filename string) (string, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	endpoint = strings.TrimSuffix(endpoint, "/v1")
	if endpoint == "" {
		endpoint = "https://api.openai.com"
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "whisper-1"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("model", model); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("transcription error: %s", strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Text  string `json:"text"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	if result.Error != nil && strings.TrimSpace(result.Error.Message) != "" {
		return "", fmt.Errorf("transcription error: %s", result.Error.Message)
	}
	if strings.TrimSpace(result.Text) == "" {
		return "", errors.New("empty transcription response")
	}
	return result.Text, nil
}
