// Package speech turns voice recordings into text through a remote
// Whisper-compatible transcription endpoint.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/quantumlife/lifeos/internal/core"
)

// Transcriber converts audio to text.
// Implementations return core.ErrNoSpeech when nothing was recognized and
// core.ErrUpstreamFailure when the backend is unavailable.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Config for the HTTP transcriber
type Config struct {
	URL      string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

// Client posts audio as multipart/form-data and reads {"text": "..."}
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a transcription client
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.Language == "" {
		cfg.Language = "ru"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	httpClient := &http.Client{}
	if cfg.APIKey != "" {
		httpClient = oauth2.NewClient(context.Background(),
			oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"}))
	}
	httpClient.Timeout = cfg.Timeout

	return &Client{cfg: cfg, httpClient: httpClient}
}

type transcriptionResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Transcribe implements Transcriber
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", core.ErrNoSpeech
	}
	if filename == "" {
		filename = "voice.ogg"
	}

	body, contentType, err := c.encode(audio, filename)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: transcription request: %w", core.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", core.ErrUpstreamFailure, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: transcription status %d: %s",
			core.ErrUpstreamFailure, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out transcriptionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", core.ErrUpstreamFailure, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%w: %s", core.ErrUpstreamFailure, out.Error.Message)
	}

	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", core.ErrNoSpeech
	}
	return text, nil
}

func (c *Client) encode(audio []byte, filename string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("write audio: %w", err)
	}

	fields := map[string]string{
		"model":           c.cfg.Model,
		"language":        c.cfg.Language,
		"response_format": "json",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
