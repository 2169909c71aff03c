package transcribe

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

	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/pkg/envutil"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
)

const defaultTranscriptionModel = "gpt-4o-mini-transcribe"

// OpenAI posts audio chunks to /v1/audio/transcriptions.
type OpenAI struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewOpenAI(log *logger.Logger, cfg config.AIConfig) (*OpenAI, error) {
	apiKey := strings.TrimSpace(cfg.OpenAIAPIKey)
	if apiKey == "" {
		return nil, errors.New("openai transcription: missing OPENAI_API_KEY")
	}
	model := strings.TrimSpace(cfg.OpenAITranscriptionModel)
	if model == "" {
		model = defaultTranscriptionModel
	}
	return &OpenAI{
		log:        log.With("service", "OpenAITranscriber"),
		baseURL:    strings.TrimRight(envutil.String("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *OpenAI) Name() string { return "openai" }

func (c *OpenAI) Close() error { return nil }

func (c *OpenAI) Transcribe(ctx context.Context, audio []byte, mimeType string) (Result, error) {
	if len(audio) == 0 {
		return Result{Provider: c.Name()}, nil
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "chunk"+extForMime(mimeType))
	if err != nil {
		return Result{}, err
	}
	if _, err := part.Write(audio); err != nil {
		return Result{}, err
	}
	_ = writer.WriteField("model", c.model)
	if err := writer.Close(); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return Result{}, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("openai transcription http %d: %s", resp.StatusCode, string(raw))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, fmt.Errorf("decode transcription: %w", err)
	}
	return Result{Text: strings.TrimSpace(out.Text), Provider: c.Name()}, nil
}

func extForMime(mimeType string) string {
	m := strings.ToLower(mimeType)
	switch {
	case strings.Contains(m, "wav"):
		return ".wav"
	case strings.Contains(m, "mp3") || strings.Contains(m, "mpeg"):
		return ".mp3"
	case strings.Contains(m, "ogg") || strings.Contains(m, "opus"):
		return ".ogg"
	case strings.Contains(m, "flac"):
		return ".flac"
	default:
		return ".webm"
	}
}
