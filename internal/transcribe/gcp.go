package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
)

// GCP transcribes chunks with Cloud Speech-to-Text. Chunks are short, so the
// synchronous Recognize call is enough; no long-running operations.
type GCP struct {
	log        *logger.Logger
	client     *speech.Client
	maxRetries int
}

func NewGCP(log *logger.Logger) (*GCP, error) {
	client, err := speech.NewClient(context.Background(), gcpClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &GCP{
		log:        log.With("service", "GCPTranscriber"),
		client:     client,
		maxRetries: 3,
	}, nil
}

func gcpClientOptions() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	var opts []option.ClientOption
	if creds == "" {
		return opts
	}
	if strings.HasPrefix(creds, "{") {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	} else {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	return opts
}

func (c *GCP) Name() string { return "gcp" }

func (c *GCP) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *GCP) Transcribe(ctx context.Context, audio []byte, mimeType string) (Result, error) {
	if len(audio) == 0 {
		return Result{Provider: c.Name()}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode:               "en-US",
			EnableAutomaticPunctuation: true,
			Encoding:                   inferEncoding(mimeType),
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}

	var resp *speechpb.RecognizeResponse
	var err error
	backoff := time.Second
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err = c.client.Recognize(ctx, req)
		if err == nil || !retryableGRPC(err) || attempt == c.maxRetries {
			break
		}
		c.log.Warn("speech recognize retrying", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if err != nil {
		return Result{}, fmt.Errorf("speech recognize: %w", err)
	}

	var full strings.Builder
	var confidence float64
	n := 0
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		alt := r.Alternatives[0]
		text := strings.TrimSpace(alt.Transcript)
		if text == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString(" ")
		}
		full.WriteString(text)
		confidence += float64(alt.Confidence)
		n++
	}
	if n > 0 {
		confidence /= float64(n)
	}
	return Result{
		Text:       full.String(),
		Confidence: confidence,
		Provider:   c.Name(),
	}, nil
}

func inferEncoding(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mp3") || strings.Contains(m, "mpeg"):
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "ogg") || strings.Contains(m, "opus") || strings.Contains(m, "webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

func retryableGRPC(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted, codes.Internal:
		return true
	default:
		return false
	}
}
