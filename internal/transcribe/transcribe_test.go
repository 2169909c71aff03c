package transcribe

import (
	"context"
	"os"
	"strings"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development", "debug")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func TestStubDeterministic(t *testing.T) {
	s := NewStub()
	chunk := []byte("same audio bytes")

	a, err := s.Transcribe(context.Background(), chunk, "audio/webm")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	b, _ := s.Transcribe(context.Background(), chunk, "audio/webm")
	if a.Text != b.Text {
		t.Fatalf("stub must be deterministic: %q vs %q", a.Text, b.Text)
	}
	if strings.TrimSpace(a.Text) == "" {
		t.Fatalf("stub produced empty text")
	}
}

func TestResolveProviders(t *testing.T) {
	log := mustTestLogger(t)

	p, err := Resolve(log, config.Config{Transcription: config.TranscriptionConfig{Provider: "stub"}})
	if err != nil || p.Name() != "stub" {
		t.Fatalf("stub resolve: p=%v err=%v", p, err)
	}

	if _, err := Resolve(log, config.Config{Transcription: config.TranscriptionConfig{Provider: "openai"}}); err == nil {
		t.Fatalf("openai without key must error")
	}

	if _, err := Resolve(log, config.Config{Transcription: config.TranscriptionConfig{Provider: "bogus"}}); err == nil {
		t.Fatalf("unknown provider must error")
	}
}

func TestInferEncoding(t *testing.T) {
	cases := map[string]speechpb.RecognitionConfig_AudioEncoding{
		"audio/wav":             speechpb.RecognitionConfig_LINEAR16,
		"audio/flac":            speechpb.RecognitionConfig_FLAC,
		"audio/mpeg":            speechpb.RecognitionConfig_MP3,
		"audio/webm":            speechpb.RecognitionConfig_WEBM_OPUS,
		"audio/ogg;codecs=opus": speechpb.RecognitionConfig_WEBM_OPUS,
		"application/x":         speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
	}
	for mime, want := range cases {
		if got := inferEncoding(mime); got != want {
			t.Fatalf("inferEncoding(%q): want=%v got=%v", mime, want, got)
		}
	}
}

func TestCaptureDisabledIsNoop(t *testing.T) {
	c := NewCapture(mustTestLogger(t), config.CaptureChunksConfig{Enabled: false, Directory: t.TempDir()})
	if path := c.Save("R1", []byte("audio"), "audio/webm"); path != "" {
		t.Fatalf("disabled capture wrote %s", path)
	}
}

func TestCaptureWritesChunk(t *testing.T) {
	dir := t.TempDir()
	c := NewCapture(mustTestLogger(t), config.CaptureChunksConfig{Enabled: true, Directory: dir})

	path := c.Save("R1", []byte("audio-bytes"), "audio/wav")
	if path == "" {
		t.Fatalf("capture returned empty path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read capture: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Fatalf("capture content: %q", data)
	}
	if !strings.HasSuffix(path, ".wav") {
		t.Fatalf("capture extension: %s", path)
	}
}
