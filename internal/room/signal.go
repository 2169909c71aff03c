package room

import "strings"

// minTranscriptChars is the informational threshold below which a transcript
// chunk is dropped outright.
const minTranscriptChars = 12

// transcriptKeywords is the allow-list a chunk must hit to count as signal.
// Correction cues and traversal directives are deliberately included so
// follow-up utterances like "actually make C a child of B" survive the
// filter.
var transcriptKeywords = []string{
	"tree", "root", "child", "children", "node", "edge", "branch", "leaf",
	"flow", "step", "stage", "arrow", "connect", "link", "->",
	"architecture", "service", "cache", "queue", "database", "api", "server",
	"client", "gateway", "storage", "pipeline", "diagram", "draw", "box",
	"block", "label", "group", "topic",
	"actually", "instead", "correction", "remove", "delete", "rename",
	"pre-order", "post-order", "in-order", "preorder", "postorder", "inorder",
	"traversal", "order",
}

// MeaningfulTranscript reports whether a chunk clears the minimum
// informational threshold used both at intake and when assembling AI input.
func MeaningfulTranscript(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minTranscriptChars {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, kw := range transcriptKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// CorrectionCue reports whether the chunk contains a correction directive
// that should outrank plain transcript content when prompting.
func CorrectionCue(text string) bool {
	lower := strings.ToLower(text)
	for _, cue := range []string{"actually", "instead", "correction", "scratch that", "no wait"} {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}
