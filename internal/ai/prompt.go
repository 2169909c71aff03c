package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// systemPrompt tells the provider what shape of answer is acceptable and how
// to weigh the conversation inputs. The reply must be a single JSON object,
// either a board op list with a confidence score or a diagram patch.
const systemPrompt = `You are the diagramming engine behind a collaborative whiteboard.
From a meeting transcript window, chat messages, and context notes you produce
either a list of board operations or a structured diagram patch. Reply with a
single JSON object and nothing else.

Preferred reply shape:
{"ops":[...],"confidence":0.0-1.0}

Each op has a "type" field, one of: upsertElement, deleteElement,
appendStrokePoints, offsetElement, setElementGeometry, setElementStyle,
setElementText, duplicateElement, setElementZIndex, alignElements,
distributeElements, clearBoard, setViewport, batch.

Alternate reply shape, a diagram patch:
{"topic":"...","diagramType":"flowchart|system_blocks|tree","confidence":0.0-1.0,
 "actions":[{"type":"upsertNode|upsertEdge|deleteShape|setTitle|setNotes|highlightOrder|layoutHint",...}]}

Rules:
- Reuse the element ids listed in activeBoard when updating existing shapes so
  identities stay stable across revisions.
- Remove shapes that the conversation has abandoned.
- Correction directives outrank context notes, which outrank raw transcript.
- Only describe what was actually said. Do not invent structure.
- Set confidence honestly; low confidence triggers a revision pass.`

// BuildUserPrompt serializes the collected input as the user message. The
// envelope is plain JSON so every provider shares one prompt format.
func BuildUserPrompt(in *Input) (string, error) {
	envelope := map[string]any{
		"roomId":           in.RoomID,
		"windowSeconds":    in.WindowSeconds,
		"transcriptWindow": in.TranscriptWindow,
		"corrections":      in.Corrections,
		"chat":             in.Chat,
		"contextItems":     in.ContextItems,
		"aiConfig":         in.AIConfig,
		"activeBoard":      in.ActiveBoard,
	}
	if in.VisualHint != "" {
		envelope["visualHint"] = in.VisualHint
	}
	if len(in.ProfileLines) > 0 {
		envelope["profile"] = in.ProfileLines
	}
	b, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("marshal prompt envelope: %w", err)
	}
	return string(b), nil
}

// revisionDirective augments the user prompt on revision passes with the
// previous low-confidence reply and a deterministic reference sketch the
// provider can diff against.
func revisionDirective(previous string, confidence float64, reference string) string {
	var sb strings.Builder
	sb.WriteString("\n\nYour previous reply scored confidence ")
	fmt.Fprintf(&sb, "%.2f", confidence)
	sb.WriteString(", below the acceptance threshold. Revise it.\n")
	sb.WriteString("Previous reply:\n")
	sb.WriteString(previous)
	if reference != "" {
		sb.WriteString("\nReference sketch derived from the same transcript (use it to check ")
		sb.WriteString("for missed nodes or edges, not to copy verbatim):\n")
		sb.WriteString(reference)
	}
	return sb.String()
}
