package ai

import (
	"hash/fnv"
	"sort"
	"strings"
)

// Fingerprint hashes the normalized prompt inputs together with the produced
// action set. The scheduler compares it against the room's last applied
// fingerprint to suppress no-change ticks.
func Fingerprint(in *Input, actions []string) uint64 {
	h := fnv.New64a()
	write := func(s string) {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(s))))
		h.Write([]byte{0})
	}
	for _, l := range in.TranscriptWindow {
		write(l.Text)
	}
	for _, c := range in.Chat {
		write(c.Text)
	}
	var items []string
	for _, it := range in.ContextItems {
		items = append(items, it.Title+"\x1f"+it.Body)
	}
	sort.Strings(items)
	for _, it := range items {
		write(it)
	}
	write(in.VisualHint)
	sorted := append([]string(nil), actions...)
	sort.Strings(sorted)
	for _, a := range sorted {
		write(a)
	}
	return h.Sum64()
}
