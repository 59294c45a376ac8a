package transcript

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forPelevin/autocut/internal/domain/timecode"
	"github.com/forPelevin/autocut/internal/types"
)

// RenderCaptions is a human-readable hand-off view, not the machine contract.
func RenderCaptions(d Document) (string, error) {
	var b strings.Builder
	for i, s := range d.Segments {
		start, err := timecode.FromSeconds(s.Start)
		if err != nil {
			return "", fmt.Errorf("segment %s start: %w", s.ID, err)
		}
		end, err := timecode.FromSeconds(s.End)
		if err != nil {
			return "", fmt.Errorf("segment %s end: %w", s.ID, err)
		}
		if i > 0 {
			b.WriteString("\n")
		}
		speaker := "none"
		if s.SpeakerID != nil {
			speaker = *s.SpeakerID
		}
		fmt.Fprintf(&b, "%s --> %s\n", start, end)
		fmt.Fprintf(&b, "[%s | %s | types: %s] %s\n", s.SpeakerLabel, speaker, strings.Join(tokenKinds(s), ", "), s.Content())
	}
	return b.String(), nil
}

func tokenKinds(s types.Segment) []string {
	seen := map[string]struct{}{}
	for _, t := range s.Tokens() {
		seen[string(t.Kind)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
