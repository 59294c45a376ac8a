// Package transcript assembles segmentation output into the persisted transcript
// document and its caption-style rendering.
package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/autocut/internal/types"
)

const GranularityWord = "word"

type Document struct {
	VideoPath    string
	GeneratedAt  time.Time
	Granularity  string
	LanguageCode *string
	ModelID      string
	Segments     []types.Segment
	FullText     string
}

type BuildInput struct {
	VideoPath    string
	Segments     []types.Segment
	Granularity  string
	ModelID      string
	LanguageCode *string
	// FullText defaults to SpeechText(Segments) when empty.
	FullText string
	// Now defaults to time.Now().
	Now time.Time
}

// Build assigns seg_0001-style ids in emission order.
func Build(in BuildInput) Document {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	segs := make([]types.Segment, len(in.Segments))
	for i, s := range in.Segments {
		s.ID = SegmentID(i + 1)
		segs[i] = s
	}
	full := strings.TrimSpace(in.FullText)
	if full == "" {
		full = SpeechText(segs)
	}
	return Document{
		VideoPath:    in.VideoPath,
		GeneratedAt:  now.UTC(),
		Granularity:  in.Granularity,
		LanguageCode: in.LanguageCode,
		ModelID:      in.ModelID,
		Segments:     segs,
		FullText:     full,
	}
}

func SegmentID(ordinal int) string { return fmt.Sprintf("seg_%04d", ordinal) }

// SpeechText joins speech phrases; audio events are left out.
func SpeechText(segs []types.Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if p, ok := s.Phrase(); ok {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func (d Document) SegmentByID(id string) (types.Segment, bool) {
	for _, s := range d.Segments {
		if s.ID == id {
			return s, true
		}
	}
	return types.Segment{}, false
}
