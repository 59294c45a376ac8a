// Package segments collapses a diarized token stream into speech phrases and
// standalone audio events.
package segments

import (
	"sort"
	"strings"

	"github.com/forPelevin/autocut/internal/types"
)

// Options bound how far a speech segment may grow. Zero MaxDuration or
// MaxTokens disables that limit.
type Options struct {
	MaxGap      float64
	MaxDuration float64
	MaxTokens   int
	Labels      types.SpeakerLabels
}

// Build runs a single forward pass over tokens sorted by (start, end).
// The input slice is not modified.
func Build(tokens []types.Token, opts Options) []types.Segment {
	sorted := make([]types.Token, len(tokens))
	copy(sorted, tokens)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})

	b := builder{opts: opts}
	for _, tok := range sorted {
		b.add(tok)
	}
	b.flush()
	return b.out
}

type phrase struct {
	speakerID *string
	start     float64
	end       float64
	text      strings.Builder
	tokens    []types.Token
}

type builder struct {
	opts         Options
	open         *phrase
	pendingSpace bool
	out          []types.Segment
}

func (b *builder) add(tok types.Token) {
	if tok.Kind == types.TokenSpacing {
		b.pendingSpace = true
		return
	}
	text := strings.TrimSpace(tok.Text)
	if text == "" {
		return
	}
	if tok.End < tok.Start {
		tok.End = tok.Start
	}

	if tok.Kind == types.TokenAudioEvent {
		b.flush()
		seg, err := types.NewAudioEventSegment(b.opts.Labels.Label(tok.SpeakerID), tok)
		if err == nil {
			b.out = append(b.out, seg)
		}
		return
	}

	if b.startsNew(tok) {
		b.flush()
		p := &phrase{speakerID: tok.SpeakerID, start: tok.Start, end: tok.End}
		p.text.WriteString(text)
		p.tokens = append(p.tokens, tok)
		b.open = p
		b.pendingSpace = false
		return
	}

	p := b.open
	if b.pendingSpace || !startsWithPunct(text) {
		p.text.WriteByte(' ')
	}
	p.text.WriteString(text)
	p.tokens = append(p.tokens, tok)
	if tok.End > p.end {
		p.end = tok.End
	}
	b.pendingSpace = false
}

func (b *builder) startsNew(tok types.Token) bool {
	p := b.open
	switch {
	case p == nil:
		return true
	case !sameSpeaker(p.speakerID, tok.SpeakerID):
		return true
	case tok.Start-p.end > b.opts.MaxGap:
		return true
	case b.opts.MaxDuration > 0 && tok.End-p.start > b.opts.MaxDuration:
		return true
	case b.opts.MaxTokens > 0 && len(p.tokens) >= b.opts.MaxTokens:
		return true
	}
	return false
}

func (b *builder) flush() {
	p := b.open
	if p == nil {
		return
	}
	b.open = nil
	seg, err := types.NewSpeechSegment(
		p.speakerID,
		b.opts.Labels.Label(p.speakerID),
		p.start,
		p.end,
		strings.TrimSpace(p.text.String()),
		p.tokens,
	)
	if err == nil {
		b.out = append(b.out, seg)
	}
}

func sameSpeaker(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func startsWithPunct(s string) bool {
	switch s[0] {
	case ',', '.', '!', '?', ':', ';':
		return true
	}
	return false
}
