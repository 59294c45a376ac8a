package types

import (
	"errors"
	"fmt"
	"strings"
)

type SegmentKind string

const (
	SegmentSpeech     SegmentKind = "speech"
	SegmentAudioEvent SegmentKind = "audio_event"
)

// Segment is either a speech phrase or a single audio event. The zero value is
// not a valid segment; use NewSpeechSegment or NewAudioEventSegment.
type Segment struct {
	ID           string
	SpeakerID    *string
	SpeakerLabel string
	Start        float64
	End          float64

	kind    SegmentKind
	content string
	tokens  []Token
}

var ErrInvalidSegment = errors.New("invalid segment")

func NewSpeechSegment(speakerID *string, label string, start, end float64, phrase string, tokens []Token) (Segment, error) {
	if strings.TrimSpace(phrase) == "" {
		return Segment{}, fmt.Errorf("%w: speech segment needs phrase text", ErrInvalidSegment)
	}
	if len(tokens) == 0 {
		return Segment{}, fmt.Errorf("%w: speech segment needs at least one token", ErrInvalidSegment)
	}
	if end < start {
		return Segment{}, fmt.Errorf("%w: end %.3f before start %.3f", ErrInvalidSegment, end, start)
	}
	for _, t := range tokens {
		if t.Kind == TokenAudioEvent {
			return Segment{}, fmt.Errorf("%w: audio event token %q inside speech", ErrInvalidSegment, t.Text)
		}
	}
	return Segment{
		SpeakerID:    speakerID,
		SpeakerLabel: label,
		Start:        start,
		End:          end,
		kind:         SegmentSpeech,
		content:      phrase,
		tokens:       append([]Token(nil), tokens...),
	}, nil
}

func NewAudioEventSegment(label string, tok Token) (Segment, error) {
	if tok.Kind != TokenAudioEvent {
		return Segment{}, fmt.Errorf("%w: token kind %q is not an audio event", ErrInvalidSegment, tok.Kind)
	}
	desc := strings.TrimSpace(tok.Text)
	if desc == "" {
		return Segment{}, fmt.Errorf("%w: empty audio event", ErrInvalidSegment)
	}
	if tok.End < tok.Start {
		return Segment{}, fmt.Errorf("%w: end %.3f before start %.3f", ErrInvalidSegment, tok.End, tok.Start)
	}
	return Segment{
		SpeakerID:    tok.SpeakerID,
		SpeakerLabel: label,
		Start:        tok.Start,
		End:          tok.End,
		kind:         SegmentAudioEvent,
		content:      desc,
		tokens:       []Token{tok},
	}, nil
}

func (s Segment) Kind() SegmentKind { return s.kind }

func (s Segment) Content() string { return s.content }

func (s Segment) Phrase() (string, bool) {
	if s.kind != SegmentSpeech {
		return "", false
	}
	return s.content, true
}

func (s Segment) AudioEvent() (string, bool) {
	if s.kind != SegmentAudioEvent {
		return "", false
	}
	return s.content, true
}

// Tokens returns a copy so callers cannot mutate a finalized segment.
func (s Segment) Tokens() []Token {
	return append([]Token(nil), s.tokens...)
}
