package types

import (
	"strings"
	"time"
)

type TokenKind string

const (
	TokenWord       TokenKind = "word"
	TokenAudioEvent TokenKind = "audio_event"
	TokenSpacing    TokenKind = "spacing"
)

// ParseTokenKind is case-insensitive; anything unrecognised is a word.
func ParseTokenKind(s string) TokenKind {
	switch TokenKind(strings.ToLower(strings.TrimSpace(s))) {
	case TokenAudioEvent:
		return TokenAudioEvent
	case TokenSpacing:
		return TokenSpacing
	default:
		return TokenWord
	}
}

type Token struct {
	Kind       TokenKind
	Text       string
	Start      float64
	End        float64
	SpeakerID  *string
	Confidence *float64
}

// RawTranscript is what the speech-to-text service returned, before segmentation.
type RawTranscript struct {
	Tokens       []Token
	Text         string
	LanguageCode *string
	Duration     float64
}

type TranscribeOptions struct {
	ModelID              string
	Diarize              bool
	Granularity          string
	NumSpeakers          int
	LanguageCode         string
	DiarizationThreshold *float64
}

type Geometry struct {
	Width  int
	Height int
}

type AudioInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// Command is one invocation of the media tool. Args exclude the binary itself.
type Command struct {
	Stage  string
	Args   []string
	Output string
}

type PlanRequest struct {
	RequestID    string
	VideoPath    string
	Transcript   []byte
	Instructions map[string]any
}

func StrPtr(s string) *string { return &s }
