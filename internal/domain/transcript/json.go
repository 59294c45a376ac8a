package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/forPelevin/autocut/internal/types"
)

type Variant int

const (
	WithTokens Variant = iota
	WithoutTokens
)

type wireDocument struct {
	VideoPath    string        `json:"video_path"`
	GeneratedAt  string        `json:"generated_at"`
	Granularity  string        `json:"granularity"`
	LanguageCode *string       `json:"language_code"`
	ModelID      string        `json:"model_id"`
	Segments     []wireSegment `json:"segments"`
	FullText     string        `json:"full_text"`
}

type wireSegment struct {
	SegmentID    string      `json:"segment_id"`
	SpeakerID    *string     `json:"speaker_id"`
	SpeakerLabel string      `json:"speaker_label"`
	Start        float64     `json:"start"`
	End          float64     `json:"end"`
	PhraseText   *string     `json:"phrase_text,omitempty"`
	AudioEvent   *string     `json:"audio_event,omitempty"`
	Tokens       []wireToken `json:"tokens,omitempty"`
}

type wireToken struct {
	Type         string  `json:"type"`
	Text         string  `json:"text"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	SpeakerID    *string `json:"speaker_id"`
	SpeakerLabel string  `json:"speaker_label"`
}

// Marshal renders the full or reduced (token-free) document, indented.
func Marshal(d Document, v Variant) ([]byte, error) {
	w := wireDocument{
		VideoPath:    d.VideoPath,
		GeneratedAt:  d.GeneratedAt.UTC().Format(time.RFC3339),
		Granularity:  d.Granularity,
		LanguageCode: d.LanguageCode,
		ModelID:      d.ModelID,
		Segments:     make([]wireSegment, 0, len(d.Segments)),
		FullText:     d.FullText,
	}
	for _, s := range d.Segments {
		ws := wireSegment{
			SegmentID:    s.ID,
			SpeakerID:    s.SpeakerID,
			SpeakerLabel: s.SpeakerLabel,
			Start:        s.Start,
			End:          s.End,
		}
		content := s.Content()
		switch s.Kind() {
		case types.SegmentSpeech:
			ws.PhraseText = &content
		case types.SegmentAudioEvent:
			ws.AudioEvent = &content
		default:
			return nil, fmt.Errorf("segment %s: %w", s.ID, types.ErrInvalidSegment)
		}
		if v == WithTokens {
			for _, t := range s.Tokens() {
				ws.Tokens = append(ws.Tokens, wireToken{
					Type:         string(t.Kind),
					Text:         t.Text,
					Start:        t.Start,
					End:          t.End,
					SpeakerID:    t.SpeakerID,
					SpeakerLabel: s.SpeakerLabel,
				})
			}
		}
		w.Segments = append(w.Segments, ws)
	}
	return json.MarshalIndent(w, "", "  ")
}

// Decode reads a full-variant document. Unknown fields are rejected and every
// segment goes back through the tagged-union constructors.
func Decode(r io.Reader) (Document, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var w wireDocument
	if err := dec.Decode(&w); err != nil {
		return Document{}, fmt.Errorf("decode transcript: %w", err)
	}
	if w.VideoPath == "" || w.GeneratedAt == "" || w.ModelID == "" || w.Segments == nil {
		return Document{}, errors.New("decode transcript: video_path, generated_at, model_id and segments are required")
	}
	ts, err := time.Parse(time.RFC3339, w.GeneratedAt)
	if err != nil {
		return Document{}, fmt.Errorf("decode transcript: generated_at: %w", err)
	}

	d := Document{
		VideoPath:    w.VideoPath,
		GeneratedAt:  ts,
		Granularity:  w.Granularity,
		LanguageCode: w.LanguageCode,
		ModelID:      w.ModelID,
		FullText:     w.FullText,
		Segments:     make([]types.Segment, 0, len(w.Segments)),
	}
	for _, ws := range w.Segments {
		seg, err := decodeSegment(ws)
		if err != nil {
			return Document{}, fmt.Errorf("decode transcript: segment %s: %w", ws.SegmentID, err)
		}
		d.Segments = append(d.Segments, seg)
	}
	return d, nil
}

func decodeSegment(ws wireSegment) (types.Segment, error) {
	if (ws.PhraseText == nil) == (ws.AudioEvent == nil) {
		return types.Segment{}, fmt.Errorf("%w: exactly one of phrase_text and audio_event is required", types.ErrInvalidSegment)
	}
	if len(ws.Tokens) == 0 {
		return types.Segment{}, fmt.Errorf("%w: tokens missing (reduced documents cannot be decoded)", types.ErrInvalidSegment)
	}
	toks := make([]types.Token, 0, len(ws.Tokens))
	for _, wt := range ws.Tokens {
		toks = append(toks, types.Token{
			Kind:      types.ParseTokenKind(wt.Type),
			Text:      wt.Text,
			Start:     wt.Start,
			End:       wt.End,
			SpeakerID: wt.SpeakerID,
		})
	}

	var (
		seg types.Segment
		err error
	)
	if ws.AudioEvent != nil {
		if len(toks) != 1 {
			return types.Segment{}, fmt.Errorf("%w: audio event needs exactly one token, got %d", types.ErrInvalidSegment, len(toks))
		}
		seg, err = types.NewAudioEventSegment(ws.SpeakerLabel, toks[0])
	} else {
		seg, err = types.NewSpeechSegment(ws.SpeakerID, ws.SpeakerLabel, ws.Start, ws.End, *ws.PhraseText, toks)
	}
	if err != nil {
		return types.Segment{}, err
	}
	seg.ID = ws.SegmentID
	return seg, nil
}

// StripTokens removes every segments.N.tokens array from a persisted document,
// leaving everything else untouched.
func StripTokens(raw []byte) ([]byte, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("strip tokens: document is not valid JSON")
	}
	segs := gjson.GetBytes(raw, "segments")
	if !segs.IsArray() {
		return nil, errors.New("strip tokens: document is missing a 'segments' list")
	}
	out := append([]byte(nil), raw...)
	var err error
	for i, s := range segs.Array() {
		if !s.IsObject() || !s.Get("tokens").Exists() {
			continue
		}
		out, err = sjson.DeleteBytes(out, fmt.Sprintf("segments.%d.tokens", i))
		if err != nil {
			return nil, fmt.Errorf("strip tokens: segment %d: %w", i, err)
		}
	}
	return bytes.TrimSpace(pretty.Pretty(out)), nil
}
