package transcript

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/autocut/internal/types"
)

func testSegments(t *testing.T) []types.Segment {
	t.Helper()
	spk := types.StrPtr("spk0")
	speech, err := types.NewSpeechSegment(spk, "Host", 0, 0.9, "Hello world", []types.Token{
		{Kind: types.TokenWord, Text: "Hello", Start: 0, End: 0.4, SpeakerID: spk},
		{Kind: types.TokenWord, Text: "world", Start: 0.45, End: 0.9, SpeakerID: spk},
	})
	if err != nil {
		t.Fatalf("speech segment: %v", err)
	}
	ev, err := types.NewAudioEventSegment(types.DefaultSpeakerLabel, types.Token{Kind: types.TokenAudioEvent, Text: "(laughter)", Start: 1.0, End: 1.5})
	if err != nil {
		t.Fatalf("audio event segment: %v", err)
	}
	return []types.Segment{speech, ev}
}

func testDocument(t *testing.T) Document {
	t.Helper()
	return Build(BuildInput{
		VideoPath:    "/videos/raw.mov",
		Segments:     testSegments(t),
		Granularity:  GranularityWord,
		ModelID:      "scribe_v1",
		LanguageCode: types.StrPtr("en"),
		Now:          time.Date(2026, 2, 12, 10, 30, 45, 0, time.UTC),
	})
}

func TestBuild_AssignsIDsAndSpeechOnlyText(t *testing.T) {
	d := testDocument(t)
	if d.Segments[0].ID != "seg_0001" || d.Segments[1].ID != "seg_0002" {
		t.Fatalf("unexpected ids: %s, %s", d.Segments[0].ID, d.Segments[1].ID)
	}
	if d.FullText != "Hello world" {
		t.Fatalf("full text must exclude audio events, got %q", d.FullText)
	}
	if _, ok := d.SegmentByID("seg_0002"); !ok {
		t.Fatalf("expected lookup by id to succeed")
	}
}

func TestBuild_KeepsExplicitFullText(t *testing.T) {
	d := Build(BuildInput{Segments: testSegments(t), FullText: "  given text "})
	if d.FullText != "given text" {
		t.Fatalf("unexpected full text %q", d.FullText)
	}
	if d.GeneratedAt.IsZero() {
		t.Fatalf("expected generation time to be stamped")
	}
}

func TestRenderCaptions_Format(t *testing.T) {
	got, err := RenderCaptions(testDocument(t))
	if err != nil {
		t.Fatal(err)
	}
	want := "00:00:00.000 --> 00:00:00.900\n" +
		"[Host | spk0 | types: word] Hello world\n" +
		"\n" +
		"00:00:01.000 --> 00:00:01.500\n" +
		"[Speaker | none | types: audio_event] (laughter)\n"
	if got != want {
		t.Fatalf("unexpected captions:\n%s\nwant:\n%s", got, want)
	}
}

func TestMarshal_Variants(t *testing.T) {
	d := testDocument(t)

	full, err := Marshal(d, WithTokens)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(full, &m); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"video_path", "generated_at", "granularity", "language_code", "model_id", "segments", "full_text"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing key %q", k)
		}
	}
	if len(m) != 7 {
		t.Fatalf("unexpected extra keys: %v", m)
	}
	segs := m["segments"].([]any)
	first := segs[0].(map[string]any)
	if first["phrase_text"] != "Hello world" {
		t.Fatalf("unexpected phrase_text: %v", first["phrase_text"])
	}
	if _, ok := first["audio_event"]; ok {
		t.Fatalf("speech segment must not carry audio_event")
	}
	second := segs[1].(map[string]any)
	if second["audio_event"] != "(laughter)" || second["speaker_id"] != nil {
		t.Fatalf("unexpected audio event segment: %v", second)
	}
	tok := first["tokens"].([]any)[0].(map[string]any)
	if tok["speaker_label"] != "Host" || tok["type"] != "word" || len(tok) != 6 {
		t.Fatalf("unexpected token: %v", tok)
	}

	reduced, err := Marshal(d, WithoutTokens)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(reduced, []byte(`"tokens"`)) {
		t.Fatalf("reduced variant must not contain tokens")
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	d := testDocument(t)
	b, err := Marshal(d, WithTokens)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Segments) != 2 || got.Segments[1].Kind() != types.SegmentAudioEvent {
		t.Fatalf("unexpected segments: %+v", got.Segments)
	}
	if got.Segments[0].ID != "seg_0001" || got.Segments[0].Content() != "Hello world" {
		t.Fatalf("unexpected first segment: %+v", got.Segments[0])
	}
	if !got.GeneratedAt.Equal(d.GeneratedAt) {
		t.Fatalf("generated_at changed: %v vs %v", got.GeneratedAt, d.GeneratedAt)
	}
}

func TestDecode_Rejects(t *testing.T) {
	d := testDocument(t)
	b, err := Marshal(d, WithTokens)
	if err != nil {
		t.Fatal(err)
	}
	tests := map[string]string{
		"unknown field":   strings.Replace(string(b), `"full_text"`, `"extra": 1, "full_text"`, 1),
		"both contents":   strings.Replace(string(b), `"phrase_text": "Hello world"`, `"phrase_text": "Hello world", "audio_event": "(x)"`, 1),
		"reduced variant": mustStrip(t, b),
		"not json":        "nope",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(in)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestStripTokens(t *testing.T) {
	b, err := Marshal(testDocument(t), WithTokens)
	if err != nil {
		t.Fatal(err)
	}
	out, err := StripTokens(b)
	if err != nil {
		t.Fatalf("strip: %v", err)
	}
	if bytes.Contains(out, []byte(`"tokens"`)) {
		t.Fatalf("tokens still present:\n%s", out)
	}
	if !bytes.Contains(out, []byte(`"phrase_text": "Hello world"`)) {
		t.Fatalf("segment content lost:\n%s", out)
	}

	if _, err := StripTokens([]byte(`{"segments": 3}`)); err == nil {
		t.Fatalf("expected error for missing segments list")
	}
}

func mustStrip(t *testing.T, b []byte) string {
	t.Helper()
	out, err := StripTokens(b)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}
