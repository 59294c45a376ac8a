package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forPelevin/autocut/internal/domain/assembly"
	"github.com/forPelevin/autocut/internal/domain/segments"
	"github.com/forPelevin/autocut/internal/domain/transcript"
	"github.com/forPelevin/autocut/internal/types"
)

type TranscribeInput struct {
	VideoPath string
	// OutDir receives the transcript files. Nothing is written when empty.
	OutDir string
	// TempDir is the parent of the scratch audio directory; "" means os.TempDir().
	TempDir      string
	Options      types.TranscribeOptions
	Segmentation segments.Options
	// Service labels API metrics (elevenlabs, whispercpp).
	Service string
	Logf    Logf
}

type TranscribeResult struct {
	Document      transcript.Document
	AudioDuration time.Duration

	JSONPath     string
	ReducedPath  string
	CaptionsPath string
}

func (u Usecase) Transcribe(ctx context.Context, in TranscribeInput) (TranscribeResult, error) {
	logf := in.Logf.orNop()
	defer u.stage("transcribe")()

	if err := requireFile(in.VideoPath); err != nil {
		return TranscribeResult{}, err
	}

	tmp, err := os.MkdirTemp(in.TempDir, "autocut-audio-*")
	if err != nil {
		return TranscribeResult{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	wav := filepath.Join(tmp, "audio.wav")
	logf("extracting audio")
	if err := u.d.Video.ExtractAudioMono16k(ctx, in.VideoPath, wav); err != nil {
		return TranscribeResult{}, err
	}

	var wavDuration time.Duration
	if u.d.Audio != nil {
		info, err := u.d.Audio.Inspect(wav)
		if err != nil {
			return TranscribeResult{}, fmt.Errorf("inspect audio: %w", err)
		}
		wavDuration = info.Duration
		logf("audio: %d Hz, %d ch, %d bit, %s", info.SampleRate, info.Channels, info.BitDepth, info.Duration.Round(time.Millisecond))
	}

	logf("transcribing")
	raw, err := u.d.ASR.Transcribe(ctx, wav, in.Options)
	u.d.Metrics.ObserveAPI(in.Service, err)
	if err != nil {
		return TranscribeResult{}, err
	}

	duration := audioDuration(raw, wavDuration)
	u.d.Metrics.SetAudioDuration(duration)

	segs := segments.Build(raw.Tokens, in.Segmentation)
	var speech, events int
	for _, s := range segs {
		if s.Kind() == types.SegmentSpeech {
			speech++
		} else {
			events++
		}
	}
	u.d.Metrics.AddSegments(string(types.SegmentSpeech), speech)
	u.d.Metrics.AddSegments(string(types.SegmentAudioEvent), events)
	logf("segments: %d speech, %d audio events (%d tokens)", speech, events, len(raw.Tokens))

	granularity := in.Options.Granularity
	if granularity == "" {
		granularity = transcript.GranularityWord
	}
	doc := transcript.Build(transcript.BuildInput{
		VideoPath:    in.VideoPath,
		Segments:     segs,
		Granularity:  granularity,
		ModelID:      in.Options.ModelID,
		LanguageCode: raw.LanguageCode,
		FullText:     raw.Text,
		Now:          u.d.Now(),
	})

	res := TranscribeResult{Document: doc, AudioDuration: duration}
	if in.OutDir == "" {
		return res, nil
	}
	if err := os.MkdirAll(in.OutDir, 0o755); err != nil {
		return TranscribeResult{}, err
	}
	stem := assembly.Stem(in.VideoPath)
	res.JSONPath = filepath.Join(in.OutDir, stem+"_transcript.json")
	res.ReducedPath = filepath.Join(in.OutDir, stem+"_transcript_notokens.json")
	res.CaptionsPath = filepath.Join(in.OutDir, stem+"_captions.txt")

	for _, out := range []struct {
		path    string
		variant transcript.Variant
	}{
		{res.JSONPath, transcript.WithTokens},
		{res.ReducedPath, transcript.WithoutTokens},
	} {
		b, err := transcript.Marshal(doc, out.variant)
		if err != nil {
			return TranscribeResult{}, fmt.Errorf("marshal transcript: %w", err)
		}
		if err := writeFile(out.path, b); err != nil {
			return TranscribeResult{}, err
		}
	}
	captions, err := transcript.RenderCaptions(doc)
	if err != nil {
		return TranscribeResult{}, fmt.Errorf("render captions: %w", err)
	}
	if err := writeFile(res.CaptionsPath, []byte(captions)); err != nil {
		return TranscribeResult{}, err
	}
	logf("transcript written: %s", res.JSONPath)
	return res, nil
}

// audioDuration prefers the service's figure, then the extracted file, then
// the end of the last token.
func audioDuration(raw types.RawTranscript, wav time.Duration) time.Duration {
	if raw.Duration > 0 {
		return time.Duration(raw.Duration * float64(time.Second))
	}
	if wav > 0 {
		return wav
	}
	var end float64
	for _, t := range raw.Tokens {
		if t.End > end {
			end = t.End
		}
	}
	return time.Duration(end * float64(time.Second))
}
