// Package whispercpp is an offline ASR backend. whisper.cpp does not
// diarize, so every token comes back without a speaker id.
package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/autocut/internal/types"
)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	if binPath == "" {
		binPath = "whisper-cli"
	}
	return &Adapter{bin: binPath, model: modelPath}
}

type output struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath string, opts types.TranscribeOptions) (types.RawTranscript, error) {
	if a.model == "" {
		return types.RawTranscript{}, fmt.Errorf("whisper model path is required")
	}
	outPrefix := filepath.Join(filepath.Dir(wavPath), "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
		// one word per entry
		"-ml", "1",
		"-sow",
	}
	if opts.LanguageCode != "" {
		args = append(args, "-l", opts.LanguageCode)
	}
	b, err := exec.CommandContext(ctx, a.bin, args...).CombinedOutput()
	if err != nil {
		return types.RawTranscript{}, &types.ExternalProcessError{
			Tool:   "whisper.cpp",
			Stage:  "transcribe",
			Args:   args,
			Output: string(b),
			Err:    err,
		}
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.RawTranscript{}, fmt.Errorf("read whisper output: %w", err)
	}
	var out output
	if err := json.Unmarshal(jb, &out); err != nil {
		return types.RawTranscript{}, fmt.Errorf("decode whisper output: %w", err)
	}
	return toRaw(out), nil
}

func toRaw(out output) types.RawTranscript {
	raw := types.RawTranscript{Tokens: make([]types.Token, 0, len(out.Transcription))}
	if out.Result.Language != "" {
		raw.LanguageCode = types.StrPtr(out.Result.Language)
	}
	var words []string
	for _, e := range out.Transcription {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		kind := types.TokenWord
		if isEvent(text) {
			kind = types.TokenAudioEvent
		} else {
			words = append(words, text)
		}
		tok := types.Token{
			Kind:  kind,
			Text:  text,
			Start: float64(e.Offsets.From) / 1000,
			End:   float64(e.Offsets.To) / 1000,
		}
		raw.Tokens = append(raw.Tokens, tok)
		if tok.End > raw.Duration {
			raw.Duration = tok.End
		}
	}
	raw.Text = strings.Join(words, " ")
	return raw
}

// isEvent reports non-speech markers such as [MUSIC] or (laughter).
func isEvent(s string) bool {
	if len(s) < 2 {
		return false
	}
	l, r := s[0], s[len(s)-1]
	return (l == '[' && r == ']') || (l == '(' && r == ')') || (l == '*' && r == '*')
}

