package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/forPelevin/autocut/internal/ports/adapters/apiutil"
	"github.com/forPelevin/autocut/internal/types"
)

const (
	DefaultModelID = "scribe_v1"

	serviceName    = "elevenlabs"
	requestTimeout = 30 * time.Minute
)

type Adapter struct {
	key     string
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func New(apiKey, baseURL string) *Adapter {
	return &Adapter{
		key:     apiKey,
		baseURL: apiutil.ElevenLabs.Normalize(baseURL),
		client:  &http.Client{Timeout: requestTimeout},
		log:     log.With().Str("component", "elevenlabs").Logger(),
	}
}

// WithHTTPClient replaces the default client.
func (a *Adapter) WithHTTPClient(c *http.Client) *Adapter {
	a.client = c
	return a
}

type apiWord struct {
	Text      string   `json:"text"`
	Start     *float64 `json:"start"`
	End       *float64 `json:"end"`
	Type      string   `json:"type"`
	SpeakerID *string  `json:"speaker_id"`
	Logprob   *float64 `json:"logprob"`
}

type apiResponse struct {
	LanguageCode *string   `json:"language_code"`
	Text         string    `json:"text"`
	Words        []apiWord `json:"words"`
	Duration     *float64  `json:"duration"`
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath string, opts types.TranscribeOptions) (types.RawTranscript, error) {
	if a.key == "" {
		return types.RawTranscript{}, fmt.Errorf("ELEVENLABS_API_KEY is not set: %w", types.ErrCredentialMissing)
	}

	body, contentType, err := buildForm(wavPath, opts)
	if err != nil {
		return types.RawTranscript{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/speech-to-text", body)
	if err != nil {
		return types.RawTranscript{}, err
	}
	req.Header.Set("xi-api-key", a.key)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	a.log.Debug().Str("model_id", modelID(opts)).Str("file", filepath.Base(wavPath)).Msg("uploading audio")
	resp, err := a.client.Do(req)
	if err != nil {
		return types.RawTranscript{}, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.RawTranscript{}, fmt.Errorf("read elevenlabs response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.RawTranscript{}, &types.ExternalServiceError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Body:       apiutil.Truncate(apiutil.RedactSecrets(string(rb), a.key), 400),
		}
	}

	var ar apiResponse
	if err := json.Unmarshal(rb, &ar); err != nil {
		return types.RawTranscript{}, fmt.Errorf("decode elevenlabs response: %w", err)
	}
	return toRaw(ar), nil
}

func modelID(opts types.TranscribeOptions) string {
	if opts.ModelID == "" {
		return DefaultModelID
	}
	return opts.ModelID
}

func buildForm(wavPath string, opts types.TranscribeOptions) (*bytes.Buffer, string, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy audio: %w", err)
	}

	granularity := opts.Granularity
	if granularity == "" {
		granularity = "word"
	}
	fields := [][2]string{
		{"model_id", modelID(opts)},
		{"diarize", strconv.FormatBool(opts.Diarize)},
		{"timestamps_granularity", granularity},
	}
	if opts.NumSpeakers > 0 {
		fields = append(fields, [2]string{"num_speakers", strconv.Itoa(opts.NumSpeakers)})
	}
	if opts.LanguageCode != "" {
		fields = append(fields, [2]string{"language_code", opts.LanguageCode})
	}
	if opts.DiarizationThreshold != nil {
		fields = append(fields, [2]string{"diarization_threshold", strconv.FormatFloat(*opts.DiarizationThreshold, 'f', -1, 64)})
	}
	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

func toRaw(ar apiResponse) types.RawTranscript {
	out := types.RawTranscript{
		Text:         ar.Text,
		LanguageCode: ar.LanguageCode,
		Tokens:       make([]types.Token, 0, len(ar.Words)),
	}
	for _, w := range ar.Words {
		tok := types.Token{
			Kind:       types.ParseTokenKind(w.Type),
			Text:       w.Text,
			SpeakerID:  w.SpeakerID,
			Confidence: w.Logprob,
		}
		if w.Start != nil {
			tok.Start = *w.Start
		}
		tok.End = tok.Start
		if w.End != nil {
			tok.End = *w.End
		}
		out.Tokens = append(out.Tokens, tok)
	}
	if ar.Duration != nil {
		out.Duration = *ar.Duration
	}
	return out
}
