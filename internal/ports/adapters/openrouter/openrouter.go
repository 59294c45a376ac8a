package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/forPelevin/autocut/internal/domain/cutplan"
	"github.com/forPelevin/autocut/internal/ports/adapters/apiutil"
	"github.com/forPelevin/autocut/internal/types"
)

const (
	DefaultModel = "anthropic/claude-3.5-sonnet"

	serviceName    = "openrouter"
	requestTimeout = 5 * time.Minute
)

type Adapter struct {
	key    string
	model  string
	client openai.Client
	log    zerolog.Logger
}

type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	// MaxRetries is passed to the client; negative keeps the library default.
	MaxRetries int
	Extra      []option.RequestOption
}

func New(opts Options) *Adapter {
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(apiutil.OpenRouter.Normalize(opts.BaseURL) + "/api/v1/"),
		option.WithHeader("X-Title", "autocut"),
		option.WithRequestTimeout(requestTimeout),
	}
	if opts.MaxRetries >= 0 {
		clientOpts = append(clientOpts, option.WithMaxRetries(opts.MaxRetries))
	}
	clientOpts = append(clientOpts, opts.Extra...)
	return &Adapter{
		key:    opts.APIKey,
		model:  model,
		client: openai.NewClient(clientOpts...),
		log:    log.With().Str("component", "openrouter").Logger(),
	}
}

type planPayload struct {
	RequestID    string          `json:"request_id"`
	VideoPath    string          `json:"video_path"`
	Transcript   json.RawMessage `json:"transcript"`
	Instructions map[string]any  `json:"instructions"`
}

// Plan asks the agent for a cut plan. The returned JSON is not validated.
func (a *Adapter) Plan(ctx context.Context, req types.PlanRequest) ([]byte, error) {
	if a.key == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is not set: %w", types.ErrCredentialMissing)
	}
	if !json.Valid(req.Transcript) {
		return nil, errors.New("openrouter: transcript is not valid JSON")
	}
	instructions := req.Instructions
	if instructions == nil {
		instructions = map[string]any{}
	}
	pb, err := json.Marshal(planPayload{
		RequestID:    req.RequestID,
		VideoPath:    req.VideoPath,
		Transcript:   req.Transcript,
		Instructions: instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal plan request: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(string(pb)),
		},
		Model:       a.model,
		Temperature: openai.Float(0.2),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "cut_plan",
					Description: openai.String("Ordered list of cuts to keep from the source video"),
					Strict:      openai.Bool(true),
					Schema:      cutplan.Schema(),
				},
			},
		},
	}

	a.log.Debug().Str("request_id", req.RequestID).Str("model", a.model).Int("payload_bytes", len(pb)).Msg("requesting cut plan")
	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil && shouldFallbackJSONMode(err) {
		a.log.Debug().Err(err).Msg("json_schema rejected, retrying with json_object")
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		}
		resp, err = a.client.Chat.Completions.New(ctx, params)
	}
	if err != nil {
		return nil, a.wrapErr(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openrouter: response has no choices")
	}
	clean, err := apiutil.ExtractJSONObject(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("openrouter: %w", err)
	}
	return []byte(clean), nil
}

func (a *Adapter) wrapErr(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &types.ExternalServiceError{
			Service:    serviceName,
			StatusCode: apiErr.StatusCode,
			Body:       apiutil.Truncate(apiutil.RedactSecrets(apiErr.Error(), a.key), 400),
		}
	}
	return fmt.Errorf("openrouter request: %w", err)
}

func shouldFallbackJSONMode(err error) bool {
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	if msg == "" {
		return false
	}
	if strings.Contains(msg, "json_schema") || strings.Contains(msg, "response_format") {
		return true
	}
	return strings.Contains(msg, "unsupported") && strings.Contains(msg, "schema")
}

const systemPrompt = "You are a video editor. The user message is a JSON planning request with a " +
	"request_id, the source video_path, a diarized transcript whose segments carry ids, speakers " +
	"and start/end seconds, and free-form instructions. " +
	"Return only a JSON object with model_version, generated_at (ISO 8601), notes and a non-empty " +
	"cuts list. Each cut has cut_id, source_segment_id (or null), start_ms and end_ms as integer " +
	"milliseconds from the start of the video with end_ms greater than start_ms, and a one sentence " +
	"justification. Cuts play back in the order given; do not overlap them."
