package ports

import (
	"context"
	"time"

	"github.com/forPelevin/autocut/internal/types"
)

type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, inVideo, outWav string) error
	ProbeGeometry(ctx context.Context, inVideo string) (types.Geometry, error)
	ProbeDuration(ctx context.Context, inVideo string) (time.Duration, error)
	Run(ctx context.Context, cmd types.Command) error
}

type AudioInspector interface {
	Inspect(path string) (types.AudioInfo, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath string, opts types.TranscribeOptions) (types.RawTranscript, error)
}

// Planner forwards a planning request to the external agent and returns its
// raw answer. The answer is untrusted until validated.
type Planner interface {
	Plan(ctx context.Context, req types.PlanRequest) ([]byte, error)
}
