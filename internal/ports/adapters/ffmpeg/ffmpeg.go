package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/forPelevin/autocut/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string

	// CommandTimeout bounds each invocation. Zero means no limit beyond ctx.
	CommandTimeout time.Duration

	// Observe, when set, is called after every invocation.
	Observe func(stage string, took time.Duration, err error)

	log zerolog.Logger
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{
		ffmpeg:  ffmpegPath,
		ffprobe: ffprobePath,
		log:     log.With().Str("component", "ffmpeg").Logger(),
	}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inVideo, outWav string) error {
	_, err := a.exec(ctx, a.ffmpeg, "extract audio",
		"-y",
		"-i", inVideo,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	return err
}

func (a *Adapter) ProbeGeometry(ctx context.Context, inVideo string) (types.Geometry, error) {
	b, err := a.exec(ctx, a.ffprobe, "geometry",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0:s=x",
		inVideo,
	)
	if err != nil {
		return types.Geometry{}, err
	}
	return parseGeometry(string(b))
}

func (a *Adapter) ProbeDuration(ctx context.Context, inVideo string) (time.Duration, error) {
	b, err := a.exec(ctx, a.ffprobe, "duration",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inVideo,
	)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

// Run executes a prepared ffmpeg command.
func (a *Adapter) Run(ctx context.Context, cmd types.Command) error {
	_, err := a.exec(ctx, a.ffmpeg, cmd.Stage, cmd.Args...)
	return err
}

func (a *Adapter) exec(ctx context.Context, bin, stage string, args ...string) ([]byte, error) {
	if a.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.CommandTimeout)
		defer cancel()
	}
	a.log.Debug().Str("stage", stage).Strs("args", args).Msg("exec")

	started := time.Now()
	b, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	took := time.Since(started)
	if a.Observe != nil {
		a.Observe(stage, took, err)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return b, &types.ExternalProcessError{
			Tool:   toolName(bin),
			Stage:  stage,
			Args:   append([]string(nil), args...),
			Output: string(b),
			Err:    err,
		}
	}
	return b, nil
}

func parseGeometry(out string) (types.Geometry, error) {
	line := strings.TrimSpace(out)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	w, h, ok := strings.Cut(line, "x")
	if !ok {
		return types.Geometry{}, fmt.Errorf("parse geometry %q: missing separator", line)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return types.Geometry{}, fmt.Errorf("parse geometry %q: %w", line, err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return types.Geometry{}, fmt.Errorf("parse geometry %q: %w", line, err)
	}
	if width <= 0 || height <= 0 {
		return types.Geometry{}, fmt.Errorf("parse geometry %q: non-positive size", line)
	}
	return types.Geometry{Width: width, Height: height}, nil
}

func toolName(bin string) string {
	i := strings.LastIndexAny(bin, `/\`)
	name := bin[i+1:]
	return strings.TrimSuffix(name, ".exe")
}
