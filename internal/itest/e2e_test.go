//go:build integration

package itest

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/forPelevin/autocut/internal/config"
	"github.com/forPelevin/autocut/internal/domain/assembly"
	"github.com/forPelevin/autocut/internal/pipeline"
)

const samplePlan = `{
  "model_version": "manual",
  "generated_at": "2025-01-01T00:00:00Z",
  "notes": null,
  "cuts": [
    {"cut_id": "intro", "source_segment_id": null, "start_ms": 0, "end_ms": 2000, "justification": null},
    {"cut_id": "outro", "source_segment_id": null, "start_ms": 6000, "end_ms": 9000, "justification": null}
  ]
}`

func TestE2E_AssembleFromPlan(t *testing.T) {
	for _, strategy := range []assembly.Strategy{assembly.Reencode, assembly.Intermediate} {
		t.Run(string(strategy), func(t *testing.T) {
			tmp := t.TempDir()
			in := filepath.Join(tmp, "input.mp4")
			makeVideo(t, in, 10)
			planPath := filepath.Join(tmp, "plan.json")
			if err := os.WriteFile(planPath, []byte(samplePlan), 0o644); err != nil {
				t.Fatal(err)
			}

			p, err := pipeline.New(pipeline.Config{
				Settings: config.Default(),
				Logf:     t.Logf,
				Strategy: strategy,
				Jobs:     2,
			})
			if err != nil {
				t.Fatalf("pipeline: %v", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			res, err := p.Assemble(ctx, pipeline.AssembleRequest{
				VideoPath: in,
				PlanPath:  planPath,
				OutDir:    filepath.Join(tmp, "clips"),
			})
			if err != nil {
				t.Fatalf("assemble: %v", err)
			}
			if len(res.Clips) != 2 {
				t.Fatalf("clips = %v", res.Clips)
			}
			got, err := probeDurationSeconds(res.Output)
			if err != nil {
				t.Fatalf("probe output: %v", err)
			}
			// Stream copy snaps to keyframes, so allow some slack.
			if math.Abs(got-5) > 1.5 {
				t.Fatalf("output duration = %.2fs, want about 5s", got)
			}
		})
	}
}

func TestE2E_Run(t *testing.T) {
	if os.Getenv("OPENROUTER_API_KEY") == "" || os.Getenv("ELEVENLABS_API_KEY") == "" {
		t.Fatalf("OPENROUTER_API_KEY and ELEVENLABS_API_KEY are required for itest")
	}

	tmp := t.TempDir()
	in := filepath.Join(tmp, "input.mp4")

	// Generate speech audio via espeak-ng.
	wav := filepath.Join(tmp, "speech.wav")
	text := "Welcome to the weekly sync. First, the release is on track. Second, we need more tests. Thanks everyone."
	cmd := exec.Command("espeak-ng", "-w", wav, text)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("espeak-ng failed: %v\n%s", err, string(b))
	}
	ff := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "color=c=black:s=1280x720:d=15",
		"-i", wav,
		"-shortest",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		in,
	)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}

	settings, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	settings.OutDir = filepath.Join(tmp, "out")

	p, err := pipeline.New(pipeline.Config{Settings: settings, Logf: t.Logf})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	manifestPath, err := p.Run(ctx, pipeline.RunRequest{
		VideoPath:    in,
		Instructions: map[string]any{"goal": "keep the two agenda items"},
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	b, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatalf("missing manifest: %v", err)
	}
	var m pipeline.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(manifestPath), m.Output)); err != nil {
		t.Fatalf("missing final output: %v", err)
	}
}
