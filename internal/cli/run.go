package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/forPelevin/autocut/internal/config"
	"github.com/forPelevin/autocut/internal/domain/assembly"
	"github.com/forPelevin/autocut/internal/logging"
	"github.com/forPelevin/autocut/internal/metrics"
	"github.com/forPelevin/autocut/internal/pipeline"
)

// settingsView is what command bodies may read from the resolved config.
type settingsView struct {
	OutDir string
}

func withPipeline(cmd *cobra.Command, fn func(ctx context.Context, p *pipeline.Pipeline, s settingsView) error) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logging.Init(logging.Config{Level: settings.Log.Level, Format: settings.Log.Format})

	var m *metrics.Metrics
	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	if metricsFile != "" {
		m = metrics.New()
	}

	pcfg := pipeline.Config{
		Settings: settings,
		Logf:     logging.Logf(logging.WithComponent("autocut")),
		Metrics:  m,
	}
	if f := cmd.Flags().Lookup("strategy"); f != nil {
		s, err := assembly.ParseStrategy(f.Value.String())
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		pcfg.Strategy = s
	}
	if f := cmd.Flags().Lookup("jobs"); f != nil {
		pcfg.Jobs, _ = cmd.Flags().GetInt("jobs")
	}
	if f := cmd.Flags().Lookup("force-intermediate"); f != nil {
		pcfg.ForceIntermediate, _ = cmd.Flags().GetBool("force-intermediate")
	}

	p, err := pipeline.New(pcfg)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	runErr := fn(ctx, p, settingsView{OutDir: settings.OutDir})
	if m != nil {
		if err := m.WriteTextfile(metricsFile); err != nil {
			log.Warn().Err(err).Str("path", metricsFile).Msg("write metrics")
		}
	}
	return runErr
}

// loadSettings layers flags that were set explicitly over the config file and env.
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	s, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	fl := cmd.Flags()
	changed := func(name string) bool {
		f := fl.Lookup(name)
		return f != nil && f.Changed
	}
	if changed("log-level") {
		s.Log.Level, _ = fl.GetString("log-level")
	}
	if changed("log-format") {
		s.Log.Format, _ = fl.GetString("log-format")
	}
	if changed("out") && cmd.Name() == "run" {
		s.OutDir, _ = fl.GetString("out")
	}
	if changed("asr") {
		s.ASR.Backend, _ = fl.GetString("asr")
	}
	if changed("whisper-model") {
		s.Whisper.Model, _ = fl.GetString("whisper-model")
	}
	if changed("model-id") {
		s.ElevenLabs.ModelID, _ = fl.GetString("model-id")
	}
	if changed("language") {
		s.ElevenLabs.LanguageCode, _ = fl.GetString("language")
	}
	if changed("num-speakers") {
		s.ElevenLabs.NumSpeakers, _ = fl.GetInt("num-speakers")
	}
	if changed("diarization-threshold") {
		v, _ := fl.GetFloat64("diarization-threshold")
		s.ElevenLabs.DiarizationThreshold = &v
	}
	if changed("max-gap") {
		s.Segmentation.MaxGap, _ = fl.GetFloat64("max-gap")
	}
	if changed("max-duration") {
		s.Segmentation.MaxDuration, _ = fl.GetFloat64("max-duration")
	}
	if changed("max-tokens") {
		s.Segmentation.MaxTokens, _ = fl.GetInt("max-tokens")
	}
	if changed("speaker-label") {
		labels, _ := fl.GetStringToString("speaker-label")
		merged := make(map[string]string, len(s.SpeakerLabels)+len(labels))
		for k, v := range s.SpeakerLabels {
			merged[k] = v
		}
		for k, v := range labels {
			merged[k] = v
		}
		s.SpeakerLabels = merged
	}
	if changed("intermediate-encoder") {
		s.Media.IntermediateEncoder, _ = fl.GetString("intermediate-encoder")
	}
	if changed("command-timeout") {
		s.Media.CommandTimeout, _ = fl.GetDuration("command-timeout")
	}
	return s, nil
}

func addTranscribeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("asr", "", "Transcription backend: elevenlabs or whispercpp")
	f.String("whisper-model", "", "whisper.cpp model file (whispercpp backend)")
	f.String("model-id", "", "ElevenLabs model id (default scribe_v1)")
	f.String("language", "", "Language hint, e.g. en")
	f.Int("num-speakers", 0, "Expected number of speakers (0 = let the service decide)")
	f.Float64("diarization-threshold", 0, "Diarization threshold passed to the service")
	f.Float64("max-gap", 0, "Max silence in seconds inside one segment (default 0.6)")
	f.Float64("max-duration", 0, "Max segment duration in seconds (0 = unlimited)")
	f.Int("max-tokens", 0, "Max words per segment (0 = unlimited)")
	f.StringToString("speaker-label", nil, "Display name per speaker id, e.g. speaker_0=Host")
}

func addInstructionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("instructions", "", "JSON file with instructions for the planning agent")
	f.StringToString("instruction", nil, "Single instruction as key=value; overrides the file")
}

func addAssemblyFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("strategy", string(assembly.Reencode), "Clip strategy: reencode or intermediate")
	f.Int("jobs", 1, "Clips extracted concurrently")
	f.Bool("force-intermediate", false, "Rebuild the ProRes intermediate even if it exists")
	f.String("intermediate-encoder", "", "ProRes encoder (default prores_ks)")
	f.Duration("command-timeout", 0, "Time limit per ffmpeg invocation (0 = none)")
}

func readInstructions(cmd *cobra.Command) (map[string]any, error) {
	out := map[string]any{}
	path, _ := cmd.Flags().GetString("instructions")
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read instructions: %w", err)
		}
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, fmt.Errorf("parse instructions %s: %w", path, err)
		}
	}
	kv, _ := cmd.Flags().GetStringToString("instruction")
	for k, v := range kv {
		out[k] = v
	}
	return out, nil
}
