package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/forPelevin/autocut/internal/config"
	"github.com/forPelevin/autocut/internal/domain/assembly"
	"github.com/forPelevin/autocut/internal/domain/cutplan"
	"github.com/forPelevin/autocut/internal/domain/segments"
	"github.com/forPelevin/autocut/internal/domain/transcript"
	"github.com/forPelevin/autocut/internal/metrics"
	"github.com/forPelevin/autocut/internal/ports"
	"github.com/forPelevin/autocut/internal/ports/adapters/apiutil"
	"github.com/forPelevin/autocut/internal/ports/adapters/elevenlabs"
	"github.com/forPelevin/autocut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/autocut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/autocut/internal/ports/adapters/wavinfo"
	"github.com/forPelevin/autocut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/autocut/internal/types"
	"github.com/forPelevin/autocut/internal/usecase"
)

type Config struct {
	Settings config.Config
	Logf     func(format string, args ...any)
	// Metrics may be nil.
	Metrics *metrics.Metrics

	Strategy          assembly.Strategy
	Jobs              int
	ForceIntermediate bool
}

func (c Config) Validate() error {
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must be >= 0")
	}
	if c.Strategy != "" && c.Strategy != assembly.Reencode && c.Strategy != assembly.Intermediate {
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	s := c.Settings
	switch s.ASR.Backend {
	case "whispercpp":
		if s.Whisper.Model == "" {
			return fmt.Errorf("whisper model path is required")
		}
	default:
		if err := apiutil.ElevenLabs.Validate(s.ElevenLabs.BaseURL, s.ElevenLabs.AllowedHosts); err != nil {
			return err
		}
	}
	return apiutil.OpenRouter.Validate(s.OpenRouter.BaseURL, s.OpenRouter.AllowedHosts)
}

type Pipeline struct {
	cfg   Config
	logf  func(format string, args ...any)
	video ports.VideoTool
	uc    usecase.Usecase
}

// New validates cfg and wires the adapters it selects.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := cfg.Settings

	v := ffmpeg.New(s.Media.FFmpegPath, s.Media.FFprobePath)
	v.CommandTimeout = s.Media.CommandTimeout
	v.Observe = cfg.Metrics.ObserveCommand

	var asr ports.ASR
	switch s.ASR.Backend {
	case "whispercpp":
		asr = whispercpp.New(s.Whisper.Bin, s.Whisper.Model)
	default:
		asr = elevenlabs.New(s.ElevenLabs.APIKey, s.ElevenLabs.BaseURL)
	}
	planner := openrouter.New(openrouter.Options{
		APIKey:     s.OpenRouter.APIKey,
		Model:      s.OpenRouter.Model,
		BaseURL:    s.OpenRouter.BaseURL,
		MaxRetries: 2,
	})

	return build(cfg, usecase.Deps{
		Video:   v,
		Audio:   wavinfo.New(),
		ASR:     asr,
		Planner: planner,
	}), nil
}

func build(cfg Config, deps usecase.Deps) *Pipeline {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	deps.Metrics = cfg.Metrics
	return &Pipeline{
		cfg:   cfg,
		logf:  logf,
		video: deps.Video,
		uc:    usecase.New(deps),
	}
}

func (p *Pipeline) transcribeInput(video, outDir string) usecase.TranscribeInput {
	s := p.cfg.Settings
	opts := types.TranscribeOptions{
		ModelID:     s.ElevenLabs.ModelID,
		Diarize:     s.ElevenLabs.Diarize,
		Granularity: transcript.GranularityWord,
		NumSpeakers: s.ElevenLabs.NumSpeakers,
		// whisper.cpp honours the language hint too
		LanguageCode:         s.ElevenLabs.LanguageCode,
		DiarizationThreshold: s.ElevenLabs.DiarizationThreshold,
	}
	service := "elevenlabs"
	if s.ASR.Backend == "whispercpp" {
		service = "whispercpp"
		opts.ModelID = filepath.Base(s.Whisper.Model)
	}
	return usecase.TranscribeInput{
		VideoPath: video,
		OutDir:    outDir,
		Options:   opts,
		Segmentation: segments.Options{
			MaxGap:      s.Segmentation.MaxGap,
			MaxDuration: s.Segmentation.MaxDuration,
			MaxTokens:   s.Segmentation.MaxTokens,
			Labels:      types.SpeakerLabels(s.SpeakerLabels),
		},
		Service: service,
		Logf:    p.logf,
	}
}

// Transcribe writes the transcript files for video into outDir.
func (p *Pipeline) Transcribe(ctx context.Context, video, outDir string) (usecase.TranscribeResult, error) {
	return p.uc.Transcribe(ctx, p.transcribeInput(video, outDir))
}

// Plan asks the planning agent for cuts over an existing transcript file.
// outPath defaults to <stem>_plan.json next to the transcript.
func (p *Pipeline) Plan(ctx context.Context, transcriptPath, outPath string, instructions map[string]any) (usecase.PlanResult, error) {
	doc, err := ReadTranscript(transcriptPath)
	if err != nil {
		return usecase.PlanResult{}, err
	}
	if outPath == "" {
		outPath = filepath.Join(filepath.Dir(transcriptPath), assembly.Stem(doc.VideoPath)+"_plan.json")
	}
	return p.uc.Plan(ctx, usecase.PlanInput{
		Transcript:   doc,
		Instructions: instructions,
		OutPath:      outPath,
		Service:      "openrouter",
		Logf:         p.logf,
	})
}

type AssembleRequest struct {
	VideoPath string
	PlanPath  string
	OutDir    string
	// FinalOutput and TranscriptPath are optional.
	FinalOutput    string
	TranscriptPath string
}

func (p *Pipeline) Assemble(ctx context.Context, req AssembleRequest) (usecase.AssembleResult, error) {
	plan, err := ReadPlan(req.PlanPath)
	if err != nil {
		return usecase.AssembleResult{}, err
	}
	var doc *transcript.Document
	if req.TranscriptPath != "" {
		d, err := ReadTranscript(req.TranscriptPath)
		if err != nil {
			return usecase.AssembleResult{}, err
		}
		doc = &d
	}
	p.logf("plan: %d cuts (model %q)", len(plan.Cuts), plan.ModelVersion)
	return p.uc.Assemble(ctx, p.assembleInput(req.VideoPath, plan.Cuts, req.OutDir, req.FinalOutput, doc))
}

func (p *Pipeline) assembleInput(video string, cuts []types.CutInstruction, outDir, final string, doc *transcript.Document) usecase.AssembleInput {
	return usecase.AssembleInput{
		VideoPath:   video,
		Cuts:        cuts,
		Strategy:    p.cfg.Strategy,
		OutDir:      outDir,
		FinalOutput: final,
		Intermediate: assembly.IntermediateOptions{
			Encoder: p.cfg.Settings.Media.IntermediateEncoder,
			Force:   p.cfg.ForceIntermediate,
		},
		Jobs:       p.cfg.Jobs,
		Transcript: doc,
		Logf:       p.logf,
	}
}

type RunRequest struct {
	VideoPath string
	// PlanPath skips the planning agent when set.
	PlanPath     string
	Instructions map[string]any
}

type Manifest struct {
	Input        string   `json:"input"`
	RequestID    string   `json:"request_id,omitempty"`
	Transcript   string   `json:"transcript"`
	Captions     string   `json:"captions"`
	Plan         string   `json:"plan"`
	Intermediate string   `json:"intermediate,omitempty"`
	Clips        []string `json:"clips"`
	Output       string   `json:"output"`
}

// Run transcribes, plans and assembles into a fresh run directory under the
// configured output root and returns the path of the written manifest.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (string, error) {
	if req.VideoPath == "" {
		return "", errors.New("input is empty")
	}
	outRoot := p.cfg.Settings.OutDir
	if outRoot == "" {
		outRoot = "out"
	}
	runOutDir := buildRunOutDir(outRoot, req.VideoPath, time.Now().UTC())
	clipsDir := filepath.Join(runOutDir, "clips")
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return "", err
	}
	p.logf("output run dir: %s", runOutDir)

	tr, err := p.Transcribe(ctx, req.VideoPath, runOutDir)
	if err != nil {
		return "", err
	}

	m := Manifest{
		Input:      req.VideoPath,
		Transcript: rel(runOutDir, tr.JSONPath),
		Captions:   rel(runOutDir, tr.CaptionsPath),
	}

	var cuts []types.CutInstruction
	if req.PlanPath != "" {
		plan, err := ReadPlan(req.PlanPath)
		if err != nil {
			return "", err
		}
		cuts = plan.Cuts
		m.Plan = req.PlanPath
		p.logf("using plan %s (%d cuts)", req.PlanPath, len(cuts))
	} else {
		planPath := filepath.Join(runOutDir, assembly.Stem(req.VideoPath)+"_plan.json")
		pr, err := p.uc.Plan(ctx, usecase.PlanInput{
			Transcript:   tr.Document,
			Instructions: req.Instructions,
			OutPath:      planPath,
			Service:      "openrouter",
			Logf:         p.logf,
		})
		if err != nil {
			return "", err
		}
		cuts = pr.Plan.Cuts
		m.RequestID = pr.RequestID
		m.Plan = rel(runOutDir, pr.Path)
	}

	final := assembly.FinalOutputPath(runOutDir, assembly.Stem(req.VideoPath), p.strategy())
	ar, err := p.uc.Assemble(ctx, p.assembleInput(req.VideoPath, cuts, clipsDir, final, &tr.Document))
	if err != nil {
		return "", err
	}
	for _, c := range ar.Clips {
		m.Clips = append(m.Clips, rel(runOutDir, c))
	}
	m.Output = rel(runOutDir, ar.Output)
	if ar.Intermediate != "" {
		m.Intermediate = rel(runOutDir, ar.Intermediate)
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return "", err
	}
	p.logf("manifest written (%d clips): %s", len(m.Clips), manifestPath)
	return manifestPath, nil
}

type ProbeResult struct {
	Geometry types.Geometry
	Duration time.Duration
}

func (p *Pipeline) Probe(ctx context.Context, video string) (ProbeResult, error) {
	if _, err := os.Stat(video); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ProbeResult{}, fmt.Errorf("%s: %w", video, types.ErrInputNotFound)
		}
		return ProbeResult{}, fmt.Errorf("stat input: %w", err)
	}
	g, err := p.video.ProbeGeometry(ctx, video)
	if err != nil {
		return ProbeResult{}, err
	}
	d, err := p.video.ProbeDuration(ctx, video)
	if err != nil {
		return ProbeResult{}, err
	}
	return ProbeResult{Geometry: g, Duration: d}, nil
}

// Stack writes top over bottom as one vertical video. out defaults to
// <top stem>_<bottom stem>_stack.mp4 next to top.
func (p *Pipeline) Stack(ctx context.Context, top, bottom, out string) (string, error) {
	if out == "" {
		out = filepath.Join(filepath.Dir(top), assembly.Stem(top)+"_"+assembly.Stem(bottom)+"_stack.mp4")
	}
	return p.uc.Stack(ctx, usecase.StackInput{Top: top, Bottom: bottom, Output: out, Logf: p.logf})
}

func (p *Pipeline) strategy() assembly.Strategy {
	if p.cfg.Strategy == "" {
		return assembly.Reencode
	}
	return p.cfg.Strategy
}

func ReadTranscript(path string) (transcript.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return transcript.Document{}, fmt.Errorf("%s: %w", path, types.ErrInputNotFound)
		}
		return transcript.Document{}, err
	}
	defer f.Close()
	doc, err := transcript.Decode(f)
	if err != nil {
		return transcript.Document{}, fmt.Errorf("read transcript %s: %w", path, err)
	}
	return doc, nil
}

func ReadPlan(path string) (types.CutPlan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.CutPlan{}, fmt.Errorf("%s: %w", path, types.ErrInputNotFound)
		}
		return types.CutPlan{}, err
	}
	plan, err := cutplan.Parse(b)
	if err != nil {
		return types.CutPlan{}, fmt.Errorf("read plan %s: %w", path, err)
	}
	return plan, nil
}

// StripTokens writes the reduced variant of a full transcript file and returns
// the output path (<name>_notokens.json next to the input when out is empty).
func StripTokens(in, out string) (string, error) {
	b, err := os.ReadFile(in)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", in, types.ErrInputNotFound)
		}
		return "", err
	}
	reduced, err := transcript.StripTokens(b)
	if err != nil {
		return "", fmt.Errorf("strip tokens %s: %w", in, err)
	}
	if out == "" {
		out = filepath.Join(filepath.Dir(in), assembly.Stem(in)+"_notokens.json")
	}
	if err := os.WriteFile(out, append(reduced, '\n'), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

func rel(base, path string) string {
	if r, err := filepath.Rel(base, path); err == nil && !strings.HasPrefix(r, "..") {
		return filepath.ToSlash(r)
	}
	return path
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.AudioInspector = (*wavinfo.Inspector)(nil)
var _ ports.ASR = (*elevenlabs.Adapter)(nil)
var _ ports.ASR = (*whispercpp.Adapter)(nil)
var _ ports.Planner = (*openrouter.Adapter)(nil)
