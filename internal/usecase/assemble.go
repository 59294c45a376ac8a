package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/autocut/internal/domain/assembly"
	"github.com/forPelevin/autocut/internal/domain/transcript"
	"github.com/forPelevin/autocut/internal/types"
)

type AssembleInput struct {
	VideoPath string
	Cuts      []types.CutInstruction
	Strategy  assembly.Strategy
	// OutDir receives the clips.
	OutDir string
	// FinalOutput defaults to <OutDir>/<stem>_auto_edit.<ext>.
	FinalOutput string
	// IntermediatePath defaults to <OutDir>/<stem>_prores.mov.
	IntermediatePath string
	Intermediate     assembly.IntermediateOptions
	// Jobs > 1 extracts clips concurrently.
	Jobs int
	// Transcript, when set, is used to describe cuts in the log.
	Transcript *transcript.Document
	Logf       Logf
}

type AssembleResult struct {
	Clips        []string
	Manifest     string
	Output       string
	Intermediate string
}

func (u Usecase) Assemble(ctx context.Context, in AssembleInput) (AssembleResult, error) {
	logf := in.Logf.orNop()
	defer u.stage("assemble")()

	if err := requireFile(in.VideoPath); err != nil {
		return AssembleResult{}, err
	}
	if len(in.Cuts) == 0 {
		return AssembleResult{}, errors.New("no cuts to assemble")
	}
	strategy := in.Strategy
	if strategy == "" {
		strategy = assembly.Reencode
	}
	// The concat demuxer resolves relative entries against the manifest's
	// directory, so every path handed to ffmpeg is made absolute.
	outDir, err := filepath.Abs(in.OutDir)
	if err != nil {
		return AssembleResult{}, err
	}
	stem := assembly.Stem(in.VideoPath)
	final := in.FinalOutput
	if final == "" {
		final = assembly.FinalOutputPath(outDir, stem, strategy)
	}
	if final, err = filepath.Abs(final); err != nil {
		return AssembleResult{}, err
	}
	for _, dir := range []string{outDir, filepath.Dir(final)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return AssembleResult{}, err
		}
	}

	res := AssembleResult{Output: final}
	source := in.VideoPath
	if strategy == assembly.Intermediate {
		path := in.IntermediatePath
		if path == "" {
			path = assembly.IntermediatePath(outDir, stem)
		}
		if path, err = filepath.Abs(path); err != nil {
			return AssembleResult{}, err
		}
		if err := u.ensureIntermediate(ctx, in.VideoPath, path, in.Intermediate, logf); err != nil {
			return AssembleResult{}, err
		}
		res.Intermediate = path
		source = path
	}

	cmds, clips, err := assembly.ExtractionCommands(strategy, source, stem, in.Cuts, outDir)
	if err != nil {
		return AssembleResult{}, err
	}
	for _, c := range in.Cuts {
		logf("cut %s: %s", c.ID, describeCut(c, in.Transcript))
	}

	done := u.stage("extract")
	err = u.runAll(ctx, cmds, in.Jobs, logf)
	done()
	if err != nil {
		return AssembleResult{}, err
	}
	res.Clips = clips
	u.d.Metrics.AddCuts(len(clips))

	res.Manifest = filepath.Join(filepath.Dir(final), assembly.ManifestName)
	if err := writeFile(res.Manifest, []byte(assembly.ConcatManifest(clips))); err != nil {
		return AssembleResult{}, err
	}
	logf("concatenating %d clips", len(clips))
	if err := u.d.Video.Run(ctx, assembly.ConcatCommand(res.Manifest, final)); err != nil {
		return AssembleResult{}, err
	}
	logf("final video: %s", final)
	return res, nil
}

func (u Usecase) ensureIntermediate(ctx context.Context, source, path string, opts assembly.IntermediateOptions, logf Logf) error {
	if !opts.Force {
		if _, err := os.Stat(path); err == nil {
			logf("reusing intermediate: %s", path)
			return nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	logf("transcoding intermediate: %s", path)
	defer u.stage("intermediate")()
	return u.d.Video.Run(ctx, assembly.IntermediateCommand(source, path, opts))
}

// runAll stops at the first failure. Clips already written are left in place.
func (u Usecase) runAll(ctx context.Context, cmds []types.Command, jobs int, logf Logf) error {
	if jobs <= 1 {
		for i, c := range cmds {
			logf("extracting %d/%d: %s", i+1, len(cmds), filepath.Base(c.Output))
			if err := u.d.Video.Run(ctx, c); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, c := range cmds {
		i, c := i, c
		g.Go(func() error {
			logf("extracting %d/%d: %s", i+1, len(cmds), filepath.Base(c.Output))
			return u.d.Video.Run(gctx, c)
		})
	}
	return g.Wait()
}

func describeCut(c types.CutInstruction, doc *transcript.Document) string {
	start, _ := c.StartTimecode()
	end, _ := c.EndTimecode()
	s := fmt.Sprintf("%s -> %s", start, end)
	if c.SourceSegmentID != nil {
		s += " [" + *c.SourceSegmentID
		if doc != nil {
			if seg, ok := doc.SegmentByID(*c.SourceSegmentID); ok {
				s += " " + seg.SpeakerLabel + ": " + truncate(seg.Content(), 60)
			}
		}
		s += "]"
	}
	if c.Justification != nil {
		s += " " + *c.Justification
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

type StackInput struct {
	Top    string
	Bottom string
	Output string
	Logf   Logf
}

// Stack composes two clips into one vertical 4K video, top over bottom.
func (u Usecase) Stack(ctx context.Context, in StackInput) (string, error) {
	logf := in.Logf.orNop()
	defer u.stage("stack")()

	for _, p := range []string{in.Top, in.Bottom} {
		if err := requireFile(p); err != nil {
			return "", err
		}
	}
	if in.Output == "" {
		return "", errors.New("stack output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(in.Output), 0o755); err != nil {
		return "", err
	}
	logf("stacking %s over %s", filepath.Base(in.Top), filepath.Base(in.Bottom))
	if err := u.d.Video.Run(ctx, assembly.VerticalStackCommand(in.Top, in.Bottom, in.Output)); err != nil {
		return "", err
	}
	logf("stacked video: %s", in.Output)
	return in.Output, nil
}
