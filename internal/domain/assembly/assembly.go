// Package assembly turns validated cuts into media tool invocations: clip
// extraction, the optional ProRes intermediate and the final concat.
package assembly

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/forPelevin/autocut/internal/types"
)

type Strategy string

const (
	// Reencode seeks on the output side of the source and re-encodes each clip to H.264/AAC.
	Reencode Strategy = "reencode"
	// Intermediate stream-copies each clip out of a ProRes intermediate for frame-accurate cuts.
	Intermediate Strategy = "intermediate"
)

const (
	ManifestName = "cutlist_concat.txt"

	DefaultIntermediateEncoder = "prores_ks"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Reencode:
		return Reencode, nil
	case Intermediate, "prores":
		return Intermediate, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (want %s or %s)", s, Reencode, Intermediate)
	}
}

// Ext is the container extension used for clips and the final output.
func (s Strategy) Ext() string {
	if s == Intermediate {
		return "mov"
	}
	return "mp4"
}

func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ErrClipPath is returned when a cut id would produce an unusable clip path.
var ErrClipPath = errors.New("invalid clip path")

func ClipPath(outDir, sourceStem, cutID, ext string) string {
	return filepath.Join(outDir, fmt.Sprintf("%s_%s.%s", sourceStem, cutID, ext))
}

// FinalOutputPath is <stem>_auto_edit.<ext> inside outDir.
func FinalOutputPath(outDir, sourceStem string, s Strategy) string {
	return filepath.Join(outDir, fmt.Sprintf("%s_auto_edit.%s", sourceStem, s.Ext()))
}

func IntermediatePath(outDir, sourceStem string) string {
	return filepath.Join(outDir, sourceStem+"_prores.mov")
}

// ExtractionCommands returns one command per cut, in cut order, together with
// the clip paths those commands produce. input is the source video for
// Reencode and the intermediate file for Intermediate.
func ExtractionCommands(s Strategy, input, sourceStem string, cuts []types.CutInstruction, outDir string) ([]types.Command, []string, error) {
	cmds := make([]types.Command, 0, len(cuts))
	clips := make([]string, 0, len(cuts))
	owners := make(map[string]string, len(cuts))
	for _, c := range cuts {
		start, err := c.StartTimecode()
		if err != nil {
			return nil, nil, fmt.Errorf("cut %s start: %w", c.ID, err)
		}
		end, err := c.EndTimecode()
		if err != nil {
			return nil, nil, fmt.Errorf("cut %s end: %w", c.ID, err)
		}
		clip := ClipPath(outDir, sourceStem, c.ID, s.Ext())
		if filepath.Dir(clip) != filepath.Clean(outDir) {
			return nil, nil, fmt.Errorf("cut %q: clip %s is outside %s: %w", c.ID, clip, outDir, ErrClipPath)
		}
		if prev, ok := owners[clip]; ok {
			return nil, nil, fmt.Errorf("cuts %q and %q both write %s: %w", prev, c.ID, clip, ErrClipPath)
		}
		owners[clip] = c.ID

		var args []string
		switch s {
		case Reencode:
			args = []string{
				"-y",
				"-i", input,
				"-ss", start,
				"-to", end,
				"-c:v", "libx264",
				"-crf", "18",
				"-preset", "veryfast",
				"-c:a", "aac",
				"-b:a", "192k",
				"-movflags", "+faststart",
				clip,
			}
		case Intermediate:
			args = []string{
				"-y",
				"-ss", start,
				"-to", end,
				"-i", input,
				"-c", "copy",
				"-avoid_negative_ts", "make_zero",
				clip,
			}
		default:
			return nil, nil, fmt.Errorf("unknown strategy %q", s)
		}
		cmds = append(cmds, types.Command{Stage: "extract " + c.ID, Args: args, Output: clip})
		clips = append(clips, clip)
	}
	return cmds, clips, nil
}

type IntermediateOptions struct {
	// Encoder defaults to prores_ks. prores_videotoolbox works on macOS.
	Encoder string
	Force   bool
}

func IntermediateCommand(source, output string, opts IntermediateOptions) types.Command {
	enc := opts.Encoder
	if enc == "" {
		enc = DefaultIntermediateEncoder
	}
	overwrite := "-n"
	if opts.Force {
		overwrite = "-y"
	}
	return types.Command{
		Stage: "intermediate",
		Args: []string{
			overwrite,
			"-i", source,
			"-c:v", enc,
			"-profile:v", "3",
			"-pix_fmt", "yuv422p10le",
			"-c:a", "copy",
			output,
		},
		Output: output,
	}
}

// ConcatManifest renders the concat demuxer list. Quotes inside paths are
// closed, escaped and reopened.
func ConcatManifest(clips []string) string {
	var b strings.Builder
	for _, c := range clips {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(c, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

func ConcatCommand(manifestPath, output string) types.Command {
	return types.Command{
		Stage: "concat",
		Args: []string{
			"-y",
			"-f", "concat",
			"-safe", "0",
			"-i", manifestPath,
			"-c", "copy",
			output,
		},
		Output: output,
	}
}
