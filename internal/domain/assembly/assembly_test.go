package assembly

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/forPelevin/autocut/internal/types"
)

func testCuts() []types.CutInstruction {
	return []types.CutInstruction{
		{ID: "intro", StartMs: 2500, EndMs: 7759},
		{ID: "cut_0002", StartMs: 10_000, EndMs: 12_000},
		{ID: "outro", StartMs: 3_600_000, EndMs: 3_601_500},
	}
}

func TestExtractionCommands_Reencode(t *testing.T) {
	out := filepath.Join("out", "run")
	cmds, clips, err := ExtractionCommands(Reencode, "/videos/party.mp4", "party", testCuts(), out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cmds) != 3 || len(clips) != 3 {
		t.Fatalf("expected 3 commands and clips, got %d/%d", len(cmds), len(clips))
	}
	want := []string{
		"-y",
		"-i", "/videos/party.mp4",
		"-ss", "00:00:02.500",
		"-to", "00:00:07.759",
		"-c:v", "libx264",
		"-crf", "18",
		"-preset", "veryfast",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		filepath.Join(out, "party_intro.mp4"),
	}
	if !reflect.DeepEqual(cmds[0].Args, want) {
		t.Fatalf("unexpected args:\n got %q\nwant %q", cmds[0].Args, want)
	}
	for i, c := range cmds {
		if c.Output != clips[i] {
			t.Fatalf("command %d output %q does not match clip %q", i, c.Output, clips[i])
		}
	}
	if clips[2] != filepath.Join(out, "party_outro.mp4") {
		t.Fatalf("unexpected clip path %q", clips[2])
	}
	if got := cmds[2].Args[4]; got != "01:00:00.000" {
		t.Fatalf("expected hour timecode, got %q", got)
	}
}

func TestExtractionCommands_IntermediateSeeksBeforeInput(t *testing.T) {
	cmds, clips, err := ExtractionCommands(Intermediate, "out/party_prores.mov", "party", testCuts()[:1], "out")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"-y",
		"-ss", "00:00:02.500",
		"-to", "00:00:07.759",
		"-i", "out/party_prores.mov",
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		filepath.Join("out", "party_intro.mov"),
	}
	if !reflect.DeepEqual(cmds[0].Args, want) {
		t.Fatalf("unexpected args:\n got %q\nwant %q", cmds[0].Args, want)
	}
	if clips[0] != filepath.Join("out", "party_intro.mov") {
		t.Fatalf("clip must use the source stem, got %q", clips[0])
	}
}

func TestExtractionCommands_UnknownStrategy(t *testing.T) {
	if _, _, err := ExtractionCommands(Strategy("gpu"), "in.mp4", "in", testCuts(), "out"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestExtractionCommands_ClipPathChecks(t *testing.T) {
	tests := []struct {
		name string
		cuts []types.CutInstruction
	}{
		{"escapes out dir", []types.CutInstruction{{ID: "x/../../../../tmp/pwned", StartMs: 0, EndMs: 10}}},
		{"nested dir", []types.CutInstruction{{ID: "sub/intro", StartMs: 0, EndMs: 10}}},
		{"repeated id", []types.CutInstruction{{ID: "a", StartMs: 0, EndMs: 10}, {ID: "a", StartMs: 20, EndMs: 30}}},
		{"explicit id matches synthesized", []types.CutInstruction{{ID: "cut_0002", StartMs: 0, EndMs: 10}, {ID: "cut_0002", StartMs: 20, EndMs: 30}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds, _, err := ExtractionCommands(Reencode, "in.mp4", "party", tt.cuts, "/data/out/clips")
			if !errors.Is(err, ErrClipPath) {
				t.Fatalf("expected ErrClipPath, got %v (commands %v)", err, cmds)
			}
		})
	}
}

func TestConcat_ReferencesClipsInOrder(t *testing.T) {
	_, clips, err := ExtractionCommands(Reencode, "in.mp4", "in", testCuts(), "out")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	manifest := ConcatManifest(clips)
	lines := strings.Split(strings.TrimSuffix(manifest, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 manifest lines, got %d: %q", len(lines), manifest)
	}
	for i, l := range lines {
		if l != "file '"+clips[i]+"'" {
			t.Fatalf("line %d: got %q", i, l)
		}
	}

	cmd := ConcatCommand(filepath.Join("out", ManifestName), "out/in_auto_edit.mp4")
	want := []string{"-y", "-f", "concat", "-safe", "0", "-i", filepath.Join("out", ManifestName), "-c", "copy", "out/in_auto_edit.mp4"}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Fatalf("unexpected concat args: %q", cmd.Args)
	}
}

func TestConcatManifest_EscapesQuotes(t *testing.T) {
	got := ConcatManifest([]string{"/tmp/bob's party_cut.mp4"})
	want := "file '/tmp/bob'\\''s party_cut.mp4'\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestIntermediateCommand(t *testing.T) {
	cmd := IntermediateCommand("in.mp4", "out/in_prores.mov", IntermediateOptions{})
	want := []string{"-n", "-i", "in.mp4", "-c:v", "prores_ks", "-profile:v", "3", "-pix_fmt", "yuv422p10le", "-c:a", "copy", "out/in_prores.mov"}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Fatalf("unexpected args: %q", cmd.Args)
	}
	forced := IntermediateCommand("in.mp4", "x.mov", IntermediateOptions{Encoder: "prores_videotoolbox", Force: true})
	if forced.Args[0] != "-y" || forced.Args[4] != "prores_videotoolbox" {
		t.Fatalf("unexpected forced args: %q", forced.Args)
	}
}

func TestPathsAndStrategy(t *testing.T) {
	if got := FinalOutputPath("out", "party", Intermediate); got != filepath.Join("out", "party_auto_edit.mov") {
		t.Fatalf("unexpected final path %q", got)
	}
	if got := IntermediatePath("out", "party"); got != filepath.Join("out", "party_prores.mov") {
		t.Fatalf("unexpected intermediate path %q", got)
	}
	if Stem("/a/b/party.final.mp4") != "party.final" {
		t.Fatalf("unexpected stem")
	}
	for in, want := range map[string]Strategy{"": Reencode, "REENCODE": Reencode, "prores": Intermediate, "intermediate": Intermediate} {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Fatalf("ParseStrategy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseStrategy("gpu"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestVerticalStackCommand(t *testing.T) {
	w, h := StackClipSize()
	if w != 1999 || h != 1817 {
		t.Fatalf("unexpected clip box %dx%d", w, h)
	}

	cmd := VerticalStackCommand("top.mp4", "bottom.mp4", "out/stack.mp4")
	if cmd.Stage != "stack" || cmd.Output != "out/stack.mp4" {
		t.Fatalf("unexpected command %+v", cmd)
	}
	want := []string{
		"-y",
		"-i", "top.mp4",
		"-i", "bottom.mp4",
		"-filter_complex",
		"[0:v]scale=1999:1817:force_original_aspect_ratio=decrease,pad=1999:1817:(ow-iw)/2:(oh-ih)/2,setsar=1[v0];" +
			"[1:v]scale=1999:1817:force_original_aspect_ratio=decrease,pad=1999:1817:(ow-iw)/2:(oh-ih)/2,setsar=1[v1];" +
			"[v0][v1]vstack=inputs=2[stack];" +
			"[stack]pad=2160:3840:(ow-iw)/2:103:color=black[outv]",
		"-map", "[outv]",
		"-map", "0:a?",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "18",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"out/stack.mp4",
	}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Fatalf("unexpected args:\n got %q\nwant %q", cmd.Args, want)
	}
}
