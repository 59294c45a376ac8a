package assembly

import (
	"fmt"
	"math"

	"github.com/forPelevin/autocut/internal/types"
)

// Vertical stack canvas: two clips one above the other on a 4K portrait frame.
const (
	StackCanvasWidth  = 2160
	StackCanvasHeight = 3840
	StackPadding      = 103

	stackAspect = 1.1
)

// StackClipSize is the box each clip is scaled and letterboxed into.
func StackClipSize() (width, height int) {
	height = (StackCanvasHeight - 2*StackPadding) / 2
	width = int(math.Round(float64(height) * stackAspect))
	return width, height
}

func stackFilter() string {
	w, h := StackClipSize()
	fit := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1", w, h, w, h)
	return fmt.Sprintf("[0:v]%s[v0];[1:v]%s[v1];[v0][v1]vstack=inputs=2[stack];[stack]pad=%d:%d:(ow-iw)/2:%d:color=black[outv]",
		fit, fit, StackCanvasWidth, StackCanvasHeight, StackPadding)
}

// VerticalStackCommand composes top over bottom. Audio comes from the top clip
// when it has any; the output ends with the shorter input.
func VerticalStackCommand(top, bottom, output string) types.Command {
	return types.Command{
		Stage: "stack",
		Args: []string{
			"-y",
			"-i", top,
			"-i", bottom,
			"-filter_complex", stackFilter(),
			"-map", "[outv]",
			"-map", "0:a?",
			"-c:v", "libx264",
			"-preset", "fast",
			"-crf", "18",
			"-c:a", "aac",
			"-b:a", "192k",
			"-shortest",
			output,
		},
		Output: output,
	}
}
