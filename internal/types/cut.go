package types

import "github.com/forPelevin/autocut/internal/domain/timecode"

type CutInstruction struct {
	ID              string
	StartMs         int64
	EndMs           int64
	SourceSegmentID *string
	Justification   *string
}

func (c CutInstruction) DurationMs() int64 { return c.EndMs - c.StartMs }

func (c CutInstruction) StartTimecode() (string, error) { return timecode.FromMillis(c.StartMs) }

func (c CutInstruction) EndTimecode() (string, error) { return timecode.FromMillis(c.EndMs) }

type CutPlan struct {
	ModelVersion string
	GeneratedAt  string
	Notes        string
	Cuts         []CutInstruction
}
