// Package cutplan validates externally authored edit plans and normalizes them
// into cut instructions. Cuts keep their input order; overlapping or
// out-of-source ranges are not rejected here.
package cutplan

import (
	"fmt"
	"math"
	"unicode"

	"github.com/tidwall/gjson"

	"github.com/forPelevin/autocut/internal/types"
)

// Validate returns the normalized cuts of raw, or the first rule violation.
func Validate(raw []byte) ([]types.CutInstruction, error) {
	p, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return p.Cuts, nil
}

// Parse is Validate plus the plan metadata.
func Parse(raw []byte) (types.CutPlan, error) {
	if !gjson.ValidBytes(raw) {
		return types.CutPlan{}, &PlanStructureError{Reason: "plan is not valid JSON"}
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return types.CutPlan{}, &PlanStructureError{Reason: "plan must be an object"}
	}
	cuts := root.Get("cuts")
	if !cuts.IsArray() || len(cuts.Array()) == 0 {
		return types.CutPlan{}, &PlanStructureError{Reason: "plan must include a non-empty 'cuts' list"}
	}

	plan := types.CutPlan{
		ModelVersion: root.Get("model_version").String(),
		GeneratedAt:  root.Get("generated_at").String(),
		Notes:        root.Get("notes").String(),
	}
	for i, c := range cuts.Array() {
		ci, err := parseCut(i+1, c)
		if err != nil {
			return types.CutPlan{}, err
		}
		plan.Cuts = append(plan.Cuts, ci)
	}
	return plan, nil
}

// CutID is the id given to the n-th (1-based) cut when the plan omits one.
func CutID(ordinal int) string { return fmt.Sprintf("cut_%04d", ordinal) }

func parseCut(index int, c gjson.Result) (types.CutInstruction, error) {
	if !c.IsObject() {
		return types.CutInstruction{}, &CutStructureError{Index: index}
	}

	id := CutID(index)
	if v := c.Get("cut_id"); v.Type == gjson.String && v.Str != "" {
		id = v.Str
		if !safeID(id) {
			return types.CutInstruction{}, &CutIDError{CutID: id}
		}
	}

	start, end := c.Get("start_ms"), c.Get("end_ms")
	if start.Type != gjson.Number || end.Type != gjson.Number {
		return types.CutInstruction{}, &CutBoundsTypeError{CutID: id}
	}
	startMs := int64(math.Trunc(start.Num))
	endMs := int64(math.Trunc(end.Num))
	if startMs < 0 || endMs <= startMs {
		return types.CutInstruction{}, &CutBoundsRangeError{CutID: id, StartMs: startMs, EndMs: endMs}
	}

	return types.CutInstruction{
		ID:              id,
		StartMs:         startMs,
		EndMs:           endMs,
		SourceSegmentID: optionalString(c.Get("source_segment_id")),
		Justification:   optionalString(c.Get("justification")),
	}, nil
}

// safeID reports whether id can be embedded in a clip file name without
// leaving the clip directory.
func safeID(id string) bool {
	if id == "." || id == ".." {
		return false
	}
	for _, r := range id {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

func optionalString(v gjson.Result) *string {
	if v.Type != gjson.String {
		return nil
	}
	s := v.Str
	return &s
}
