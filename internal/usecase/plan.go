package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"
	"github.com/tidwall/pretty"

	"github.com/forPelevin/autocut/internal/domain/cutplan"
	"github.com/forPelevin/autocut/internal/domain/transcript"
	"github.com/forPelevin/autocut/internal/types"
)

type PlanInput struct {
	Transcript   transcript.Document
	Instructions map[string]any
	// OutPath receives the validated plan. Nothing is written when empty.
	OutPath string
	Service string
	Logf    Logf
}

type PlanResult struct {
	RequestID string
	Plan      types.CutPlan
	Path      string
}

func NewRequestID() string { return "ai_cut_" + ulid.Make().String() }

// Plan sends the reduced transcript to the planning agent and validates the answer.
func (u Usecase) Plan(ctx context.Context, in PlanInput) (PlanResult, error) {
	logf := in.Logf.orNop()
	defer u.stage("plan")()

	reduced, err := transcript.Marshal(in.Transcript, transcript.WithoutTokens)
	if err != nil {
		return PlanResult{}, fmt.Errorf("marshal transcript: %w", err)
	}
	req := types.PlanRequest{
		RequestID:    NewRequestID(),
		VideoPath:    in.Transcript.VideoPath,
		Transcript:   reduced,
		Instructions: in.Instructions,
	}
	logf("requesting cut plan %s (%d segments)", req.RequestID, len(in.Transcript.Segments))
	raw, err := u.d.Planner.Plan(ctx, req)
	u.d.Metrics.ObserveAPI(in.Service, err)
	if err != nil {
		return PlanResult{}, err
	}

	plan, err := cutplan.Parse(raw)
	if err != nil {
		return PlanResult{}, fmt.Errorf("plan %s: %w", req.RequestID, err)
	}
	logf("plan %s: %d cuts", req.RequestID, len(plan.Cuts))

	res := PlanResult{RequestID: req.RequestID, Plan: plan}
	if in.OutPath == "" {
		return res, nil
	}
	if err := os.MkdirAll(filepath.Dir(in.OutPath), 0o755); err != nil {
		return PlanResult{}, err
	}
	if err := writeFile(in.OutPath, pretty.Pretty(raw)); err != nil {
		return PlanResult{}, err
	}
	res.Path = in.OutPath
	return res, nil
}
