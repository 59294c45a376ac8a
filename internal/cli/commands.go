package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forPelevin/autocut/internal/pipeline"
)

func newTranscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <video>",
		Short: "Transcribe a video into speaker-attributed segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, s settingsView) error {
				in, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				outDir, _ := cmd.Flags().GetString("out")
				if outDir == "" {
					outDir = s.OutDir
				}
				res, err := p.Transcribe(ctx, in, outDir)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "transcript: %s\n", res.JSONPath)
				fmt.Fprintf(out, "reduced: %s\n", res.ReducedPath)
				fmt.Fprintf(out, "captions: %s\n", res.CaptionsPath)
				fmt.Fprintf(out, "segments: %d\n", len(res.Document.Segments))
				return nil
			})
		},
	}
	cmd.Flags().String("out", "", "Directory for the transcript files (default: configured out dir)")
	addTranscribeFlags(cmd)
	return cmd
}

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <transcript.json>",
		Short: "Ask the planning agent for a cut plan over a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, _ settingsView) error {
				instructions, err := readInstructions(cmd)
				if err != nil {
					return err
				}
				outPath, _ := cmd.Flags().GetString("out")
				res, err := p.Plan(ctx, args[0], outPath, instructions)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "plan: %s\nrequest: %s\ncuts: %d\n", res.Path, res.RequestID, len(res.Plan.Cuts))
				return nil
			})
		},
	}
	cmd.Flags().String("out", "", "Plan file (default <stem>_plan.json next to the transcript)")
	addInstructionFlags(cmd)
	return cmd
}

func newAssembleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assemble <video> <plan.json>",
		Short: "Cut and concatenate the clips a plan describes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, s settingsView) error {
				in, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				outDir, _ := cmd.Flags().GetString("out")
				if outDir == "" {
					outDir = filepath.Join(s.OutDir, "clips")
				}
				final, _ := cmd.Flags().GetString("output")
				tr, _ := cmd.Flags().GetString("transcript")
				res, err := p.Assemble(ctx, pipeline.AssembleRequest{
					VideoPath:      in,
					PlanPath:       args[1],
					OutDir:         outDir,
					FinalOutput:    final,
					TranscriptPath: tr,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "clips: %d\noutput: %s\n", len(res.Clips), res.Output)
				return nil
			})
		},
	}
	cmd.Flags().String("out", "", "Directory for the extracted clips (default: <out dir>/clips)")
	cmd.Flags().String("output", "", "Final video path (default <clips dir>/<stem>_auto_edit.<ext>)")
	cmd.Flags().String("transcript", "", "Transcript used to describe cuts in the log")
	addAssemblyFlags(cmd)
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <video>",
		Short: "Transcribe, plan and assemble in one go",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, _ settingsView) error {
				in, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				planPath, _ := cmd.Flags().GetString("plan")
				instructions, err := readInstructions(cmd)
				if err != nil {
					return err
				}
				manifest, err := p.Run(ctx, pipeline.RunRequest{
					VideoPath:    in,
					PlanPath:     planPath,
					Instructions: instructions,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "manifest: %s\n", manifest)
				return nil
			})
		},
	}
	cmd.Flags().String("out", "", "Output root; each run gets its own directory (default: configured out dir)")
	cmd.Flags().String("plan", "", "Use this cut plan instead of asking the planning agent")
	addTranscribeFlags(cmd)
	addInstructionFlags(cmd)
	addAssemblyFlags(cmd)
	return cmd
}

func newStripTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strip-tokens <transcript.json>",
		Short: "Write a copy of a transcript without per-token detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			path, err := pipeline.StripTokens(args[0], out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().String("out", "", "Output file (default <name>_notokens.json next to the input)")
	return cmd
}

func newStackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stack <top> <bottom>",
		Short: "Stack two clips into one vertical 4K video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, _ settingsView) error {
				out, _ := cmd.Flags().GetString("output")
				path, err := p.Stack(ctx, args[0], args[1], out)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	cmd.Flags().String("output", "", "Output file (default <top>_<bottom>_stack.mp4 next to the top clip)")
	return cmd
}

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <video>",
		Short: "Print the frame size and duration of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, _ settingsView) error {
				res, err := p.Probe(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%dx%d %.3fs\n", res.Geometry.Width, res.Geometry.Height, res.Duration.Seconds())
				return nil
			})
		},
	}
}
