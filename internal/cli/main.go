package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultTimeout = 3 * time.Hour

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "autocut",
		Short:         "Edit a recorded video from its diarized transcript and a cut plan",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (default $XDG_CONFIG_HOME/autocut/config.toml)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: console or json")
	pf.String("metrics-file", "", "Write Prometheus metrics to this textfile when the command ends")
	pf.Duration("timeout", defaultTimeout, "Overall time limit for the command")

	root.AddCommand(
		newTranscribeCmd(),
		newPlanCmd(),
		newAssembleCmd(),
		newRunCmd(),
		newStripTokensCmd(),
		newStackCmd(),
		newProbeCmd(),
	)
	return root
}
