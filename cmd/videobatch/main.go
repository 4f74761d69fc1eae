package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tacusci/logging/v2"
	"github.com/tauraamui/videobatch/pkg/batch"
	_ "github.com/tauraamui/videobatch/pkg/batch/commands"
	"github.com/tauraamui/videobatch/pkg/config"
	"github.com/tauraamui/videobatch/pkg/log"
	"github.com/tauraamui/videobatch/pkg/runlog"
	"github.com/tauraamui/videobatch/pkg/videobackend"
)

var (
	showElapsed  bool
	hideProgress bool
)

var rootCmd = &cobra.Command{
	Use:           "videobatch <config file>",
	Short:         "Applies a frame conversion command to a batch of video files",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			printCommandCatalogue(cmd)
			os.Exit(1)
		}
		return run(cmd, args[0])
	},
}

func printCommandCatalogue(cmd *cobra.Command) {
	out := cmd.OutOrStderr()
	fmt.Fprintln(out, cmd.UsageString())
	fmt.Fprintln(out, "Available commands:")
	for _, d := range batch.Descriptors() {
		fmt.Fprintf(out, "  %-12s %s\n", d.Name, d.Doc)
	}
}

func run(cmd *cobra.Command, configPath string) error {
	osFs := afero.NewOsFs()

	values, err := config.Load(osFs, configPath)
	if err != nil {
		return err
	}

	sources, err := values.ExpandSources(osFs)
	if err != nil {
		return err
	}

	runner := batch.Runner{
		Backend:  videobackend.Resolve(values.Backend),
		Fs:       osFs,
		Progress: !hideProgress,
	}

	if len(values.RunLog) > 0 {
		repo, err := runlog.Open(values.RunLog)
		if err != nil {
			return err
		}
		defer repo.Close()
		runner.Journal = repo
	}

	start := time.Now()
	summary, err := runner.Run(cmd.Context(), values.Command, sources, values.Options)
	if err != nil {
		return err
	}
	if showElapsed {
		log.Info("elapsed: %s", time.Since(start).Round(time.Millisecond))
	}

	if summary.Failed() {
		return fmt.Errorf("%d of %d file(s) failed", summary.Errored, summary.Processed)
	}
	log.Info("%d file(s) processed", summary.Processed)
	return nil
}

func init() {
	rootCmd.Flags().BoolVar(&showElapsed, "elapsed", false, "log the total processing time once the run finishes")
	rootCmd.Flags().BoolVar(&hideProgress, "no-progress", false, "disable the per-file progress bar")

	switch strings.ToLower(os.Getenv("VIDEOBATCH_LOGGING_LEVEL")) {
	case "silent":
		log.SetLevel(log.SilentLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}
}
