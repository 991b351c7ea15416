package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cleitonmarx/teardown"
	"github.com/spf13/cobra"
)

func newSimulateCommand() *cobra.Command {
	var (
		taskDelay time.Duration
		failing   []string
		stalling  []string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Rehearse the shutdown with a synthetic task in every phase",
		Long: `Rehearse the shutdown with a synthetic task in every phase.

Each task sleeps for --task-delay. Tasks of the phases named by --fail return an
error, and tasks of the phases named by --stall block past the phase timeout.
The command exits with an error when the rehearsal aborts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, log, err := setup(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			td := newCoordinator(doc,
				teardown.WithLogger(log),
				teardown.WithProgress(func(pr teardown.PhaseResult) {
					_, _ = fmt.Fprintln(out, phaseLine(pr))
				}),
			)

			release := make(chan struct{})
			defer close(release)
			fail := toSet(failing)
			stall := toSet(stalling)
			for _, name := range doc.Phases.Names() {
				td.AddTask(name, "simulated-"+name, simulatedTask(taskDelay, fail[name], stall[name], release))
			}

			err = td.Shutdown(commandContext(cmd), teardown.ReasonRequested)
			if result := td.Run(teardown.ReasonRequested).Result(); result != nil {
				printSummary(out, result)
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&taskDelay, "task-delay", 100*time.Millisecond, "time each synthetic task takes")
	cmd.Flags().StringSliceVar(&failing, "fail", nil, "phases whose task returns an error")
	cmd.Flags().StringSliceVar(&stalling, "stall", nil, "phases whose task never finishes")
	return cmd
}

func simulatedTask(delay time.Duration, fail, stall bool, release <-chan struct{}) teardown.TaskFunc {
	return func(ctx context.Context) error {
		if stall {
			<-release
			return nil
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if fail {
			return fmt.Errorf("simulated failure")
		}
		return nil
	}
}

func phaseLine(pr teardown.PhaseResult) string {
	status := "ok"
	switch {
	case pr.Recovered():
		status = "recovered"
	case pr.Failed():
		status = "failed"
	}
	return fmt.Sprintf("%-8s %s (%s)", status, pr.Name, pr.Duration.Round(time.Millisecond))
}

func printSummary(out io.Writer, r *teardown.Result) {
	_, _ = fmt.Fprintf(out, "run %s: %d/%d phases in %s\n", r.RunID, len(r.Phases), len(r.Order), r.Duration.Round(time.Millisecond))
	if err := r.RecoveredErrors(); err != nil {
		_, _ = fmt.Fprintf(out, "recovered: %v\n", err)
	}
	if r.Err != nil {
		_, _ = fmt.Fprintf(out, "aborted: %v\n", r.Err)
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
