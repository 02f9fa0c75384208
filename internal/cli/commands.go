package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/hperssn/physiovr/internal/domain"
	"github.com/hperssn/physiovr/internal/platform/logging"
	"github.com/hperssn/physiovr/internal/runner"
)

type options struct {
	catalogPath string
	logLevel    string
}

// NewRootCmd builds the physiovr command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "physiovr",
		Short:         "Guided physiotherapy exercise sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "YAML file with extra exercises")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newExercisesCmd(opts), newRunCmd(opts))
	return root
}

func newExercisesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "exercises",
		Short: "List available exercises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := domain.LoadCatalog(opts.catalogPath)
			if err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, e := range catalog.List() {
				fmt.Fprintln(out, renderExercise(e))
			}
			return nil
		},
	}
}

func newRunCmd(opts *options) *cobra.Command {
	var (
		unit      time.Duration
		countdown int
	)

	cmd := &cobra.Command{
		Use:   "run <exercise>",
		Short: "Run a guided exercise session in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := domain.LoadCatalog(opts.catalogPath)
			if err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}

			logger := logging.New(cmd.ErrOrStderr(), opts.logLevel, "text")
			machine := runner.NewMachine("terminal", catalog,
				runner.WithUnit(unit),
				runner.WithCountdown(countdown),
				runner.WithLogger(logger),
			)
			defer machine.Close()

			return runSession(cmd.Context(), machine, domain.ExerciseID(args[0]), cmd.OutOrStdout(), logger)
		},
	}
	cmd.Flags().DurationVar(&unit, "unit", runner.DefaultUnit, "wall-clock length of one exercise second")
	cmd.Flags().IntVar(&countdown, "countdown", runner.DefaultCountdown, "countdown before the exercise starts")
	return cmd
}

// runSession drives machine through one exercise and renders every
// transition to out. Cancelling ctx exits the session.
func runSession(ctx context.Context, machine *runner.Machine, id domain.ExerciseID, out io.Writer, logger *slog.Logger) error {
	events, release := machine.Subscribe()
	defer release()

	if err := machine.SelectExercise(id); err != nil {
		return fmt.Errorf("cannot select %q: %w", id, err)
	}
	if err := machine.EnterVR(); err != nil {
		return err
	}
	if err := machine.StartExercise(); err != nil {
		return err
	}

	// events may be dropped under load; the poll catches a missed completion
	poll := time.NewTicker(100 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Type {
			case runner.EventCountdown:
				fmt.Fprintln(out, renderCountdown(ev.Snapshot.Countdown))
			case runner.EventStarted, runner.EventStep:
				if ev.Snapshot.Active {
					fmt.Fprintln(out, renderStep(ev.Snapshot))
				}
			case runner.EventCompleted:
				fmt.Fprintln(out, renderComplete(ev.Snapshot))
				return nil
			}

		case <-poll.C:
			if s := machine.Snapshot(); s.Phase == domain.PhaseComplete {
				fmt.Fprintln(out, renderComplete(s))
				return nil
			}

		case <-ctx.Done():
			logger.Info("session interrupted", "exercise", id)
			if err := machine.ExitVR(); err != nil {
				return err
			}
			return ctx.Err()
		}
	}
}
