// File: cmd/run.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/feedwalker/internal/config"
	"github.com/xkilldash9x/feedwalker/internal/observability"
	"github.com/xkilldash9x/feedwalker/internal/scenario"
)

func newRunCmd(factory ComponentFactory) *cobra.Command {
	var (
		durations     string
		interarrivals string
		targetURL     string
		opts          RunOptions
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a schedule of simulated browsing sessions",
		Long: `Runs one browser session per schedule entry. Each session signs in, then
alternates between browsing a random search result and messaging a random
contact until its duration is used up. After the browser is closed the
matching interarrival gap is slept before the next session starts.

Durations and interarrivals are comma-separated seconds of equal length.
The account is read from FACEBOOK_EMAIL1 and FACEBOOK_PASSWORD1, which may
be provided through an env file.`,
		Example: `  feedwalker run --durations 300,120 --interarrivals 60,60`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			schedule, err := scenario.ParseSchedule(durations, interarrivals)
			if err != nil {
				return err
			}
			if targetURL != "" {
				logger.Debug("Ignoring --url, the landing page comes from site.landing_url", zap.String("url", targetURL))
			}

			components, err := factory.Create(ctx, config.Get(), opts)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}

			logger.Info("Starting run",
				zap.String("version", Version),
				zap.Int("sessions", len(schedule)),
				zap.Int64("seed", components.Seed),
			)

			report, err := components.Runner.Run(ctx, schedule)
			fields := []zap.Field{
				zap.Int("sessions", report.Sessions),
				zap.Int("iterations", report.Iterations),
				zap.Int("browses", report.Browses),
				zap.Int("messages", report.Messages),
				zap.Any("failures", report.Failures),
			}
			if err != nil {
				if ctx.Err() != nil {
					logger.Warn("Run interrupted", fields...)
				}
				return err
			}
			logger.Info("Run complete", fields...)
			return nil
		},
	}

	runCmd.Flags().StringVar(&durations, "durations", "", "comma-separated session durations in seconds (required)")
	runCmd.Flags().StringVar(&interarrivals, "interarrivals", "", "comma-separated gaps between sessions in seconds (required)")
	runCmd.Flags().StringVar(&targetURL, "url", "", "accepted for compatibility with other profiles; unused")
	runCmd.Flags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file holding the account credentials")
	runCmd.Flags().Int64Var(&opts.Seed, "seed", 0, "seed for every random choice (0 picks one from the clock)")
	_ = runCmd.MarkFlagRequired("durations")
	_ = runCmd.MarkFlagRequired("interarrivals")

	return runCmd
}
