package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/huangsam/prosoul/core"
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

// scheduleCmd runs assessments on a cron schedule.
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run assess-and-publish on a cron schedule",
	Long: `Run the assess command repeatedly on the --cron schedule until interrupted.

Relative dates such as "1 year ago" are resolved again before every run.
A run that is still going when the next one is due is skipped.

Examples:
  # Nightly at midnight (default)
  prosoul schedule --model health --history-backend sqlite

  # Every six hours over the last year
  prosoul schedule --model health --cron "0 */6 * * *" --from-date "1 year ago" --to-date "0 days ago"`,
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		if cfg.Model == "" {
			return errors.New("--model is required")
		}
		sched, err := contract.ParseCron(cfg.CronSpec)
		if err != nil {
			return err
		}

		deps, cleanup, err := openDeps(cfg, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := cronLogger{l: slog.Default()}
		c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
		c.Schedule(sched, scheduledJob(ctx, cfg, input, deps))
		c.Start()
		_, _ = fmt.Fprintf(os.Stderr, "⏰ prosoul: Assessing %s on %q, next run %s\n",
			cfg.Model, cfg.CronSpec, sched.Next(time.Now()).Format(time.RFC3339))

		<-ctx.Done()
		_, _ = fmt.Fprintln(os.Stderr, "🛑 Waiting for the running assessment to finish")
		<-c.Stop().Done()
		return nil
	},
}

// scheduledJob assesses with a fresh copy of base whose window is resolved at run time.
func scheduledJob(ctx context.Context, base *contract.Config, raw *contract.ConfigRawInput, deps core.Deps) cron.Job {
	return cron.FuncJob(func() {
		runCfg, err := scheduledConfig(base, raw, time.Now())
		if err != nil {
			slog.Error("scheduled assessment skipped", "model", base.Model, "error", err)
			return
		}
		result, err := core.ExecuteAssess(ctx, runCfg, deps)
		if err != nil {
			slog.Error("scheduled assessment failed", "model", runCfg.Model, "error", err)
			return
		}
		slog.Info("scheduled assessment finished", "model", result.Model, "run_id", result.RunID, "published", result.Published)
	})
}

// scheduledConfig clones base and re-resolves the date range against now.
func scheduledConfig(base *contract.Config, raw *contract.ConfigRawInput, now time.Time) (*contract.Config, error) {
	from, to := raw.FromDate, raw.ToDate
	if strings.TrimSpace(from) == "" {
		from = contract.DefaultFromDate
	}
	if strings.TrimSpace(to) == "" {
		to = contract.DefaultToDate
	}
	start, err := contract.ParseDate(from, now)
	if err != nil {
		return nil, fmt.Errorf("invalid --from-date: %w", err)
	}
	end, err := contract.ParseDate(to, now)
	if err != nil {
		return nil, fmt.Errorf("invalid --to-date: %w", err)
	}
	if start.After(end) {
		return nil, fmt.Errorf("from date (%s) cannot be after to date (%s)", contract.FormatDate(start), contract.FormatDate(end))
	}
	return base.CloneWithTimeWindow(start, end), nil
}

// cronLogger routes scheduler logs to slog. Routine messages are debug level.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
