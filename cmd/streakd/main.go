package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	contentadapter "github.com/streakd/streakd/internal/adapter/driven/content"
	githubadapter "github.com/streakd/streakd/internal/adapter/driven/github"
	sqliteadapter "github.com/streakd/streakd/internal/adapter/driven/sqlite"
	"github.com/streakd/streakd/internal/application"
	"github.com/streakd/streakd/internal/config"
	"github.com/streakd/streakd/internal/domain/model"
)

var accountName string

var rootCmd = &cobra.Command{
	Use:   "streakd",
	Short: "Scheduled multi-account GitHub auto-commit daemon",
	Long: `streakd runs a commit → pull request → merge → branch-cleanup sequence
for multiple independently-configured GitHub accounts on per-account schedules,
staggering and retrying operations so accounts sharing a destination repository
do not collide.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler daemon",
	Long: `Start the trigger clock, worker pool, and config reloader, and run until
interrupted. SIGHUP reloads the accounts file immediately; it is also watched
for changes and re-checked periodically.`,
	RunE: runDaemon,
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run the commit sequence immediately",
	Long:  `Execute the commit sequence once for one account (--account) or for all enabled accounts, bypassing the schedule.`,
	RunE:  runOnce,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the accounts configuration",
	RunE:  runValidate,
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent job results",
	RunE:  runHistory,
}

func init() {
	onceCmd.Flags().StringVar(&accountName, "account", "", "run only this account")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of jobs to show")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	_ = godotenv.Load() // a .env file is optional

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	accounts, err := config.LoadAccounts(cfg.AccountsPath)
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"accounts_path", cfg.AccountsPath,
		"db_path", cfg.DBPath,
		"accounts", len(accounts),
		"max_workers", cfg.MaxWorkers,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	history := sqliteadapter.NewJobHistoryRepo(db)
	registry := application.NewRegistry(accounts)
	policies := application.DefaultPolicies()
	retrier := application.NewRetrier(nil)
	sequencer := application.NewSequencer(githubadapter.NewFactory(), contentadapter.NewGenerator(), retrier, policies)

	coordinator := application.NewCoordinator(sequencer, history, cfg.MaxWorkers, policies)
	coordinator.Start(ctx)

	clock := application.NewTriggerClock(registry, coordinator.Enqueue, history, cfg.TickInterval)
	go clock.Start(ctx)

	reloader := application.NewReloader(registry, func() ([]model.Account, error) {
		return config.LoadAccounts(cfg.AccountsPath)
	}, cfg.ReloadInterval)
	go reloader.Start(ctx, cfg.AccountsPath)

	// SIGHUP reloads immediately, independent of the watch and the poll.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				slog.Info("SIGHUP received, reloading configuration")
				_ = reloader.Reload(ctx)
			}
		}
	}()

	slog.Info("streakd started", "tick_interval", cfg.TickInterval, "reload_interval", cfg.ReloadInterval)

	<-ctx.Done()
	slog.Info("shutting down, waiting for in-flight jobs")
	coordinator.Wait()
	slog.Info("shutdown complete")
	return nil
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	accounts, err := config.LoadAccounts(cfg.AccountsPath)
	if err != nil {
		return err
	}

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	registry := application.NewRegistry(accounts)
	policies := application.DefaultPolicies()
	sequencer := application.NewSequencer(githubadapter.NewFactory(), contentadapter.NewGenerator(), application.NewRetrier(nil), policies)
	history := sqliteadapter.NewJobHistoryRepo(db)

	jobs, err := application.RunOnce(cmd.Context(), registry, sequencer, history, accountName)
	if err != nil {
		return err
	}

	var failed int
	for _, job := range jobs {
		if !job.Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(jobs))
	}
	return nil
}

func runValidate(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	accounts, err := config.LoadAccounts(cfg.AccountsPath)
	if err != nil {
		return err
	}

	fmt.Printf("OK: %d accounts\n", len(accounts))
	for _, a := range accounts {
		fmt.Printf("  - %s: %s -> %s (%s, enabled=%v)\n", a.Name, a.Username, a.RepoFullName, a.Frequency, a.Enabled)
	}

	entries, errs := application.ResolveEntries(application.NewRegistry(accounts).Current())
	for _, e := range entries {
		tz := e.Timezone
		if tz == "" {
			tz = "local"
		}
		fmt.Printf("  schedule: %s at %s (%s)\n", e.Account, e.TimeOfDay, tz)
	}
	for _, resolveErr := range errs {
		fmt.Printf("  schedule error: %v\n", resolveErr)
	}
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	jobs, err := sqliteadapter.NewJobHistoryRepo(db).ListRecent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	for _, j := range jobs {
		status := string(j.State)
		if j.FailureKind != "" {
			status = fmt.Sprintf("%s (%s at %s)", j.State, j.FailureKind, j.Step)
		}
		fmt.Printf("%s %s %s %s pr=%d merge_attempts=%d %s\n",
			j.FireDate, j.TimeOfDay, j.Account, status, j.PRNumber, j.MergeAttempts(), j.PRURL)
	}
	return nil
}
