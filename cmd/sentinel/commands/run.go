package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GTAASentinel/internal/api"
	"GTAASentinel/internal/host"
	"GTAASentinel/internal/notifier"
	"GTAASentinel/internal/recorder"
	"GTAASentinel/internal/scheduler"
	"GTAASentinel/internal/state"

	"github.com/spf13/cobra"
)

var runOnStart bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sentinel daemon",
	Long: `Warms up every tracker, then runs the daily step on the configured cron
schedule. Monthly allocations are sent to Telegram and served over HTTP.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true", "execute the daily step immediately")
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	log := a.log
	cfg := a.cfg
	log.Info().Msg("GTAA Sentinel starting")

	st, err := state.NewManager(cfg.StateFile)
	if err != nil {
		return err
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	var n notifier.Notifier = notifier.NoopNotifier{}
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		n = tn
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := host.New(settingsFrom(cfg, a.loc), a.collector(), st, rec, n, log)
	h.Start(ctx)
	defer h.Close()

	sched := scheduler.NewScheduler(ctx, h, n, a.loc, log)
	if err := sched.RegisterAll(cfg.Schedule.DailyCron, cfg.Schedule.ReportCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("Telegram polling started")
	}

	var srv *api.Server
	if cfg.API.Listen != "" {
		srv = api.New(cfg.API.Listen, h, log)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error().Err(err).Msg("HTTP server stopped")
			}
		}()
	}

	if runOnStart {
		log.Info().Msg("run-on-start enabled, executing daily step now")
		go sched.RunDailyNow()
	}

	log.Info().Msg("GTAA Sentinel is running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown")
		}
	}
	return nil
}
