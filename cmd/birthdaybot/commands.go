package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"birthday-reminder/internal/bot"
	"birthday-reminder/internal/dates"
	"birthday-reminder/internal/service"
)

var (
	checkDate        string
	checkDryRun      bool
	exportTelegramID int64
	exportOut        string
	importTelegramID int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll Telegram and send daily birthday reminders",
	Args:  cobra.NoArgs,
	RunE:  runBot,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one reminder cycle now",
	Long: `Evaluates every active reminder for today (or --date) and sends the matches.
With --dry-run nothing is sent and no Telegram token is needed.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a user's birthdays as an iCalendar file",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [file.vcf]",
	Short: "Import birthdays for a user from a vCard file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func runBot(cmd *cobra.Command, _ []string) error {
	if err := cfg.RequireToken(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	telegramBot, err := bot.New(cfg.TelegramToken, a.services(), &cfg, logger)
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}

	dispatcher := service.NewDispatcher(telegramBot, cfg.SendTimeout, cfg.SendConcurrency, logger)
	reminders := service.NewReminderService(a.reminderRepo, dispatcher, cfg.Location, logger)

	scheduler := service.NewSchedulerService(cfg.Location, logger)
	if _, err := scheduler.ScheduleDaily(cfg.ReminderHour, 0, reminders.Job(cfg.CycleTimeout)); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("birthday bot started",
		zap.Int("reminder_hour", cfg.ReminderHour),
		zap.String("timezone", cfg.Location.String()))
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot stopped with error: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func runCheck(cmd *cobra.Command, _ []string) error {
	now, err := checkTime(checkDate, cfg.Location)
	if err != nil {
		return err
	}

	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.CycleTimeout)
	defer cancel()
	out := cmd.OutOrStdout()

	if checkDryRun {
		res, err := service.NewReminderService(a.reminderRepo, nil, cfg.Location, logger).Preview(ctx, now)
		if err != nil {
			return err
		}
		printFirings(out, res)
		return nil
	}

	if err := cfg.RequireToken(); err != nil {
		return err
	}
	telegramBot, err := bot.New(cfg.TelegramToken, a.services(), &cfg, logger)
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	dispatcher := service.NewDispatcher(telegramBot, cfg.SendTimeout, cfg.SendConcurrency, logger)
	res, err := service.NewReminderService(a.reminderRepo, dispatcher, cfg.Location, logger).RunCycle(ctx, now)
	if err != nil {
		return err
	}
	printFirings(out, res)
	fmt.Fprintf(out, "sent %d, failed %d\n", res.Report.Sent, len(res.Report.Failures))
	if n := len(res.Report.Failures); n > 0 {
		return fmt.Errorf("%d reminders not delivered: %w", n, service.ErrDeliveryFailure)
	}
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	user, err := a.owner(ctx, exportTelegramID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		defer f.Close()
		out = f
	}

	n, err := a.calendar.Export(ctx, user, out, time.Now().In(cfg.Location))
	if err != nil {
		return err
	}
	logger.Info("calendar exported", zap.Int64("telegram_id", exportTelegramID), zap.Int("events", n))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	user, err := a.owner(ctx, importTelegramID)
	if err != nil {
		return err
	}

	res, err := a.contacts.Import(ctx, user, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d, duplicates %d, skipped %d\n", res.Imported, res.Duplicates, res.Skipped)
	return nil
}

// checkTime resolves --date to noon of that day in loc so the calendar date is unambiguous.
func checkTime(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Now().In(loc), nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("--date: %w", err)
	}
	return day.Add(12 * time.Hour), nil
}

func printFirings(w io.Writer, res service.CycleResult) {
	fmt.Fprintf(w, "%s: %d reminders checked, %d firing\n", res.Today.Format("2006-01-02"), res.Checked, len(res.Firings))
	for _, f := range res.Firings {
		r := f.Reminder
		fmt.Fprintf(w, "  reminder %d -> %d: %s on %s (%d days before)\n",
			r.ReminderID, r.TelegramID, r.Name, dates.DisplayDate(r.Month, r.Day, nil), r.DaysBefore)
	}
}
