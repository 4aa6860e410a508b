package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"birthday-reminder/internal/config"
)

var (
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "birthdaybot",
	Short: "Telegram bot that remembers birthdays and reminds about them",
	Long: `birthdaybot keeps birthdays, gift ideas and reminder rules for Telegram users
and sends a notification every day at REMINDER_HOUR in TIMEZONE.

Configuration comes from environment variables (TELEGRAM_TOKEN, DATABASE_URL,
TIMEZONE, REMINDER_HOUR, SEND_TIMEOUT, CYCLE_TIMEOUT, SEND_CONCURRENCY,
SESSION_TTL, LOG_LEVEL).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		logger, err = newLogger(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd, checkCmd, exportCmd, importCmd)

	checkCmd.Flags().StringVar(&checkDate, "date", "", "evaluate reminders for this day (YYYY-MM-DD) instead of today")
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false, "list firing reminders without sending them")

	exportCmd.Flags().Int64Var(&exportTelegramID, "telegram-id", 0, "Telegram id of the owner")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "write the calendar to this file instead of stdout")
	_ = exportCmd.MarkFlagRequired("telegram-id")

	importCmd.Flags().Int64Var(&importTelegramID, "telegram-id", 0, "Telegram id of the owner")
	_ = importCmd.MarkFlagRequired("telegram-id")
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	return config.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
