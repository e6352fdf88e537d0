package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run only the Telegram bot",
	Long:  "Long-poll Telegram for updates without starting the HTTP and gRPC servers.",
	Run:   runBot,
}

func init() {
	rootCmd.AddCommand(botCmd)
}

func runBot(_ *cobra.Command, _ []string) {
	app, cleanup := mustCreateApprovalService()
	defer cleanup()

	if app.botAPI == nil {
		logrus.Fatal("TELEGRAM_BOT_TOKEN is required to run the bot")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logrus.WithField("username", app.botAPI.Self.UserName).Info("Starting Telegram bot")
	if err := newBot(app).Run(ctx); err != nil {
		logrus.WithError(err).Error("Telegram bot stopped with error")
		return
	}
	logrus.Info("Telegram bot stopped")
}
