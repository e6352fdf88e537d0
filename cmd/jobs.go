package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/service"
	"github.com/vibast-solutions/ms-go-payment-approvals/config"
)

var (
	workerMode bool
)

var redeliverCmd = &cobra.Command{
	Use:   "redeliver",
	Short: "Resend review cards and outcome notices that never reached their recipient",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"redeliver",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.RedeliverInterval },
			func(s *service.ApprovalService, ctx context.Context) error {
				return s.RedeliverBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(redeliverCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.ApprovalService, ctx context.Context) error,
) {
	app, cleanup := mustCreateApprovalService()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(app.cfg), app.approvals, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(app.approvals, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	approvals *service.ApprovalService,
	fn func(s *service.ApprovalService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(approvals, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(approvals, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
