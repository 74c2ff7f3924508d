package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/sportdesk/walletd/internal/app"
	"github.com/sportdesk/walletd/internal/seeder"
	"github.com/sportdesk/walletd/internal/version"
	"github.com/sportdesk/walletd/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	err := run(logger)
	if err != nil {
		trace := string(debug.Stack())
		logger.Error(err.Error(), "trace", trace)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	showVersion := flag.Bool("version", false, "display version and exit")
	seedDemo := flag.Bool("seed", false, "seed demo wallets and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("version: %s\n", version.Get())
		return nil
	}

	application, err := app.NewApplication(logger)
	if err != nil {
		return err
	}
	defer application.DB.Close()

	if *seedDemo {
		seeder.New(application.DB).Run()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wk := worker.New(&worker.Worker{
		KafkaStream:       application.Kafka,
		Withdrawals:       application.Withdrawals,
		Ctx:               ctx,
		Logger:            logger,
		Mailer:            application.Mailer,
		NotificationEmail: application.Config.Notifications.Email,
		MaxJobAttempts:    application.Config.Withdrawal.MaxJobAttempts,
	})

	go wk.WithdrawalWorker()
	go application.RunRequeueSweep(ctx)

	return application.ServeHTTP()
}
