// Package worker hosts the long-running queue consumers. Each worker owns one
// consumer group on one topic and runs until the application context is
// cancelled.
package worker

import (
	"context"
	"log/slog"

	"github.com/sportdesk/walletd/internal/smtp"
	"github.com/sportdesk/walletd/internal/stream"
	"github.com/sportdesk/walletd/internal/withdrawal"
)

const (
	// withdrawalRequestGroupID is the consumer group for workers that pay out
	// queued withdrawal jobs.
	withdrawalRequestGroupID = "withdrawal-request-group"
)

type Worker struct {
	KafkaStream *stream.KafkaStream
	Withdrawals *withdrawal.Service
	Ctx         context.Context
	Logger      *slog.Logger

	// parked jobs are reported here so a human picks them up
	Mailer            smtp.MailerInterface
	NotificationEmail string

	// MaxJobAttempts bounds the in-process retry budget per delivery.
	MaxJobAttempts int
}

func New(wk *Worker) *Worker {
	if wk.MaxJobAttempts <= 0 {
		wk.MaxJobAttempts = 3
	}

	return &Worker{
		KafkaStream:       wk.KafkaStream,
		Withdrawals:       wk.Withdrawals,
		Ctx:               wk.Ctx,
		Logger:            wk.Logger,
		Mailer:            wk.Mailer,
		NotificationEmail: wk.NotificationEmail,
		MaxJobAttempts:    wk.MaxJobAttempts,
	}
}
