package worker

import (
	"encoding/json"
	"log"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sportdesk/walletd/internal/stream"
	"github.com/sportdesk/walletd/internal/withdrawal"
)

// WithdrawalWorker consumes queued withdrawal jobs and drives each through
// ProcessJob. Processing is redelivery-safe, so the worker is free to retry a
// transient failure in place and the broker is free to deliver a message
// twice.
func (wk *Worker) WithdrawalWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: withdrawalRequestGroupID,
		Topic:   withdrawal.RequestTopic,
	})
	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	defer consumer.Close()

	for {
		select {
		case <-wk.Ctx.Done():
			wk.Logger.Info("withdrawal worker shutting down")
			return
		default:
		}

		event := consumer.Poll(100) // Poll every 100ms
		switch e := event.(type) {
		case *kafka.Message:
			var job withdrawal.Job
			if err := json.Unmarshal(e.Value, &job); err != nil {
				// a message we can never parse would block the partition forever
				wk.Logger.Error("dropping malformed withdrawal job",
					"partition", e.TopicPartition.String(), "error", err)
				continue
			}

			wk.processWithRetry(&job)
		case kafka.Error:
			wk.Logger.Error("kafka error", "error", e.Error())
		default:
			// Handle other events if needed
		}
	}
}

// processWithRetry retries transient failures with exponential backoff and
// parks the job when the budget runs out. A parked job keeps its hold; the
// back office either retries the payout or rejects the request.
func (wk *Worker) processWithRetry(job *withdrawal.Job) {
	var lastErr error

	for attempt := 1; attempt <= wk.MaxJobAttempts; attempt++ {
		result, err := wk.Withdrawals.ProcessJob(wk.Ctx, job)
		if err == nil {
			switch {
			case result.Disbursed:
				wk.Logger.Info("withdrawal job disbursed",
					"withdrawal_code", job.WithdrawalCode, "job_id", job.JobID)
			case result.AwaitingManual:
				wk.Logger.Info("withdrawal job routed to manual approval",
					"withdrawal_code", job.WithdrawalCode, "job_id", job.JobID)
			case result.AlreadyResolved:
				wk.Logger.Info("withdrawal job already resolved, skipping",
					"withdrawal_code", job.WithdrawalCode, "job_id", job.JobID)
			}
			return
		}

		lastErr = err
		wk.Logger.Error("withdrawal job attempt failed",
			"withdrawal_code", job.WithdrawalCode,
			"job_id", job.JobID,
			"attempt", attempt,
			"error", err,
		)

		if attempt < wk.MaxJobAttempts {
			backoff := time.Second << (attempt - 1)
			select {
			case <-wk.Ctx.Done():
				return
			case <-time.After(backoff):
			}
		}
	}

	wk.parkJob(job, lastErr)
}

func (wk *Worker) parkJob(job *withdrawal.Job, lastErr error) {
	wk.Logger.Error("withdrawal job parked after exhausting retries",
		"withdrawal_code", job.WithdrawalCode, "job_id", job.JobID, "error", lastErr)

	if wk.NotificationEmail == "" {
		return
	}

	data := map[string]any{
		"WithdrawalCode": job.WithdrawalCode,
		"Username":       job.Username,
		"UserID":         job.UserID,
		"ClientID":       job.ClientID,
		"Amount":         job.Amount,
		"LastError":      lastErr.Error(),
	}

	if err := wk.Mailer.Send(wk.NotificationEmail, data, "parked-withdrawal.tmpl"); err != nil {
		wk.Logger.Error("could not send parked-withdrawal notification",
			"withdrawal_code", job.WithdrawalCode, "error", err)
	}
}
