package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"appispot/config"

	"github.com/hibiken/asynq"
)

const TypeBookingExpire = "booking:expire"

// ExpiryPayload identifies the booking to reclaim.
type ExpiryPayload struct {
	BookingID string `json:"bookingId"`
}

// NewExpiryTask builds a deferred task that cancels the booking if it is
// still unpaid when the task fires.
func NewExpiryTask(bookingID string, processAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(ExpiryPayload{BookingID: bookingID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeBookingExpire, b)
	opts := []asynq.Option{asynq.ProcessAt(processAt)}

	return task, opts, nil
}

// AsynqScheduler enqueues expiry tasks on the shared Redis queue. It
// satisfies the booking workflow's scheduler dependency.
type AsynqScheduler struct {
	client *asynq.Client
}

// NewAsynqScheduler opens a client against the configured queue DB.
func NewAsynqScheduler() *AsynqScheduler {
	return &AsynqScheduler{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     config.AppConfig.RedisAddr,
			Password: config.AppConfig.RedisPassword,
			DB:       config.AppConfig.RedisQueueDB,
		}),
	}
}

// ScheduleExpiry enqueues the reclaim of an unpaid booking at processAt.
func (s *AsynqScheduler) ScheduleExpiry(bookingID string, processAt time.Time) error {
	task, opts, err := NewExpiryTask(bookingID, processAt)
	if err != nil {
		return fmt.Errorf("failed to build expiry task: %w", err)
	}
	if _, err := s.client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue expiry task: %w", err)
	}
	return nil
}

// Close releases the underlying queue client.
func (s *AsynqScheduler) Close() error {
	return s.client.Close()
}
