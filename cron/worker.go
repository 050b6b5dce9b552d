package cron

import (
	"context"
	"encoding/json"
	"time"

	"appispot/config"
	"appispot/services/booking"
	"appispot/services/tasks"
	"appispot/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// InitExpiryWorker runs the async worker that reclaims unpaid pending
// bookings in the background.
func InitExpiryWorker(bookingSvc booking.BookingService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeBookingExpire, handleExpiryTask(bookingSvc))

	go func() {
		logger := utils.GetLogger()
		logger.Info("starting booking expiry worker")

		const maxAttempts = 5
		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				logger.Error("expiry worker failed to start",
					zap.Int("attempt", attempts), zap.Error(err))
				if attempts == maxAttempts {
					logger.Fatal("expiry worker gave up after max attempts")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleExpiryTask(bookingSvc booking.BookingService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.ExpiryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			utils.GetLogger().Error("invalid expiry payload", zap.Error(err))
			return err
		}

		// ExpirePending is a no-op when the booking was paid or cancelled
		// in the meantime, so retries are safe.
		if err := bookingSvc.ExpirePending(ctx, p.BookingID); err != nil {
			utils.GetLogger().Error("booking expiry failed",
				zap.String("bookingId", p.BookingID), zap.Error(err))
			return err
		}
		return nil
	}
}
