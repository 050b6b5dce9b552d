package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"appispot/config"
	"appispot/cron"
	"appispot/database"
	bookingRepoPkg "appispot/database/repository/booking"
	chatRepoPkg "appispot/database/repository/chat"
	spotRepoPkg "appispot/database/repository/spot"
	userRepoPkg "appispot/database/repository/user"
	"appispot/handlers"
	"appispot/realtime"
	"appispot/routes"
	"appispot/services/booking"
	"appispot/services/chat"
	"appispot/services/ledger"
	"appispot/services/spot"
	"appispot/services/tasks"
	"appispot/services/user"
	"appispot/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()
	stripe.Key = config.AppConfig.StripeKey

	cloudinaryStorage, err := utils.Cloudinary()
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize cloudinary storage service: %v", err)
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	// repositories.
	userRepo := userRepoPkg.NewMongoUserRepo()
	spotRepo := spotRepoPkg.NewMongoSpotRepo()
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()
	chatRepo := chatRepoPkg.NewMongoChatRepo()

	// Room bus: NATS when configured, in-process otherwise.
	var bus realtime.Bus
	if natsURL := config.AppConfig.NATSURL; natsURL != "" {
		natsBus, err := realtime.NewNATSBus(natsURL)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to connect to nats: %v", err)
		}
		defer natsBus.Close()
		bus = natsBus
		logger.Info("chat fan-out via nats", zap.String("url", natsURL))
	} else {
		bus = realtime.NewMemoryBus()
	}

	// services.
	userService := &user.DefaultUserService{Repo: userRepo}

	spotService := &spot.DefaultSpotService{
		Repo:    spotRepo,
		Storage: cloudinaryStorage,
	}

	availabilityLedger := ledger.NewDefaultLedger(bookingRepo)

	expiryScheduler := tasks.NewAsynqScheduler()
	defer expiryScheduler.Close()

	bookingService := &booking.DefaultWorkflow{
		Spots:    spotRepo,
		Bookings: bookingRepo,
		Ledger:   availabilityLedger,
		Gateway:  booking.StripeGateway{},
		Pricing: booking.PricingPolicy{
			ServiceFeePct: int64(config.AppConfig.ServiceFeePct),
			TaxPct:        int64(config.AppConfig.TaxPct),
		},
		RefundWindow: time.Duration(config.AppConfig.FullRefundHours) * time.Hour,
		PendingTTL:   time.Duration(config.AppConfig.PendingTTLMin) * time.Minute,
		Scheduler:    expiryScheduler,
	}

	chatService := chat.NewDefaultRelay(chatRepo, bus)
	registry := realtime.NewRegistry()

	// Background worker reclaiming unpaid pending bookings.
	cron.InitExpiryWorker(bookingService)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		UserRepo: userRepo,
		Users:    &handlers.UserHandler{Service: userService},
		Spots:    &handlers.SpotHandler{Service: spotService, Ledger: availabilityLedger},
		Bookings: &handlers.BookingHandler{Service: bookingService, Spots: spotRepo},
		Chats:    &handlers.ChatHandler{Service: chatService},
		Uploads:  &handlers.UploadHandler{Spots: spotService},
		WS:       &handlers.WSHandler{Relay: chatService, Registry: registry},
	}

	routes.RegisterRoutes(router, handlerBundle)

	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetCacheClient(), utils.GetAuthCacheClient()},
		database.MongoClient,
	)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
