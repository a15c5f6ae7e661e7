package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"roomstay-system/services/booking-service/internal/booking"
	"roomstay-system/services/booking-service/internal/clock"
	"roomstay-system/services/booking-service/internal/config"
	"roomstay-system/services/booking-service/internal/domain"
	"roomstay-system/services/booking-service/internal/handlers"
	"roomstay-system/services/booking-service/internal/lock"
	"roomstay-system/services/booking-service/internal/middleware"
	"roomstay-system/services/booking-service/internal/notify"
	"roomstay-system/services/booking-service/internal/payment"
	"roomstay-system/services/booking-service/internal/repository"
	"roomstay-system/services/booking-service/internal/statemachine"
	"roomstay-system/shared/kafka"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	log := logrus.NewEntry(logger).WithField("service", "booking-service")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	pgRepo, err := repository.NewPostgresRepo(cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	orderRepo := repository.NewCachedOrderRepository(pgRepo, rdb, cfg.OrderCacheTTL.Std())

	kafkaProd, err := kafka.NewProducer(cfg.KafkaBrokers, log)
	if err != nil {
		log.WithError(err).Fatal("failed to start kafka producer")
	}

	clk := clock.NewSystem()
	sleeper := clock.NewSleeper()
	sender := notify.NewLogSender(log)

	// Lock manager with lifecycle observers.
	lockBus := lock.NewEventBus(log)
	lockBus.Register(lock.NewKafkaAuditObserver(kafkaProd, "room-lock-events"))
	lockBus.Register(lock.NewAnalyticsObserver(log))
	lockBus.Register(lock.NewAvailabilityObserver(rdb, log))

	leaseStore := lock.NewRedisStore(rdb)
	lockMgr := lock.NewManager(leaseStore, lockBus, clk, log,
		lock.WithDefaultTTL(cfg.Lock.TTL.Std()))
	watcher := lock.NewExpiryWatcher(leaseStore, lockBus, clk, cfg.Lock.SweepInterval.Std(), log)

	machine := statemachine.NewMachine(orderRepo, clk, log)

	// Payment pipeline and settlement observers.
	reporter := payment.NewKafkaReconciliationReporter(kafkaProd, "payment-reconciliation-failures", log)
	payBus := payment.NewEventBus(log)
	payBus.Register(payment.NewAuditObserver(kafkaProd, "payment-completed", log))
	payBus.Register(payment.NewStatusObserver(orderRepo, machine, sleeper, reporter, clk, log,
		payment.WithConfirmAttempts(cfg.Payment.ConfirmAttempts),
		payment.WithConfirmDelay(cfg.Payment.ConfirmDelay.Std())))
	payBus.Register(payment.NewReceiptObserver(orderRepo, pgRepo, sender, log))

	paySvc := payment.NewService(orderRepo, payBus, log,
		payment.WithRetryAttempts(cfg.Payment.RetryAttempts))
	paySvc.RegisterStrategy(payment.MethodCreditCard,
		payment.NewCreditCardStrategy(sleeper, cfg.Payment.ProviderLatency.Std()))
	paySvc.RegisterStrategy(payment.MethodPayPal,
		payment.NewPayPalStrategy(sleeper, cfg.Payment.ProviderLatency.Std()))

	bookingSvc := booking.NewService(
		orderRepo, pgRepo, pgRepo, lockMgr,
		booking.NewLogPriceRegistry(log),
		machine, sender, kafkaProd, clk, log,
	)

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: middleware.RateLimit(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window.Std(), log)(
			setupRoutes(lockMgr, bookingSvc, paySvc)),
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	go watcher.Run(bgCtx)
	go runPendingOrderSweeper(bgCtx, orderRepo, bookingSvc, clk, cfg.Payment.PendingTimeout.Std(), log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("starting booking service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server error")
		}
	}()

	<-quit
	log.Info("shutting down")
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer kafkaProd.Close()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server shutdown failed")
	}
	log.Info("server exited properly")
}

func setupRoutes(lockMgr *lock.Manager, bookingSvc *booking.Service, paySvc *payment.Service) *http.ServeMux {
	lockHandler := &handlers.LockHandler{Locks: lockMgr}
	bookingHandler := &handlers.BookingHandler{Bookings: bookingSvc}
	paymentHandler := &handlers.PaymentHandler{Payments: paySvc}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /locks", lockHandler.HandleCreateLock)
	mux.HandleFunc("DELETE /locks/{leaseId}", lockHandler.HandleReleaseLock)
	mux.HandleFunc("GET /rooms/{id}/lock", lockHandler.HandleLockStatus)
	mux.HandleFunc("DELETE /admin/rooms/{id}/lock", lockHandler.HandleAdminRelease)
	mux.HandleFunc("POST /bookings", bookingHandler.HandleCreateBooking)
	mux.HandleFunc("POST /bookings/{id}/cancel", bookingHandler.HandleCancelBooking)
	mux.HandleFunc("POST /payments", paymentHandler.HandleExecutePayment)

	// Health check endpoint for Kubernetes
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

// runPendingOrderSweeper cancels bookings that never paid within the
// payment window so their rooms return to inventory.
func runPendingOrderSweeper(
	ctx context.Context,
	orders domain.OrderRepository,
	bookings *booking.Service,
	clk clock.Clock,
	pendingTimeout time.Duration,
	log *logrus.Entry,
) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			expired, err := orders.FindExpiredPending(sweepCtx, clk.Now().Add(-pendingTimeout))
			cancel()
			if err != nil {
				log.WithError(err).Warn("error finding expired pending orders")
				continue
			}

			for _, order := range expired {
				cancelCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				if _, err := bookings.CancelBooking(cancelCtx, order.ID, "payment_timeout"); err != nil {
					log.WithFields(logrus.Fields{"order_id": order.ID}).WithError(err).
						Warn("error cancelling expired order")
				}
				cancel()
			}
		}
	}
}
