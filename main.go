package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-booking/internal/booking"
	booking_api "ms-booking/internal/booking/api"
	bookingdb "ms-booking/internal/booking/db"
	rediswrap "ms-booking/internal/booking/redis"
	"ms-booking/internal/catalog"
	catalog_api "ms-booking/internal/catalog/api"
	"ms-booking/internal/config"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/mailer"
	"ms-booking/internal/payment"
	"ms-booking/internal/ticket"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	if cfg.Database.DSN == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Connecting to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err == nil {
			err = sqldb.Ping()
			if err == nil {
				break
			}
		}
		log.Error("DATABASE", fmt.Sprintf("PostgreSQL not ready: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}
	log.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Booking Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	ctx := context.Background()
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	bookingdb.Migrate(bunDB)
	if err := catalog.Migrate(bunDB); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("events table migration failed: %v", err))
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, kafka.DefaultTopics()); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Order topics ensured")
		}
	} else {
		log.Warn("KAFKA", "Kafka disabled, order events will not be published")
	}

	ticketStore, err := ticket.NewStore(cfg.Tickets.Dir)
	if err != nil {
		log.Fatal("TICKETS", fmt.Sprintf("Ticket store init failed: %v", err))
	}
	renderer := ticket.NewPDFRenderer(ticketStore, cfg.Tickets.FontPath, cfg.Tickets.QRSecret)

	smtp := mailer.NewSMTPMailer(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUsername,
		cfg.Email.SMTPPassword,
		cfg.Email.From,
		cfg.Email.SendTimeout,
	)
	smtp.Cleanup = cfg.Tickets.Cleanup
	smtp.Store = ticketStore

	catalogStore := &catalog.Store{Bun: bunDB}
	ledger := &bookingdb.DB{Bun: bunDB}
	confirmLock := rediswrap.NewLock(redisClient, cfg.Redis.ConfirmLockTTL)

	payee := payment.Payee{
		Handle:   cfg.UPI.PayeeHandle,
		Name:     cfg.UPI.PayeeName,
		Currency: cfg.UPI.Currency,
	}

	var publisher booking.Publisher
	if producer != nil {
		publisher = producer
	}
	orderService := booking.NewOrderService(ledger, catalogStore, renderer, smtp, publisher, confirmLock, payee, log)

	handler := &booking_api.Handler{
		OrderService: orderService,
		Tickets:      ticketStore,
		Logger:       log,
	}
	eventHandler := &catalog_api.Handler{
		Store:  catalogStore,
		Logger: log,
	}

	log.Info("HTTP", "Setting up router")
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", handler.CreateOrder)
			r.Get("/{orderId}", handler.GetOrder)
			r.Post("/{orderId}/confirm", handler.ConfirmPayment)
			r.Get("/{orderId}/ticket", handler.GetTicket)
		})
		r.Get("/bookings/{userId}", handler.ListBookings)
		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.ListEvents)
			r.Post("/", eventHandler.CreateEvent)
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Booking Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Booking Service shutdown complete")
	}
}
