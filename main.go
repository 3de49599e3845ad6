package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/cart"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/logger"
	"storefront/internal/notify"
	"storefront/internal/orders"
	"storefront/internal/payment"
	"storefront/internal/store"
)

type dispatcher interface {
	notify.Dispatcher
	Close()
}

func main() {
	config.Load()
	cfg := config.AppEnv
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	zl, err := logger.Init(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		zap.L().Fatal("[DB] connect failed", zap.Error(err))
	}
	db := client.Database(cfg.DBName)
	zap.L().Info("[DB] MongoDB connected", zap.String("database", db.Name()))

	if err := database.EnsureIndexes(db); err != nil {
		zap.L().Warn("[DB] index warning", zap.Error(err))
	}

	health := map[string]handlers.HealthCheck{"mongo": handlers.MongoCheck(db)}

	var (
		cartStore   handlers.CartStore
		cartClearer orders.CartClearer
	)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		zap.L().Warn("[CART] redis unavailable, cart routes disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	} else {
		carts := cart.NewStore(rdb, cfg.CartTTL)
		cartStore, cartClearer = carts, carts
		health["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	cancel()

	var mailer notify.Sender = notify.NoopSender{}
	if cfg.MailEnabled() {
		mailer = notify.NewMailer(notify.MailerConfig{
			Host:          cfg.SMTPHost,
			Port:          cfg.SMTPPort,
			Username:      cfg.SMTPUsername,
			Password:      cfg.SMTPPassword,
			From:          cfg.MailFrom,
			OperatorEmail: cfg.OperatorEmail,
			StoreName:     cfg.StoreName,
		})
	} else {
		zap.L().Warn("[NOTIFY] SMTP not configured, emails will fail")
	}

	var notifications dispatcher
	if cfg.RabbitMQURL != "" {
		broker, err := notify.DialAMQP(notify.AMQPConfig{
			URL:             cfg.RabbitMQURL,
			Exchange:        cfg.NotifyExchange,
			Queue:           cfg.NotifyQueue,
			DeadLetterQueue: cfg.NotifyDeadLetterQueue,
		})
		if err != nil {
			zap.L().Fatal("[NOTIFY] rabbitmq setup failed", zap.Error(err))
		}
		go func() {
			if err := broker.Consume(ctx, mailer); err != nil && !errors.Is(err, context.Canceled) {
				zap.L().Error("[NOTIFY] consumer stopped", zap.Error(err))
			}
		}()
		notifications = broker
	} else {
		notifications = notify.NewAsyncDispatcher(mailer, cfg.NotifyWorkers, cfg.NotifyBuffer)
	}

	orderStore := store.NewOrderStore(db)
	productStore := store.NewProductStore(db)

	svc := orders.NewService(orderStore, productStore, cartClearer, notifications, orders.Options{
		PaymentSecret:  cfg.RazorpayKeySecret,
		StrictTotals:   cfg.StrictTotals,
		TotalTolerance: cfg.TotalTolerance,
		WhatsAppNumber: cfg.WhatsAppNumber,
		StoreName:      cfg.StoreName,
	})

	r := handlers.NewRouter(handlers.Deps{
		Checkout:       payment.NewBroker(payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret), cfg.RazorpayKeyID, cfg.PaymentCurrency),
		Payments:       svc,
		Intake:         svc,
		Orders:         svc,
		Products:       productStore,
		Carts:          cartStore,
		Admins:         store.NewAdminStore(db),
		Mailer:         mailer,
		Health:         health,
		JWTSecret:      cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.L().Info("[HTTP] listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("[HTTP] server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("[HTTP] shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("[HTTP] shutdown", zap.Error(err))
	}
	notifications.Close()
	if err := rdb.Close(); err != nil {
		zap.L().Warn("[CART] redis close", zap.Error(err))
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		zap.L().Warn("[DB] disconnect", zap.Error(err))
	}
}
