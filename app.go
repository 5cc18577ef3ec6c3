package main

import (
	"context"
	"fmt"
	"net/http"

	"bakehouse/admin"
	"bakehouse/cart"
	"bakehouse/config"
	"bakehouse/db"
	"bakehouse/globals"
	"bakehouse/mq"
	"bakehouse/notify"
	"bakehouse/orders"
	"bakehouse/pay"
	"bakehouse/products"
	"bakehouse/ratelim"
	"bakehouse/rdx"
	"bakehouse/receipt"
	"bakehouse/reviews"
	"bakehouse/routes"
	"bakehouse/settings"
	"bakehouse/tracking"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// app owns every long-lived connection of the server.
type app struct {
	store   db.Store
	orders  *orders.Service
	auditor *admin.Auditor
	handler http.Handler
	closers []func(context.Context) error
	logger  *zap.Logger
}

func (a *app) close(ctx context.Context) {
	if a.orders != nil {
		a.orders.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("close", zap.Error(err))
		}
	}
}

// openStore connects to MongoDB, or returns an empty in-memory store.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger, memory bool) (db.Store, func(context.Context) error, error) {
	if memory {
		log.Warn("using the in-memory store; data is lost on exit")
		return db.NewMemory(), func(context.Context) error { return nil }, nil
	}
	m, err := db.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := m.EnsureIndexes(ctx); err != nil {
		_ = m.Close(ctx)
		return nil, nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return m, m.Close, nil
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, memory bool) (*app, error) {
	globals.JwtSecret = []byte(cfg.JWTSecret)

	a := &app{logger: log}
	store, closeStore, err := openStore(ctx, cfg, log, memory)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, closeStore)

	var (
		bus   mq.Bus = mq.NewLocalBus()
		cache products.Cache
	)
	if cfg.Redis.Addr != "" {
		conn, err := rdx.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return conn.Close() })
		bus = mq.NewRedisBus(conn, log)
		cache = rdx.NewProductCache(conn, 0)
	}

	var stream mq.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		k := mq.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.closers = append(a.closers, func(context.Context) error { return k.Close() })
		stream = k
	}

	mailer, err := notify.New(cfg.Mail, log)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	var gateway pay.Gateway = pay.Offline{}
	if cfg.Razorpay.KeyID != "" {
		gateway = pay.NewRazorpay(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	}

	st := settings.NewService(store)
	a.orders = orders.NewService(orders.Deps{
		Store:   store,
		Pricing: st,
		Gateway: gateway,
		Live:    bus,
		Stream:  stream,
		Mailer:  mailer,
		Logger:  log.Named("orders"),
	})
	a.auditor = admin.NewAuditor(store, a.orders, log.Named("audit"))

	// the interface must stay nil when no cache is configured
	var ratingCache reviews.Invalidator
	if cache != nil {
		ratingCache = cache
	}
	catalogue := products.NewService(store, cache, cfg.UploadDir, log.Named("products"))

	set := routes.Set{
		Orders:      orders.NewHandlers(a.orders, bus, log.Named("orders")),
		Tracking:    tracking.NewHandlers(tracking.NewService(store, a.orders, log.Named("tracking")), log.Named("tracking")),
		Reviews:     reviews.NewHandlers(reviews.NewService(store, ratingCache, log.Named("reviews")), log.Named("reviews")),
		Products:    products.NewHandlers(catalogue, log.Named("products")),
		Cart:        cart.NewHandlers(cart.NewService(store, a.orders, log.Named("cart")), log.Named("cart")),
		Receipt:     receipt.NewHandlers(a.orders, st, log.Named("receipt")),
		Settings:    settings.NewHandlers(st, store, log.Named("settings")),
		Admin:       admin.NewHandlers(a.auditor, log.Named("audit")),
		Idempotency: pay.NewIdempotency(store, log.Named("idempotency")),
		Limiter:     ratelim.NewRateLimiter(30, 10),
		UploadDir:   cfg.UploadDir,
	}
	router := httprouter.New()
	routes.RoutesWrapper(router, set)

	// CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.HTTP.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	}).Handler(router)
	a.handler = loggingMiddleware(log.Named("http"), securityHeaders(corsHandler))
	return a, nil
}
