package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rookgm/marinapay/config"
	"github.com/rookgm/marinapay/internal/auth"
	handler "github.com/rookgm/marinapay/internal/handler/http"
	"github.com/rookgm/marinapay/internal/logger"
	"github.com/rookgm/marinapay/internal/middleware"
	"github.com/rookgm/marinapay/internal/notification"
	"github.com/rookgm/marinapay/internal/payment"
	"github.com/rookgm/marinapay/internal/profile"
	"github.com/rookgm/marinapay/internal/repository"
	"github.com/rookgm/marinapay/internal/repository/postgres"
	"github.com/rookgm/marinapay/internal/service"
	"github.com/rookgm/marinapay/internal/worker"
	"go.uber.org/zap"
)

func main() {

	// create new config
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Log.Sync()

	// create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// initialize database
	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Log.Fatal("Error initializing database", zap.Error(err))
	}
	defer db.Close()

	// migrate database
	if err := db.Migrate(); err != nil {
		logger.Log.Fatal("Error migrating database", zap.Error(err))
	}

	token := auth.NewAuthToken([]byte(cfg.AuthTokenKey))

	// external collaborators
	profileClient := profile.NewClient(cfg.ProfileAPIURL, cfg.ProfileAPIKey)
	notifier := notification.NewClient(cfg.NotificationAPIURL, cfg.NotificationAPIKey)

	// dependency injection
	orderRepo := repository.NewOrderRepository(db)
	leaseRepo := repository.NewLeaseRepository(db)
	productRepo := repository.NewProductRepository(db)
	refundRepo := repository.NewRefundRepository(db)
	stickerRepo := repository.NewStickerRepository(db)
	userRepo := repository.NewUserRepository(db)

	orderService := service.NewOrderService(
		orderRepo, leaseRepo, productRepo, refundRepo, stickerRepo,
		notifier, cfg.UIReturnURL)

	invoicingService := service.NewInvoicingService(
		db, orderRepo, leaseRepo, userRepo, orderService,
		profileClient, notifier, cfg.InvoicingMaxFailures, cfg.InvoicingDueDateDays)

	paymentCfg := &payment.Config{
		BamboraAPIURL:         cfg.BamboraAPIURL,
		BamboraAPIKey:         cfg.BamboraAPIKey,
		BamboraAPISecret:      cfg.BamboraAPISecret,
		BamboraPaymentMethods: cfg.BamboraPaymentMethods,
		TalpaAPIURL:           cfg.TalpaAPIURL,
		TalpaCheckoutURL:      cfg.TalpaCheckoutURL,
		TalpaNamespace:        cfg.TalpaNamespace,
		TalpaAPIKey:           cfg.TalpaAPIKey,
		UIReturnURL:           cfg.UIReturnURL,
		PublicBaseURL:         cfg.PublicBaseURL,
	}
	bambora := payment.NewBamboraClient(paymentCfg, orderService)
	talpa := payment.NewTalpaClient(paymentCfg, orderService)

	bamboraHandler := handler.NewBamboraHandler(bambora, cfg.UIReturnURL)
	talpaHandler := handler.NewTalpaHandler(talpa)
	orderHandler := handler.NewOrderHandler(orderService, bambora)
	invoicingHandler := handler.NewInvoicingHandler(invoicingService)

	// expire overdue orders in the background
	expirer := worker.NewOrderExpirer(orderService, time.Duration(cfg.OrderExpireMinutes)*time.Minute)
	go expirer.ProcessOrders(ctx)

	r := chi.NewRouter()
	r.Use(middleware.Logging)

	// provider-facing webhooks
	r.Route("/payments", func(r chi.Router) {
		r.Get("/bambora/success", bamboraHandler.Success())
		r.Get("/bambora/notify", bamboraHandler.Notify())
		r.Get("/bambora/refund-notify", bamboraHandler.RefundNotify())
		r.Post("/talpa/notify", talpaHandler.Notify())
	})

	// admin API
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(token))
		r.Post("/invoicing/run", invoicingHandler.Run())
		r.Post("/orders/{number}/payment", orderHandler.InitiatePayment())
		r.Post("/orders/{number}/refund", orderHandler.InitiateRefund())
	})

	logger.Log.Info("starting server", zap.String("address", cfg.ServerAddr))
	if err := http.ListenAndServe(cfg.ServerAddr, r); err != nil {
		logger.Log.Fatal("server stopped", zap.Error(err))
	}
}
