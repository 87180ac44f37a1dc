package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oriyet/config"
	"oriyet/internal/clock"
	"oriyet/internal/database"
	"oriyet/internal/lookup"
	"oriyet/internal/router"
	"oriyet/internal/scheduler"
	"oriyet/internal/service"
	"oriyet/pkg/cloudinary"
	"oriyet/pkg/mailer"
	"oriyet/pkg/uddoktapay"
)

func main() {
	cfg := config.Load()

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := database.SeedLookups(db); err != nil {
		log.Fatalf("seed lookups: %v", err)
	}

	lookups := lookup.NewCache(lookup.NewDBSource(db))
	if err := lookups.Warm(context.Background()); err != nil {
		log.Fatalf("warm lookup cache: %v", err)
	}

	cloud, err := cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
	if err != nil {
		log.Fatalf("cloudinary: %v", err)
	}

	gateway := uddoktapay.NewClient(
		cfg.UddoktaPay.CheckoutURL,
		cfg.UddoktaPay.VerifyURL,
		cfg.UddoktaPay.APIKey,
		cfg.UddoktaPay.Timeout,
		uddoktapay.WithMaxRetries(cfg.UddoktaPay.MaxRetries),
	)

	notifier := service.NewEmailNotifier(mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.User,
		Password: cfg.SMTP.Pass,
		From:     cfg.SMTP.From,
		FromName: "ORIYET",
	}))

	engine, paymentSvc, authSvc, eventSvc := router.Setup(cfg, router.Deps{
		DB:       db,
		Lookups:  lookups,
		Cloud:    cloud,
		Gateway:  gateway,
		Notifier: notifier,
		Clock:    clock.NewSystem(),
	})

	crons := scheduler.New()
	crons.Register("expire-pending-payments", cfg.Cleanup.PaymentInterval, func(ctx context.Context) error {
		_, err := paymentSvc.ExpirePendingPayments(ctx)
		return err
	})
	crons.Register("purge-expired-otps", cfg.Cleanup.OTPInterval, func(ctx context.Context) error {
		_, err := authSvc.CleanupExpiredOTPs(ctx, cfg.Cleanup.OTPRetention)
		return err
	})
	crons.Register("roll-event-statuses", cfg.Cleanup.EventStatusInterval, func(ctx context.Context) error {
		_, err := eventSvc.UpdateStatuses(ctx)
		return err
	})
	crons.Start()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	crons.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown: %v", err)
	}
	log.Println("server stopped")
}
