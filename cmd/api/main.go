package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"communityauth.org/internal/audit"
	"communityauth.org/internal/auth"
	"communityauth.org/internal/config"
	"communityauth.org/internal/httpapi"
	"communityauth.org/internal/idp"
	"communityauth.org/internal/obs"
	"communityauth.org/internal/store/pg"
)

var version = "0.3.1"

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	store, err := pg.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	probe := httpapi.ReadyProbe{DB: store.DB()}
	recorder := audit.NewRecorder(store)

	tokens, err := auth.NewTokenService(cfg.JWTSecret, auth.WithAccessTTL(cfg.AccessTokenTTL))
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	svc := auth.NewService(store, tokens, recorder, auth.WithAdminEmails(cfg.AdminEmails))
	verifier := idp.NewClient(cfg.IDPBaseURL, cfg.IDPSecretKey, cfg.IDPTimeout)
	serviceTokens := auth.NewServiceTokenAuthenticator(cfg.ServiceToken)

	api := httpapi.New(svc, tokens, verifier, serviceTokens, probe, version, cfg.CommunityName)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting community-auth-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if store != nil {
		_ = store.Close()
	}
	log.Println("Stopped")
}
