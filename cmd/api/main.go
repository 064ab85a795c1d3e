package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"seclock.org/internal/audit"
	"seclock.org/internal/auth"
	"seclock.org/internal/httpapi"
	"seclock.org/internal/lock"
	"seclock.org/internal/obs"
	"seclock.org/internal/probe"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("SECLOCK_PG_DSN")
	if dsn == "" {
		log.Fatal("missing SECLOCK_PG_DSN")
	}
	secret := os.Getenv("SECLOCK_AUTH_SECRET")
	if secret == "" {
		log.Fatal("missing SECLOCK_AUTH_SECRET")
	}
	addr := os.Getenv("SECLOCK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// sql.Open only validates the DSN; prove the database is reachable
	// before accepting traffic.
	if err := probe.WaitReady(context.Background(), db); err != nil {
		log.Fatalf("database unavailable: %v", err)
	}

	trail := audit.NewPGStore(db)
	tokens, err := auth.NewTokens(secret)
	if err != nil {
		log.Fatalf("token signer: %v", err)
	}
	authSvc, err := auth.NewService(auth.NewPGStore(db), tokens, trail)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	lockSvc, err := lock.NewService(lock.NewPGStore(db))
	if err != nil {
		log.Fatalf("lock service: %v", err)
	}

	api := httpapi.New(authSvc, lockSvc, trail, httpapi.ReadyProbe{DB: db}, version)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting seclock-api %s on %s", version, srv.Addr)

	probeCtx, stopProbe := context.WithCancel(context.Background())
	go probe.New(db).Run(probeCtx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	stopProbe()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
