package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/juliherms/petAgendamentos/internal/api"
	"github.com/juliherms/petAgendamentos/internal/config"
	"github.com/juliherms/petAgendamentos/internal/db"
	"github.com/juliherms/petAgendamentos/internal/notify"
	redisclient "github.com/juliherms/petAgendamentos/internal/redis"
	"github.com/juliherms/petAgendamentos/internal/scheduling"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s business_tz=%s", cfg.Env, cfg.HTTPPort, cfg.Location)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	migrateCtx, cancelMigrate := context.WithTimeout(rootCtx, 30*time.Second)
	err = db.Migrate(migrateCtx, pgPool)
	cancelMigrate()
	if err != nil {
		log.Fatalf("migration error: %v", err)
	}
	log.Println("schema up to date")

	// Connect Redis. Event emission is best effort, so a missing Redis only
	// downgrades the publisher to the process log.
	var publisher scheduling.Publisher = notify.LogPublisher{}
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Printf("redis unavailable, creation events go to the log: %v", err)
		rdb = nil
	} else {
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Printf("error closing redis: %v", err)
			}
		}()
		publisher = notify.NewRedisPublisher(rdb, cfg.EventChannel)
		log.Println("connected to Redis")
	}

	repo := scheduling.NewPgRepository(pgPool, cfg.Location)
	hours := scheduling.NewHoursRegistry(repo)
	svc := scheduling.NewService(repo, hours, repo, repo, repo, publisher, cfg.Location)

	seedCtx, cancelSeed := context.WithTimeout(rootCtx, 10*time.Second)
	err = hours.SeedDefaults(seedCtx)
	cancelSeed()
	if err != nil {
		log.Fatalf("business hours seed error: %v", err)
	}

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		Hours:    hours,
		Location: cfg.Location,
		PgPool:   pgPool,
		Redis:    rdb,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
}
