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
	"github.com/redis/go-redis/v9"

	"eebook.org/internal/auth"
	"eebook.org/internal/clock"
	"eebook.org/internal/config"
	"eebook.org/internal/httpapi"
	"eebook.org/internal/obs"
	"eebook.org/internal/password"
	"eebook.org/internal/users"
)

var (
	version = "0.3.1"
	commit  = "none"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	clk := clock.System{}
	codec, err := auth.NewCodec(cfg.JWTSecret,
		auth.WithIssuer(cfg.Issuer),
		auth.WithAccessTTL(cfg.AccessTokenTTL),
		auth.WithRefreshTTL(cfg.RefreshTokenTTL),
		auth.WithCodecClock(clk.Now),
	)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	authSvc := auth.NewService(codec,
		auth.NewRedisRevocationStore(rdb),
		auth.NewPGTokenStore(db),
		auth.WithClock(clk.Now),
	)
	userSvc := users.NewService(db, password.NewArgon2id(password.DefaultParams()),
		users.WithClock(clk.Now),
	)

	api := httpapi.New(httpapi.Options{
		Auth:  authSvc,
		Users: userSvc,
		ReadyProbe: httpapi.ReadyProbe{
			DB:    db,
			Redis: rdb,
		},
		Cookies: httpapi.CookieSettings{
			Domain: cfg.CookieDomain,
			Secure: cfg.CookieSecure,
		},
		Version:        version,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting eebook-users %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	_ = rdb.Close()
	_ = db.Close()
	log.Println("Stopped")
}
