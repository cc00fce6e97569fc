// Package httpapi is the HTTP layer over the user and session
// services: routing, authentication middleware and JSON encoding.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"eebook.org/internal/auth"
	"eebook.org/internal/obs"
	"eebook.org/internal/users"
)

// ReadyProbe checks downstream dependencies for /readyz.
type ReadyProbe struct {
	DB    *sql.DB
	Redis *redis.Client
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	if rp.Redis != nil {
		if err := rp.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

// CookieSettings control how the refresh handle travels to browsers.
type CookieSettings struct {
	Domain string
	Secure bool
}

// Options wires the API's collaborators.
type Options struct {
	Auth       *auth.Service
	Users      *users.Service
	ReadyProbe ReadyProbe
	Cookies    CookieSettings
	Version    string

	// Token-bucket settings for the per-IP rate limiter.
	RateLimitRPS   float64
	RateLimitBurst int
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	users      *users.Service
	readyProbe ReadyProbe
	cookies    CookieSettings
	version    string

	rateRPS   float64
	rateBurst int
}

func New(opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       opts.Auth,
		users:      opts.Users,
		readyProbe: opts.ReadyProbe,
		cookies:    opts.Cookies,
		version:    opts.Version,
		rateRPS:    opts.RateLimitRPS,
		rateBurst:  opts.RateLimitBurst,
	}
	if a.rateRPS <= 0 {
		a.rateRPS = 10
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// sessions
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)

	// accounts
	a.mux.HandleFunc("/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.rateRPS)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}
