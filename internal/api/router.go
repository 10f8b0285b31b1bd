package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/authgate/authgate/internal/api/handlers"
	"github.com/authgate/authgate/internal/api/middleware"
	"github.com/authgate/authgate/internal/apikey"
	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/crypto"
	"github.com/authgate/authgate/internal/store"
	"github.com/authgate/authgate/internal/token"
)

type Router struct {
	mux    *chi.Mux
	db     *pgxpool.Pool
	redis  *redis.Client
	cfg    *config.Config
	store  store.Store
	tokens *token.Service
	keys   *apikey.Service
	box    *crypto.Box
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, st store.Store, cfg *config.Config) *Router {
	return &Router{
		mux:    chi.NewRouter(),
		db:     db,
		redis:  rdb,
		cfg:    cfg,
		store:  st,
		tokens: token.NewService(cfg.Auth.JWTSecret, st),
		keys:   apikey.NewService(cfg.Auth.APIKeySecret, st),
		box:    crypto.NewBox(cfg.Auth.EncryptionKey),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Get("/status", health.Status)

	authH := handlers.NewAuthHandler(rt.tokens, rt.store, rt.cfg.Auth.TokenTTL)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authH.Register)
		r.Post("/login", authH.Login)
		r.Post("/refresh", authH.Refresh)
		r.Get("/verify", authH.Verify)
	})

	protectedH := handlers.NewProtectedHandler(rt.tokens)
	r.Get("/protected", protectedH.Protected)
	r.Post("/protected", protectedH.Protected)
	r.Get("/user", protectedH.User)

	keysH := handlers.NewAPIKeyHandler(rt.keys, rt.tokens)
	r.Route("/api-keys", func(r chi.Router) {
		r.Get("/", keysH.List)
		r.Post("/", keysH.Create)
		r.Delete("/", keysH.Delete)
		r.Get("/test", keysH.Test)
		r.Post("/test", keysH.Test)
	})

	encH := handlers.NewEncryptionHandler(rt.box)
	r.Post("/encryption/test", encH.Test)

	return r
}
