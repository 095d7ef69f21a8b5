package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/carehub/patienthub/internal/auth"
	"github.com/carehub/patienthub/internal/config"
	"github.com/carehub/patienthub/internal/domain/user"
	"github.com/carehub/patienthub/internal/http/handlers"
	"github.com/carehub/patienthub/internal/http/middlewares"
	"github.com/carehub/patienthub/internal/observability"
	"github.com/carehub/patienthub/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func NewRouter(
	log *slog.Logger,
	pool *pgxpool.Pool,
	cfg config.Config,
	prom *observability.Prom,
	promReg *prometheus.Registry,
	idCache auth.IdentityCache,
) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(otelgin.Middleware("patienthub"))

	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
	}

	// health + metrics
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if promReg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))
	}

	// wire up repositories and the token service
	usersRepo := postgres.NewUsersRepo(pool, prom)
	patientsRepo := postgres.NewPatientsRepo(pool, prom)
	tokensRepo := postgres.NewTokensRepo(pool, prom)

	tokenSvc := auth.NewService(
		auth.NewManager(cfg.TokenSecret, cfg.TokenTTL),
		tokensRepo,
		idCache,
	)

	authMw := middlewares.NewAuthMiddleware(tokenSvc)

	// credential endpoints get a per-IP brute-force brake
	loginLimiter := middlewares.NewRateLimiter(10, time.Minute)
	limit := loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP)

	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, tokenSvc, cfg)
	r.POST("/register", limit, authHandler.Register)
	r.POST("/login", limit, authHandler.Login)

	// user administration requires an authenticated admin
	usersHandler := handlers.NewUsersHandler(usersRepo, tokenSvc)
	admin := r.Group("/users", authMw.RequireAuth(), authMw.RequireRole(user.RoleAdmin))
	admin.GET("", usersHandler.ListUsers)
	admin.DELETE("/:id", usersHandler.DeleteUser)

	// patient endpoints: any authenticated user, policy decides per record
	patientsHandler := handlers.NewPatientsHandler(patientsRepo, prom)
	patients := r.Group("/patients", authMw.RequireAuth())
	patients.GET("", patientsHandler.ListPatients)
	patients.POST("", patientsHandler.CreatePatient)
	patients.GET("/:id", patientsHandler.GetPatient)
	patients.PUT("/:id", patientsHandler.UpdatePatient)
	patients.DELETE("/:id", patientsHandler.DeletePatient)

	return r
}
