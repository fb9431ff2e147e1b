package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/boxcart/internal/basket"
	"github.com/noah-isme/boxcart/internal/bundle"
	"github.com/noah-isme/boxcart/internal/catalog"
	"github.com/noah-isme/boxcart/internal/common"
	"github.com/noah-isme/boxcart/internal/config"
	"github.com/noah-isme/boxcart/internal/health"
	"github.com/noah-isme/boxcart/internal/lock"
	"github.com/noah-isme/boxcart/internal/obs"
	"github.com/noah-isme/boxcart/internal/pricing"
	"github.com/noah-isme/boxcart/internal/ratelimit"
	"github.com/noah-isme/boxcart/internal/resilience"
	"github.com/noah-isme/boxcart/internal/security"
)

type deps struct {
	Catalog        *catalog.Catalog
	Redis          *redis.Client
	Logger         zerolog.Logger
	TracingEnabled bool
	Now            func() time.Time
}

func newRouter(cfg *config.Config, d deps) (http.Handler, error) {
	logger := d.Logger

	var (
		kv     basket.KV
		probe  health.Pinger
		locker basket.Locker
	)
	if d.Redis != nil {
		redisKV := basket.NewRedisKV(d.Redis, cfg.BasketTTL)
		breaker := resilience.NewBreaker("basket_store", cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).
			WithLogger(logger.With().Str("component", "breaker").Logger())
		kv = basket.GuardedKV{Inner: redisKV, Gate: breaker}
		probe = redisKV
		locker = lock.Locker{R: d.Redis}
	} else {
		memKV := basket.NewMemoryKV()
		kv, probe = memKV, memKV
	}

	engine := pricing.Engine{Catalog: d.Catalog}
	svc := &basket.Service{
		Store:      basket.NewStore(kv, cfg.BasketKey, logger.With().Str("component", "basket_store").Logger()),
		Aggregator: basket.Aggregator{Catalog: d.Catalog, Pricer: engine},
		Committer: &bundle.Committer{
			Validator:            bundle.Validator{Tiers: d.Catalog},
			IDs:                  bundle.IDGeneratorFor(cfg.BundleIDStrategy),
			Now:                  d.Now,
			SubscriptionDiscount: cfg.SubscriptionDiscount,
			DeliveryLead:         cfg.SubscriptionLead,
		},
		Locker:  locker,
		LockTTL: cfg.BasketLockTTL,
		Logger:  logger.With().Str("component", "basket").Logger(),
	}
	basketHandler := &basket.Handler{Svc: svc, Engine: engine, Validate: validator.New()}
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Catalog: d.Catalog})

	idem := common.Idem{
		R:   d.Redis,
		TTL: cfg.IdempotencyTTL,
		Scope: func(r *http.Request) string {
			id, _ := basket.SessionFrom(r.Context())
			return id
		},
	}

	limiterStore, err := ratelimit.NewStore(d.Redis, ratelimit.DefaultPrefix)
	if err != nil {
		return nil, err
	}
	limiter := ratelimit.Handler{
		Store: limiterStore,
		Config: ratelimit.Config{
			Key:    ratelimit.KeyBySession(cfg.SessionHeader),
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}

	healthHandler := health.Handler{Probes: map[string]health.Pinger{"basket_store": probe}}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if d.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.Obs.EnablePrometheus {
		buckets := obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets)
		r.Use(obs.HTTPObs{Metrics: obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, buckets, nil)}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger, SessionHeader: cfg.SessionHeader}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", cfg.SessionHeader, common.IdempotencyHeader},
		ExposedHeaders: []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)
	r.Use(basket.SessionMiddleware(cfg.SessionHeader))

	if cfg.Obs.EnablePrometheus {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/catalog", catalogHandler.Get)
		v.Get("/catalog/products/{sku}", catalogHandler.ProductDetail)
		v.Post("/bundles/quote", basketHandler.Quote)

		v.Route("/basket", func(b chi.Router) {
			b.Get("/", basketHandler.Get)
			b.Group(func(g chi.Router) {
				g.Use(limiter.Middleware)
				g.Post("/items", basketHandler.AddItem)
				g.With(idem.Middleware).Post("/bundles", basketHandler.CommitBundle)
				g.Delete("/entries/{index}", basketHandler.RemoveEntry)
				g.Delete("/", basketHandler.Clear)
			})
		})
	})

	return r, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
