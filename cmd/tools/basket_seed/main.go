package main

import (
	"context"
	"flag"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/boxcart/internal/basket"
	"github.com/noah-isme/boxcart/internal/bundle"
	"github.com/noah-isme/boxcart/internal/catalog"
	"github.com/noah-isme/boxcart/internal/config"
	"github.com/noah-isme/boxcart/internal/lock"
	"github.com/noah-isme/boxcart/internal/obs"
	"github.com/noah-isme/boxcart/internal/pricing"
)

// basket_seed fills a session's basket in Redis with a demo mix of entries.
func main() {
	session := flag.String("session", "demo", "basket session to seed")
	reset := flag.Bool("reset", true, "clear the basket before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("component", "basket_seed").Logger()
	if !cfg.UsesRedis() {
		logger.Fatal().Msg("REDIS_URL is not set")
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()

	cat, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load catalog")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ctx = basket.WithSession(ctx, *session)

	svc := newService(cfg, cat, client, logger)
	summary, err := seed(ctx, svc, *reset)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed basket")
	}
	logger.Info().
		Str("slot", basket.SlotKey(ctx, cfg.BasketKey)).
		Int("entries", len(summary.Lines)).
		Str("badge", summary.Badge()).
		Msg("basket seeded")
}

func newService(cfg *config.Config, cat *catalog.Catalog, client *redis.Client, logger zerolog.Logger) *basket.Service {
	engine := pricing.Engine{Catalog: cat}
	return &basket.Service{
		Store:      basket.NewStore(basket.NewRedisKV(client, cfg.BasketTTL), cfg.BasketKey, logger),
		Aggregator: basket.Aggregator{Catalog: cat, Pricer: engine},
		Committer: &bundle.Committer{
			Validator:            bundle.Validator{Tiers: cat},
			IDs:                  bundle.IDGeneratorFor(cfg.BundleIDStrategy),
			SubscriptionDiscount: cfg.SubscriptionDiscount,
			DeliveryLead:         cfg.SubscriptionLead,
		},
		Locker:  lock.Locker{R: client},
		LockTTL: cfg.BasketLockTTL,
		Logger:  logger,
	}
}

func seed(ctx context.Context, svc *basket.Service, reset bool) (basket.Summary, error) {
	if reset {
		if _, err := svc.Clear(ctx); err != nil {
			return basket.Summary{}, err
		}
	}
	if _, err := svc.AddItem(ctx, "apple", 1); err != nil {
		return basket.Summary{}, err
	}
	if _, err := svc.AddItem(ctx, "lemon", 2); err != nil {
		return basket.Summary{}, err
	}
	_, summary, err := svc.CommitBundle(ctx, bundle.CommitRequest{
		Size:      "M",
		Items:     []bundle.LineItem{{SKU: "apple", Quantity: 2}, {SKU: "banana", Quantity: 2}},
		AllowSubs: true,
		Subscribe: true,
	})
	return summary, err
}
