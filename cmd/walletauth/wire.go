package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/layer-3/walletauth/adapters/events"
	"github.com/layer-3/walletauth/adapters/horizon"
	"github.com/layer-3/walletauth/adapters/locker"
	"github.com/layer-3/walletauth/adapters/ratelimit"
	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/adapters/tokenizer"
	"github.com/layer-3/walletauth/internal/caching"
	"github.com/layer-3/walletauth/internal/config"
	"github.com/layer-3/walletauth/internal/jobs"
	"github.com/layer-3/walletauth/internal/logging"
	"github.com/layer-3/walletauth/ports"
	"github.com/layer-3/walletauth/service"
	transporthttp "github.com/layer-3/walletauth/transport/http"
)

const (
	localCacheSize = 10000
	lockRetryDelay = 100 * time.Millisecond
)

type application struct {
	router  *gin.Engine
	cron    *cron.Cron
	closers []io.Closer
}

func (a *application) close(log logging.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			log.Warn(context.Background(), "failed to close resource", "error", err)
		}
	}
}

func newApplication(ctx context.Context, cfg *config.Config, log logging.Logger) (_ *application, err error) {
	app := &application{}
	defer func() {
		if err != nil {
			app.close(log)
		}
	}()

	var redisClient redis.UniversalClient
	if cfg.Store.Backend == config.StoreRedis {
		opts, err := redis.ParseURL(cfg.Store.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		app.closers = append(app.closers, client)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisClient = client
	}

	memory := store.NewMemoryStore(cfg.Store.MaxTransfersPerAddress)

	var (
		challenges ports.ChallengeStore = memory
		sessions   ports.SessionStore   = memory
		transfers  ports.TransferStore  = memory
	)
	if redisClient != nil {
		redisStore := store.NewRedisStore(redisClient)
		challenges, sessions = redisStore, redisStore
	}
	if cfg.Store.PostgresDSN != "" {
		db, err := store.OpenPostgres(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db)
		transfers = store.NewPostgresTransferStore(db, cfg.Store.MaxTransfersPerAddress)
	}

	tok, err := newTokenizer(cfg)
	if err != nil {
		return nil, err
	}

	var publisher message.Publisher
	wmLogger := logging.NewWatermillAdapter(log)
	if redisClient != nil {
		if publisher, err = events.NewRedisStreamPublisher(redisClient, wmLogger); err != nil {
			return nil, err
		}
	} else {
		publisher = events.NewInProcessPubSub(wmLogger)
	}
	app.closers = append(app.closers, publisher)
	eventPub := events.NewWatermillPublisher(publisher)

	var (
		lock    ports.Locker = locker.NewMemoryLocker()
		cache   caching.Cache
		limiter ports.RateLimiter
	)
	if redisClient != nil {
		expiry := lockExpiry(cfg)
		lock = locker.NewRedsyncLocker(redisClient, expiry, int(expiry/lockRetryDelay))
		cache = caching.NewCacheRedis(redisClient, cfg.Stellar.BalanceCacheTTL)
		if cfg.RateLimit.ConnectPerMinute > 0 {
			limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.ConnectPerMinute)
		}
	} else {
		cache = caching.NewCacheLocal(localCacheSize, cfg.Stellar.BalanceCacheTTL)
	}

	tokens, err := cfg.TokenMetadata()
	if err != nil {
		return nil, err
	}

	urls := make(map[string]string, len(cfg.Stellar.AllowedNetworks))
	for _, network := range cfg.Stellar.AllowedNetworks {
		if url, ok := cfg.HorizonURL(network); ok {
			urls[config.NormalizeNetwork(network)] = url
		}
	}
	ledger := horizon.NewGateway(urls, horizon.Options{
		Timeout:    cfg.Stellar.RequestTimeout,
		RetryCount: cfg.Stellar.RetryCount,
	})

	authService := service.NewAuthService(challenges, sessions, tok, eventPub,
		service.WithChallengeTTL(cfg.Auth.ChallengeTTL),
		service.WithSessionTTL(cfg.Auth.SessionTTL),
		service.WithNetworks(cfg.Stellar.AllowedNetworks...),
		service.WithLabel(cfg.Auth.ChallengeLabel),
		service.WithLogger(log),
	)
	walletService := service.NewWalletService(transfers, ledger, lock, eventPub,
		service.WithBalanceCache(cache, cfg.Stellar.BalanceCacheTTL),
		service.WithTokens(tokens),
		service.WithWalletLogger(log),
	)

	app.router = transporthttp.SetupRouter(authService, walletService, limiter, log)

	if redisClient == nil && cfg.Store.SweepSchedule != "" {
		app.cron = cron.New()
		if _, err := jobs.NewSweeper(memory, log).Schedule(app.cron, cfg.Store.SweepSchedule); err != nil {
			return nil, err
		}
	}

	return app, nil
}

func newTokenizer(cfg *config.Config) (ports.Tokenizer, error) {
	if cfg.Auth.TokenFormat != config.TokenJWT {
		return tokenizer.NewOpaqueTokenizer(), nil
	}
	key, err := tokenizer.LoadSigningKey(cfg.Auth.JWTKeyFile)
	if err != nil {
		return nil, err
	}
	return tokenizer.NewJWTTokenizer(key), nil
}

// lockExpiry outlives the two ledger calls a reconciliation makes, retries included.
func lockExpiry(cfg *config.Config) time.Duration {
	perCall := cfg.Stellar.RequestTimeout * time.Duration(cfg.Stellar.RetryCount+1)
	return 2*perCall + 10*time.Second
}
