// Package bootstrap wires the adapters shared by every binary.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"gmb_sync/internal/adapters/google"
	"gmb_sync/internal/adapters/observability"
	redisad "gmb_sync/internal/adapters/redis"
	"gmb_sync/internal/adapters/vault"
	"gmb_sync/internal/app"
	"gmb_sync/internal/shared"
	mysqlrepo "gmb_sync/internal/storage/mysql"
)

type App struct {
	Cfg     shared.Config
	DB      *sqlx.DB
	Redis   *redis.Client
	Store   *mysqlrepo.Repo
	Queue   *redisad.Queue
	Tokens  *google.TokenSource
	Reviews *app.ReviewSync
	Job     *app.Job
}

// Config loads the configuration and installs the global logger.
func Config() shared.Config {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogFile)
	return cfg
}

func Build(ctx context.Context, cfg shared.Config) (*App, error) {
	db, err := mysqlrepo.Open(ctx, cfg.MySQLDSN)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("database connection ok")
	if cfg.AutoMigrate {
		if err := mysqlrepo.Migrate(db.DB); err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Msg("migrations applied")
	}

	rc := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := rc.Ping(ctx).Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	tokens, err := tokenSource(ctx, cfg)
	if err != nil {
		db.Close()
		rc.Close()
		return nil, err
	}

	store := mysqlrepo.New(db)
	queue := redisad.NewQueue(rc)
	types := app.NewNotificationTypes(store, redisad.NewCache(rc), cfg.NotificationTypeCacheTTL)
	provider := google.New(google.Endpoints{
		Info:         cfg.GoogleInfoURL,
		Verification: cfg.GoogleVerificationURL,
		Reviews:      cfg.GoogleReviewsURL,
	}, cfg.APIRPS)

	queues := app.Queues{
		KeywordStuffing: cfg.KeywordStuffingQueue,
		Reviews:         cfg.ReviewsQueue,
		Media:           cfg.MediaQueue,
	}
	locations := app.NewLocationSync(store, provider, app.NewRouter(store, types), queue, queues)
	reviews := app.NewReviewSync(store, provider)
	job := app.NewJob(store, tokens, locations, reviews, queue, app.JobConfig{
		Queues:      queues,
		ReviewsMode: app.ReviewsMode(cfg.ReviewsMode),
	})

	return &App{
		Cfg: cfg, DB: db, Redis: rc, Store: store, Queue: queue,
		Tokens: tokens, Reviews: reviews, Job: job,
	}, nil
}

func (a *App) Close() {
	if err := a.Redis.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
	if err := a.DB.Close(); err != nil {
		log.Warn().Err(err).Msg("db close")
	}
}

// tokenSource reads the OAuth client from Vault when a secret path is
// configured, else from config.
func tokenSource(ctx context.Context, cfg shared.Config) (*google.TokenSource, error) {
	if cfg.VaultSecretPath == "" {
		return google.NewTokenSource(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleTokenURL), nil
	}
	vc, err := vault.New(cfg.VaultAddr, cfg.VaultToken)
	if err != nil {
		return nil, err
	}
	creds := vaultCredentials(vc, cfg.VaultSecretPath, cfg.VaultSecretTTL)
	// fail at startup rather than on the first refresh
	if _, _, err := creds(ctx); err != nil {
		return nil, err
	}
	log.Info().Str("path", cfg.VaultSecretPath).Dur("ttl", cfg.VaultSecretTTL).Msg("google client credentials read from vault")
	return google.NewTokenSource("", "", cfg.GoogleTokenURL).WithCredentials(creds), nil
}

// vaultCredentials re-reads the client id and secret at most once per ttl.
func vaultCredentials(vc *vault.Client, path string, ttl time.Duration) google.CredentialsFunc {
	return func(ctx context.Context) (string, string, error) {
		id, err := vc.GetKV(ctx, path, "client_id", ttl)
		if err != nil {
			return "", "", fmt.Errorf("vault client_id: %w", err)
		}
		secret, err := vc.GetKV(ctx, path, "client_secret", ttl)
		if err != nil {
			return "", "", fmt.Errorf("vault client_secret: %w", err)
		}
		return id, secret, nil
	}
}
