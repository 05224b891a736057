package shared

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

const EnvPrefix = "GMB_"

type Config struct {
	AppEnv      string `koanf:"app_env"`
	HTTPAddr    string `koanf:"http_addr" validate:"required"`
	MetricsAddr string `koanf:"metrics_addr"`
	LogFile     string `koanf:"log_file"`

	MySQLDSN    string `koanf:"mysql_dsn" validate:"required"`
	AutoMigrate bool   `koanf:"auto_migrate"`

	RedisAddr string `koanf:"redis_addr" validate:"required"`
	RedisPass string `koanf:"redis_password"`
	RedisDB   int    `koanf:"redis_db" validate:"gte=0"`

	GoogleInfoURL         string `koanf:"google_info_url" validate:"required,url"`
	GoogleVerificationURL string `koanf:"google_verification_url" validate:"required,url"`
	GoogleReviewsURL      string `koanf:"google_reviews_url" validate:"required,url"`
	GoogleTokenURL        string `koanf:"google_token_url" validate:"required,url"`
	GoogleClientID        string `koanf:"google_client_id"`
	GoogleClientSecret    string `koanf:"google_client_secret"`
	VaultAddr             string `koanf:"vault_addr"`
	VaultToken            string `koanf:"vault_token"`
	VaultSecretPath       string `koanf:"vault_secret_path"`
	APIRPS                int    `koanf:"api_rps" validate:"gt=0"`

	ReviewsMode string        `koanf:"reviews_mode" validate:"oneof=inline queue"`
	SyncCron    string        `koanf:"sync_cron"`
	WorkerWait  time.Duration `koanf:"worker_wait" validate:"gt=0"`

	KeywordStuffingQueue string `koanf:"keyword_stuffing_queue" validate:"required"`
	ReviewsQueue         string `koanf:"reviews_queue" validate:"required"`
	MediaQueue           string `koanf:"media_queue" validate:"required"`

	NotificationTypeCacheTTL time.Duration `koanf:"notification_type_cache_ttl"`
	VaultSecretTTL           time.Duration `koanf:"vault_secret_ttl"`
}

func Defaults() Config {
	return Config{
		AppEnv:                   "prod",
		HTTPAddr:                 ":8080",
		MetricsAddr:              ":9100",
		MySQLDSN:                 "root:root@tcp(localhost:3306)/gmb?parseTime=true&charset=utf8mb4&loc=UTC",
		RedisAddr:                "localhost:6379",
		GoogleInfoURL:            "https://mybusinessbusinessinformation.googleapis.com",
		GoogleVerificationURL:    "https://mybusinessverifications.googleapis.com",
		GoogleReviewsURL:         "https://mybusiness.googleapis.com",
		GoogleTokenURL:           "https://oauth2.googleapis.com/token",
		APIRPS:                   5,
		ReviewsMode:              "inline",
		SyncCron:                 "0 3 * * *",
		WorkerWait:               5 * time.Second,
		KeywordStuffingQueue:     "gmb-keyword-stuffing",
		ReviewsQueue:             "gmb-reviews",
		MediaQueue:               "gmb-media",
		NotificationTypeCacheTTL: time.Hour,
		VaultSecretTTL:           10 * time.Minute,
	}
}

var validate = validator.New()

// Load layers defaults, an optional .env, an optional YAML file named by
// GMB_CONFIG_FILE and GMB_-prefixed environment variables (highest wins).
func Load() (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	k := koanf.New(".")
	if path := os.Getenv(EnvPrefix + "CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	// GMB_MYSQL_DSN -> mysql_dsn
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("config env: %w", err)
	}

	c := Defaults()
	if err := k.Unmarshal("", &c); err != nil {
		return Config{}, fmt.Errorf("config unmarshal: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return Config{}, fmt.Errorf("config invalid: %w", err)
	}
	if c.VaultSecretPath == "" && (c.GoogleClientID == "" || c.GoogleClientSecret == "") {
		log.Warn().Msg("google oauth client is not configured; token refresh will fail")
	}
	return c, nil
}
