package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/presstronic/kalsumed/internal/auth/provider"
)

type Config struct {
	Issuer string `env:"AUTH_ISSUER" envDefault:"kalsumed-auth"`

	// Signing secrets for access and refresh tokens. They must differ so a
	// refresh token can never pass the access verifier.
	AccessSecret  string `env:"AUTH_ACCESS_SECRET,required"`
	RefreshSecret string `env:"AUTH_REFRESH_SECRET,required"`

	AccessTTL  time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"AUTH_REFRESH_TTL" envDefault:"720h"`

	DatabaseFile string `env:"AUTH_DATABASE_FILE" envDefault:"auth.db"`
	PepperFile   string `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	Env                 string        `env:"ENV" envDefault:"dev"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	OAuthSuccessURL string        `env:"OAUTH_SUCCESS_URL" envDefault:"/"`
	OAuthErrorURL   string        `env:"OAUTH_ERROR_URL" envDefault:"/login?error=oauth"`
	OAuthStateTTL   time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`

	// First-run seeding. Both empty disables admin seeding; the built-in
	// roles are always ensured.
	SeedAdminUsername string `env:"SEED_ADMIN_USERNAME"`
	SeedAdminPassword string `env:"SEED_ADMIN_PASSWORD"`
	SeedAdminEmail    string `env:"SEED_ADMIN_EMAIL"`

	Google provider.GoogleConfig
	Apple  provider.AppleConfig
	GitHub provider.GitHubConfig
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return Config{}, fmt.Errorf("config: AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET must differ")
	}
	return cfg, nil
}

func (c Config) Production() bool {
	return c.Env == "prod" || c.Env == "production"
}
