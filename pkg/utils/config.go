package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// DevJWTSecret is the fallback signing key for local runs.
const DevJWTSecret = "dev-secret-change-me"

type Config struct {
	Port   string `env:"PORT,default=3001"`
	AppEnv string `env:"APP_ENV,default=development"`

	DBDriver string `env:"DB_DRIVER,default=sqlite3"`
	DBDSN    string `env:"DB_DSN,default=./data/bitelogs.db"`

	JWTSecret string        `env:"JWT_SECRET,default=dev-secret-change-me"`
	JWTIssuer string        `env:"JWT_ISSUER,default=bitelogs"`
	JWTTTL    time.Duration `env:"JWT_TTL,default=168h"`

	UploadDir   string `env:"UPLOAD_DIR,default=./uploads"`
	MaxFileSize int64  `env:"MAX_FILE_SIZE,default=5242880"`

	CORSOrigins string `env:"CORS_ORIGINS,default=http://localhost:5173"`

	RateLimitDisabled        bool `env:"RATE_LIMIT_DISABLED,default=false"`
	ReviewImageAdminOverride bool `env:"REVIEW_IMAGE_ADMIN_OVERRIDE,default=false"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == DevJWTSecret) {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.MaxFileSize <= 0 {
		return errors.New("MAX_FILE_SIZE must be positive")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
